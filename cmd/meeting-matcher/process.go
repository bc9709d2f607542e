package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/meeting-matcher/internal/logging"
	"github.com/pdiddy/meeting-matcher/internal/pipeline"
	"github.com/pdiddy/meeting-matcher/pkg/types"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Fetch meetings for a date range and match them to accounts",
	Long: `Process lists meetings in the date range, fetches each transcript, and
matches every meeting to the accounts in --accounts. Meetings that cannot be
processed are reported as skipped; they never fail the batch.

The accounts file is JSON or YAML: either a list of
{clickup_task_id, nome, email} records or an object with that list under
"clientes".`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	f := processCmd.Flags()
	f.String("from", "", "start date (YYYY-MM-DD)")
	f.String("to", "", "end date (YYYY-MM-DD)")
	f.String("accounts", "", "accounts file (JSON or YAML)")
	f.Bool("no-transcripts", false, "skip transcript fetching")
	f.Int("limit", 0, "maximum number of meetings (default 100)")
	f.Int("workers", 0, "meetings processed concurrently (default 1)")
	f.StringP("output", "o", "table", "output format: table, json, or yaml")
	bindFlag("pipeline.workers", f.Lookup("workers"))

	rootCmd.AddCommand(processCmd)
}

func runProcess(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(mustString(cmd, "output"))
	if err != nil {
		return err
	}
	noTranscripts, _ := cmd.Flags().GetBool("no-transcripts")
	limit, _ := cmd.Flags().GetInt("limit")

	var accounts []types.Account
	if path := mustString(cmd, "accounts"); path != "" {
		accounts, err = loadAccounts(path)
		if err != nil {
			return err
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.pipeline.Process(cmd.Context(), pipeline.Request{
		StartDate:          mustString(cmd, "from"),
		EndDate:            mustString(cmd, "to"),
		Accounts:           accounts,
		IncludeTranscripts: !noTranscripts,
		Limit:              limit,
	})
	if err != nil && report.Count() == 0 {
		return err
	}
	if err != nil {
		appLog.Warn("batch interrupted; printing partial results", logging.Err(err))
	}

	out := cmd.OutOrStdout()
	if format != formatTable {
		if werr := writeStructured(out, format, report); werr != nil {
			return werr
		}
		return err
	}

	fmt.Fprintln(out, renderProcessed(report.Items))
	fmt.Fprintf(out, "%d processed, %d matched, %d skipped (batch %s)\n",
		report.Count(), report.Matched(), len(report.Skipped), report.BatchID)
	for _, s := range report.Skipped {
		fmt.Fprintf(cmd.ErrOrStderr(), "skipped: #%d %s (%s)\n", s.Index, s.MeetingID, s.Reason)
	}
	return err
}

func renderProcessed(items []types.ProcessedMeeting) string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		account, method, confidence := formatMatch(it)
		rows = append(rows, []string{it.ID, formatDate(it.Meeting), it.Title, account, method, confidence})
	}
	return renderTable(
		[]string{"ID", "Date", "Title", "Account", "Method", "Confidence"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}
