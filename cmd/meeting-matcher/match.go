package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/meeting-matcher/pkg/types"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Match meetings from a file against accounts, offline",
	Long: `Match runs the matcher on meetings read from a JSON or YAML file, without
contacting the meeting source. Meetings use the processed wire names
(tldv_meeting_id, titulo, participantes). Useful for checking how a set of
accounts will match before running a batch.`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.String("meetings", "", "meetings file (JSON or YAML)")
	f.String("accounts", "", "accounts file (JSON or YAML)")
	f.StringP("output", "o", "table", "output format: table, json, or yaml")
	f.StringSlice("stop-words", nil, "extra stop words (added to match.extra_stop_words)")

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(mustString(cmd, "output"))
	if err != nil {
		return err
	}
	meetingsPath, accountsPath := mustString(cmd, "meetings"), mustString(cmd, "accounts")
	if meetingsPath == "" || accountsPath == "" {
		return fmt.Errorf("both --meetings and --accounts are required")
	}

	var meetings []types.Meeting
	if err := readDocument(meetingsPath, &meetings); err != nil {
		return err
	}
	accounts, err := loadAccounts(accountsPath)
	if err != nil {
		return err
	}

	extra, _ := cmd.Flags().GetStringSlice("stop-words")
	m := newMatcher(types.MatchConfig{
		ExtraStopWords: append(viper.GetStringSlice("match.extra_stop_words"), extra...),
	})

	results := make([]types.ProcessedMeeting, len(meetings))
	matched := 0
	for i, mt := range meetings {
		results[i] = types.ProcessedMeeting{Meeting: mt}
		if r, ok := m.Match(mt, accounts); ok {
			results[i].ApplyMatch(r)
			matched++
		}
	}

	out := cmd.OutOrStdout()
	if format != formatTable {
		return writeStructured(out, format, results)
	}
	fmt.Fprintln(out, renderProcessed(results))
	fmt.Fprintf(out, "%d of %d meeting(s) matched\n", matched, len(results))
	return nil
}
