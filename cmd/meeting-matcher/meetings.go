package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/meeting-matcher/internal/pipeline"
	"github.com/pdiddy/meeting-matcher/pkg/types"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List meetings from the source",
	Long: `List calls list_meetings on the tl;dv MCP server. Filters are passed through
unchanged; empty filters are omitted.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var metadataCmd = &cobra.Command{
	Use:   "metadata <meetingId>",
	Short: "Show the metadata of one meeting",
	Args:  cobra.ExactArgs(1),
	RunE:  runMeetingJSON(func(a *app) meetingFetcher { return a.source.Metadata }),
}

var highlightsCmd = &cobra.Command{
	Use:   "highlights <meetingId>",
	Short: "Show the highlights of one meeting",
	Args:  cobra.ExactArgs(1),
	RunE:  runMeetingJSON(func(a *app) meetingFetcher { return a.source.Highlights }),
}

var transcriptCmd = &cobra.Command{
	Use:   "transcript <meetingId>",
	Short: "Print the transcript of one meeting",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscript,
}

func init() {
	f := listCmd.Flags()
	f.String("query", "", "free-text search")
	f.String("from", "", "start date (YYYY-MM-DD)")
	f.String("to", "", "end date (YYYY-MM-DD)")
	f.String("participation", "", "participation status filter")
	f.String("type", "", "meeting type filter")
	f.Int("limit", types.DefaultListLimit, "maximum number of meetings")
	f.StringP("output", "o", "table", "output format: table, json, or yaml")

	for _, c := range []*cobra.Command{metadataCmd, highlightsCmd} {
		c.Flags().StringP("output", "o", "json", "output format: json or yaml")
	}
	transcriptCmd.Flags().Bool("json", false, "print the full transcript result as JSON")

	rootCmd.AddCommand(listCmd, metadataCmd, highlightsCmd, transcriptCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(mustString(cmd, "output"))
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.source.ListMeetings(cmd.Context(), types.ListFilter{
		Query:               mustString(cmd, "query"),
		StartDate:           mustString(cmd, "from"),
		EndDate:             mustString(cmd, "to"),
		ParticipationStatus: mustString(cmd, "participation"),
		MeetingType:         mustString(cmd, "type"),
		Limit:               limit,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format != formatTable {
		return writeStructured(out, format, rawValues(records))
	}

	rows := make([][]string, 0, len(records))
	for _, raw := range records {
		m, err := pipeline.DecodeMeeting(raw)
		if err != nil {
			rows = append(rows, []string{"?", "", "unreadable record: " + err.Error(), "", ""})
			continue
		}
		rows = append(rows, []string{
			m.ID,
			formatDate(m),
			m.Title,
			strconv.FormatFloat(m.DurationMinutes, 'f', -1, 64),
			strconv.Itoa(len(m.Participants)),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Date", "Title", "Duration", "Participants"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
	))
	fmt.Fprintf(out, "%d meeting(s)\n", len(records))
	return nil
}

type meetingFetcher func(ctx context.Context, meetingID string) (json.RawMessage, error)

func runMeetingJSON(pick func(*app) meetingFetcher) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(mustString(cmd, "output"))
		if err != nil {
			return err
		}
		if format == formatTable {
			format = formatJSON
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := pick(a)(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeStructured(cmd.OutOrStdout(), format, rawValue(result))
	}
}

func runTranscript(cmd *cobra.Command, args []string) error {
	asJSON, _ := cmd.Flags().GetBool("json")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	t, err := a.source.Transcript(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd.OutOrStdout(), t)
	}
	if t.Text == "" {
		return fmt.Errorf("meeting %s has no transcript", args[0])
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), t.Text)
	return err
}

// rawValue decodes raw JSON into plain values so it can be re-encoded as
// YAML. Undecodable input is returned as a string.
func rawValue(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func rawValues(records []json.RawMessage) []any {
	out := make([]any, len(records))
	for i, r := range records {
		out[i] = rawValue(r)
	}
	return out
}

func mustString(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
