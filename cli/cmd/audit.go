package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"southwinds.dev/cloak/audit"
)

var (
	auditApplication  string
	auditAction       string
	auditSince        string
	auditUntil        string
	auditSuccess      string
	auditFailuresOnly bool
	auditLimit        int
	auditOffset       int
	auditJSON         bool
	auditDetails      bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the audit trail",
	Long: `Query recorded audit events, newest first. Events are filtered by
action, outcome and time range; timestamps are RFC3339.

Examples:
  cloak audit
  cloak audit --action decrypt --failures-only
  cloak audit --since 2026-08-01T00:00:00Z --limit 20
  cloak audit --json | jq '.events[].action'`,
	RunE: runAuditQuery,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.Flags().StringVar(&auditApplication, "application", "", "filter by application name")
	auditCmd.Flags().StringVar(&auditAction, "action", "", "filter by action, e.g. decrypt or file.encrypt")
	auditCmd.Flags().StringVar(&auditSince, "since", "", "only events at or after this RFC3339 timestamp")
	auditCmd.Flags().StringVar(&auditUntil, "until", "", "only events before this RFC3339 timestamp")
	auditCmd.Flags().StringVar(&auditSuccess, "success", "", "filter by outcome: true or false")
	auditCmd.Flags().BoolVar(&auditFailuresOnly, "failures-only", false, "show only failed operations")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 100, "maximum number of events to return")
	auditCmd.Flags().IntVar(&auditOffset, "offset", 0, "number of events to skip")
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "output the result as JSON")
	auditCmd.Flags().BoolVar(&auditDetails, "details", false, "show full event details instead of the table")
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	started := auditCmdStart(cmd, args)

	err := queryAuditLog()

	return auditCmdComplete(cmd, "audit.query", err, started)
}

func queryAuditLog() error {
	if !viper.GetBool("audit.enabled") {
		return fmt.Errorf("audit logging is not enabled, set audit.enabled in the configuration or pass --audit")
	}

	options, err := buildQueryOptions()
	if err != nil {
		return err
	}

	result, err := auditLogger.Query(options)
	if err != nil {
		return fmt.Errorf("failed to query audit log: %w", err)
	}

	if auditJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	displayAuditEvents(result, options)
	return nil
}

func buildQueryOptions() (audit.QueryOptions, error) {
	options := audit.QueryOptions{
		Application: auditApplication,
		Action:      auditAction,
		Limit:       auditLimit,
		Offset:      auditOffset,
	}

	if auditSince != "" {
		t, err := time.Parse(time.RFC3339, auditSince)
		if err != nil {
			return options, fmt.Errorf("invalid --since value %q, expected RFC3339 like 2026-01-02T15:04:05Z", auditSince)
		}
		options.Since = &t
	}

	if auditUntil != "" {
		t, err := time.Parse(time.RFC3339, auditUntil)
		if err != nil {
			return options, fmt.Errorf("invalid --until value %q, expected RFC3339 like 2026-01-02T15:04:05Z", auditUntil)
		}
		options.Until = &t
	}

	if auditFailuresOnly {
		failed := false
		options.Success = &failed
	} else if auditSuccess != "" {
		v, err := strconv.ParseBool(auditSuccess)
		if err != nil {
			return options, fmt.Errorf("invalid --success value %q, expected true or false", auditSuccess)
		}
		options.Success = &v
	}

	return options, nil
}

func displayAuditEvents(result audit.QueryResult, options audit.QueryOptions) {
	if len(result.Events) == 0 {
		fmt.Println("No audit events match the query.")
		return
	}

	if auditDetails {
		displayAuditDetails(result.Events)
	} else {
		displayAuditTable(result.Events)
	}

	fmt.Printf("\nShowing %d of %d event(s)", len(result.Events), result.Filtered)
	if result.HasMore {
		fmt.Printf(" (more available, use --offset %d)", options.Offset+len(result.Events))
	}
	fmt.Println()
}

func displayAuditTable(events []audit.Event) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "TIMESTAMP\tAPPLICATION\tACTION\tSTATUS\tERROR")

	for _, event := range events {
		status := "ok"
		if !event.Success {
			status = "FAILED"
		}

		errMsg := event.Error
		if len(errMsg) > 30 {
			errMsg = errMsg[:27] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			event.Timestamp.Format("2006-01-02 15:04:05"),
			event.Application,
			event.Action,
			status,
			errMsg)
	}
}

func displayAuditDetails(events []audit.Event) {
	for i, event := range events {
		if i > 0 {
			fmt.Println(strings.Repeat("─", 60))
		}

		status := "success"
		if !event.Success {
			status = "failed"
		}

		fmt.Printf("ID:          %s\n", event.ID)
		fmt.Printf("Timestamp:   %s\n", event.Timestamp.Format(time.RFC3339))
		fmt.Printf("Application: %s\n", event.Application)
		fmt.Printf("Action:      %s\n", event.Action)
		fmt.Printf("Status:      %s\n", status)
		if event.Source != "" {
			fmt.Printf("Source:      %s\n", event.Source)
		}
		if event.Error != "" {
			fmt.Printf("Error:       %s\n", event.Error)
		}
		if len(event.Metadata) > 0 {
			fmt.Println("Metadata:")
			keys := make([]string, 0, len(event.Metadata))
			for k := range event.Metadata {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("  %s: %v\n", k, event.Metadata[k])
			}
		}
	}
}
