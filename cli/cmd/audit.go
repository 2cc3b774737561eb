package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"southwinds.dev/maskpass/audit"
)

var (
	auditJSONOutput    bool
	auditSince         string
	auditUntil         string
	auditLimit         int
	auditOffset        int
	auditAction        string
	auditSuccessFilter string
	auditSlot          string
	auditEnvName       string
	auditFailuresOnly  bool
	auditDetails       bool
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Query the passphrase audit trail",
	Long: `Query the audit trail written by the file audit logger.

Events record which passphrase variable was loaded, prompted for, left unchanged,
released or failed to update. Passphrases and masks are never logged.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		auditLogger, err = createAuditLogger()
		return err
	},
}

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query audit events with filters",
	Long: `Query audit events with filters.

Examples:
  # Everything that touched the TLS "client" passphrase
  maskpass audit query --env-name ydb_tls_passwd_client

  # Prompts in the last day as JSON
  maskpass audit query --action passphrase_prompted --since 2024-01-01T00:00:00Z --json`,
	Args: cobra.NoArgs,
	RunE: runAuditQuery,
}

var auditFailuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Show failed passphrase updates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		auditFailuresOnly = true
		return runAuditQuery(cmd, args)
	},
}

var auditSummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show audit summary statistics",
	Args:  cobra.NoArgs,
	RunE:  runAuditSummary,
}

func init() {
	rootCmd.AddCommand(auditCmd)

	auditCmd.AddCommand(auditQueryCmd)
	auditCmd.AddCommand(auditFailuresCmd)
	auditCmd.AddCommand(auditSummaryCmd)

	auditCmd.PersistentFlags().BoolVar(&auditJSONOutput, "json", false, "Output in JSON format")
	auditCmd.PersistentFlags().StringVar(&auditSince, "since", "", "Show events since this time (RFC3339 format)")
	auditCmd.PersistentFlags().StringVar(&auditUntil, "until", "", "Show events until this time (RFC3339 format)")
	auditCmd.PersistentFlags().IntVar(&auditLimit, "limit", 100, "Maximum number of events to return")
	auditCmd.PersistentFlags().IntVar(&auditOffset, "offset", 0, "Number of events to skip")
	auditCmd.PersistentFlags().StringVar(&auditSlot, "slot", "", "Filter by slot (database, tls)")
	auditCmd.PersistentFlags().StringVar(&auditEnvName, "env-name", "", "Filter by environment variable name")
	auditCmd.PersistentFlags().BoolVar(&auditDetails, "details", false, "Show detailed event information")

	auditQueryCmd.Flags().StringVar(&auditAction, "action", "", "Filter by specific action")
	auditQueryCmd.Flags().StringVar(&auditSuccessFilter, "success", "", "Filter by success status (true/false)")
	auditQueryCmd.Flags().BoolVar(&auditFailuresOnly, "failures-only", false, "Show only failed events")
}

func buildQueryOptions() (audit.QueryOptions, error) {
	options := audit.QueryOptions{
		Limit:   auditLimit,
		Offset:  auditOffset,
		Action:  auditAction,
		Slot:    auditSlot,
		EnvName: auditEnvName,
	}

	if auditSince != "" {
		parsed, err := time.Parse(time.RFC3339, auditSince)
		if err != nil {
			return options, fmt.Errorf("invalid since time format: %w", err)
		}
		options.Since = &parsed
	}
	if auditUntil != "" {
		parsed, err := time.Parse(time.RFC3339, auditUntil)
		if err != nil {
			return options, fmt.Errorf("invalid until time format: %w", err)
		}
		options.Until = &parsed
	}

	if auditSuccessFilter != "" {
		success, err := strconv.ParseBool(auditSuccessFilter)
		if err != nil {
			return options, fmt.Errorf("invalid success filter format: %w", err)
		}
		options.Success = &success
	}
	if auditFailuresOnly {
		failed := false
		options.Success = &failed
	}
	return options, nil
}

func checkAuditEnabled() error {
	if !viper.GetBool("audit.enabled") {
		return fmt.Errorf("audit logging is disabled; enable it with --audit or audit.enabled in the config file")
	}
	return nil
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	if err := checkAuditEnabled(); err != nil {
		return err
	}
	options, err := buildQueryOptions()
	if err != nil {
		return err
	}
	result, err := auditLogger.Query(options)
	if err != nil {
		return fmt.Errorf("failed to query audit logs: %w", err)
	}

	if auditJSONOutput {
		return printJSON(cmd.OutOrStdout(), result)
	}
	if err = displayAuditEvents(cmd.OutOrStdout(), result.Events); err != nil {
		return err
	}
	if result.HasMore {
		fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d of %d matching events (use --offset to page)\n",
			len(result.Events), result.Filtered)
	}
	return nil
}

// AuditStats summarises the events matching a query.
type AuditStats struct {
	GeneratedAt      time.Time      `json:"generated_at"`
	TotalEvents      int            `json:"total_events"`
	SuccessfulEvents int            `json:"successful_events"`
	FailedEvents     int            `json:"failed_events"`
	SuccessRate      float64        `json:"success_rate"`
	ActionBreakdown  map[string]int `json:"action_breakdown"`
	VariableCounts   map[string]int `json:"variable_counts"`
	FirstEvent       *time.Time     `json:"first_event,omitempty"`
	LastEvent        *time.Time     `json:"last_event,omitempty"`
}

func runAuditSummary(cmd *cobra.Command, args []string) error {
	if err := checkAuditEnabled(); err != nil {
		return err
	}
	options, err := buildQueryOptions()
	if err != nil {
		return err
	}
	// the summary covers every matching event
	options.Limit, options.Offset = 0, 0

	result, err := auditLogger.Query(options)
	if err != nil {
		return fmt.Errorf("failed to query audit logs: %w", err)
	}
	stats := calculateAuditStats(result.Events)
	if auditJSONOutput {
		return printJSON(cmd.OutOrStdout(), stats)
	}
	return displayAuditStats(cmd.OutOrStdout(), stats)
}

func calculateAuditStats(events []audit.Event) AuditStats {
	stats := AuditStats{
		GeneratedAt:     time.Now().UTC(),
		TotalEvents:     len(events),
		ActionBreakdown: make(map[string]int),
		VariableCounts:  make(map[string]int),
	}
	for i := range events {
		event := &events[i]
		if event.Success {
			stats.SuccessfulEvents++
		} else {
			stats.FailedEvents++
		}
		stats.ActionBreakdown[event.Action]++
		if event.EnvName != "" {
			stats.VariableCounts[event.EnvName]++
		}
		if stats.FirstEvent == nil || event.Timestamp.Before(*stats.FirstEvent) {
			stats.FirstEvent = &event.Timestamp
		}
		if stats.LastEvent == nil || event.Timestamp.After(*stats.LastEvent) {
			stats.LastEvent = &event.Timestamp
		}
	}
	if stats.TotalEvents > 0 {
		stats.SuccessRate = float64(stats.SuccessfulEvents) / float64(stats.TotalEvents) * 100
	}
	return stats
}

func displayAuditStats(out io.Writer, stats AuditStats) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Total Events:\t%d\n", stats.TotalEvents)
	fmt.Fprintf(w, "Successful:\t%d\n", stats.SuccessfulEvents)
	fmt.Fprintf(w, "Failed:\t%d\n", stats.FailedEvents)
	fmt.Fprintf(w, "Success Rate:\t%.1f%%\n", stats.SuccessRate)
	if stats.FirstEvent != nil {
		fmt.Fprintf(w, "Time Range:\t%s - %s\n",
			stats.FirstEvent.Format("2006-01-02 15:04:05"), stats.LastEvent.Format("2006-01-02 15:04:05"))
	}

	fmt.Fprintln(w, "\nACTION\tCOUNT")
	for _, name := range sortedKeys(stats.ActionBreakdown) {
		fmt.Fprintf(w, "%s\t%d\n", name, stats.ActionBreakdown[name])
	}
	if len(stats.VariableCounts) > 0 {
		fmt.Fprintln(w, "\nVARIABLE\tCOUNT")
		for _, name := range sortedKeys(stats.VariableCounts) {
			fmt.Fprintf(w, "%s\t%d\n", name, stats.VariableCounts[name])
		}
	}
	return w.Flush()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func displayAuditEvents(out io.Writer, events []audit.Event) error {
	if len(events) == 0 {
		fmt.Fprintln(out, "No audit events found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if auditDetails {
		for _, event := range events {
			fmt.Fprintf(w, "Event ID:\t%s\n", event.ID)
			fmt.Fprintf(w, "Timestamp:\t%s\n", event.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "Action:\t%s\n", event.Action)
			fmt.Fprintf(w, "Status:\t%s\n", eventStatus(event))
			if event.Slot != "" {
				fmt.Fprintf(w, "Slot:\t%s\n", event.Slot)
			}
			if event.EnvName != "" {
				fmt.Fprintf(w, "Variable:\t%s\n", event.EnvName)
			}
			if event.Error != "" {
				fmt.Fprintf(w, "Error:\t%s\n", event.Error)
			}
			if event.Source != "" {
				fmt.Fprintf(w, "Source:\t%s (pid %d)\n", event.Source, event.PID)
			}
			if len(event.Metadata) > 0 {
				data, _ := json.Marshal(event.Metadata)
				fmt.Fprintf(w, "Metadata:\t%s\n", data)
			}
			fmt.Fprintf(w, "────────────────────────────────────────\n")
		}
		return w.Flush()
	}

	fmt.Fprintf(w, "TIMESTAMP\tACTION\tSTATUS\tSLOT\tVARIABLE\tERROR\n")
	for _, event := range events {
		errorMsg := event.Error
		if len(errorMsg) > 40 {
			errorMsg = errorMsg[:40] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			event.Timestamp.Format("2006-01-02 15:04:05"), event.Action, eventStatus(event),
			event.Slot, event.EnvName, errorMsg)
	}
	return w.Flush()
}

func eventStatus(event audit.Event) string {
	if event.Success {
		return "SUCCESS"
	}
	return "FAILED"
}
