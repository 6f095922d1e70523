package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/medassist/internal/application/history"
	"github.com/bryanwahyu/medassist/internal/domain/analysis"
	"github.com/bryanwahyu/medassist/internal/infra/backend"
	"github.com/bryanwahyu/medassist/internal/middleware"
)

var historyFlags struct {
	limit    int
	category string
	severity string
	query    string
	jsonOut  bool
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past analyses recorded by the backend",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	f := historyCmd.Flags()
	f.IntVarP(&historyFlags.limit, "limit", "n", 20, "Maximum entries to show (1-100)")
	f.StringVarP(&historyFlags.category, "category", "c", "", "Only this category")
	f.StringVar(&historyFlags.severity, "severity", "", "Only this severity")
	f.StringVarP(&historyFlags.query, "query", "q", "", "Case-insensitive text search")
	f.BoolVar(&historyFlags.jsonOut, "json", false, "Print as JSON")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cat, err := middleware.ValidateOptionalCategory(historyFlags.category)
	if err != nil {
		return err
	}
	sev, err := middleware.ValidateSeverity(historyFlags.severity)
	if err != nil {
		return err
	}

	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.Timeout)
	client.HistoryLimit = maxHistory
	// filters run locally, so fetch the full page and cut afterwards
	store := history.NewStore()
	if err := store.Reload(cmd.Context(), client); err != nil {
		return fmt.Errorf("%s: %w", analysis.UserMessage(err), err)
	}
	list := store.Filter(history.Filter{
		Category: cat,
		Severity: sev,
		Query:    middleware.SanitizeString(historyFlags.query),
	})
	if n := middleware.ValidateLimit(historyFlags.limit); len(list) > n {
		list = list[:n]
	}

	w := cmd.OutOrStdout()
	if historyFlags.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}
	if len(list) == 0 {
		fmt.Fprintln(w, "No analyses yet.")
		return nil
	}

	t := newTable()
	t.AppendHeader([]any{"ID", "Type", "Summary", "Confidence", "Severity", "When"})
	for _, r := range list {
		t.AppendRow([]any{shortID(r.ID), r.Category, summary(r), fmt.Sprintf("%.0f%%", r.Confidence), dash(string(r.Severity)), humanize.Time(r.Timestamp)})
	}
	t.AppendFooter([]any{"", "", fmt.Sprintf("%d of %d", len(list), store.Len())})
	fmt.Fprintln(w, t.Render())
	return nil
}

func shortID(id analysis.ResultID) string {
	if len(id) > 8 {
		return string(id[:8])
	}
	return string(id)
}

func summary(r analysis.Result) string {
	s := r.Diagnosis
	if s == "" && len(r.Findings) > 0 {
		s = r.Findings[0]
	}
	if r := []rune(s); len(r) > 48 {
		s = string(r[:45]) + "..."
	}
	return dash(s)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
