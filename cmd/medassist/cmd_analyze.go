package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/bryanwahyu/medassist/internal/application/session"
	"github.com/bryanwahyu/medassist/internal/domain/analysis"
	"github.com/bryanwahyu/medassist/internal/infra/backend"
	"github.com/bryanwahyu/medassist/internal/middleware"
)

var analyzeFlags struct {
	category string
	text     string
	severity string
	retries  int
	jsonOut  bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze one file or typed symptoms and print the result",
	Long: `Validate an input, send it to the configured analyzer and print the result.

Usage:
  medassist analyze scan.png                      # category from the extension
  medassist analyze cough.wav --category audio
  medassist analyze --text "fever and chills" --severity moderate

Transient failures (network errors, 5xx, 429) are retried with backoff.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVarP(&analyzeFlags.category, "category", "c", "", "image, audio, video or text (default: from the file extension)")
	f.StringVarP(&analyzeFlags.text, "text", "t", "", "Typed symptoms instead of a file")
	f.StringVar(&analyzeFlags.severity, "severity", "", "Symptom severity: mild, moderate or severe")
	f.IntVar(&analyzeFlags.retries, "retries", 2, "Retries after a transient failure")
	f.BoolVar(&analyzeFlags.jsonOut, "json", false, "Print the result as JSON")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeFlags.text == "" && len(args) == 0 {
		return fmt.Errorf("a file or --text is required\n\nUsage: medassist analyze <file>\n       medassist analyze --text \"...\"")
	}
	if analyzeFlags.text != "" && len(args) > 0 {
		return errors.New("pass either a file or --text, not both")
	}

	cons := analysis.DefaultConstraints()
	cons.MaxBytes = cfg.Upload.MaxBytes
	an, _ := buildAnalyzer(cfg)
	ctl := session.NewController(an, nil, cons)
	ctl.Timeout = cfg.Backend.Timeout

	if err := selectInput(ctl, cons, args); err != nil {
		return errors.New(analysis.UserMessage(err))
	}

	ctx := cmd.Context()
	snap, err := ctl.Submit(ctx)
	for attempt := 1; err == nil && snap.State == session.StateFailed && attempt <= analyzeFlags.retries; attempt++ {
		if !backend.IsTransient(ctl.Err()) {
			break
		}
		wait := time.Duration(attempt) * time.Second
		slog.Info("retrying analysis", "attempt", attempt, "wait", wait, "error", ctl.Err())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		snap, err = ctl.Retry(ctx)
	}
	if err != nil {
		return errors.New(analysis.UserMessage(err))
	}
	if snap.State == session.StateFailed {
		slog.Debug("analysis failed", "error", ctl.Err())
		return errors.New(snap.Error)
	}
	return printResult(cmd.OutOrStdout(), snap)
}

func selectInput(ctl *session.Controller, cons analysis.Constraints, args []string) error {
	if analyzeFlags.text != "" {
		sev, err := middleware.ValidateSeverity(analyzeFlags.severity)
		if err != nil {
			return err
		}
		return ctl.SelectText(middleware.SanitizeString(analyzeFlags.text), sev)
	}

	path := args[0]
	cat := analysis.ParseCategory(analyzeFlags.category)
	if analyzeFlags.category == "" {
		cat = categoryFor(cons, path)
	}
	if _, err := middleware.ValidateCategory(string(cat)); err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return &analysis.ValidationError{Reason: err.Error()}
	}
	cand := analysis.Candidate{
		Name:        filepath.Base(path),
		Category:    cat,
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		Size:        info.Size(),
	}
	// oversized files are rejected before they are read
	if cons.MaxBytes == 0 || info.Size() <= cons.MaxBytes {
		if cand.Data, err = os.ReadFile(path); err != nil {
			return &analysis.ValidationError{Reason: err.Error()}
		}
	}
	return ctl.Select(cand)
}

// categoryFor guesses the category from the file extension.
func categoryFor(cons analysis.Constraints, path string) analysis.Category {
	ext := strings.ToLower(filepath.Ext(path))
	for _, c := range analysis.Categories() {
		if slices.Contains(cons.Accept[c].Extensions, ext) {
			return c
		}
	}
	return ""
}

func printResult(w io.Writer, snap session.Snapshot) error {
	if analyzeFlags.jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap.Result)
	}

	res := snap.Result
	t := newTable()
	t.SetTitle("Analysis Result")
	if a := snap.Artifact; a != nil {
		if a.Category == analysis.CategoryText {
			t.AppendRow([]any{"Input", res.Input})
		} else {
			t.AppendRow([]any{"File", fmt.Sprintf("%s (%s)", a.Name, humanize.IBytes(uint64(a.Size)))})
		}
	}
	t.AppendRow([]any{"Type", res.Category})
	if res.Diagnosis != "" {
		t.AppendRow([]any{"Diagnosis", res.Diagnosis})
	}
	if res.Severity != "" {
		t.AppendRow([]any{"Severity", res.Severity})
	}
	t.AppendRow([]any{"Confidence", fmt.Sprintf("%.0f%%", res.Confidence)})
	t.AppendRow([]any{"Findings", bullets(res.Findings)})
	t.AppendRow([]any{"Recommendations", bullets(res.Recommendations)})
	if res.FileURL != "" {
		t.AppendRow([]any{"Stored at", res.FileURL})
	}
	t.AppendRow([]any{"Date", res.Timestamp.Local().Format(time.DateTime)})
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, res.Disclaimer)
	return nil
}

func bullets(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return "• " + strings.Join(items, "\n• ")
}
