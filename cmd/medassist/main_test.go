package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	appbackend "github.com/bryanwahyu/medassist/internal/application/backend"
	"github.com/bryanwahyu/medassist/internal/domain/analysis"
	"github.com/bryanwahyu/medassist/internal/infra/ai/triage"
	"github.com/bryanwahyu/medassist/internal/infra/db/memory"
	"github.com/bryanwahyu/medassist/internal/infra/httpserver"
)

// startBackend runs the reference backend with the offline analyzer and
// points the CLI at it.
func startBackend(t *testing.T) {
	t.Helper()
	svc := &appbackend.Service{
		Analyzer: triage.Analyzer{},
		Repo:     memory.NewResultRepository(),
		Cons:     analysis.DefaultConstraints(),
	}
	srv := httptest.NewServer(httpserver.NewBackendRouter(svc, httpserver.BackendOptions{}))
	t.Cleanup(srv.Close)

	t.Setenv("API_URL", srv.URL)
	t.Setenv("ANALYZER_MODE", "backend")
	t.Setenv("LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	analyzeFlags.category, analyzeFlags.text, analyzeFlags.severity = "", "", ""
	analyzeFlags.retries, analyzeFlags.jsonOut = 0, false
	historyFlags.limit, historyFlags.category, historyFlags.severity, historyFlags.query = 20, "", "", ""
	historyFlags.jsonOut = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--config", filepath.Join(t.TempDir(), "none.yaml")))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeTextThenHistory(t *testing.T) {
	startBackend(t)

	out, err := execute(t, "analyze", "--text", "fever and a cough", "--severity", "moderate", "--json")
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, out)
	}
	var res analysis.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if res.Category != analysis.CategoryText || res.Severity != analysis.SeverityModerate || res.Input != "fever and a cough" {
		t.Errorf("result = %+v", res)
	}
	if res.ID == "" || len(res.Recommendations) == 0 {
		t.Errorf("result missing id or recommendations: %+v", res)
	}

	out, err = execute(t, "history", "--json", "--category", "text")
	if err != nil {
		t.Fatalf("history: %v\n%s", err, out)
	}
	var list []analysis.Result
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if diff := cmp.Diff([]analysis.ResultID{res.ID}, []analysis.ResultID{list[0].ID}); diff != "" || len(list) != 1 {
		t.Errorf("history = %+v", list)
	}

	out, err = execute(t, "history")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(strings.ToLower(out), "1 of 1") {
		t.Errorf("table output:\n%s", out)
	}
}

func TestAnalyzeFile(t *testing.T) {
	startBackend(t)
	path := filepath.Join(t.TempDir(), "rash.png")
	if err := os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "analyze", path)
	if err != nil {
		t.Fatalf("analyze: %v\n%s", err, out)
	}
	for _, want := range []string{"rash.png", "image", analysis.DefaultDisclaimer} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestAnalyzeRejects(t *testing.T) {
	startBackend(t)
	dir := t.TempDir()
	pdf := filepath.Join(dir, "report.pdf")
	os.WriteFile(pdf, []byte("%PDF"), 0o644)

	cases := []struct {
		name string
		args []string
		want string
	}{
		{"nothing", []string{"analyze"}, "a file or --text is required"},
		{"both", []string{"analyze", pdf, "--text", "cough"}, "not both"},
		{"unknown extension", []string{"analyze", pdf}, "Invalid analysis type"},
		{"wrong category", []string{"analyze", pdf, "--category", "image"}, "not accepted"},
		{"blank text", []string{"analyze", "--text", "   "}, "Please enter symptoms"},
		{"bad severity", []string{"analyze", "--text", "cough", "--severity", "awful"}, "invalid severity"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := execute(t, c.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), c.want) {
				t.Errorf("err = %q, want it to contain %q", err, c.want)
			}
		})
	}
}

func TestAnalyzeBackendDown(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()
	t.Setenv("API_URL", url)
	t.Setenv("ANALYZER_MODE", "backend")
	t.Setenv("LOG_LEVEL", "error")

	_, err := execute(t, "analyze", "--text", "headache")
	if err == nil || err.Error() != analysis.UserMessage(analysis.ErrNetwork) {
		t.Errorf("err = %v", err)
	}
}

func TestCategoryFor(t *testing.T) {
	cons := analysis.DefaultConstraints()
	cases := map[string]analysis.Category{
		"a.PNG":     analysis.CategoryImage,
		"b.wav":     analysis.CategoryAudio,
		"c.webm":    analysis.CategoryVideo,
		"notes.txt": analysis.CategoryText,
		"x.pdf":     "",
		"noext":     "",
	}
	for in, want := range cases {
		if got := categoryFor(cons, in); got != want {
			t.Errorf("categoryFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSummary(t *testing.T) {
	long := strings.Repeat("é", 60)
	cases := []struct {
		in   analysis.Result
		want string
	}{
		{analysis.Result{Diagnosis: "Flu"}, "Flu"},
		{analysis.Result{Findings: []string{"Cough", "Fever"}}, "Cough"},
		{analysis.Result{}, "-"},
		{analysis.Result{Diagnosis: long}, strings.Repeat("é", 45) + "..."},
	}
	for _, c := range cases {
		if got := summary(c.in); got != c.want {
			t.Errorf("summary(%+v) = %q, want %q", c.in, got, c.want)
		}
	}
	if got := shortID("0123456789"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
}
