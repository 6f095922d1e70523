package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bryanwahyu/medassist/internal/application"
	appbackend "github.com/bryanwahyu/medassist/internal/application/backend"
	"github.com/bryanwahyu/medassist/internal/domain/analysis"
	"github.com/bryanwahyu/medassist/internal/infra/ai/triage"
	backendclient "github.com/bryanwahyu/medassist/internal/infra/backend"
	"github.com/bryanwahyu/medassist/internal/infra/db/memory"
)

type failingArchived struct{}

func (failingArchived) AnalyzeArchived(context.Context, analysis.Artifact, string) (analysis.Result, error) {
	return analysis.Result{}, &analysis.ServerError{Status: http.StatusTooManyRequests, Body: "quota"}
}

func newBackend(t *testing.T, an analysis.ArchivedAnalyzer) (*httptest.Server, *memory.ResultRepository) {
	t.Helper()
	repo := memory.NewResultRepository()
	svc := &appbackend.Service{
		Analyzer: an,
		Repo:     repo,
		Clock:    &application.FixedClock{T: time.Date(2024, 2, 2, 9, 0, 0, 0, time.UTC), Step: time.Minute},
	}
	srv := httptest.NewServer(NewBackendRouter(svc, BackendOptions{}))
	t.Cleanup(srv.Close)
	return srv, repo
}

// The web-side client and the reference backend agree on the wire format.
func TestBackend_RoundTripWithClient(t *testing.T) {
	srv, repo := newBackend(t, triage.Analyzer{})
	client := backendclient.NewClient(srv.URL, 5*time.Second)

	text, _ := analysis.NewTextArtifact("fever and a sore throat", analysis.SeverityModerate)
	res, err := client.Analyze(context.Background(), text)
	if err != nil {
		t.Fatalf("text analyze: %v", err)
	}
	if res.Category != analysis.CategoryText || len(res.Findings) == 0 {
		t.Errorf("text result = %+v", res)
	}

	audio := analysis.Artifact{Name: "breath.wav", Category: analysis.CategoryAudio, ContentType: "audio/wav", Data: []byte("RIFF")}
	if _, err := client.Analyze(context.Background(), audio); err != nil {
		t.Fatalf("audio analyze: %v", err)
	}

	hist, err := client.History(context.Background())
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 || hist[0].Category != analysis.CategoryAudio || hist[1].Input != "fever and a sore throat" {
		t.Errorf("history = %+v", hist)
	}
	if repo.Len() != 2 {
		t.Errorf("repo rows = %d", repo.Len())
	}
}

func TestBackend_Errors(t *testing.T) {
	srv, _ := newBackend(t, failingArchived{})
	client := backendclient.NewClient(srv.URL, 5*time.Second)

	text, _ := analysis.NewTextArtifact("cough", "")
	_, err := client.Analyze(context.Background(), text)
	if !errors.Is(err, analysis.ErrQuotaExceeded) {
		t.Errorf("quota from analyzer: err = %v", err)
	}

	_, err = client.Analyze(context.Background(), analysis.Artifact{Name: "notes.pdf", Category: analysis.CategoryImage, Data: []byte("x")})
	var serr *analysis.ServerError
	if !errors.As(err, &serr) || serr.Status != http.StatusBadRequest {
		t.Errorf("bad upload: err = %v", err)
	}

	resp, err := http.Post(srv.URL+"/analyze/xray", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unknown category = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/history/nope", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("delete missing = %d", resp.StatusCode)
	}
}

func TestBackend_Health(t *testing.T) {
	srv, _ := newBackend(t, triage.Analyzer{})
	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health = %d", resp.StatusCode)
	}
}
