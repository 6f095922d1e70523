package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

const okBody = `{"findings":["Mild redness"],"recommendations":["See a doctor"],"confidence":82,"disclaimer":"Not medical advice"}`

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) add(p string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, p)
}

func TestClient_AnalyzeMedia(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.Path)
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		if string(data) != "bytes" {
			t.Errorf("file content = %q", data)
		}
		if hdr.Filename != "sample" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		if len(r.MultipartForm.File) != 1 || len(r.MultipartForm.Value) != 0 {
			t.Errorf("expected a single-part body, got %d files %d values", len(r.MultipartForm.File), len(r.MultipartForm.Value))
		}
		io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	for _, cat := range []analysis.Category{analysis.CategoryImage, analysis.CategoryAudio, analysis.CategoryVideo} {
		res, err := c.Analyze(context.Background(), analysis.Artifact{Name: "sample", Category: cat, Data: []byte("bytes")})
		if err != nil {
			t.Fatalf("%s: %v", cat, err)
		}
		if res.Category != cat || res.Confidence != 82 {
			t.Errorf("%s: result = %+v", cat, res)
		}
	}

	want := []string{"/analyze/image", "/analyze/audio", "/analyze/video"}
	if diff := cmp.Diff(want, rec.paths); diff != "" {
		t.Errorf("endpoints mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_AnalyzeTextSendsContent(t *testing.T) {
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.Path)
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Text != "persistent cough for two weeks" {
			t.Errorf("text = %q, want artifact content", body.Text)
		}
		io.WriteString(w, okBody)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	a := analysis.Artifact{Name: "notes.txt", Category: analysis.CategoryText, Data: []byte("persistent cough for two weeks")}
	if _, err := c.Analyze(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"/analyze/text"}, rec.paths); diff != "" {
		t.Errorf("endpoints mismatch:\n%s", diff)
	}
}

func TestClient_UnsupportedCategoryNoCall(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.Analyze(context.Background(), analysis.Artifact{Category: "xray"})
	if !errors.Is(err, analysis.ErrUnsupportedCategory) {
		t.Fatalf("err = %v", err)
	}
	if called {
		t.Error("network call made for unsupported category")
	}
}

func TestClient_Errors(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		check   func(error) bool
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { http.Error(w, "down", http.StatusBadGateway) },
			check: func(err error) bool {
				var serr *analysis.ServerError
				return errors.As(err, &serr) && serr.Status == http.StatusBadGateway
			},
		},
		{
			name:    "malformed",
			handler: func(w http.ResponseWriter, r *http.Request) { io.WriteString(w, `{"confidence":150}`) },
			check:   func(err error) bool { return errors.Is(err, analysis.ErrMalformedResponse) },
		},
		{
			name:    "quota",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
			check:   func(err error) bool { return errors.Is(err, analysis.ErrQuotaExceeded) },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			_, err := NewClient(srv.URL, time.Second).Analyze(context.Background(),
				analysis.Artifact{Name: "a.png", Category: analysis.CategoryImage})
			if !tc.check(err) {
				t.Fatalf("unexpected error %v", err)
			}
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Analyze(context.Background(),
		analysis.Artifact{Name: "a.png", Category: analysis.CategoryImage})
	if !errors.Is(err, analysis.ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
	if !IsTransient(err) {
		t.Error("network error should be transient")
	}
}

func TestClient_CancelledBeforeResponseDiscards(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		io.WriteString(w, okBody)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).Analyze(ctx,
		analysis.Artifact{Name: "a.png", Category: analysis.CategoryImage})
	if !errors.Is(err, analysis.ErrNetwork) || !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want cancelled network error", err)
	}
}

func TestClient_History(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/history" || r.Method != http.MethodGet {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `[{"id":"h1","type":"audio","date":"2024-01-02T03:04:05Z","findings":["wheeze"],"recommendations":[],"confidence":64,"disclaimer":"d"}]`)
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, time.Second).History(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := []analysis.Result{{
		ID:              "h1",
		Category:        analysis.CategoryAudio,
		Findings:        []string{"wheeze"},
		Recommendations: []string{},
		Confidence:      64,
		Disclaimer:      "d",
		Timestamp:       time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("History mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_HistoryLimit(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		io.WriteString(w, `[]`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	if _, err := c.History(context.Background()); err != nil {
		t.Fatal(err)
	}
	c.HistoryLimit = 100
	if _, err := c.History(context.Background()); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"", "limit=100"}, queries); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestIsTransient(t *testing.T) {
	if IsTransient(&analysis.ServerError{Status: 400}) {
		t.Error("400 should not be transient")
	}
	if !IsTransient(&analysis.ServerError{Status: 503}) {
		t.Error("503 should be transient")
	}
	if IsTransient(analysis.ErrMalformedResponse) {
		t.Error("malformed response should not be transient")
	}
}
