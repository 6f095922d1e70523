package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]string{"role": "assistant", "content": content},
		}},
	})
	return string(b)
}

type captured struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string          `json:"role"`
		Content json.RawMessage `json:"content"`
	} `json:"messages"`
}

func newServer(t *testing.T, status int, body string, seen *captured) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		if seen != nil {
			data, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(data, seen); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
}

func TestClient_AnalyzeSymptoms(t *testing.T) {
	var seen captured
	content := "```json\n{\"diagnosis\":\"Common cold\",\"confidence\":72,\"recommendations\":[\"Rest\",\"Hydrate\"]}\n```"
	srv := newServer(t, http.StatusOK, completion(content), &seen)
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "", srv.URL+"/v1")
	a, _ := analysis.NewTextArtifact("runny nose and sneezing", analysis.SeverityMild)
	got, err := c.Analyze(context.Background(), a)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	want := analysis.Result{
		Category:        analysis.CategoryText,
		Findings:        []string{"Common cold"},
		Recommendations: []string{"Rest", "Hydrate"},
		Confidence:      72,
		Disclaimer:      analysis.DefaultDisclaimer,
		Diagnosis:       "Common cold",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}

	if seen.Model != defaultModel {
		t.Errorf("model = %q, want %q", seen.Model, defaultModel)
	}
	if len(seen.Messages) != 2 || seen.Messages[0].Role != "system" {
		t.Fatalf("unexpected messages %+v", seen.Messages)
	}
	var userText string
	json.Unmarshal(seen.Messages[1].Content, &userText)
	if !strings.Contains(userText, "runny nose and sneezing") || !strings.Contains(userText, "mild") {
		t.Errorf("user prompt = %q", userText)
	}
}

func TestClient_AnalyzeImageSendsDataURL(t *testing.T) {
	var seen captured
	srv := newServer(t, http.StatusOK, completion(`{"diagnosis":"Eczema","confidence":55,"recommendations":[]}`), &seen)
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "gpt-4o", srv.URL+"/v1")
	a := analysis.Artifact{Name: "skin.png", Category: analysis.CategoryImage, ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	if _, err := c.Analyze(context.Background(), a); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	raw := string(seen.Messages[1].Content)
	if !strings.Contains(raw, "data:image/png;base64,") {
		t.Errorf("image part missing data URL: %s", raw)
	}
}

func TestClient_AudioUnsupported(t *testing.T) {
	c := NewClientWithBaseURL("test-key", "", "http://127.0.0.1:1/v1")
	_, err := c.Analyze(context.Background(), analysis.Artifact{Name: "a.wav", Category: analysis.CategoryAudio})
	if !errors.Is(err, analysis.ErrUnsupportedCategory) {
		t.Fatalf("err = %v, want ErrUnsupportedCategory", err)
	}
}

func TestClient_AnalyzeArchivedAudio(t *testing.T) {
	var seen captured
	srv := newServer(t, http.StatusOK, completion(`{"diagnosis":"Possible wheeze","confidence":30,"recommendations":["See a doctor"]}`), &seen)
	defer srv.Close()

	c := NewClientWithBaseURL("test-key", "", srv.URL+"/v1")
	a := analysis.Artifact{Name: "breath.wav", Category: analysis.CategoryAudio, ContentType: "audio/wav"}
	res, err := c.AnalyzeArchived(context.Background(), a, "http://minio/bucket/breath.wav")
	if err != nil {
		t.Fatal(err)
	}
	if res.FileURL != "http://minio/bucket/breath.wav" || res.Category != analysis.CategoryAudio {
		t.Errorf("result = %+v", res)
	}
	var userText string
	json.Unmarshal(seen.Messages[1].Content, &userText)
	if !strings.Contains(userText, "http://minio/bucket/breath.wav") {
		t.Errorf("user prompt = %q", userText)
	}
}

func TestClient_Errors(t *testing.T) {
	a, _ := analysis.NewTextArtifact("dizzy", "")

	t.Run("quota", func(t *testing.T) {
		srv := newServer(t, http.StatusTooManyRequests, `{"error":{"message":"quota exceeded","type":"insufficient_quota"}}`, nil)
		defer srv.Close()
		_, err := NewClientWithBaseURL("test-key", "", srv.URL+"/v1").Analyze(context.Background(), a)
		if !errors.Is(err, analysis.ErrQuotaExceeded) {
			t.Fatalf("err = %v, want ErrQuotaExceeded", err)
		}
	})

	t.Run("not json", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, completion("I think you have a cold."), nil)
		defer srv.Close()
		_, err := NewClientWithBaseURL("test-key", "", srv.URL+"/v1").Analyze(context.Background(), a)
		if !errors.Is(err, analysis.ErrMalformedResponse) {
			t.Fatalf("err = %v, want ErrMalformedResponse", err)
		}
	})

	t.Run("network", func(t *testing.T) {
		srv := newServer(t, http.StatusOK, "", nil)
		url := srv.URL
		srv.Close()
		_, err := NewClientWithBaseURL("test-key", "", url+"/v1").Analyze(context.Background(), a)
		if !errors.Is(err, analysis.ErrNetwork) {
			t.Fatalf("err = %v, want ErrNetwork", err)
		}
	})
}

func TestParseDiagnosis(t *testing.T) {
	cases := map[string]struct {
		in      string
		wantErr bool
	}{
		"plain":          {`{"diagnosis":"Flu","confidence":80,"recommendations":["Rest"]}`, false},
		"fenced":         {"```\n{\"diagnosis\":\"Flu\",\"confidence\":80}\n```", false},
		"with findings":  {`{"diagnosis":"Flu","confidence":80,"findings":["Fever"]}`, false},
		"out of range":   {`{"diagnosis":"Flu","confidence":150}`, true},
		"missing":        {`{"diagnosis":"Flu"}`, true},
		"percent string": {`{"diagnosis":"Flu","confidence":"80%"}`, true},
		"prose":          {`Flu, probably.`, true},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDiagnosis(c.in)
			if c.wantErr != (err != nil) {
				t.Fatalf("err = %v, wantErr %v", err, c.wantErr)
			}
			if err != nil && !errors.Is(err, analysis.ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}

	res, _ := ParseDiagnosis(`{"diagnosis":"Flu","confidence":80,"findings":["Fever"]}`)
	if diff := cmp.Diff([]string{"Fever"}, res.Findings); diff != "" {
		t.Errorf("findings mismatch:\n%s", diff)
	}
}
