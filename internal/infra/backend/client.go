package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Client talks to the analysis backend (/analyze/{category}, /history).
type Client struct {
	baseURL    string
	httpClient *http.Client

	// HistoryLimit is sent as ?limit= on History; zero leaves the backend
	// default.
	HistoryLimit int
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// EndpointFor maps a category to its analyze path. It is total over the four
// supported categories.
func EndpointFor(c analysis.Category) (string, error) {
	switch c {
	case analysis.CategoryImage:
		return "/analyze/image", nil
	case analysis.CategoryAudio:
		return "/analyze/audio", nil
	case analysis.CategoryVideo:
		return "/analyze/video", nil
	case analysis.CategoryText:
		return "/analyze/text", nil
	}
	return "", fmt.Errorf("%w: %q", analysis.ErrUnsupportedCategory, c)
}

// Analyze sends one artifact. Media goes as multipart field "file"; text goes
// as JSON {"text": content}, plus "severity" when the user tagged one.
func (c *Client) Analyze(ctx context.Context, a analysis.Artifact) (analysis.Result, error) {
	path, err := EndpointFor(a.Category)
	if err != nil {
		return analysis.Result{}, err
	}

	var body io.Reader
	var contentType string
	if a.Category == analysis.CategoryText {
		payload := map[string]string{"text": a.Text()}
		if a.Severity != "" {
			payload["severity"] = string(a.Severity)
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return analysis.Result{}, fmt.Errorf("encode text body: %w", err)
		}
		body, contentType = bytes.NewReader(b), "application/json"
	} else {
		buf, ct, err := multipartBody(a)
		if err != nil {
			return analysis.Result{}, err
		}
		body, contentType = buf, ct
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return analysis.Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	data, err := c.do(ctx, req)
	if err != nil {
		return analysis.Result{}, err
	}
	res, err := analysis.DecodeResponse(data)
	if err != nil {
		return analysis.Result{}, err
	}
	res.Category = a.Category
	return res, nil
}

// History fetches past analyses from the backend.
func (c *Client) History(ctx context.Context) ([]analysis.Result, error) {
	u := c.baseURL + "/history"
	if c.HistoryLimit > 0 {
		u += "?limit=" + strconv.Itoa(c.HistoryLimit)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	data, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return analysis.DecodeHistory(data)
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", analysis.ErrNetwork, req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", analysis.ErrNetwork, err)
	}

	// the caller gave up while we were waiting; discard whatever arrived
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", analysis.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &analysis.ServerError{Status: resp.StatusCode, Body: snippet(data)}
	}
	return data, nil
}

func multipartBody(a analysis.Artifact) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, a.Name))
	ct := a.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(a.Data); err != nil {
		return nil, "", fmt.Errorf("write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// IsTransient reports whether retrying the same request may succeed.
func IsTransient(err error) bool {
	var serr *analysis.ServerError
	if errors.As(err, &serr) {
		return serr.Status >= 500 || serr.Status == http.StatusTooManyRequests
	}
	return errors.Is(err, analysis.ErrNetwork)
}
