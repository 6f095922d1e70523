package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// response is the wire shape of every analyze endpoint.
type response struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Date            string   `json:"date"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
	Confidence      *float64 `json:"confidence"`
	Disclaimer      string   `json:"disclaimer"`
	Diagnosis       string   `json:"diagnosis"`
	Severity        string   `json:"severity"`
	Input           string   `json:"input"`
	FileURL         string   `json:"fileUrl"`
}

// CheckConfidence rejects values outside [0,100]. Out of range input is a
// contract violation by the analyzer and is never clamped.
func CheckConfidence(v *float64) error {
	if v == nil {
		return fmt.Errorf("%w: confidence missing", ErrMalformedResponse)
	}
	if *v < 0 || *v > 100 {
		return fmt.Errorf("%w: confidence %v out of range [0,100]", ErrMalformedResponse, *v)
	}
	return nil
}

func (r response) toResult() (Result, error) {
	if err := CheckConfidence(r.Confidence); err != nil {
		return Result{}, err
	}
	res := Result{
		ID:              ResultID(r.ID),
		Category:        Category(r.Type),
		Findings:        r.Findings,
		Recommendations: r.Recommendations,
		Confidence:      *r.Confidence,
		Disclaimer:      r.Disclaimer,
		Diagnosis:       r.Diagnosis,
		Severity:        Severity(r.Severity),
		Input:           r.Input,
		FileURL:         r.FileURL,
	}
	if res.Findings == nil {
		res.Findings = []string{}
	}
	if res.Recommendations == nil {
		res.Recommendations = []string{}
	}
	if r.Date != "" {
		if t, err := time.Parse(time.RFC3339, r.Date); err == nil {
			res.Timestamp = t
		}
	}
	return res, nil
}

// DecodeResponse parses one analyze response body.
func DecodeResponse(body []byte) (Result, error) {
	var r response
	if err := json.Unmarshal(CleanJSON(body), &r); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return r.toResult()
}

// DecodeHistory parses the history listing. One bad item rejects the whole
// listing.
func DecodeHistory(body []byte) ([]Result, error) {
	var items []response
	if err := json.Unmarshal(CleanJSON(body), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	out := make([]Result, 0, len(items))
	for i, it := range items {
		res, err := it.toResult()
		if err != nil {
			return nil, fmt.Errorf("history item %d: %w", i, err)
		}
		if res.Category != "" && !res.Category.Valid() {
			return nil, fmt.Errorf("%w: history item %d has type %q", ErrMalformedResponse, i, res.Category)
		}
		out = append(out, res)
	}
	return out, nil
}

// CleanJSON strips surrounding whitespace and markdown code fences that
// language models like to wrap around JSON.
func CleanJSON(data []byte) []byte {
	s := bytes.TrimSpace(data)
	if len(s) == 0 {
		return s
	}

	if bytes.HasPrefix(s, []byte("```")) {
		if idx := bytes.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		}
		if bytes.HasSuffix(s, []byte("```")) {
			s = s[:len(s)-3]
		}
		s = bytes.TrimSpace(s)
	}

	return s
}
