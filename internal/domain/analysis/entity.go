package analysis

import (
	"strings"
	"time"
)

// ResultID identifier type
type ResultID string

// Category decides which analysis operation handles an artifact.
type Category string

const (
	CategoryImage Category = "image"
	CategoryAudio Category = "audio"
	CategoryVideo Category = "video"
	CategoryText  Category = "text"
)

// Categories lists every supported category in display order.
func Categories() []Category {
	return []Category{CategoryImage, CategoryAudio, CategoryVideo, CategoryText}
}

// ParseCategory normalizes raw input; unknown values are returned as-is so the
// dispatcher can reject them.
func ParseCategory(s string) Category {
	return Category(strings.ToLower(strings.TrimSpace(s)))
}

// Valid reports whether c is one of the four supported categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryImage, CategoryAudio, CategoryVideo, CategoryText:
		return true
	}
	return false
}

// Severity is the user-reported tag on typed symptoms.
type Severity string

const (
	SeverityMild     Severity = "mild"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

func (s Severity) Valid() bool {
	switch s {
	case "", SeverityMild, SeverityModerate, SeveritySevere:
		return true
	}
	return false
}

// Artifact is one user-selected input awaiting analysis. It is never mutated
// after validation.
type Artifact struct {
	Name        string
	Category    Category
	ContentType string
	Size        int64
	Data        []byte

	// set by SelectText only
	Severity Severity
}

// Text returns the artifact content as a string, used by the text path.
func (a Artifact) Text() string { return string(a.Data) }

// Request is one dispatch of an artifact. Seq grows monotonically per session.
type Request struct {
	Artifact Artifact
	Category Category
	Seq      uint64
}

// Result is a completed analysis.
type Result struct {
	ID              ResultID  `json:"id"`
	Category        Category  `json:"type"`
	Findings        []string  `json:"findings"`
	Recommendations []string  `json:"recommendations"`
	Confidence      float64   `json:"confidence"`
	Disclaimer      string    `json:"disclaimer"`
	Timestamp       time.Time `json:"date"`

	Diagnosis string   `json:"diagnosis,omitempty"`
	Severity  Severity `json:"severity,omitempty"`
	Input     string   `json:"input,omitempty"`
	FileURL   string   `json:"fileUrl,omitempty"`
}

// DefaultDisclaimer is shown when the analyzer does not send its own.
const DefaultDisclaimer = "This analysis is for informational purposes only and is not a substitute for professional medical advice."
