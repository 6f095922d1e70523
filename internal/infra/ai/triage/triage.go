// Package triage is an offline analyzer used when no language model is
// configured. It matches typed symptoms against a small rule table and never
// claims more than moderate confidence.
package triage

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

const emergencyAdvice = "Seek emergency medical care immediately or call your local emergency number"

type rule struct {
	re             *regexp.Regexp
	finding        string
	recommendation string
	emergency      bool
	confidence     float64
}

var rules = []rule{
	{regexp.MustCompile(`(?i)chest\s+(pain|tightness|pressure)`), "Chest pain can indicate a cardiac problem", emergencyAdvice, true, 40},
	{regexp.MustCompile(`(?i)(difficulty|trouble|short(ness)? of)\s+breath`), "Breathing difficulty", emergencyAdvice, true, 40},
	{regexp.MustCompile(`(?i)(slurred speech|face (drooping|droop)|numb(ness)? on one side|sudden weakness)`), "Possible stroke signs", emergencyAdvice, true, 45},
	{regexp.MustCompile(`(?i)(severe|heavy|uncontrolled)\s+bleeding`), "Severe bleeding", emergencyAdvice, true, 50},
	{regexp.MustCompile(`(?i)\b(fever|chills|high temperature)\b`), "Fever suggests an infection", "Rest, stay hydrated and monitor your temperature", false, 35},
	{regexp.MustCompile(`(?i)\b(cough|sore throat|runny nose|congestion|sneez\w*)\b`), "Upper respiratory symptoms, commonly a viral infection", "Rest and fluids; see a doctor if symptoms last more than 10 days", false, 35},
	{regexp.MustCompile(`(?i)\b(headache|migraine)\b`), "Headache", "Rest in a dark quiet room; seek care for a sudden severe headache", false, 30},
	{regexp.MustCompile(`(?i)\b(nausea|vomit\w*|diarrh\w*)\b`), "Gastrointestinal upset", "Drink small amounts of fluid often to avoid dehydration", false, 30},
	{regexp.MustCompile(`(?i)\b(rash|itch\w*|hives)\b`), "Skin irritation or allergic reaction", "Avoid likely irritants; seek care if swelling affects lips or throat", false, 30},
	{regexp.MustCompile(`(?i)\b(dizz\w*|faint\w*|lightheaded)\b`), "Dizziness", "Sit or lie down until it passes and avoid driving", false, 25},
}

// Analyzer is safe for concurrent use.
type Analyzer struct{}

func (Analyzer) Analyze(ctx context.Context, a analysis.Artifact) (analysis.Result, error) {
	return Analyzer{}.AnalyzeArchived(ctx, a, "")
}

// AnalyzeArchived only reads typed symptoms. Media gets a conservative
// placeholder since nothing here can look inside it.
func (Analyzer) AnalyzeArchived(ctx context.Context, a analysis.Artifact, fileURL string) (analysis.Result, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Result{}, err
	}
	if !a.Category.Valid() {
		return analysis.Result{}, fmt.Errorf("%w: %q", analysis.ErrUnsupportedCategory, a.Category)
	}

	var res analysis.Result
	if a.Category == analysis.CategoryText {
		res = Symptoms(a.Text(), a.Severity)
	} else {
		res = analysis.Result{
			Diagnosis:       "Unable to assess",
			Findings:        []string{fmt.Sprintf("Automated review of %s files is not available offline", a.Category)},
			Recommendations: []string{"Share this file with a healthcare professional"},
			Confidence:      0,
		}
	}
	res.Category = a.Category
	res.FileURL = fileURL
	res.Disclaimer = analysis.DefaultDisclaimer
	return res, nil
}

// Symptoms runs the rule table over free text.
func Symptoms(text string, sev analysis.Severity) analysis.Result {
	findings := []string{}
	recs := []string{}
	seen := map[string]bool{}
	emergency := false
	var best float64

	for _, r := range rules {
		if !r.re.MatchString(text) {
			continue
		}
		findings = append(findings, r.finding)
		if r.emergency {
			emergency = true
		} else if !seen[r.recommendation] {
			recs = append(recs, r.recommendation)
			seen[r.recommendation] = true
		}
		if r.confidence > best {
			best = r.confidence
		}
	}

	if emergency {
		recs = append([]string{emergencyAdvice}, recs...)
	}
	if sev == analysis.SeveritySevere && !emergency {
		recs = append([]string{"Because symptoms are severe, see a doctor today"}, recs...)
	}

	diagnosis := "Nonspecific symptoms"
	switch {
	case len(findings) == 0:
		findings = append(findings, "No recognised symptom pattern")
		recs = append(recs, "Describe your symptoms in more detail or consult a doctor")
		best = 10
	case emergency:
		diagnosis = "Possible medical emergency"
	default:
		diagnosis = findings[0]
	}
	if len(findings) > 1 && !emergency {
		diagnosis = strings.Join(findings[:2], "; ")
	}

	return analysis.Result{
		Diagnosis:       diagnosis,
		Findings:        findings,
		Recommendations: recs,
		Confidence:      best,
	}
}
