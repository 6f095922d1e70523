package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
)

func TestSymptoms(t *testing.T) {
	cases := []struct {
		name          string
		text          string
		sev           analysis.Severity
		wantDiagnosis string
		wantFirstRec  string
	}{
		{"emergency first", "I have a cough and chest pain since this morning", "", "Possible medical emergency", emergencyAdvice},
		{"cold", "runny nose and sore throat", analysis.SeverityMild, "Upper respiratory symptoms, commonly a viral infection", "Rest and fluids; see a doctor if symptoms last more than 10 days"},
		{"severe bump", "bad headache", analysis.SeveritySevere, "Headache", "Because symptoms are severe, see a doctor today"},
		{"nothing matched", "my elbow feels odd", "", "Nonspecific symptoms", "Describe your symptoms in more detail or consult a doctor"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Symptoms(c.text, c.sev)
			if got.Diagnosis != c.wantDiagnosis {
				t.Errorf("Diagnosis = %q, want %q", got.Diagnosis, c.wantDiagnosis)
			}
			if len(got.Recommendations) == 0 || got.Recommendations[0] != c.wantFirstRec {
				t.Errorf("Recommendations = %q", got.Recommendations)
			}
			if got.Confidence < 0 || got.Confidence > 50 {
				t.Errorf("Confidence = %v out of offline range", got.Confidence)
			}
		})
	}
}

func TestAnalyzer_Media(t *testing.T) {
	res, err := Analyzer{}.AnalyzeArchived(context.Background(),
		analysis.Artifact{Name: "x.mp4", Category: analysis.CategoryVideo}, "http://files/x.mp4")
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence != 0 || res.FileURL != "http://files/x.mp4" || res.Category != analysis.CategoryVideo {
		t.Errorf("result = %+v", res)
	}
	if err := analysis.CheckConfidence(&res.Confidence); err != nil {
		t.Errorf("offline result fails response checks: %v", err)
	}
}

func TestAnalyzer_Unsupported(t *testing.T) {
	_, err := Analyzer{}.Analyze(context.Background(), analysis.Artifact{Category: "xray"})
	if !errors.Is(err, analysis.ErrUnsupportedCategory) {
		t.Fatalf("err = %v", err)
	}
}
