package prompt

import (
	"fmt"
	"strings"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a medical AI assistant that analyzes symptoms and medical inputs and provides a preliminary assessment. You must produce one valid JSON object only (no markdown, no commentary). Do not include code fences.

Always include:
1. A preliminary diagnosis
2. Confidence level as a number from 0 to 100
3. Recommended next steps

Requirements:
- Output must be a single JSON object with keys: diagnosis, confidence, recommendations, findings.
- confidence is a number between 0 and 100 (not a string, no percent sign).
- recommendations and findings are arrays of short strings.
- If symptoms suggest an emergency (chest pain, difficulty breathing, stroke signs, severe bleeding), the first recommendation must be to seek emergency care.
- If the actual file content is not provided, infer conservatively from the file type and name and say so in findings.

Schema (example with empty values):
{
  "diagnosis": "<string>",
  "confidence": 0,
  "recommendations": ["<string>"],
  "findings": ["<string>"]
}`
}

// GetSymptomPrompt wraps typed symptoms, with the user's own severity tag
// when given.
func GetSymptomPrompt(symptoms, severity string) string {
	symptoms = strings.TrimSpace(symptoms)
	if severity == "" {
		return symptoms
	}
	return fmt.Sprintf("Reported severity: %s\nSymptoms: %s", severity, symptoms)
}

// GetImagePrompt is the text part sent alongside an image.
func GetImagePrompt(name string) string {
	return fmt.Sprintf("Analyze this medical image (%s) and respond with the JSON per schema.", name)
}

// GetFilePrompt builds a compact user message around a file that cannot be
// attached directly.
func GetFilePrompt(category, name, contentType, fileURL string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the %s file %q", category, name)
	if contentType != "" {
		fmt.Fprintf(&b, " (%s)", contentType)
	}
	if fileURL != "" {
		fmt.Fprintf(&b, " stored at this URL: %s", fileURL)
	}
	b.WriteString(" and respond with the JSON per schema.")
	return b.String()
}
