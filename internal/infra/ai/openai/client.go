package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/medassist/internal/domain/analysis"
	"github.com/bryanwahyu/medassist/internal/infra/ai/prompt"
)

const (
	defaultModel = "gpt-4"
	maxTokens    = 500
	temperature  = 0.7
)

type Client struct {
	*openai.Client
	Model string
	// JSONMode asks the API for a JSON object response. Not every model
	// supports it.
	JSONMode bool
}

func NewClient(apiKey, model string) *Client {
	return &Client{Client: openai.NewClient(apiKey), Model: model}
}

// NewClientWithBaseURL points the client at a compatible endpoint.
func NewClientWithBaseURL(apiKey, model, baseURL string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model}
}

// Analyze handles text and image artifacts directly. Audio and video cannot
// be attached to a chat completion and are rejected.
func (c *Client) Analyze(ctx context.Context, a analysis.Artifact) (analysis.Result, error) {
	switch a.Category {
	case analysis.CategoryText, analysis.CategoryImage:
		return c.AnalyzeArchived(ctx, a, "")
	case analysis.CategoryAudio, analysis.CategoryVideo:
		return analysis.Result{}, fmt.Errorf("%w: %s via completion API", analysis.ErrUnsupportedCategory, a.Category)
	}
	return analysis.Result{}, fmt.Errorf("%w: %q", analysis.ErrUnsupportedCategory, a.Category)
}

// AnalyzeArchived is Analyze for an artifact that already lives at fileURL.
// Audio and video are described by name, type and URL.
func (c *Client) AnalyzeArchived(ctx context.Context, a analysis.Artifact, fileURL string) (analysis.Result, error) {
	user, err := userMessage(a, fileURL)
	if err != nil {
		return analysis.Result{}, err
	}

	model := c.Model
	if model == "" {
		model = defaultModel
	}
	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt.GetSystemPrompt()},
			user,
		},
	}
	if c.JSONMode {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	// For reasoning models (o1/o3/o4/gpt-5*) use MaxCompletionTokens and the default temperature
	if strings.HasPrefix(model, "o1") || strings.HasPrefix(model, "o3") || strings.HasPrefix(model, "o4") || strings.HasPrefix(model, "gpt-5") {
		req.MaxCompletionTokens = maxTokens
	} else {
		req.MaxTokens = maxTokens
		req.Temperature = temperature
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		return analysis.Result{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return analysis.Result{}, fmt.Errorf("%w: completion has no choices", analysis.ErrMalformedResponse)
	}

	res, err := ParseDiagnosis(resp.Choices[0].Message.Content)
	if err != nil {
		return analysis.Result{}, err
	}
	res.Category = a.Category
	res.FileURL = fileURL
	return res, nil
}

func userMessage(a analysis.Artifact, fileURL string) (openai.ChatCompletionMessage, error) {
	switch a.Category {
	case analysis.CategoryText:
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt.GetSymptomPrompt(a.Text(), string(a.Severity)),
		}, nil
	case analysis.CategoryImage:
		url := fileURL
		if len(a.Data) > 0 {
			ct := a.ContentType
			if ct == "" {
				ct = "image/jpeg"
			}
			url = "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
		}
		if url == "" {
			return openai.ChatCompletionMessage{}, fmt.Errorf("%w: image has no content", analysis.ErrValidation)
		}
		return openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt.GetImagePrompt(a.Name)},
				{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
					URL:    url,
					Detail: openai.ImageURLDetailAuto,
				}},
			},
		}, nil
	case analysis.CategoryAudio, analysis.CategoryVideo:
		return openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt.GetFilePrompt(string(a.Category), a.Name, a.ContentType, fileURL),
		}, nil
	}
	return openai.ChatCompletionMessage{}, fmt.Errorf("%w: %q", analysis.ErrUnsupportedCategory, a.Category)
}

// classify maps provider errors onto the pipeline taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return fmt.Errorf("chat completion: %w", &analysis.ServerError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message})
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return fmt.Errorf("chat completion: %w", &analysis.ServerError{Status: reqErr.HTTPStatusCode})
	}
	return fmt.Errorf("%w: failed to create chat completion: %w", analysis.ErrNetwork, err)
}

// Diagnosis is the JSON object the system prompt asks for.
type Diagnosis struct {
	Diagnosis       string   `json:"diagnosis"`
	Confidence      *float64 `json:"confidence"`
	Recommendations []string `json:"recommendations"`
	Findings        []string `json:"findings"`
}

// ParseDiagnosis validates completion content and turns it into a result.
func ParseDiagnosis(content string) (analysis.Result, error) {
	var d Diagnosis
	if err := json.Unmarshal(analysis.CleanJSON([]byte(content)), &d); err != nil {
		return analysis.Result{}, fmt.Errorf("%w: completion is not JSON: %v", analysis.ErrMalformedResponse, err)
	}
	if err := analysis.CheckConfidence(d.Confidence); err != nil {
		return analysis.Result{}, err
	}

	findings := d.Findings
	if len(findings) == 0 && d.Diagnosis != "" {
		findings = []string{d.Diagnosis}
	}
	if findings == nil {
		findings = []string{}
	}
	recs := d.Recommendations
	if recs == nil {
		recs = []string{}
	}
	return analysis.Result{
		Findings:        findings,
		Recommendations: recs,
		Confidence:      *d.Confidence,
		Disclaimer:      analysis.DefaultDisclaimer,
		Diagnosis:       d.Diagnosis,
	}, nil
}
