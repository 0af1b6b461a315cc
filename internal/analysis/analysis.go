// Package analysis screens contract text for signs of fraud using a hosted
// language model.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/atmx/ledger-engine/internal/model"
)

var (
	// ErrRateLimited is returned when a call arrives before the minimum
	// interval since the previous accepted call has passed.
	ErrRateLimited = errors.New("analysis: rate limit exceeded")
	// ErrUpstreamQuotaExceeded is returned when the model provider rejects
	// the call for quota or billing reasons.
	ErrUpstreamQuotaExceeded = errors.New("analysis: upstream quota exceeded")
)

// Analyzer turns contract text into a short legitimacy assessment.
type Analyzer interface {
	Analyze(ctx context.Context, contractText string) (string, error)
}

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

const maxOutputTokens = 300

const systemPrompt = "You are an expert in analyzing contracts for potential fraud or scams. " +
	"Evaluate the following contract text and provide a brief analysis of its legitimacy, " +
	"highlighting any red flags or suspicious elements."

// generator is the subset of *genai.Models used here.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiAnalyzer calls the Gemini API.
type GeminiAnalyzer struct {
	models generator
	model  string
	config *genai.GenerateContentConfig
}

// NewGeminiAnalyzer creates a client for the Gemini API. An empty model
// selects DefaultModel.
func NewGeminiAnalyzer(ctx context.Context, apiKey, modelName string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newGeminiAnalyzer(client.Models, modelName), nil
}

func newGeminiAnalyzer(models generator, modelName string) *GeminiAnalyzer {
	if modelName == "" {
		modelName = DefaultModel
	}
	return &GeminiAnalyzer{
		models: models,
		model:  modelName,
		config: &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
			MaxOutputTokens:   maxOutputTokens,
		},
	}
}

// Analyze sends the contract text to the model and returns its answer.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, contractText string) (string, error) {
	if strings.TrimSpace(contractText) == "" {
		return "", fmt.Errorf("%w: contract text is required", model.ErrInvalidOperation)
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(contractText), g.config)
	if err != nil {
		if quotaExceeded(err) {
			return "", fmt.Errorf("%w: %v", ErrUpstreamQuotaExceeded, err)
		}
		return "", fmt.Errorf("generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("analysis: empty response from model")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", errors.New("analysis: empty response from model")
	}
	return text, nil
}

// quotaExceeded reports whether err is the provider's quota rejection.
func quotaExceeded(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code == http.StatusTooManyRequests || apiErrPtr.Status == "RESOURCE_EXHAUSTED"
	}
	return strings.Contains(err.Error(), "RESOURCE_EXHAUSTED")
}
