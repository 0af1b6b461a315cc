package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/atmx/ledger-engine/internal/model"
)

type fakeGenerator struct {
	gotModel  string
	gotText   string
	gotConfig *genai.GenerateContentConfig
	resp      *genai.GenerateContentResponse
	err       error
}

func (f *fakeGenerator) GenerateContent(_ context.Context, modelName string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.gotModel = modelName
	f.gotConfig = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.gotText = contents[0].Parts[0].Text
	}
	return f.resp, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	c := &genai.Content{}
	for _, p := range parts {
		c.Parts = append(c.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: c}}}
}

func TestGeminiAnalyzer_Analyze(t *testing.T) {
	gen := &fakeGenerator{resp: textResponse("No red flags. ", "Payment terms are standard.")}
	a := newGeminiAnalyzer(gen, "")

	out, err := a.Analyze(context.Background(), "Seller ships 500 barrels FOB Houston.")
	require.NoError(t, err)

	assert.Equal(t, "No red flags. Payment terms are standard.", out)
	assert.Equal(t, DefaultModel, gen.gotModel)
	assert.Equal(t, "Seller ships 500 barrels FOB Houston.", gen.gotText)
	require.NotNil(t, gen.gotConfig.SystemInstruction)
	assert.Contains(t, gen.gotConfig.SystemInstruction.Parts[0].Text, "fraud")
	assert.EqualValues(t, maxOutputTokens, gen.gotConfig.MaxOutputTokens)
}

func TestGeminiAnalyzer_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := newGeminiAnalyzer(&fakeGenerator{}, "m").Analyze(ctx, "   ")
	assert.ErrorIs(t, err, model.ErrInvalidOperation)

	quota := &fakeGenerator{err: genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "quota"}}
	_, err = newGeminiAnalyzer(quota, "m").Analyze(ctx, "text")
	assert.ErrorIs(t, err, ErrUpstreamQuotaExceeded)

	boom := &fakeGenerator{err: errors.New("connection reset")}
	_, err = newGeminiAnalyzer(boom, "m").Analyze(ctx, "text")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUpstreamQuotaExceeded)

	empty := &fakeGenerator{resp: &genai.GenerateContentResponse{}}
	_, err = newGeminiAnalyzer(empty, "m").Analyze(ctx, "text")
	assert.Error(t, err)
}

type countingAnalyzer struct {
	calls int
	err   error
}

func (c *countingAnalyzer) Analyze(context.Context, string) (string, error) {
	c.calls++
	return "fine", c.err
}

func TestThrottled_MinimumInterval(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	inner := &countingAnalyzer{}
	th := NewThrottled(inner, time.Second, WithClock(func() time.Time { return now }))

	out, err := th.Analyze(ctx, "contract")
	require.NoError(t, err)
	assert.Equal(t, "fine", out)

	now = now.Add(500 * time.Millisecond)
	_, err = th.Analyze(ctx, "contract")
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 1, inner.calls, "rejected calls never reach the upstream")

	now = now.Add(600 * time.Millisecond)
	_, err = th.Analyze(ctx, "contract")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestThrottled_EmptyTextDoesNotConsumeToken(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	inner := &countingAnalyzer{}
	th := NewThrottled(inner, 0, WithClock(func() time.Time { return now }))

	_, err := th.Analyze(ctx, "")
	assert.ErrorIs(t, err, model.ErrInvalidOperation)
	_, err = th.Analyze(ctx, "contract")
	assert.NoError(t, err)
}

func TestThrottled_PassesUpstreamErrors(t *testing.T) {
	inner := &countingAnalyzer{err: ErrUpstreamQuotaExceeded}
	th := NewThrottled(inner, time.Second)

	_, err := th.Analyze(context.Background(), "contract")
	assert.ErrorIs(t, err, ErrUpstreamQuotaExceeded)
}
