package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/config"
)

const providerGemini = "gemini"

// GeminiOpts configures a GeminiAdvisor.
type GeminiOpts struct {
	APIKey  string
	Model   string
	BaseURL string // Overrides the Gemini API endpoint, used in tests
	Policy  config.CallPolicy
}

// GeminiAdvisor uses Google's Gemini API for advice generation.
type GeminiAdvisor struct {
	client *genai.Client
	model  string
	policy config.CallPolicy
}

// NewGeminiAdvisor creates a new Gemini-based advisor.
func NewGeminiAdvisor(ctx context.Context, opts GeminiOpts) (*GeminiAdvisor, error) {
	cc := &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiAdvisor{client: client, model: opts.Model, policy: opts.Policy}, nil
}

// Advise implements the Advisor interface. Each attempt gets the policy timeout;
// failed attempts are retried up to policy.Retries times with doubling waits.
func (g *GeminiAdvisor) Advise(ctx context.Context, summary string) (string, error) {
	if err := validSummary(summary); err != nil {
		return "", g.wrap(err)
	}

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](Temperature),
	}
	contents := []*genai.Content{
		genai.NewContentFromText(UserPrompt(summary), genai.RoleUser),
	}

	wait := g.policy.RetryWait
	var lastErr error
	for attempt := 0; attempt <= g.policy.Retries; attempt++ {
		if attempt > 0 {
			log.Warn().Err(lastErr).Int("attempt", attempt+1).Str("model", g.model).Msg("retrying advice request")
			select {
			case <-ctx.Done():
				return "", g.wrap(errors.Join(lastErr, ctx.Err()))
			case <-time.After(wait):
			}
			wait *= 2
		}

		text, err := g.generate(ctx, contents, cfg)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return "", g.wrap(lastErr)
}

func (g *GeminiAdvisor) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	if g.policy.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.policy.Timeout)
		defer cancel()
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", errEmptyAdvice
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", errEmptyAdvice
	}

	if result.UsageMetadata != nil {
		log.Info().
			Str("model", g.model).
			Int64("inputTokens", int64(result.UsageMetadata.PromptTokenCount)).
			Int64("outputTokens", int64(result.UsageMetadata.CandidatesTokenCount)).
			Msg("advice llm call")
	}

	return text, nil
}

func (g *GeminiAdvisor) wrap(err error) error {
	return &AdviceError{Provider: providerGemini, Model: g.model, Err: err}
}
