package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/config"
)

// SystemInstruction is sent with every advice request. It fixes the four fields
// the model must cover for each detected item.
const SystemInstruction = `You are a waste segregation and recycling process expert. I will provide a list of items detected in a trash pile.
For EACH item in the list, tell me:
1. The Material (Plastic, Glass, Metal, etc.).
2. Preparation (Rinse, Crush, Separate components, Empty contents etc.).
3. The Correct Bin / Collection Method (Curbside, Drop-off Center, Hazardous Waste, Compost etc.).
4. The Post-Collection Recycling / Re-use Action (example: melted down, shredded, reused, repurposed).
Format as a clean table or list.`

// Temperature is fixed so repeated requests give consistent advice.
const Temperature = 0.5

// UserPrompt builds the user message for a detected-items summary.
func UserPrompt(summary string) string {
	return "Detected items: " + summary
}

// Advisor turns a detected-items summary into recycling advice.
type Advisor interface {
	Advise(ctx context.Context, summary string) (string, error)
}

// Usage contains token usage information for a single call.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// AdviceError is returned for any failed advice request.
type AdviceError struct {
	Provider string
	Model    string
	Err      error
}

func (e *AdviceError) Error() string {
	return fmt.Sprintf("advice service error: %s (%s): %v", e.Provider, e.Model, e.Err)
}

func (e *AdviceError) Unwrap() error { return e.Err }

// errEmptyAdvice is returned when the model answers without any text.
var errEmptyAdvice = errors.New("empty response from model")

func validSummary(summary string) error {
	if strings.TrimSpace(summary) == "" {
		return errors.New("no detected items to advise on")
	}
	return nil
}

// NewAdvisor creates the advisor selected by cfg.AdviceProvider.
func NewAdvisor(ctx context.Context, cfg *config.Config) (Advisor, error) {
	switch cfg.AdviceProvider {
	case config.ProviderHuggingFace, "":
		return NewOpenAIAdvisor(OpenAIOpts{
			BaseURL: cfg.ChatURL,
			APIKey:  cfg.HFToken,
			Model:   cfg.AdviceModel,
			Policy:  cfg.Policy,
		}), nil
	case config.ProviderGemini:
		return NewGeminiAdvisor(ctx, GeminiOpts{
			APIKey: cfg.GeminiAPIKey,
			Model:  cfg.AdviceModel,
			Policy: cfg.Policy,
		})
	default:
		return nil, fmt.Errorf("unknown advice provider %q", cfg.AdviceProvider)
	}
}
