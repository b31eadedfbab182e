package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/config"
)

const providerOpenAI = "openai-compatible"

// OpenAIOpts configures an OpenAIAdvisor.
type OpenAIOpts struct {
	BaseURL string // Chat completion API root, e.g. https://router.huggingface.co/v1
	APIKey  string
	Model   string
	Policy  config.CallPolicy
}

// OpenAIAdvisor asks an OpenAI-compatible chat completion endpoint for advice.
// The Hugging Face router exposes this API for the hosted chat models.
type OpenAIAdvisor struct {
	client openai.Client
	model  string
}

// NewOpenAIAdvisor creates an advisor. Retries and the per-request timeout come
// from opts.Policy; the client backs off between attempts.
func NewOpenAIAdvisor(opts OpenAIOpts) *OpenAIAdvisor {
	clientOpts := []option.RequestOption{
		option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/") + "/"),
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(opts.Policy.Retries),
	}
	if opts.Policy.Timeout > 0 {
		clientOpts = append(clientOpts, option.WithRequestTimeout(opts.Policy.Timeout))
	}
	client := openai.NewClient(clientOpts...)
	return &OpenAIAdvisor{client: client, model: opts.Model}
}

// Advise implements the Advisor interface.
func (o *OpenAIAdvisor) Advise(ctx context.Context, summary string) (string, error) {
	if err := validSummary(summary); err != nil {
		return "", o.wrap(err)
	}

	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(SystemInstruction),
			openai.UserMessage(UserPrompt(summary)),
		},
		Temperature: openai.Float(Temperature),
	})
	if err != nil {
		return "", o.wrap(err)
	}

	if len(resp.Choices) == 0 {
		return "", o.wrap(errEmptyAdvice)
	}

	text := resp.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return "", o.wrap(errEmptyAdvice)
	}

	usage := Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}
	log.Info().
		Str("model", o.model).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Str("finishReason", string(resp.Choices[0].FinishReason)).
		Msg("advice llm call")

	return text, nil
}

func (o *OpenAIAdvisor) wrap(err error) error {
	return &AdviceError{Provider: providerOpenAI, Model: o.model, Err: err}
}
