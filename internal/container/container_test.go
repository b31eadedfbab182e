package container

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/config"
	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/llm"
)

func testConfig() *config.Config {
	return &config.Config{
		HFToken:        "hf_test",
		AdviceProvider: config.ProviderHuggingFace,
		VisionModel:    config.DefaultVisionModel,
		AdviceModel:    config.DefaultAdviceModel,
		VisionURL:      config.DefaultVisionURL,
		ChatURL:        config.DefaultChatURL,
		Policy:         config.CallPolicy{Timeout: time.Second},
	}
}

func TestNew(t *testing.T) {
	c, err := New(context.Background(), testConfig())
	require.NoError(t, err)
	assert.NotNil(t, c.Pipeline)
	assert.Equal(t, config.DefaultVisionModel, c.Vision.Model())
	assert.IsType(t, &llm.OpenAIAdvisor{}, c.Advisor)
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := testConfig()
	cfg.AdviceProvider = "local"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}
