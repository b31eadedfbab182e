// Package container wires the remote clients into a pipeline from configuration.
package container

import (
	"context"
	"fmt"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/config"
	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/llm"
	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/pipeline"
	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/vision"
)

type Container struct {
	Config   *config.Config
	Vision   *vision.Client
	Advisor  llm.Advisor
	Pipeline *pipeline.Pipeline
}

func New(ctx context.Context, cfg *config.Config, opts ...pipeline.Option) (*Container, error) {
	visionClient := vision.NewClient(vision.ClientOpts{
		BaseURL: cfg.VisionURL,
		Token:   cfg.HFToken,
		Model:   cfg.VisionModel,
		TempDir: cfg.TempDir,
		Policy:  cfg.Policy,
	})

	advisor, err := llm.NewAdvisor(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create advisor: %w", err)
	}

	return &Container{
		Config:   cfg,
		Vision:   visionClient,
		Advisor:  advisor,
		Pipeline: pipeline.New(visionClient, advisor, opts...),
	}, nil
}
