// Command advise prints recycling advice for a single image file.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/config"
	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/bot"
	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/container"
	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/pipeline"
	"github.com/tannmaycoding/Waste-Recycling-Advisor/internal/vision"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	progressStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle    = lipgloss.NewStyle().Bold(true)
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

func main() {
	label := flag.String("label", "", "Items to advise on when nothing is detected with confidence")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-label text] [-v] <image-path>\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment variables:\n")
		fmt.Fprintf(os.Stderr, "  HF_TOKEN       - Required, Hugging Face access token\n")
		fmt.Fprintf(os.Stderr, "  VISION_MODEL   - Object detection model (default %s)\n", config.DefaultVisionModel)
		fmt.Fprintf(os.Stderr, "  ADVICE_MODEL   - Chat model (default %s)\n", config.DefaultAdviceModel)
		fmt.Fprintf(os.Stderr, "\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	level := zerolog.WarnLevel
	if *verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config.LoadEnvFile()
	if missing := config.MissingVars(false); len(missing) > 0 {
		if !bot.IsInteractiveTerminal() || !bot.RunSetupWizard(missing) {
			fail("missing required config: %s", strings.Join(missing, ", "))
		}
	}

	cfg, err := config.Load(false)
	if err != nil {
		fail("%v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	data, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fail("failed to read image: %v", err)
	}
	img, _, err := vision.DecodeImage(data)
	if err != nil {
		fail("%v", err)
	}

	progress := pipeline.ObserverFunc(func(runID string, from, to pipeline.State) {
		switch to {
		case pipeline.StateDetecting:
			fmt.Println(progressStyle.Render("Scanning objects in image..."))
		case pipeline.StateGeneratingAdvice:
			fmt.Println(progressStyle.Render("Preparing recycling advice..."))
		}
	})

	c, err := container.New(ctx, cfg, pipeline.WithObserver(progress))
	if err != nil {
		fail("%v", err)
	}

	fmt.Println(titleStyle.Render("♻️ Recycling Advisor"))
	fmt.Println(progressStyle.Render(fmt.Sprintf("Vision: %s | Reasoning: %s", cfg.VisionModel, cfg.AdviceModel)))
	fmt.Println()

	res, err := c.Pipeline.Run(ctx, img)
	if err != nil {
		fail("%v", err)
	}

	if res.State == pipeline.StateAwaitingManualLabel {
		manual, err := manualLabel(*label)
		if err != nil {
			fail("%v", err)
		}
		res, err = res.Pending.Resume(ctx, manual)
		if err != nil {
			fail("%v", err)
		}
	}

	fmt.Println()
	heading := "Detected items: "
	if res.ManualLabel {
		heading = "Your items: "
	}
	fmt.Println(labelStyle.Render(heading) + res.Summary.Text)
	fmt.Println()
	fmt.Println(res.Advice)
}

// manualLabel returns the label to use when detection confidence is low.
func manualLabel(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	fmt.Println("Could not identify items with confidence.")
	if !bot.IsInteractiveTerminal() {
		fmt.Println(progressStyle.Render("Using " + pipeline.DefaultManualLabel))
		return pipeline.DefaultManualLabel, nil
	}

	value := pipeline.DefaultManualLabel
	err := huh.NewInput().
		Title("What is in the picture?").
		Value(&value).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("describe at least one item")
			}
			return nil
		}).
		Run()
	if err != nil {
		return "", err
	}
	return value, nil
}

func fail(format string, args ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, args...)))
	os.Exit(1)
}
