package bot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-resty/resty/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/tannmaycoding/Waste-Recycling-Advisor/config"
)

// Endpoints used to validate credentials in the setup wizard.
var (
	telegramAPIURL  = "https://api.telegram.org"
	hfWhoAmIURL     = "https://huggingface.co/api/whoami-v2"
	geminiModelsURL = "https://generativelanguage.googleapis.com/v1beta/models"
)

var validationClient = resty.New().SetTimeout(10 * time.Second)

// envFileOrder is the order keys are written to the config file.
var envFileOrder = []string{"HF_TOKEN", "BOT_TOKEN", "ADVICE_PROVIDER", "GEMINI_API_KEY"}

// IsInteractiveTerminal returns true if both stdin and stdout are TTYs.
// This is used to determine if we can run the interactive setup wizard.
func IsInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// RunSetupWizard asks for the missing secrets and saves them to the config file.
// Returns true if setup was successful and startup should continue.
func RunSetupWizard(missing []string) bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("♻️ Recycling Advisor - First-time Setup"))
	fmt.Println()

	values := make(map[string]string)
	var groups []*huh.Group
	for _, name := range missing {
		input, ok := setupInput(name, values)
		if !ok {
			fmt.Printf("No setup prompt for %s, set it in the environment.\n", name)
			return false
		}
		groups = append(groups, huh.NewGroup(input))
	}

	form := huh.NewForm(groups...).WithTheme(huh.ThemeBase16())
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	if provider := os.Getenv("ADVICE_PROVIDER"); provider != "" {
		values["ADVICE_PROVIDER"] = provider
	}

	configPath, err := writeEnvFile(values)
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		WaitOnWindows()
		return false
	}

	// Set values in current process
	for k, v := range values {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()

	return true
}

// setupInput returns the form field for a required variable. Each field
// writes into values once its input has been validated.
func setupInput(name string, values map[string]string) (*huh.Input, bool) {
	var title, description string
	var validate func(string) error

	switch name {
	case "HF_TOKEN":
		title = "Hugging Face Access Token"
		description = "Create one at https://huggingface.co/settings/tokens (read access is enough)"
		validate = validateHFToken
	case "BOT_TOKEN":
		title = "Telegram Bot Token"
		description = "Message @BotFather on Telegram → /newbot → copy token"
		validate = validateTelegramToken
	case "GEMINI_API_KEY":
		title = "Gemini API Key"
		description = "Get yours at https://aistudio.google.com/apikey"
		validate = validateGeminiKey
	default:
		return nil, false
	}

	return huh.NewInput().
		Title(title).
		Description(description).
		EchoMode(huh.EchoModePassword).
		Validate(func(s string) error {
			if s == "" {
				return errors.New("value is required")
			}
			if err := validate(s); err != nil {
				return err
			}
			values[name] = s
			return nil
		}), true
}

// validateTelegramToken validates a Telegram bot token by calling the getMe API.
func validateTelegramToken(token string) error {
	var result struct {
		OK          bool   `json:"ok"`
		Description string `json:"description,omitempty"`
	}

	_, err := validationClient.R().
		SetResult(&result).
		SetError(&result).
		Get(fmt.Sprintf("%s/bot%s/getMe", telegramAPIURL, token))
	if err != nil {
		return errors.New("connection failed - check your internet")
	}

	if !result.OK {
		if result.Description != "" {
			return errors.New(result.Description)
		}
		return errors.New("token rejected by Telegram")
	}
	return nil
}

// validateHFToken checks a Hugging Face token against the whoami endpoint.
func validateHFToken(token string) error {
	var result struct {
		Name  string `json:"name"`
		Error string `json:"error"`
	}

	resp, err := validationClient.R().
		SetAuthToken(token).
		SetResult(&result).
		SetError(&result).
		Get(hfWhoAmIURL)
	if err != nil {
		return errors.New("connection failed - check your internet")
	}

	if resp.IsError() {
		if result.Error != "" {
			return errors.New(result.Error)
		}
		return fmt.Errorf("token rejected by Hugging Face (HTTP %d)", resp.StatusCode())
	}
	return nil
}

// validateGeminiKey validates a Gemini API key by listing the models.
func validateGeminiKey(key string) error {
	var result struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	resp, err := validationClient.R().
		SetQueryParam("key", key).
		SetError(&result).
		Get(geminiModelsURL)
	if err != nil {
		return errors.New("connection failed - check your internet")
	}

	if resp.IsError() {
		if result.Error.Message != "" {
			return errors.New(result.Error.Message)
		}
		return fmt.Errorf("API key rejected (HTTP %d)", resp.StatusCode())
	}
	return nil
}

// writeEnvFile merges values into the config file, keeping keys it already has.
// Uses restrictive permissions (0600) since the file contains secrets.
// Returns the path where the config was written.
func writeEnvFile(values map[string]string) (string, error) {
	configPath, err := config.ConfigFilePath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(configPath), 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	merged, err := godotenv.Read(configPath)
	if err != nil {
		merged = make(map[string]string)
	}
	for k, v := range values {
		merged[k] = v
	}

	f, err := os.OpenFile(configPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	// Known keys first in a fixed order, then anything else the file had
	var extra []string
	for k := range merged {
		if !slices.Contains(envFileOrder, k) {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, key := range append(slices.Clone(envFileOrder), extra...) {
		val, ok := merged[key]
		if !ok {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s=%q\n", key, val); err != nil {
			return "", fmt.Errorf("failed to write %s: %w", key, err)
		}
	}

	return configPath, nil
}

// WaitOnWindows pauses execution on Windows so users can see error messages
// before the console window closes.
func WaitOnWindows() {
	if runtime.GOOS == "windows" {
		fmt.Println()
		fmt.Println("Press Enter to exit...")
		fmt.Scanln()
	}
}

// FatalWithWait logs a fatal error and waits on Windows before exiting.
func FatalWithWait(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Error().Msg(msg)
	WaitOnWindows()
	os.Exit(1)
}
