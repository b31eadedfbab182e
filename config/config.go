package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AppName     = "recycling-advisor"
	EnvFileName = "config.env"
)

// Advice providers accepted in ADVICE_PROVIDER.
const (
	ProviderHuggingFace = "huggingface"
	ProviderGemini      = "gemini"
)

const (
	DefaultVisionModel = "facebook/detr-resnet-50"
	DefaultAdviceModel = "openai/gpt-oss-120b"
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultVisionURL   = "https://router.huggingface.co/hf-inference"
	DefaultChatURL     = "https://router.huggingface.co/v1"
	DefaultTimeout     = 60 * time.Second
	DefaultRetries     = 1
	DefaultRetryWait   = 2 * time.Second
	maxRetries         = 5
)

// CallPolicy bounds every call to a remote inference service.
type CallPolicy struct {
	Timeout   time.Duration // Per-attempt timeout
	Retries   int           // Extra attempts after the first one fails
	RetryWait time.Duration // Wait before the first retry, doubled for each further retry
}

// Config holds everything the advisor needs at startup. It is read-only after Load
// and shared by every pipeline run.
type Config struct {
	HFToken        string
	BotToken       string
	GeminiAPIKey   string
	AdviceProvider string
	VisionModel    string
	AdviceModel    string
	VisionURL      string
	ChatURL        string
	TempDir        string
	Policy         CallPolicy
}

// ConfigFilePath returns the path of the env file in the user's config directory.
func ConfigFilePath() (string, error) {
	configBase, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configBase, AppName, EnvFileName), nil
}

// LoadEnvFile loads environment variables from the config file in the user's
// config directory. Errors are ignored since the file may not exist.
// Variables already set in the environment take precedence.
func LoadEnvFile() {
	configPath, err := ConfigFilePath()
	if err != nil {
		return
	}
	_ = godotenv.Load(configPath)
}

// RequiredVars lists the environment variables that must be set. The bot token
// is only required when running the Telegram bot.
func RequiredVars(withBot bool) []string {
	vars := []string{"HF_TOKEN"}
	if withBot {
		vars = append(vars, "BOT_TOKEN")
	}
	if strings.EqualFold(os.Getenv("ADVICE_PROVIDER"), ProviderGemini) {
		vars = append(vars, "GEMINI_API_KEY")
	}
	return vars
}

// MissingVars returns the names of required variables that are not set.
func MissingVars(withBot bool) []string {
	var missing []string
	for _, v := range RequiredVars(withBot) {
		if strings.TrimSpace(os.Getenv(v)) == "" {
			missing = append(missing, v)
		}
	}
	return missing
}

// Load reads the configuration from the environment and validates it. Every
// problem is reported at once so a misconfigured deployment fails on the first start.
func Load(withBot bool) (*Config, error) {
	cfg := &Config{
		HFToken:        strings.TrimSpace(os.Getenv("HF_TOKEN")),
		BotToken:       strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		GeminiAPIKey:   strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		AdviceProvider: strings.ToLower(envOr("ADVICE_PROVIDER", ProviderHuggingFace)),
		VisionModel:    envOr("VISION_MODEL", DefaultVisionModel),
		VisionURL:      strings.TrimRight(envOr("HF_VISION_URL", DefaultVisionURL), "/"),
		ChatURL:        strings.TrimRight(envOr("HF_CHAT_URL", DefaultChatURL), "/"),
		TempDir:        os.Getenv("TEMP_DIR"),
		Policy: CallPolicy{
			Timeout:   DefaultTimeout,
			Retries:   DefaultRetries,
			RetryWait: DefaultRetryWait,
		},
	}

	var problems []string
	for _, name := range MissingVars(withBot) {
		problems = append(problems, name+" is not set")
	}

	switch cfg.AdviceProvider {
	case ProviderHuggingFace:
		cfg.AdviceModel = envOr("ADVICE_MODEL", DefaultAdviceModel)
	case ProviderGemini:
		cfg.AdviceModel = envOr("ADVICE_MODEL", DefaultGeminiModel)
	default:
		problems = append(problems, fmt.Sprintf("ADVICE_PROVIDER must be %q or %q, got %q", ProviderHuggingFace, ProviderGemini, cfg.AdviceProvider))
	}

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("REQUEST_TIMEOUT must be a positive duration, got %q", v))
		} else {
			cfg.Policy.Timeout = d
		}
	}

	if v := os.Getenv("REQUEST_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > maxRetries {
			problems = append(problems, fmt.Sprintf("REQUEST_RETRIES must be an integer between 0 and %d, got %q", maxRetries, v))
		} else {
			cfg.Policy.Retries = n
		}
	}

	if cfg.TempDir != "" {
		if info, err := os.Stat(cfg.TempDir); err != nil || !info.IsDir() {
			problems = append(problems, fmt.Sprintf("TEMP_DIR %q is not a directory", cfg.TempDir))
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
