package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	APIKeyEnvVar      = "OPENAI_API_KEY"
	APIKeyPathEnvVar  = "OPENAI_API_KEY_FILE"
	EnvFileEnvVar     = "ANSWER_OVERLAY_ENV"
	DefaultAPIKeyPath = "/run/secrets/api_keys/openai"

	DefaultAPIURL         = "https://api.openai.com/v1/chat/completions"
	DefaultModel          = "gpt-4"
	DefaultVisionModel    = "gpt-4o"
	DefaultScreenshotPath = "screenshot.png"
	DefaultOCRLanguage    = "eng"
	DefaultButtonLabel    = "Capture"
	DefaultDeadlineSec    = 60
	DefaultPortStart      = 49600
	DefaultPortEnd        = 49650

	OCREngineTesseract = "tesseract"
	OCREngineVision    = "vision"
)

// ErrMissingAPIKey is returned by Validate when no credential was found in
// the key file or the environment.
var ErrMissingAPIKey = errors.New(APIKeyEnvVar + " is required")

type LoadOptions struct {
	APIKeyPathOverride string
	EnvFileOverride    string
}

type Config struct {
	APIKey            string
	APIKeyPath        string
	APIURL            string
	Model             string
	VisionModel       string
	Providers         []string
	OCREngine         string
	OCRLanguage       string
	ScreenshotPath    string
	Hotkey            string
	ButtonLabel       string
	CopyToClipboard   bool
	EnableFileLogging bool
	DeadlineSec       int
	// PortStart..PortEnd is the loopback range for the single-instance
	// resident, inclusive.
	PortStart int
	PortEnd   int
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

func LoadWithOptions(opts LoadOptions) (*Config, error) {
	// Sources in priority order:
	// 1) explicit --env-file
	// 2) .env in the executable directory
	// 3) ANSWER_OVERLAY_ENV as a path to a config file
	envPath, err := resolveEnvPath(opts)
	if err != nil {
		return nil, err
	}
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	deadlineSec := DefaultDeadlineSec
	if v := os.Getenv("WORKFLOW_DEADLINE_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			deadlineSec = n
		}
	}

	apiKeyPath := resolveAPIKeyPath(opts, dotenvValues)
	portStart, portEnd := resolvePortRange()

	cfg := &Config{
		APIKey:            resolveAPIKey(apiKeyPath),
		APIKeyPath:        apiKeyPath,
		APIURL:            getEnvWithDefault("API_URL", DefaultAPIURL),
		Model:             getEnvWithDefault("MODEL", DefaultModel),
		VisionModel:       getEnvWithDefault("VISION_MODEL", DefaultVisionModel),
		Providers:         splitList(os.Getenv("PROVIDERS")),
		OCREngine:         resolveOCREngine(os.Getenv("OCR_ENGINE")),
		OCRLanguage:       getEnvWithDefault("OCR_LANGUAGE", DefaultOCRLanguage),
		ScreenshotPath:    getEnvWithDefault("SCREENSHOT_PATH", DefaultScreenshotPath),
		Hotkey:            strings.TrimSpace(os.Getenv("HOTKEY")),
		ButtonLabel:       getEnvWithDefault("BUTTON_LABEL", DefaultButtonLabel),
		CopyToClipboard:   envBool("COPY_TO_CLIPBOARD"),
		EnableFileLogging: envBool("ENABLE_FILE_LOGGING"),
		DeadlineSec:       deadlineSec,
		PortStart:         portStart,
		PortEnd:           portEnd,
	}

	return cfg, nil
}

// Validate reports configuration that makes startup impossible.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("%w: checked key file %s and %s env var", ErrMissingAPIKey, c.APIKeyPath, APIKeyEnvVar)
	}
	if c.Model == "" {
		return errors.New("MODEL must not be empty")
	}
	if c.ScreenshotPath == "" {
		return errors.New("SCREENSHOT_PATH must not be empty")
	}
	return nil
}

func resolveEnvPath(opts LoadOptions) (string, error) {
	if override := strings.TrimSpace(opts.EnvFileOverride); override != "" {
		if _, err := os.Stat(override); err != nil {
			return "", fmt.Errorf("env file %s: %w", override, err)
		}
		return override, nil
	}

	if execPath, err := os.Executable(); err == nil {
		exeEnv := filepath.Join(filepath.Dir(execPath), ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv, nil
		}
	}

	if alt := os.Getenv(EnvFileEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt, nil
		}
	}

	return "", nil
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

func resolveAPIKeyPath(opts LoadOptions, dotenvValues map[string]string) string {
	keyPath := DefaultAPIKeyPath

	if envPath := strings.TrimSpace(os.Getenv(APIKeyPathEnvVar)); envPath != "" {
		keyPath = envPath
	}

	if dotenvPath := strings.TrimSpace(dotenvValues[APIKeyPathEnvVar]); dotenvPath != "" {
		keyPath = dotenvPath
	}

	if overridePath := strings.TrimSpace(opts.APIKeyPathOverride); overridePath != "" {
		keyPath = overridePath
	}

	return keyPath
}

func resolveAPIKey(keyPath string) string {
	if data, err := os.ReadFile(keyPath); err == nil {
		if fileKey := strings.TrimSpace(string(data)); fileKey != "" {
			return fileKey
		}
	}

	return strings.TrimSpace(os.Getenv(APIKeyEnvVar))
}

// resolvePortRange reads SINGLEINSTANCE_PORT_START/END, falling back to the
// defaults when unset or invalid, and clamps to [1024, 65535].
func resolvePortRange() (int, int) {
	start := envInt("SINGLEINSTANCE_PORT_START", DefaultPortStart)
	end := envInt("SINGLEINSTANCE_PORT_END", DefaultPortEnd)
	if start < 1024 {
		start = 1024
	}
	if end > 65535 {
		end = 65535
	}
	if end < start {
		start, end = end, start
	}
	return start, end
}

func envInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func resolveOCREngine(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case OCREngineVision, "llm":
		return OCREngineVision
	default:
		return OCREngineTesseract
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func envBool(key string) bool {
	return strings.ToLower(strings.TrimSpace(os.Getenv(key))) == "true"
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}
