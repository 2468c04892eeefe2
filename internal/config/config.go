package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

const (
	ProviderMock      = "mock"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderVertex    = "vertex"
)

const (
	BackendFile      = "file"
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendS3        = "s3"
)

type Config struct {
	Mode Mode

	Port string

	LLMProvider      string
	Models           []string // fallback order; empty means provider defaults
	AnthropicBaseURL string
	GCPProjectID     string
	GCPLocation      string

	CallTimeout       time.Duration
	RequestsPerSecond float64 // 0 disables client-side rate limiting
	MaxConcurrency    int

	HistoryBackend string
	HistoryDir     string
	S3Bucket       string
	S3Prefix       string

	KafkaBrokers []string
	KafkaTopic   string

	LogLevel string

	SecretsFile string
	secrets     map[string]string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return i, nil
}

func getFloatEnv(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return f, nil
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getListEnv(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads all env vars and the optional secrets file and builds the config.
func Load() (*Config, error) {
	modeStr := getEnv("RESONANCE_MODE", "local")
	var mode Mode
	switch modeStr {
	case "gcp":
		mode = ModeGCP
	default:
		mode = ModeLocal
	}

	defaultProvider, defaultBackend := ProviderMock, BackendFile
	if mode == ModeGCP {
		defaultProvider, defaultBackend = ProviderVertex, BackendFirestore
	}

	cfg := &Config{
		Mode: mode,

		// PORT is what Cloud Run injects.
		Port: getEnv("RESONANCE_PORT", getEnv("PORT", "8080")),

		LLMProvider:      strings.ToLower(getEnv("RESONANCE_LLM_PROVIDER", defaultProvider)),
		Models:           getListEnv("RESONANCE_MODELS"),
		AnthropicBaseURL: getEnv("RESONANCE_ANTHROPIC_BASE_URL", "https://api.anthropic.com/v1"),
		GCPProjectID:     getEnv("RESONANCE_GCP_PROJECT", ""),
		GCPLocation:      getEnv("RESONANCE_GCP_LOCATION", "us-central1"),

		HistoryBackend: strings.ToLower(getEnv("RESONANCE_HISTORY_BACKEND", defaultBackend)),
		HistoryDir:     getEnv("RESONANCE_HISTORY_DIR", "pipeline_history"),
		S3Bucket:       getEnv("RESONANCE_S3_BUCKET", ""),
		S3Prefix:       getEnv("RESONANCE_S3_PREFIX", "resonance"),

		KafkaBrokers: getListEnv("RESONANCE_KAFKA_BROKERS"),
		KafkaTopic:   getEnv("RESONANCE_KAFKA_TOPIC", "production-briefs"),

		LogLevel: getEnv("RESONANCE_LOG_LEVEL", "info"),

		SecretsFile: getEnv("RESONANCE_SECRETS_FILE", ".resonance/secrets.yaml"),
	}

	var errs []error
	var err error
	if cfg.CallTimeout, err = getDurationEnv("RESONANCE_CALL_TIMEOUT", 90*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.RequestsPerSecond, err = getFloatEnv("RESONANCE_REQUESTS_PER_SECOND", 2); err != nil {
		errs = append(errs, err)
	}
	if cfg.MaxConcurrency, err = getIntEnv("RESONANCE_MAX_CONCURRENCY", 3); err != nil {
		errs = append(errs, err)
	}

	if cfg.secrets, err = loadSecrets(cfg.SecretsFile); err != nil {
		errs = append(errs, err)
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	switch c.LLMProvider {
	case ProviderMock, ProviderAnthropic, ProviderGemini:
	case ProviderVertex:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("RESONANCE_GCP_PROJECT must be set for the vertex provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RESONANCE_LLM_PROVIDER %q", c.LLMProvider))
	}

	switch c.HistoryBackend {
	case BackendFile, BackendMemory:
	case BackendFirestore:
		if c.GCPProjectID == "" {
			errs = append(errs, errors.New("RESONANCE_GCP_PROJECT must be set for the firestore backend"))
		}
	case BackendS3:
		if c.S3Bucket == "" {
			errs = append(errs, errors.New("RESONANCE_S3_BUCKET must be set for the s3 backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RESONANCE_HISTORY_BACKEND %q", c.HistoryBackend))
	}

	if c.CallTimeout <= 0 {
		errs = append(errs, errors.New("RESONANCE_CALL_TIMEOUT must be positive"))
	}
	if c.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("RESONANCE_REQUESTS_PER_SECOND must not be negative"))
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, errors.New("RESONANCE_MAX_CONCURRENCY must be at least 1"))
	}
	return errs
}

// loadSecrets reads a flat YAML map such as:
//
//	ANTHROPIC_API_KEY: sk-ant-...
//	GEMINI_API_KEY: ...
//
// A missing file is not an error.
func loadSecrets(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read secrets file %s: %w", path, err)
	}

	secrets := map[string]string{}
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parse secrets file %s: %w", path, err)
	}
	return secrets, nil
}

// APIKey resolves the credential for a provider: secrets file first, then
// the environment. Returns "" when neither has it.
func (c *Config) APIKey(provider string) string {
	var key string
	switch provider {
	case ProviderAnthropic:
		key = "ANTHROPIC_API_KEY"
	case ProviderGemini:
		key = "GEMINI_API_KEY"
	default:
		return ""
	}
	if v := strings.TrimSpace(c.secrets[key]); v != "" {
		return v
	}
	return strings.TrimSpace(os.Getenv(key))
}
