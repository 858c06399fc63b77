package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

// LLM providers.
const (
	ProviderMock   = "mock"
	ProviderGemini = "gemini"
	ProviderVertex = "vertex"
	ProviderOpenAI = "openai"
)

// Business data backends.
const (
	BackendMemory    = "memory"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

type Config struct {
	Mode Mode

	Port     string
	LogLevel string

	LLMProvider    string
	GeminiAPIKey   string
	GCPProjectID   string
	GCPLocation    string
	ModelName      string
	TitleModelName string
	LiveModelName  string
	LiveVoice      string

	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string

	DataBackend string // "memory", "postgres" or "firestore"
	DataFile    string // optional YAML fixture for the memory backend
	PostgresDSN string
	SeedData    bool // load the demo dataset into firestore at startup

	RedisURL          string // enables the handoff queue when set
	WorkerConcurrency int
	WorkerQueues      string // e.g. "support=6,default=1"

	MaxToolRounds int
	ModelTimeout  time.Duration
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getIntEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return def
	}
	return i
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// Load reads all env vars and builds the config
func Load() (*Config, error) {
	modeStr := getEnv("SERVICEAI_MODE", "local")
	var mode Mode
	switch modeStr {
	case "cloud":
		mode = ModeCloud
	default:
		mode = ModeLocal
	}

	defaultProvider := ProviderGemini
	if mode == ModeLocal && getBoolEnv("SERVICEAI_USE_MOCK_LLM", true) {
		defaultProvider = ProviderMock
	}

	cfg := &Config{
		Mode: mode,

		Port:     getEnv("SERVICEAI_PORT", getEnv("PORT", "8080")),
		LogLevel: getEnv("SERVICEAI_LOG_LEVEL", "info"),

		LLMProvider:    strings.ToLower(getEnv("SERVICEAI_LLM_PROVIDER", defaultProvider)),
		GeminiAPIKey:   getEnv("SERVICEAI_GEMINI_API_KEY", getEnv("GEMINI_API_KEY", "")),
		GCPProjectID:   getEnv("SERVICEAI_GCP_PROJECT", ""),
		GCPLocation:    getEnv("SERVICEAI_GCP_LOCATION", "us-central1"),
		ModelName:      getEnv("SERVICEAI_MODEL_NAME", "gemini-2.5-flash"),
		TitleModelName: getEnv("SERVICEAI_TITLE_MODEL_NAME", "gemini-2.5-flash-lite"),
		LiveModelName:  getEnv("SERVICEAI_LIVE_MODEL_NAME", "gemini-2.5-flash-native-audio-preview-09-2025"),
		LiveVoice:      getEnv("SERVICEAI_LIVE_VOICE", "Zephyr"),

		OpenAIBaseURL: getEnv("SERVICEAI_OPENAI_BASE_URL", ""),
		OpenAIAPIKey:  getEnv("SERVICEAI_OPENAI_API_KEY", getEnv("OPENAI_API_KEY", "")),
		OpenAIModel:   getEnv("SERVICEAI_OPENAI_MODEL", "gpt-4o-mini"),

		DataBackend: strings.ToLower(getEnv("SERVICEAI_DATA_BACKEND", BackendMemory)),
		DataFile:    getEnv("SERVICEAI_DATA_FILE", ""),
		PostgresDSN: getEnv("SERVICEAI_POSTGRES_DSN", getEnv("DATABASE_URL", "")),
		SeedData:    getBoolEnv("SERVICEAI_SEED_DATA", false),

		RedisURL:          getEnv("SERVICEAI_REDIS_URL", getEnv("REDIS_URL", "")),
		WorkerConcurrency: getIntEnv("SERVICEAI_WORKER_CONCURRENCY", 4),
		WorkerQueues:      getEnv("SERVICEAI_WORKER_QUEUES", "support=1"),

		MaxToolRounds: getIntEnv("SERVICEAI_MAX_TOOL_ROUNDS", 8),
		ModelTimeout:  getDurationEnv("SERVICEAI_MODEL_TIMEOUT", 45*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every selected backend has what it needs.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case ProviderMock:
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("SERVICEAI_GEMINI_API_KEY must be set for the gemini provider")
		}
	case ProviderVertex:
		if c.GCPProjectID == "" {
			return fmt.Errorf("SERVICEAI_GCP_PROJECT must be set for the vertex provider")
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
			return fmt.Errorf("SERVICEAI_OPENAI_API_KEY or SERVICEAI_OPENAI_BASE_URL must be set for the openai provider")
		}
	default:
		return fmt.Errorf("unknown SERVICEAI_LLM_PROVIDER %q", c.LLMProvider)
	}

	switch c.DataBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("SERVICEAI_POSTGRES_DSN must be set for the postgres backend")
		}
	case BackendFirestore:
		if c.GCPProjectID == "" {
			return fmt.Errorf("SERVICEAI_GCP_PROJECT must be set for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown SERVICEAI_DATA_BACKEND %q", c.DataBackend)
	}
	return nil
}
