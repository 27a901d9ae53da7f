package infra

import (
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment
// variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string
	StoragePath string

	JobCost int

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	OpenAITTSModel string
	OpenAITTSVoice string

	HuggingFaceToken string
	HFBaseURL        string
	HFImageModel     string

	EnableMockPayments bool

	// EnableInlineExecutor makes the API start jobs in-process on submission.
	// Deployments that split execution into the worker binary disable it so
	// only the worker claims queued jobs.
	EnableInlineExecutor bool

	WorkerPollInterval time.Duration

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. DATABASE_URL is optional: without it the service
// runs on the in-memory repositories.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:               getEnv("APP_ENV", "development"),
		Port:                 getEnv("PORT", "8080"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		StoragePath:          getEnv("STORAGE_PATH", "./storage"),
		JobCost:              getEnvInt("JOB_COST", 10),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:          getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
		OpenAITTSModel:       getEnv("OPENAI_TTS_MODEL", "gpt-4o-mini-tts"),
		OpenAITTSVoice:       getEnv("OPENAI_TTS_VOICE", "alloy"),
		HuggingFaceToken:     os.Getenv("HUGGINGFACE_TOKEN"),
		HFBaseURL:            getEnv("HF_BASE_URL", "https://router.huggingface.co/hf-inference/models"),
		HFImageModel:         getEnv("HF_IMAGE_MODEL", "stabilityai/stable-diffusion-xl-base-1.0"),
		EnableMockPayments:   getEnvBool("ENABLE_MOCK_PAYMENTS", true),
		EnableInlineExecutor: getEnvBool("ENABLE_INLINE_EXECUTOR", true),
		WorkerPollInterval:   time.Second * time.Duration(getEnvInt("WORKER_POLL_INTERVAL_SECONDS", 2)),
		HTTPReadTimeout:      time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:     time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:      time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
