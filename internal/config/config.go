package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr     string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"10s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"120s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	AuthToken string `env:"AUTH_TOKEN"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	DefaultProvider string `env:"DEFAULT_PROVIDER" envDefault:"rule-based"`
	MaxTextLength   int    `env:"MAX_TEXT_LENGTH" envDefault:"500000"`
	ChunkSize       int    `env:"CHUNK_SIZE" envDefault:"500"`
	ChunkWorkers    int    `env:"CHUNK_WORKERS" envDefault:"1"`

	OpenAIAPIKey  string  `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string  `env:"OPENAI_BASE_URL"`
	OpenAIModel   string  `env:"OPENAI_MODEL"`
	OpenAITemp    float64 `env:"OPENAI_TEMPERATURE" envDefault:"0.3"`

	KokoroURL     string        `env:"KOKORO_URL" envDefault:"http://localhost:8880"`
	KokoroVoice   string        `env:"KOKORO_VOICE" envDefault:"af_heart"`
	KokoroSpeed   float64       `env:"KOKORO_SPEED" envDefault:"1.0"`
	KokoroTimeout time.Duration `env:"KOKORO_TIMEOUT" envDefault:"2m"`
}

// Overrides holds CLI flag values that take priority over env vars.
type Overrides struct {
	EnvFile  string
	HTTPAddr string
	LogLevel string
	Provider string
}

// Load reads configuration from .env file, environment variables, and CLI overrides.
// Priority: CLI flags > environment variables > .env file > struct defaults.
func Load(overrides Overrides) (*Config, error) {
	// Load .env file (silent if missing)
	envFile := overrides.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if _, err := os.Stat(envFile); err == nil {
		_ = godotenv.Load(envFile)
	}

	// Parse environment variables into config struct
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Apply CLI overrides (non-empty values win)
	if overrides.HTTPAddr != "" {
		cfg.HTTPAddr = overrides.HTTPAddr
	}
	if overrides.LogLevel != "" {
		cfg.LogLevel = overrides.LogLevel
	}
	if overrides.Provider != "" {
		cfg.DefaultProvider = overrides.Provider
	}

	return cfg, nil
}
