// Package config resolves the process configuration once at startup.
// Components receive the relevant section explicitly instead of reading
// environment variables on their own.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// HTTPConfig configures outbound scraping requests.
type HTTPConfig struct {
	UserAgent string
	Timeout   time.Duration
	Retries   int
	SleepMin  time.Duration
	SleepMax  time.Duration
}

// NASConfig configures the FTP upload target.
type NASConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Folder   string
	Timeout  time.Duration
	Retries  int
}

// Validate fails fast when connection credentials are missing.
func (c NASConfig) Validate() error {
	if c.Host == "" || c.Username == "" || c.Password == "" {
		return fmt.Errorf("nas credentials missing: set NAS_IP / NAS_USERNAME / NAS_PASSWORD")
	}
	return nil
}

// MongoConfig configures the artifact metadata catalog.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// SlackConfig configures the summary notification webhook.
type SlackConfig struct {
	WebhookURL string
	Username   string
}

// StorageConfig configures local artifact and state directories.
type StorageConfig struct {
	DownloadDir string
	StateRoot   string
	LogDir      string
}

// RedisConfig configures the optional redis-backed state store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LLMConfig configures the QA model providers.
type LLMConfig struct {
	Provider        string // "openai" or "ollama"
	OpenAIKey       string
	EmbedModel      string
	ChatModel       string
	OllamaHost      string
	OllamaEmbed     string
	OllamaChatModel string
	EmbedDim        int
}

// Validate fails fast when the selected provider has no credentials.
func (c LLMConfig) Validate() error {
	if c.Provider == "openai" && c.OpenAIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is not set; check your .env file")
	}
	return nil
}

// Config is the root configuration passed down from main.
type Config struct {
	HTTP     HTTPConfig
	NAS      NASConfig
	Mongo    MongoConfig
	Slack    SlackConfig
	Storage  StorageConfig
	Redis    RedisConfig
	LLM      LLMConfig
	Postgres string // DSN for the document/vector catalog
}

// Load resolves configuration from the environment with profile overlays.
// Order: base .env (no override), explicit envFile (override), then
// .env_<profile> or .env.<profile> (override). Later layers win.
func Load(profile, envFile string) (*Config, error) {
	// Base .env is optional.
	_ = godotenv.Load()

	if envFile != "" {
		if _, err := os.Stat(envFile); err != nil {
			return nil, fmt.Errorf("env file %s: %w", envFile, err)
		}
		if err := godotenv.Overload(envFile); err != nil {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if profile != "" {
		loaded := false
		for _, candidate := range []string{".env_" + profile, ".env." + profile} {
			if _, err := os.Stat(candidate); err == nil {
				if err := godotenv.Overload(candidate); err != nil {
					return nil, fmt.Errorf("load %s: %w", candidate, err)
				}
				loaded = true
				break
			}
		}
		if !loaded {
			fmt.Fprintf(os.Stderr, "[WARN] .env_%s / .env.%s not found, keeping base .env\n", profile, profile)
		}
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			UserAgent: getenv("SCRAPER_USER_AGENT",
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"),
			Timeout:  secs("REQ_TIMEOUT", 30),
			Retries:  num("SCRAPER_RETRY", 2),
			SleepMin: millis("SCRAPER_SLEEP_MIN_MS", 800),
			SleepMax: millis("SCRAPER_SLEEP_MAX_MS", 1800),
		},
		NAS: NASConfig{
			Host:     os.Getenv("NAS_IP"),
			Port:     num("FTP_PORT", 21),
			Username: os.Getenv("NAS_USERNAME"),
			Password: os.Getenv("NAS_PASSWORD"),
			Folder:   getenv("NAS_FOLDER", "/"),
			Timeout:  secs("FTP_TIMEOUT", 60),
			Retries:  num("FTP_RETRIES", 2),
		},
		Mongo: MongoConfig{
			URI:        os.Getenv("MONGO_URI"),
			Database:   getenv("MONGO_DB", "energyData"),
			Collection: getenv("MONGO_COLLECTION", "naverReport"),
		},
		Slack: SlackConfig{
			WebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
			Username:   getenv("SLACK_USERNAME", "report-collector"),
		},
		Storage: StorageConfig{
			DownloadDir: getenv("DOWNLOAD_DIR", "./downloads"),
			StateRoot:   getenv("STATE_ROOT", "./state"),
			LogDir:      getenv("LOG_DIR", "./logs"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       num("REDIS_DB", 0),
		},
		LLM: LLMConfig{
			Provider:        getenv("PROVIDER", "openai"),
			OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
			EmbedModel:      getenv("EMBED_MODEL", "text-embedding-3-small"),
			ChatModel:       getenv("CHAT_MODEL", "gpt-4o-mini"),
			OllamaHost:      getenv("OLLAMA_HOST", "http://localhost:11434"),
			OllamaEmbed:     getenv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),
			OllamaChatModel: getenv("OLLAMA_CHAT_MODEL", "llama3.1:8b"),
			EmbedDim:        num("EMBED_DIM", 1536),
		},
		Postgres: getenv("DB_URL", "postgres://localhost:5432/naver"),
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func num(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func secs(key string, fallback int) time.Duration {
	return time.Duration(num(key, fallback)) * time.Second
}

func millis(key string, fallback int) time.Duration {
	return time.Duration(num(key, fallback)) * time.Millisecond
}
