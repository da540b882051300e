package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	TelegramBotToken  string        `env:"TELEGRAM_BOT_TOKEN,required"`
	AllowedUsers      []int64       `env:"ALLOWED_USERS" envSeparator:":"`
	AdminUserID       int64         `env:"ADMIN_USER"`
	AllowlistFilePath string        `env:"ALLOWLIST_FILE_PATH" envDefault:"data/allowlist.json"`
	MessageParseMode  string        `env:"MESSAGE_PARSE_MODE"`
	MaxMessageLength  int           `env:"MAX_MESSAGE_LENGTH" envDefault:"4000"`
	Workers           int           `env:"WORKERS" envDefault:"4"`
	SendRatePerSecond float64       `env:"SEND_RATE_PER_SECOND" envDefault:"25"`
	ConnectAttempts   int           `env:"CONNECT_ATTEMPTS" envDefault:"5"`
	ConnectDelay      time.Duration `env:"CONNECT_DELAY" envDefault:"10s"`
	PollTimeout       int           `env:"POLL_TIMEOUT" envDefault:"90"`

	// LLM settings. The default base URL is Gemini's OpenAI-compatible endpoint.
	LLMProvider          LLMProvider   `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey         string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL        string        `env:"OPENAI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta/openai/"`
	OpenAIModel          string        `env:"OPENAI_MODEL" envDefault:"gemini-1.5-flash"`
	OpenAIFallbackModels []string      `env:"OPENAI_FALLBACK_MODELS" envSeparator:","`
	YandexOAuthToken     string        `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID       string        `env:"YANDEX_FOLDER_ID"`
	GenerationTimeout    time.Duration `env:"GENERATION_TIMEOUT" envDefault:"30s"`
	MinSolutionLength    int           `env:"MIN_SOLUTION_LENGTH" envDefault:"100"`
	// Files that override provider and model without a redeploy
	ProviderFilePath string `env:"PROVIDER_FILE_PATH"`
	ModelFilePath    string `env:"MODEL_FILE_PATH"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Maintenance records
	RecordStore     string `env:"RECORD_STORE" envDefault:"mongo"`
	MongoURI        string `env:"MONGODB_URI"`
	MongoDatabase   string `env:"MONGODB_DATABASE" envDefault:"empilhadeiras_db"`
	MongoCollection string `env:"MONGODB_COLLECTION" envDefault:"manutencoes"`
	SQLitePath      string `env:"SQLITE_PATH" envDefault:"data/records.db"`
	PostgresDSN     string `env:"POSTGRES_DSN"`
	RecordsFilePath string `env:"RECORDS_FILE_PATH" envDefault:"data/records.jsonl"`

	// Conversation state
	ConversationStore string        `env:"CONVERSATION_STORE" envDefault:"memory"`
	BoltPath          string        `env:"BOLT_PATH" envDefault:"data/conversations.db"`
	RedisAddr         string        `env:"REDIS_ADDR"`
	RedisPassword     string        `env:"REDIS_PASSWORD"`
	RedisDB           int           `env:"REDIS_DB" envDefault:"0"`
	RedisTTL          time.Duration `env:"REDIS_TTL" envDefault:"168h"`

	// Historical retrieval
	HistoryLimit        int     `env:"HISTORY_LIMIT" envDefault:"5"`
	SimilarityThreshold float64 `env:"SIMILARITY_THRESHOLD" envDefault:"0.6"`
	TextWeight          float64 `env:"TEXT_WEIGHT" envDefault:"0.6"`
	KeywordWeight       float64 `env:"KEYWORD_WEIGHT" envDefault:"0.4"`
	EnrichLimit         int     `env:"ENRICH_LIMIT" envDefault:"3"`

	// Ops
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"console"`
	APIAddr        string `env:"API_ADDR" envDefault:":8080"`
	ReportCron     string `env:"REPORT_CRON" envDefault:"0 21 * * *"`
	ReportTimezone string `env:"REPORT_TIMEZONE" envDefault:"UTC"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN must not be empty")
	}
	if c.MaxMessageLength <= 0 {
		return fmt.Errorf("MAX_MESSAGE_LENGTH must be positive, got %d", c.MaxMessageLength)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("WORKERS must be positive, got %d", c.Workers)
	}
	if c.ConnectAttempts <= 0 {
		return fmt.Errorf("CONNECT_ATTEMPTS must be positive, got %d", c.ConnectAttempts)
	}
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("SIMILARITY_THRESHOLD must be within [0,1], got %v", c.SimilarityThreshold)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT must not be negative, got %d", c.HistoryLimit)
	}
	if c.EnrichLimit <= 0 {
		return fmt.Errorf("ENRICH_LIMIT must be positive, got %d (set HISTORY_LIMIT=0 to turn history off)", c.EnrichLimit)
	}
	if _, err := time.LoadLocation(c.ReportTimezone); err != nil {
		return fmt.Errorf("REPORT_TIMEZONE: %w", err)
	}
	if c.TextWeight < 0 || c.KeywordWeight < 0 || c.TextWeight+c.KeywordWeight > 1+1e-9 {
		return fmt.Errorf("TEXT_WEIGHT and KEYWORD_WEIGHT must be non-negative and sum to at most 1")
	}
	return nil
}
