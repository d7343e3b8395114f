package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the factsheet pipeline.
type Config struct {
	General    GeneralConfig    `mapstructure:"general"`
	Server     ServerConfig     `mapstructure:"server"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Scrape     ScrapeConfig     `mapstructure:"scrape"`
	Chunking   ChunkingConfig   `mapstructure:"chunking"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Generation GenerationConfig `mapstructure:"generation"`
	Validation ValidationConfig `mapstructure:"validation"`
	Budget     BudgetConfig     `mapstructure:"budget"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Output     OutputConfig     `mapstructure:"output"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings.
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP status server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LLMConfig contains language model provider settings.
type LLMConfig struct {
	Provider       string              `mapstructure:"provider"`
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	ChatModel      string              `mapstructure:"chat_model"`
	EmbeddingModel string              `mapstructure:"embedding_model"`
	Models         map[string]LLMModel `mapstructure:"models"`
	MaxRetries     int                 `mapstructure:"max_retries"`
	Timeout        time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration.
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.ChatModel) == "" {
		return fmt.Errorf("llm.chat_model is required")
	}
	if strings.TrimSpace(l.EmbeddingModel) == "" {
		return fmt.Errorf("llm.embedding_model is required")
	}
	return nil
}

// ScrapeConfig controls the headless fetcher.
type ScrapeConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxChars  int           `mapstructure:"max_chars"`
	UserAgent string        `mapstructure:"user_agent"`
}

// ChunkingConfig controls text cleaning and chunk sizing.
type ChunkingConfig struct {
	ChunkTokens   int `mapstructure:"chunk_tokens"`
	OverlapTokens int `mapstructure:"overlap_tokens"`
}

func (c ChunkingConfig) Validate() error {
	if c.ChunkTokens <= 0 {
		return fmt.Errorf("chunking.chunk_tokens must be > 0")
	}
	if c.OverlapTokens < 0 || c.OverlapTokens >= c.ChunkTokens {
		return fmt.Errorf("chunking.overlap_tokens must be in [0, chunk_tokens)")
	}
	return nil
}

// RetrievalConfig controls nearest-neighbor retrieval.
type RetrievalConfig struct {
	TopK        int     `mapstructure:"top_k"`
	MaxDistance float64 `mapstructure:"max_distance"`
	Backend     string  `mapstructure:"backend"` // memory or qdrant
	QdrantAddr  string  `mapstructure:"qdrant_addr"`
	Collection  string  `mapstructure:"collection"`
}

func (r RetrievalConfig) Validate() error {
	if r.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be > 0")
	}
	if r.MaxDistance <= 0 || r.MaxDistance > 2 {
		return fmt.Errorf("retrieval.max_distance must be in (0, 2]")
	}
	if r.Backend == "qdrant" && strings.TrimSpace(r.QdrantAddr) == "" {
		return fmt.Errorf("retrieval.qdrant_addr required when backend is qdrant")
	}
	return nil
}

// GenerationConfig controls the factsheet generator.
type GenerationConfig struct {
	MinWords       int `mapstructure:"min_words"`
	MaxWords       int `mapstructure:"max_words"`
	MaxRegenerates int `mapstructure:"max_regenerates"`
}

func (g GenerationConfig) Validate() error {
	if g.MinWords <= 0 || g.MaxWords <= g.MinWords {
		return fmt.Errorf("generation.min_words/max_words must satisfy 0 < min < max")
	}
	return nil
}

// ValidationConfig controls the accuracy validator.
type ValidationConfig struct {
	MinQuestions  int     `mapstructure:"min_questions"`
	PassThreshold float64 `mapstructure:"pass_threshold"`
	StageRetries  int     `mapstructure:"stage_retries"`
}

// BudgetConfig sets the batch spend ceiling.
type BudgetConfig struct {
	CeilingUSD float64 `mapstructure:"ceiling_usd"`
}

func (b BudgetConfig) Validate() error {
	if b.CeilingUSD <= 0 {
		return fmt.Errorf("budget.ceiling_usd must be > 0")
	}
	return nil
}

// PipelineConfig controls batch scheduling.
type PipelineConfig struct {
	Workers int `mapstructure:"workers"`
}

// OutputConfig controls where Markdown artifacts land.
type OutputConfig struct {
	Dir               string `mapstructure:"dir"`
	SkipExisting      bool   `mapstructure:"skip_existing"`
	CheckpointFile    string `mapstructure:"checkpoint_file"`
	CheckpointBackend string `mapstructure:"checkpoint_backend"` // file, redis or none
}

// StorageConfig contains persistence settings.
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings.
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds a postgres connection string from the configured fields.
func (p PostgresConfig) DSN() (string, error) {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL, nil
	}
	if p.Host == "" || p.DBName == "" {
		return "", fmt.Errorf("postgres not configured (storage.postgres.host/dbname or url)")
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl), nil
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Addr() string {
	host := r.Host
	if host == "" {
		host = "localhost"
	}
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return host + ":" + port
}

// TelemetryConfig contains metrics settings.
type TelemetryConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MetricsPort int  `mapstructure:"metrics_port"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort <= 0 {
		return fmt.Errorf("telemetry.metrics_port must be > 0 when telemetry is enabled")
	}
	return nil
}

// LoadConfig loads config from file, applying defaults and env overrides.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("FACTSHEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is optional; defaults plus env are enough to run.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	overrideFromEnv(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.default_timeout", "60s")
	v.SetDefault("server.address", ":10020")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.chat_model", "gpt-4")
	v.SetDefault("llm.embedding_model", "text-embedding-3-small")
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.timeout", "120s")
	v.SetDefault("scrape.timeout", "30s")
	v.SetDefault("scrape.max_chars", 200000)
	v.SetDefault("scrape.user_agent", "FactsheetBot/1.0 (+contact@thinkbridge.example)")
	v.SetDefault("chunking.chunk_tokens", 1000)
	v.SetDefault("chunking.overlap_tokens", 200)
	v.SetDefault("retrieval.top_k", 6)
	v.SetDefault("retrieval.max_distance", 0.25)
	v.SetDefault("retrieval.backend", "memory")
	v.SetDefault("retrieval.collection", "factsheet_chunks")
	v.SetDefault("generation.min_words", 600)
	v.SetDefault("generation.max_words", 1000)
	v.SetDefault("generation.max_regenerates", 2)
	v.SetDefault("validation.min_questions", 50)
	v.SetDefault("validation.pass_threshold", 0.80)
	v.SetDefault("validation.stage_retries", 1)
	v.SetDefault("budget.ceiling_usd", 50.0)
	v.SetDefault("pipeline.workers", 8)
	v.SetDefault("output.dir", "out")
	v.SetDefault("output.skip_existing", true)
	v.SetDefault("output.checkpoint_file", "checkpoint.json")
	v.SetDefault("output.checkpoint_backend", "file")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.metrics_port", 9102)
}

func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Storage.Postgres.URL = url
	}
}

func validateConfig(cfg *Config) error {
	if err := cfg.LLM.Validate(); err != nil {
		return err
	}
	if err := cfg.Chunking.Validate(); err != nil {
		return err
	}
	if err := cfg.Retrieval.Validate(); err != nil {
		return err
	}
	if err := cfg.Generation.Validate(); err != nil {
		return err
	}
	if err := cfg.Budget.Validate(); err != nil {
		return err
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		return err
	}
	return nil
}
