package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the discovery pipeline.
type Config struct {
	General     GeneralConfig     `mapstructure:"general"`
	Server      ServerConfig      `mapstructure:"server"`
	LLM         LLMConfig         `mapstructure:"llm"`
	Search      SearchConfig      `mapstructure:"search"`
	CrawlPolicy CrawlPolicyConfig `mapstructure:"crawl_policy"`
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Pipeline    PipelineConfig    `mapstructure:"pipeline"`
	Dedup       DedupConfig       `mapstructure:"dedup"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig contains HTTP trigger and scheduling settings
type ServerConfig struct {
	Address   string `mapstructure:"address"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Schedule  string `mapstructure:"schedule"` // cron expression, empty disables the scheduler
}

// LLMConfig describes the chat-completion backend.
type LLMConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	APIKey       string        `mapstructure:"api_key"`
	Model        string        `mapstructure:"model"`
	Temperature  float64       `mapstructure:"temperature"`
	MaxTokens    int           `mapstructure:"max_tokens"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.APIKey) == "" {
		return fmt.Errorf("llm.api_key required")
	}
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model required")
	}
	if l.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries cannot be negative")
	}
	return nil
}

// SearchConfig contains web search settings
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // serper or brave
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// APIKey returns the key of the selected provider.
func (s SearchConfig) APIKey() string {
	switch strings.ToLower(s.Provider) {
	case "brave":
		return s.BraveAPIKey
	default:
		return s.SerperAPIKey
	}
}

func (s SearchConfig) Validate() error {
	switch strings.ToLower(s.Provider) {
	case "serper", "brave":
	default:
		return fmt.Errorf("search.provider must be serper or brave, got %q", s.Provider)
	}
	if strings.TrimSpace(s.APIKey()) == "" {
		return fmt.Errorf("search.%s_api_key required", strings.ToLower(s.Provider))
	}
	if s.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0")
	}
	return nil
}

// FetchConfig controls page retrieval.
type FetchConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	UserAgent       string        `mapstructure:"user_agent"`
	SettleDelay     time.Duration `mapstructure:"settle_delay"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	InterQueryDelay time.Duration `mapstructure:"inter_query_delay"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// PipelineConfig holds the chunking and relevance knobs.
type PipelineConfig struct {
	ChunkThreshold     int     `mapstructure:"chunk_threshold"`
	RelevanceThreshold float64 `mapstructure:"relevance_threshold"`
	SampleSize         int     `mapstructure:"sample_size"`
}

// DedupConfig selects how aggressively the semantic pass merges records.
type DedupConfig struct {
	MergePolicy string `mapstructure:"merge_policy"` // off, conservative, aggressive
}

func (d DedupConfig) Validate() error {
	switch d.MergePolicy {
	case "off", "conservative", "aggressive":
		return nil
	}
	return fmt.Errorf("dedup.merge_policy must be off, conservative or aggressive, got %q", d.MergePolicy)
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	DataDir        string         `mapstructure:"data_dir"`
	HTMLDir        string         `mapstructure:"html_dir"`
	CatalogFile    string         `mapstructure:"catalog_file"`
	CatalogBackend string         `mapstructure:"catalog_backend"` // file or postgres
	SeenBackend    string         `mapstructure:"seen_backend"`    // none, memory or redis
	SeenTTL        time.Duration  `mapstructure:"seen_ttl"`
	Redis          RedisConfig    `mapstructure:"redis"`
	Postgres       PostgresConfig `mapstructure:"postgres"`
}

// Normalize resolves the derived paths under data_dir.
func (s StorageConfig) Normalize() StorageConfig {
	if strings.TrimSpace(s.DataDir) == "" {
		s.DataDir = "crawled_data"
	}
	if strings.HasPrefix(s.DataDir, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			s.DataDir = filepath.Join(home, s.DataDir[2:])
		}
	}
	if strings.TrimSpace(s.HTMLDir) == "" {
		s.HTMLDir = filepath.Join(s.DataDir, "html")
	}
	if strings.TrimSpace(s.CatalogFile) == "" {
		s.CatalogFile = filepath.Join(s.DataDir, "events.json")
	}
	s.CatalogBackend = strings.ToLower(strings.TrimSpace(s.CatalogBackend))
	if s.CatalogBackend == "" {
		s.CatalogBackend = "file"
	}
	s.SeenBackend = strings.ToLower(strings.TrimSpace(s.SeenBackend))
	if s.SeenBackend == "" {
		s.SeenBackend = "none"
	}
	return s
}

func (s StorageConfig) Validate() error {
	switch s.CatalogBackend {
	case "file":
	case "postgres":
		if err := s.Postgres.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.catalog_backend must be file or postgres, got %q", s.CatalogBackend)
	}
	switch s.SeenBackend {
	case "none", "memory":
	case "redis":
		if err := s.Redis.Validate(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.seen_backend must be none, memory or redis, got %q", s.SeenBackend)
	}
	return nil
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("storage.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (p PostgresConfig) Validate() error {
	if strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.Host) == "" {
		return fmt.Errorf("storage.postgres.host required when url is not provided")
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// DSN builds a lib/pq connection string.
func (p PostgresConfig) DSN() string {
	if p.URL != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// TelemetryConfig toggles the prometheus metrics endpoint.
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Validate checks every section a pipeline run depends on.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if err := c.LLM.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.CrawlPolicy.Validate(); err != nil {
		return err
	}
	if err := c.Dedup.Validate(); err != nil {
		return err
	}
	return c.Storage.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.log_level", "info")
	v.SetDefault("server.address", ":10001")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.1)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("llm.retry_backoff", 2*time.Second)
	v.SetDefault("search.provider", "serper")
	v.SetDefault("search.max_results", 8)
	v.SetDefault("search.timeout", 15*time.Second)
	v.SetDefault("crawl_policy.render_domains", DefaultRenderDomains)
	v.SetDefault("crawl_policy.keywords", DefaultKeywords)
	v.SetDefault("crawl_policy.deny_url_terms", DefaultDenyURLTerms)
	v.SetDefault("crawl_policy.negative_terms", DefaultNegativeTerms)
	v.SetDefault("fetch.timeout", 30*time.Second)
	v.SetDefault("fetch.user_agent", DefaultUserAgent)
	v.SetDefault("fetch.settle_delay", 2*time.Second)
	v.SetDefault("fetch.max_concurrency", 8)
	v.SetDefault("fetch.inter_query_delay", 2*time.Second)
	v.SetDefault("fetch.max_body_bytes", 10<<20)
	v.SetDefault("pipeline.chunk_threshold", 4000)
	v.SetDefault("pipeline.relevance_threshold", 5.0)
	v.SetDefault("pipeline.sample_size", 3)
	v.SetDefault("dedup.merge_policy", "conservative")
	v.SetDefault("storage.data_dir", "crawled_data")
	v.SetDefault("storage.catalog_backend", "file")
	v.SetDefault("storage.seen_backend", "none")
	v.SetDefault("storage.seen_ttl", 72*time.Hour)
	v.SetDefault("storage.redis.port", "6379")
	v.SetDefault("storage.redis.timeout", 5*time.Second)
	v.SetDefault("telemetry.enabled", true)
}

// LoadConfig loads config from file and PATHFINDER_* environment variables.
// A missing config file is not an error when path is empty; defaults and the
// environment are then the only sources.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("PATHFINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// AutomaticEnv only applies to keys viper already knows about.
	for _, key := range []string{"llm.api_key", "search.serper_api_key", "search.brave_api_key", "server.jwt_secret",
		"storage.redis.host", "storage.redis.password", "storage.postgres.url"} {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.CrawlPolicy = cfg.CrawlPolicy.Normalize()
	cfg.Storage = cfg.Storage.Normalize()
	cfg.Dedup.MergePolicy = strings.ToLower(strings.TrimSpace(cfg.Dedup.MergePolicy))
	return &cfg, nil
}
