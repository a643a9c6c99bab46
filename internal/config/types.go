package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline"`
	ITN       ITNConfig       `yaml:"itn" mapstructure:"itn"`
	Punct     PunctConfig     `yaml:"punctuation" mapstructure:"punctuation"`
	Grammar   GrammarConfig   `yaml:"grammar" mapstructure:"grammar"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
	WebSocket WebSocketConfig `yaml:"websocket" mapstructure:"websocket"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
	RateLimit    struct {
		Enabled        bool `yaml:"enabled" mapstructure:"enabled"`
		RequestsPerMin int  `yaml:"requests_per_min" mapstructure:"requests_per_min"`
		Burst          int  `yaml:"burst" mapstructure:"burst"`
	} `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// PipelineConfig contains transcript pipeline configuration
type PipelineConfig struct {
	// DefaultLanguage is used when language detection is disabled or fails.
	DefaultLanguage string `yaml:"default_language" mapstructure:"default_language"`
	// Languages lists the enabled language tags, in rule-table order.
	Languages []string `yaml:"languages" mapstructure:"languages"`
	// DetectLanguage toggles the language detection stage.
	DetectLanguage bool `yaml:"detect_language" mapstructure:"detect_language"`
	// UserReplacementsPath points at the user replacement rules file.
	// Empty means $HOME/.config/cleanscribe/replacements.json.
	UserReplacementsPath string `yaml:"user_replacements_path" mapstructure:"user_replacements_path"`
}

// ITNConfig configures the Polish inverse-text-normalization collaborator.
type ITNConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// PunctConfig configures the punctuation/capitalization model.
type PunctConfig struct {
	ModelPath string `yaml:"model_path" mapstructure:"model_path"`
	VocabPath string `yaml:"vocab_path" mapstructure:"vocab_path"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// GrammarConfig configures the LanguageTool grammar collaborator.
type GrammarConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CacheConfig contains result cache configuration
type CacheConfig struct {
	Enabled        bool          `yaml:"enabled" mapstructure:"enabled"`
	RedisURL       string        `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConnections int           `yaml:"max_connections" mapstructure:"max_connections"`
	MinIdleConns   int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DefaultTTL     time.Duration `yaml:"default_ttl" mapstructure:"default_ttl"`
	KeyPrefix      string        `yaml:"key_prefix" mapstructure:"key_prefix"`
}

// HistoryConfig contains run history database configuration
type HistoryConfig struct {
	Enabled         bool          `yaml:"enabled" mapstructure:"enabled"`
	DatabaseURL     string        `yaml:"database_url" mapstructure:"database_url"`
	MaxOpenConns    int           `yaml:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json or console
	File   struct {
		Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
		Path    string `yaml:"path" mapstructure:"path"`
	} `yaml:"file" mapstructure:"file"`
}

// WebSocketConfig contains live event feed configuration
type WebSocketConfig struct {
	Enabled              bool   `yaml:"enabled" mapstructure:"enabled"`
	Username             string `yaml:"username" mapstructure:"username"`
	Password             string `yaml:"password" mapstructure:"password"`
	BroadcastStageTraces bool   `yaml:"broadcast_stage_traces" mapstructure:"broadcast_stage_traces"`
	BroadcastRequestLogs bool   `yaml:"broadcast_request_logs" mapstructure:"broadcast_request_logs"`
	BroadcastConnections bool   `yaml:"broadcast_connections" mapstructure:"broadcast_connections"`
}

// GetDefaults returns a configuration with sensible defaults
func GetDefaults() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:         8787,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Pipeline: PipelineConfig{
			DefaultLanguage: "pl",
			Languages:       []string{"pl", "en"},
			DetectLanguage:  true,
		},
		ITN: ITNConfig{
			Timeout: 10 * time.Second,
		},
		Punct: PunctConfig{
			MaxTokens: 256,
		},
		Grammar: GrammarConfig{
			Timeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:        false,
			RedisURL:       "redis://localhost:6379/0",
			MaxConnections: 10,
			MinIdleConns:   2,
			DefaultTTL:     time.Hour,
			KeyPrefix:      "cleanscribe:result:",
		},
		History: HistoryConfig{
			Enabled:         false,
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		WebSocket: WebSocketConfig{
			Enabled:              true,
			BroadcastStageTraces: true,
			BroadcastRequestLogs: true,
			BroadcastConnections: true,
		},
	}
	return cfg
}
