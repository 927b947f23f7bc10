package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Sources  SourcesConfig  `yaml:"sources" mapstructure:"sources"`
	Enrich   EnrichConfig   `yaml:"enrich" mapstructure:"enrich"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Report   ReportConfig   `yaml:"report" mapstructure:"report"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// HTTPConfig configures the outbound transport.
type HTTPConfig struct {
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts  int     `yaml:"max_attempts" mapstructure:"max_attempts"`
	RatePerHost  float64 `yaml:"rate_per_host" mapstructure:"rate_per_host"`
	MaxBodyBytes int64   `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// Timeout returns the per-request timeout.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// SourcesConfig selects and locates the search sources.
type SourcesConfig struct {
	Default   []string       `yaml:"default" mapstructure:"default"`
	Limit     int            `yaml:"limit" mapstructure:"limit"`
	Wikipedia EndpointConfig `yaml:"wikipedia" mapstructure:"wikipedia"`
	MLB       EndpointConfig `yaml:"mlb" mapstructure:"mlb"`
	Google    EndpointConfig `yaml:"google" mapstructure:"google"`
	YouTube   EndpointConfig `yaml:"youtube" mapstructure:"youtube"`
}

// EndpointConfig locates one source.
type EndpointConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
	Language string `yaml:"language" mapstructure:"language"`
}

// EnrichConfig configures page excerpt enrichment.
type EnrichConfig struct {
	Enabled     bool `yaml:"enabled" mapstructure:"enabled"`
	MaxChars    int  `yaml:"max_chars" mapstructure:"max_chars"`
	Concurrency int  `yaml:"concurrency" mapstructure:"concurrency"`
}

// PipelineConfig configures source orchestration.
type PipelineConfig struct {
	AggregateCap         int `yaml:"aggregate_cap" mapstructure:"aggregate_cap"`
	MaxConcurrentSources int `yaml:"max_concurrent_sources" mapstructure:"max_concurrent_sources"`
	SourceTimeoutSecs    int `yaml:"source_timeout_secs" mapstructure:"source_timeout_secs"`
	DeadlineSecs         int `yaml:"deadline_secs" mapstructure:"deadline_secs"`
}

// ReportConfig configures report output.
type ReportConfig struct {
	Output      string `yaml:"output" mapstructure:"output"`
	Format      string `yaml:"format" mapstructure:"format"`
	Title       string `yaml:"title" mapstructure:"title"`
	FrontMatter bool   `yaml:"front_matter" mapstructure:"front_matter"`
	Diagnostics bool   `yaml:"diagnostics" mapstructure:"diagnostics"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("SEARCH_REPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.timeout_secs", 20)
	v.SetDefault("http.max_attempts", 1)
	v.SetDefault("http.rate_per_host", 10)
	v.SetDefault("http.max_body_bytes", 4<<20)
	v.SetDefault("sources.default", []string{"wikipedia", "mlb", "google", "youtube"})
	v.SetDefault("sources.limit", 10)
	v.SetDefault("sources.wikipedia.base_url", "https://zh.wikipedia.org")
	v.SetDefault("sources.mlb.base_url", "https://www.mlb.com")
	v.SetDefault("sources.google.base_url", "https://www.google.com")
	v.SetDefault("sources.google.language", "zh-CN")
	v.SetDefault("sources.youtube.base_url", "https://www.youtube.com")
	v.SetDefault("sources.youtube.language", "zh-CN")
	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.max_chars", 200)
	v.SetDefault("enrich.concurrency", 4)
	v.SetDefault("pipeline.aggregate_cap", 10)
	v.SetDefault("pipeline.max_concurrent_sources", 4)
	v.SetDefault("pipeline.source_timeout_secs", 60)
	v.SetDefault("pipeline.deadline_secs", 180)
	v.SetDefault("report.output", "search_report.md")
	v.SetDefault("report.format", "markdown")
	v.SetDefault("report.front_matter", false)
	v.SetDefault("report.diagnostics", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command mode depends on. mode is one of
// "report", "ask" or "serve".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "report", "ask":
	case "serve":
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.HTTP.TimeoutSecs <= 0 {
		errs = append(errs, "http.timeout_secs must be > 0")
	}
	if c.HTTP.MaxAttempts < 1 || c.HTTP.MaxAttempts > 10 {
		errs = append(errs, "http.max_attempts must be between 1 and 10")
	}
	if c.Sources.Limit < 1 || c.Sources.Limit > 50 {
		errs = append(errs, "sources.limit must be between 1 and 50")
	}
	if c.Pipeline.AggregateCap < 1 {
		errs = append(errs, "pipeline.aggregate_cap must be >= 1")
	}
	if c.Pipeline.MaxConcurrentSources < 1 || c.Pipeline.MaxConcurrentSources > 16 {
		errs = append(errs, "pipeline.max_concurrent_sources must be between 1 and 16")
	}
	if c.Enrich.Enabled && (c.Enrich.MaxChars < 1 || c.Enrich.Concurrency < 1) {
		errs = append(errs, "enrich.max_chars and enrich.concurrency must be >= 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: invalid settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
