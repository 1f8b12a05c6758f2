package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	EDINET EDINETConfig `yaml:"edinet" mapstructure:"edinet"`
	DART   DARTConfig   `yaml:"dart" mapstructure:"dart"`
	HTTP   HTTPConfig   `yaml:"http" mapstructure:"http"`
	Pacing PacingConfig `yaml:"pacing" mapstructure:"pacing"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// EDINETConfig holds EDINET API v2 settings.
type EDINETConfig struct {
	APIKey   string   `yaml:"api_key" mapstructure:"api_key"`
	BaseURL  string   `yaml:"base_url" mapstructure:"base_url"`
	ScanDays int      `yaml:"scan_days" mapstructure:"scan_days"`
	DocTypes []string `yaml:"doc_types" mapstructure:"doc_types"`
}

// DARTConfig holds OpenDART settings.
type DARTConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	FSDiv   string `yaml:"fs_div" mapstructure:"fs_div"`
}

// HTTPConfig configures the shared downloader.
type HTTPConfig struct {
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
}

// Timeout returns TimeoutSecs as a duration.
func (c HTTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// PacingConfig sets the fixed delays between sequential upstream calls.
type PacingConfig struct {
	FilingDelayMS int `yaml:"filing_delay_ms" mapstructure:"filing_delay_ms"`
	DateDelayMS   int `yaml:"date_delay_ms" mapstructure:"date_delay_ms"`
}

// FilingDelay is the pause between per-filing fetches.
func (c PacingConfig) FilingDelay() time.Duration {
	return time.Duration(c.FilingDelayMS) * time.Millisecond
}

// DateDelay is the pause between EDINET date-window queries.
func (c PacingConfig) DateDelay() time.Duration {
	return time.Duration(c.DateDelayMS) * time.Millisecond
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: load .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DISCLOSURE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("edinet.api_key", "DISCLOSURE_EDINET_API_KEY", "EDINET_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind edinet key")
	}
	if err := v.BindEnv("dart.api_key", "DISCLOSURE_DART_API_KEY", "DART_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind dart key")
	}

	// Defaults
	v.SetDefault("edinet.api_key", "")
	v.SetDefault("edinet.base_url", "https://api.edinet-fsa.go.jp/api/v2")
	v.SetDefault("edinet.scan_days", 400)
	v.SetDefault("edinet.doc_types", []string{"120", "130", "140", "150", "160", "170"})
	v.SetDefault("dart.api_key", "")
	v.SetDefault("dart.base_url", "https://opendart.fss.or.kr/api")
	v.SetDefault("dart.fs_div", "CFS")
	v.SetDefault("http.timeout_secs", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.user_agent", "disclosure-cli/1.0")
	v.SetDefault("pacing.filing_delay_ms", 1000)
	v.SetDefault("pacing.date_delay_ms", 200)
	v.SetDefault("server.port", 8080)
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

// Validation modes.
const (
	ModeJP    = "JP"
	ModeKR    = "KR"
	ModeServe = "serve"
)

// Validate checks the settings a mode depends on. JP and KR need their
// API key; serve needs a usable port and at least one key.
func (c *Config) Validate(mode string) error {
	var errs []string
	if c.HTTP.TimeoutSecs <= 0 {
		errs = append(errs, "http.timeout_secs must be > 0")
	}
	if c.HTTP.MaxRetries < 1 {
		errs = append(errs, "http.max_retries must be >= 1")
	}
	if c.Pacing.FilingDelayMS < 0 || c.Pacing.DateDelayMS < 0 {
		errs = append(errs, "pacing delays must be >= 0")
	}

	switch mode {
	case ModeJP:
		if c.EDINET.APIKey == "" {
			errs = append(errs, "edinet.api_key is required")
		}
		if c.EDINET.ScanDays < 1 {
			errs = append(errs, "edinet.scan_days must be > 0")
		}
	case ModeKR:
		if c.DART.APIKey == "" {
			errs = append(errs, "dart.api_key is required")
		}
		if c.DART.FSDiv != "CFS" && c.DART.FSDiv != "OFS" {
			errs = append(errs, "dart.fs_div must be CFS or OFS")
		}
	case ModeServe:
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.EDINET.APIKey == "" && c.DART.APIKey == "" {
			errs = append(errs, "edinet.api_key or dart.api_key is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
