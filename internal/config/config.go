package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Auth      AuthConfig      `yaml:"auth" mapstructure:"auth"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	BigQuery  BigQueryConfig  `yaml:"bigquery" mapstructure:"bigquery"`
	Sheets    SheetsConfig    `yaml:"sheets" mapstructure:"sheets"`
	Database  DatabaseConfig  `yaml:"database" mapstructure:"database"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Report    ReportConfig    `yaml:"report" mapstructure:"report"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// AuthConfig configures token issuance and the static user store.
type AuthConfig struct {
	Secret        string `yaml:"secret" mapstructure:"secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours" mapstructure:"token_ttl_hours"`
	AdminUser     string `yaml:"admin_user" mapstructure:"admin_user"`
	AdminPassword string `yaml:"admin_password" mapstructure:"admin_password"`
	AdminEmail    string `yaml:"admin_email" mapstructure:"admin_email"`
}

// StoreConfig configures the file-backed artifact store.
type StoreConfig struct {
	DataDir      string `yaml:"data_dir" mapstructure:"data_dir"`
	ModelsDir    string `yaml:"models_dir" mapstructure:"models_dir"`
	ReportsDir   string `yaml:"reports_dir" mapstructure:"reports_dir"`
	TemplatesDir string `yaml:"templates_dir" mapstructure:"templates_dir"`
}

// BigQueryConfig holds warehouse credentials.
type BigQueryConfig struct {
	ProjectID   string `yaml:"project_id" mapstructure:"project_id"`
	AccessToken string `yaml:"access_token" mapstructure:"access_token"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	MaxBytes    int64  `yaml:"max_bytes" mapstructure:"max_bytes"`
}

// SheetsConfig holds Google Sheets API credentials.
type SheetsConfig struct {
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DatabaseConfig configures the local relational source.
type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	Path   string `yaml:"path" mapstructure:"path"`     // sqlite file path
	URL    string `yaml:"url" mapstructure:"url"`       // postgres DSN
}

// AnthropicConfig holds LLM API settings.
type AnthropicConfig struct {
	Key         string  `yaml:"key" mapstructure:"key"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RPS         float64 `yaml:"rps" mapstructure:"rps"`
}

// ReportConfig configures report generation behavior.
type ReportConfig struct {
	FetchTimeoutSecs int `yaml:"fetch_timeout_secs" mapstructure:"fetch_timeout_secs"`
	SummaryCharLimit int `yaml:"summary_char_limit" mapstructure:"summary_char_limit"`
	SampleRows       int `yaml:"sample_rows" mapstructure:"sample_rows"`
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
	v.SetEnvPrefix("REPORTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8000)
	v.SetDefault("auth.secret", "defaultsecretkey")
	v.SetDefault("auth.token_ttl_hours", 24)
	v.SetDefault("auth.admin_user", "admin")
	v.SetDefault("auth.admin_email", "admin@example.com")
	v.SetDefault("store.data_dir", "data")
	v.SetDefault("store.models_dir", "data/models")
	v.SetDefault("store.reports_dir", "data/reports")
	v.SetDefault("store.templates_dir", "templates")
	v.SetDefault("bigquery.base_url", "https://bigquery.googleapis.com/bigquery/v2")
	v.SetDefault("bigquery.max_bytes", int64(1_000_000_000))
	v.SetDefault("sheets.base_url", "https://sheets.googleapis.com/v4")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "data/marketing_reports.db")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", int64(4096))
	v.SetDefault("anthropic.timeout_secs", 60)
	v.SetDefault("anthropic.rps", 2.0)
	v.SetDefault("report.fetch_timeout_secs", 30)
	v.SetDefault("report.summary_char_limit", 4000)
	v.SetDefault("report.sample_rows", 20)
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
