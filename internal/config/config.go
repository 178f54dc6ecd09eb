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
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
}

// StoreConfig configures the Postgres backend.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
	// RecalcPerMinute caps how many recalculations the serve endpoint
	// accepts per minute across all companies.
	RecalcPerMinute int `yaml:"recalc_per_minute" mapstructure:"recalc_per_minute"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ScoringConfig holds the tunable parameters of the health score. The
// per-answer tier tables are fixed business rules and live next to the
// evaluators; everything a deployment might reasonably adjust is here.
type ScoringConfig struct {
	// Dimension weights. Must sum to 10.
	ComplianceWeight    float64 `yaml:"compliance_weight" mapstructure:"compliance_weight"`
	EfficiencyWeight    float64 `yaml:"efficiency_weight" mapstructure:"efficiency_weight"`
	RiskWeight          float64 `yaml:"risk_weight" mapstructure:"risk_weight"`
	DocumentationWeight float64 `yaml:"documentation_weight" mapstructure:"documentation_weight"`
	ManagementWeight    float64 `yaml:"management_weight" mapstructure:"management_weight"`

	// MinDocumentCount is the imported-document count below which the
	// engine recommends importing fiscal documents.
	MinDocumentCount int `yaml:"min_document_count" mapstructure:"min_document_count"`

	// DefaultAnnualRevenue is the conservative fallback used when neither
	// a financial statement nor a profile monthly revenue is available.
	DefaultAnnualRevenue float64 `yaml:"default_annual_revenue" mapstructure:"default_annual_revenue"`

	// SavingsRate is the fraction of the deductions figure counted as
	// potential savings when no regime comparison was ever run.
	SavingsRate float64 `yaml:"savings_rate" mapstructure:"savings_rate"`

	// Audit exposure rates, applied to annualized revenue by fiscal standing.
	NotifiedExposureRate float64 `yaml:"notified_exposure_rate" mapstructure:"notified_exposure_rate"`
	PendingExposureRate  float64 `yaml:"pending_exposure_rate" mapstructure:"pending_exposure_rate"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TAXHEALTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.recalc_per_minute", 30)
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("store.min_conns", 2)
	v.SetDefault("scoring.compliance_weight", 2.5)
	v.SetDefault("scoring.efficiency_weight", 2.5)
	v.SetDefault("scoring.risk_weight", 2.0)
	v.SetDefault("scoring.documentation_weight", 1.5)
	v.SetDefault("scoring.management_weight", 1.5)
	v.SetDefault("scoring.min_document_count", 50)
	v.SetDefault("scoring.default_annual_revenue", 600_000)
	v.SetDefault("scoring.savings_rate", 0.15)
	v.SetDefault("scoring.notified_exposure_rate", 0.03)
	v.SetDefault("scoring.pending_exposure_rate", 0.01)

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
