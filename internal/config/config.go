package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Rules        RulesConfig        `mapstructure:"rules"`
	Advice       AdviceConfig       `mapstructure:"advice"`
	Offer        OfferConfig        `mapstructure:"offer"`
	Cancellation CancellationConfig `mapstructure:"cancellation"`
	Kafka        KafkaConfig        `mapstructure:"kafka"`
	Logger       LoggerConfig       `mapstructure:"logger"`
}

// ServerConfig holds the ops HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// RulesConfig locates the advice rule tables
type RulesConfig struct {
	Path string `mapstructure:"path"`
}

// AdviceConfig holds advice dispatch configuration
type AdviceConfig struct {
	RecheckInterval  time.Duration `mapstructure:"recheck_interval"`
	RecheckBatchSize int           `mapstructure:"recheck_batch_size"`
}

// OfferConfig holds offer automation configuration
type OfferConfig struct {
	MinCoverageFeatures int     `mapstructure:"min_coverage_features"`
	AdminIDs            []int64 `mapstructure:"admin_ids"`
	DocumentOutputDir   string  `mapstructure:"document_output_dir"`
}

// CancellationConfig holds the timeout sweep configuration
type CancellationConfig struct {
	SweepInterval  time.Duration `mapstructure:"sweep_interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	BatchSize      int           `mapstructure:"batch_size"`
	ExecutionLimit int           `mapstructure:"execution_limit"`
}

// KafkaConfig holds event publishing configuration
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/advisory.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	viper.SetDefault("database.migrations_dir", "migrations")

	// Rules defaults
	viper.SetDefault("rules.path", "configs/advice_rules.yaml")

	// Advice defaults
	viper.SetDefault("advice.recheck_interval", time.Minute)
	viper.SetDefault("advice.recheck_batch_size", 100)

	// Offer defaults
	viper.SetDefault("offer.min_coverage_features", 3)
	viper.SetDefault("offer.document_output_dir", "generated_documents")

	// Cancellation defaults
	viper.SetDefault("cancellation.sweep_interval", 10*time.Minute)
	viper.SetDefault("cancellation.timeout", 14*24*time.Hour)
	viper.SetDefault("cancellation.batch_size", 100)
	viper.SetDefault("cancellation.execution_limit", 0)

	// Kafka defaults
	viper.SetDefault("kafka.brokers", []string{"localhost:9092"})
	viper.SetDefault("kafka.topic", "advisory-events")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

func bindEnvVars() {
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	viper.BindEnv("kafka.topic", "KAFKA_TOPIC")
	viper.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Rules.Path == "" {
		return fmt.Errorf("rules.path is required")
	}
	if len(c.Offer.AdminIDs) == 0 {
		return fmt.Errorf("offer.admin_ids must name at least one admin")
	}
	if c.Offer.MinCoverageFeatures < 1 {
		return fmt.Errorf("offer.min_coverage_features must be positive")
	}
	if c.Cancellation.BatchSize < 1 {
		return fmt.Errorf("cancellation.batch_size must be positive")
	}
	if c.Cancellation.Timeout <= 0 {
		return fmt.Errorf("cancellation.timeout must be positive")
	}
	return nil
}
