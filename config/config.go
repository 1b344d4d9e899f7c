// Package config loads service configuration from config files and the
// environment. Environment variables override file values, e.g.
// DATABASE_HOST overrides database.host.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppName    string `mapstructure:"app_name"`
	Port       int    `mapstructure:"port"`
	LogLevel   string `mapstructure:"log_level"`
	PrettyLogs bool   `mapstructure:"pretty_logs"`

	Database DatabaseConfig `mapstructure:"database"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	AI       AIConfig       `mapstructure:"ai"`
	Matching MatchingConfig `mapstructure:"matching"`
	Sweep    SweepConfig    `mapstructure:"sweep"`
}

type DatabaseConfig struct {
	Host                string        `mapstructure:"host"`
	Port                string        `mapstructure:"port"`
	User                string        `mapstructure:"user"`
	Password            string        `mapstructure:"password"`
	Name                string        `mapstructure:"name"`
	SSLMode             string        `mapstructure:"ssl_mode"`
	MaxOpenConns        int           `mapstructure:"max_open_conns"`
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime     time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationFolderPath string        `mapstructure:"migration_folder_path"`
}

type GraphConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type KafkaConfig struct {
	Brokers          []string      `mapstructure:"brokers"`
	ChangeTopic      string        `mapstructure:"change_topic"`
	ConsumerGroup    string        `mapstructure:"consumer_group"`
	ConsumerEnabled  bool          `mapstructure:"consumer_enabled"`
	EligibilityTopic string        `mapstructure:"eligibility_topic"`
	BatchSize        int           `mapstructure:"batch_size"`
	BatchTimeout     time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks     int           `mapstructure:"required_acks"`
	Compression      string        `mapstructure:"compression"`
}

type AIConfig struct {
	BaseURL            string        `mapstructure:"base_url"`
	Token              string        `mapstructure:"token"`
	Model              string        `mapstructure:"model"`
	EmbeddingBaseURL   string        `mapstructure:"embedding_base_url"`
	EmbeddingModel     string        `mapstructure:"embedding_model"`
	InterpretTimeout   time.Duration `mapstructure:"interpret_timeout"`
	InterpretRateLimit float64       `mapstructure:"interpret_rate_limit"`
	CacheTTL           time.Duration `mapstructure:"cache_ttl"`
	MinConfidence      float64       `mapstructure:"min_confidence"`
}

type MatchingConfig struct {
	TopK                int           `mapstructure:"top_k"`
	EligibilityWeight   float64       `mapstructure:"eligibility_weight"`
	DeadlineWeight      float64       `mapstructure:"deadline_weight"`
	BenefitWeight       float64       `mapstructure:"benefit_weight"`
	DeadlineHorizonDays int           `mapstructure:"deadline_horizon_days"`
	NearMissMaxUnmet    int           `mapstructure:"near_miss_max_unmet"`
	RetrievalTimeout    time.Duration `mapstructure:"retrieval_timeout"`
}

type SweepConfig struct {
	Workers            int           `mapstructure:"workers"`
	BatchSize          int           `mapstructure:"batch_size"`
	CompletionDeadline time.Duration `mapstructure:"completion_deadline"`
}

// Load reads configuration, merging config.yaml (if present), .env and
// process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_name", "sahayak-api")
	v.SetDefault("port", 3004)
	v.SetDefault("log_level", "info")
	v.SetDefault("pretty_logs", false)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "sahayak")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "10s")
	v.SetDefault("database.migration_folder_path", "db/pg")

	v.SetDefault("graph.host", "localhost")
	v.SetDefault("graph.port", 7687)
	v.SetDefault("graph.username", "")
	v.SetDefault("graph.password", "")

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.change_topic", "catalog-changes")
	v.SetDefault("kafka.consumer_group", "sahayak-engine")
	v.SetDefault("kafka.consumer_enabled", true)
	v.SetDefault("kafka.eligibility_topic", "eligibility-events")
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", "100ms")
	v.SetDefault("kafka.required_acks", 1)
	v.SetDefault("kafka.compression", "snappy")

	v.SetDefault("ai.base_url", "http://localhost:11434/v1")
	v.SetDefault("ai.token", "none")
	v.SetDefault("ai.model", "llama3.1")
	v.SetDefault("ai.embedding_base_url", "http://localhost:11434/v1")
	v.SetDefault("ai.embedding_model", "nomic-embed-text")
	v.SetDefault("ai.interpret_timeout", "15s")
	v.SetDefault("ai.interpret_rate_limit", 5.0)
	v.SetDefault("ai.cache_ttl", "24h")
	v.SetDefault("ai.min_confidence", 0.6)

	v.SetDefault("matching.top_k", 10)
	v.SetDefault("matching.eligibility_weight", 0.6)
	v.SetDefault("matching.deadline_weight", 0.2)
	v.SetDefault("matching.benefit_weight", 0.2)
	v.SetDefault("matching.deadline_horizon_days", 90)
	v.SetDefault("matching.near_miss_max_unmet", 2)
	v.SetDefault("matching.retrieval_timeout", "800ms")

	v.SetDefault("sweep.workers", 4)
	v.SetDefault("sweep.batch_size", 100)
	v.SetDefault("sweep.completion_deadline", "24h")
}

func validate(cfg *Config) error {
	sum := cfg.Matching.EligibilityWeight + cfg.Matching.DeadlineWeight + cfg.Matching.BenefitWeight
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("matching weights must sum to 1.0, got %.3f", sum)
	}
	if cfg.Matching.TopK <= 0 {
		return fmt.Errorf("matching.top_k must be positive, got %d", cfg.Matching.TopK)
	}
	if cfg.AI.MinConfidence < 0 || cfg.AI.MinConfidence > 1 {
		return fmt.Errorf("ai.min_confidence must be in [0,1], got %.2f", cfg.AI.MinConfidence)
	}
	return nil
}
