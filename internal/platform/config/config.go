// Package config loads service configuration from an optional YAML file
// overlaid with environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"beneficiary/pkg/validation"
)

// DevAdminSecret is accepted outside production only.
const DevAdminSecret = "dev-secret-key-change-in-production"

// Config is the complete service configuration.
type Config struct {
	Environment string          `yaml:"environment" validate:"oneof=development staging production"`
	Addr        string          `yaml:"addr" validate:"required"`
	LogLevel    string          `yaml:"log_level" validate:"oneof=debug info warn error"`
	Database    DatabaseConfig  `yaml:"database"`
	Redis       RedisConfig     `yaml:"redis"`
	Kafka       KafkaConfig     `yaml:"kafka"`
	Identity    IdentityConfig  `yaml:"identity"`
	Security    SecurityConfig  `yaml:"security"`
	Profile     ProfileConfig   `yaml:"profile"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
}

// DatabaseConfig configures the Postgres pool. An empty URL selects the
// in-memory store.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `yaml:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	TxTimeout       time.Duration `yaml:"tx_timeout"`
}

// RedisConfig configures the lease backend. An empty URL selects the
// in-memory lease.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	PoolSize     int           `yaml:"pool_size" validate:"min=1"`
	MinIdleConns int           `yaml:"min_idle_conns" validate:"min=0"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// KafkaConfig configures event publishing. Empty brokers disable it.
type KafkaConfig struct {
	Brokers string `yaml:"brokers"`
	Topic   string `yaml:"topic" validate:"required"`
	Acks    string `yaml:"acks" validate:"oneof=0 1 all"`
}

// IdentityConfig configures the Keycloak name sync. Empty BaseURL disables it.
type IdentityConfig struct {
	BaseURL      string        `yaml:"base_url" validate:"omitempty,url"`
	Realm        string        `yaml:"realm"`
	ClientID     string        `yaml:"client_id"`
	ClientSecret string        `yaml:"client_secret"`
	Timeout      time.Duration `yaml:"timeout"`
}

// SecurityConfig holds key material.
type SecurityConfig struct {
	EncryptionKey  string `yaml:"encryption_key" validate:"required,min=16"`
	AdminJWTSecret string `yaml:"admin_jwt_secret" validate:"required"`
}

// ProfileConfig tunes the reconciliation engine.
type ProfileConfig struct {
	MappingDir           string        `yaml:"mapping_dir"`
	IncomePolicy         string        `yaml:"income_policy" validate:"oneof=strict lenient"`
	BatchSize            int           `yaml:"batch_size" validate:"min=1,max=1000"`
	NormalizeConcurrency int           `yaml:"normalize_concurrency" validate:"min=1,max=64"`
	PersonLeaseTTL       time.Duration `yaml:"person_lease_ttl"`
}

// SchedulerConfig sets the batch intervals. A zero interval disables that
// pipeline's ticker.
type SchedulerConfig struct {
	PopulateInterval time.Duration `yaml:"populate_interval"`
	ValidateInterval time.Duration `yaml:"validate_interval"`
}

// Default returns the configuration used before any file or variable is
// applied.
func Default() Config {
	return Config{
		Environment: "development",
		Addr:        ":8080",
		LogLevel:    "info",
		Database: DatabaseConfig{
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			TxTimeout:       5 * time.Second,
		},
		Redis: RedisConfig{
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Topic: "beneficiary.profile.events",
			Acks:  "all",
		},
		Identity: IdentityConfig{
			Timeout: 10 * time.Second,
		},
		Profile: ProfileConfig{
			IncomePolicy:         "strict",
			BatchSize:            10,
			NormalizeConcurrency: 4,
			PersonLeaseTTL:       2 * time.Minute,
		},
		Scheduler: SchedulerConfig{
			PopulateInterval: 5 * time.Minute,
			ValidateInterval: 10 * time.Second,
		},
	}
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// FromEnv loads configuration from the process environment.
func FromEnv() (Config, error) {
	return Load(os.LookupEnv)
}

// LookupFunc reads one variable, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Load builds a Config from defaults, then the YAML file named by CONFIG_FILE,
// then individual variables. The result is validated.
func Load(lookup LookupFunc) (Config, error) {
	cfg := Default()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	env := envReader{lookup: lookup}
	env.str("ENVIRONMENT", &cfg.Environment)
	env.str("ADDR", &cfg.Addr)
	env.str("LOG_LEVEL", &cfg.LogLevel)

	env.str("DATABASE_URL", &cfg.Database.URL)
	env.int("DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	env.int("DATABASE_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	env.duration("DATABASE_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime)
	env.duration("DATABASE_TX_TIMEOUT", &cfg.Database.TxTimeout)

	env.str("REDIS_URL", &cfg.Redis.URL)
	env.int("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)
	env.int("REDIS_MIN_IDLE_CONNS", &cfg.Redis.MinIdleConns)
	env.duration("REDIS_DIAL_TIMEOUT", &cfg.Redis.DialTimeout)
	env.duration("REDIS_READ_TIMEOUT", &cfg.Redis.ReadTimeout)
	env.duration("REDIS_WRITE_TIMEOUT", &cfg.Redis.WriteTimeout)

	env.str("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	env.str("PROFILE_EVENTS_TOPIC", &cfg.Kafka.Topic)
	env.str("KAFKA_ACKS", &cfg.Kafka.Acks)

	env.str("KEYCLOAK_URL", &cfg.Identity.BaseURL)
	env.str("KEYCLOAK_REALM", &cfg.Identity.Realm)
	env.str("KEYCLOAK_CLIENT_ID", &cfg.Identity.ClientID)
	env.str("KEYCLOAK_CLIENT_SECRET", &cfg.Identity.ClientSecret)
	env.duration("KEYCLOAK_TIMEOUT", &cfg.Identity.Timeout)

	env.str("ENCRYPTION_KEY", &cfg.Security.EncryptionKey)
	env.str("ADMIN_JWT_SECRET", &cfg.Security.AdminJWTSecret)

	env.str("PROFILE_MAPPING_DIR", &cfg.Profile.MappingDir)
	env.str("INCOME_POLICY", &cfg.Profile.IncomePolicy)
	env.int("BATCH_SIZE", &cfg.Profile.BatchSize)
	env.int("NORMALIZE_CONCURRENCY", &cfg.Profile.NormalizeConcurrency)
	env.duration("PERSON_LEASE_TTL", &cfg.Profile.PersonLeaseTTL)

	env.duration("POPULATE_INTERVAL", &cfg.Scheduler.PopulateInterval)
	env.duration("VALIDATE_INTERVAL", &cfg.Scheduler.ValidateInterval)

	if err := errors.Join(env.errs...); err != nil {
		return Config{}, err
	}

	cfg.Profile.IncomePolicy = strings.ToLower(cfg.Profile.IncomePolicy)
	if cfg.Security.AdminJWTSecret == "" && !cfg.IsProduction() {
		cfg.Security.AdminJWTSecret = DevAdminSecret
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.IsProduction() && c.Security.AdminJWTSecret == DevAdminSecret {
		return errors.New("invalid config: admin_jwt_secret must be set in production")
	}
	if c.Identity.BaseURL != "" && (c.Identity.Realm == "" || c.Identity.ClientID == "") {
		return errors.New("invalid config: identity realm and client_id are required with base_url")
	}
	if c.Scheduler.PopulateInterval < 0 || c.Scheduler.ValidateInterval < 0 {
		return errors.New("invalid config: scheduler intervals must not be negative")
	}
	return nil
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok && v != "" {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return
	}
	*dst = n
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: invalid duration %q", key, v))
		return
	}
	*dst = d
}
