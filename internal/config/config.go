package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"restaurant_backend/pkg/utils"

	"gopkg.in/yaml.v3"
)

const minJWTSecretLength = 32

// Config is the runtime configuration of the server.
type Config struct {
	Port string `yaml:"port"`

	Database DatabaseConfig `yaml:"database"`

	JWTSecret string        `yaml:"jwt_secret"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`

	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	// RedisAddr enables idempotency keys and the redis notification transport. Empty disables both.
	RedisAddr      string        `yaml:"redis_addr"`
	IdempotencyTTL time.Duration `yaml:"idempotency_ttl"`

	// ReservationPolicy is "eager" or "lazy".
	ReservationPolicy string `yaml:"reservation_policy"`

	Notify NotifyConfig `yaml:"notify"`
}

type DatabaseConfig struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
	Name       string `yaml:"name"`
	SSLMode    string `yaml:"sslmode"`
	SchemaPath string `yaml:"schema_path"`
}

// DSN builds the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type NotifyConfig struct {
	// Transport is "log" or "redis".
	Transport    string        `yaml:"transport"`
	Channel      string        `yaml:"channel"`
	PollInterval time.Duration `yaml:"poll_interval"`
	BatchSize    int           `yaml:"batch_size"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// Default returns the configuration used when neither a file nor the environment says otherwise.
func Default() Config {
	return Config{
		Port: "8080",
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "restaurant_user",
			Name:    "restaurant_db",
			SSLMode: "disable",
		},
		JWTTTL:             utils.DefaultAccessTokenTTL,
		CORSAllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		LogLevel:           "info",
		IdempotencyTTL:     24 * time.Hour,
		ReservationPolicy:  "eager",
		Notify: NotifyConfig{
			Transport:    "log",
			Channel:      "restaurant.notifications",
			PollInterval: 2 * time.Second,
			BatchSize:    50,
			MaxAttempts:  5,
		},
	}
}

// Load starts from Default, overlays the YAML file named by CONFIG_FILE when set, then overlays
// environment variables. Environment always wins.
func Load() (Config, error) {
	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = utils.Getenv("PORT", cfg.Port)

	cfg.Database.Host = utils.Getenv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = utils.Getenv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = utils.Getenv("DB_USER", cfg.Database.User)
	cfg.Database.Password = utils.Getenv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = utils.Getenv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = utils.Getenv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.SchemaPath = utils.Getenv("DB_SCHEMA_PATH", cfg.Database.SchemaPath)

	cfg.JWTSecret = utils.Getenv("JWT_SECRET", cfg.JWTSecret)
	cfg.LogLevel = utils.Getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.RedisAddr = utils.Getenv("REDIS_ADDR", cfg.RedisAddr)
	cfg.ReservationPolicy = utils.Getenv("RESERVATION_POLICY", cfg.ReservationPolicy)
	cfg.Notify.Transport = utils.Getenv("NOTIFY_TRANSPORT", cfg.Notify.Transport)
	cfg.Notify.Channel = utils.Getenv("NOTIFY_CHANNEL", cfg.Notify.Channel)

	cfg.CORSAllowedOrigins = utils.GetenvList("CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)

	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	var err error
	cfg.LogPretty, err = utils.GetenvBool("LOG_PRETTY", cfg.LogPretty)
	collect(err)
	cfg.JWTTTL, err = utils.GetenvDuration("JWT_TTL", cfg.JWTTTL)
	collect(err)
	cfg.IdempotencyTTL, err = utils.GetenvDuration("IDEMPOTENCY_TTL", cfg.IdempotencyTTL)
	collect(err)
	cfg.Notify.PollInterval, err = utils.GetenvDuration("OUTBOX_POLL_INTERVAL", cfg.Notify.PollInterval)
	collect(err)
	cfg.Notify.BatchSize, err = utils.GetenvInt("OUTBOX_BATCH_SIZE", cfg.Notify.BatchSize)
	collect(err)
	cfg.Notify.MaxAttempts, err = utils.GetenvInt("OUTBOX_MAX_ATTEMPTS", cfg.Notify.MaxAttempts)
	collect(err)

	return errors.Join(errs...)
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	var errs []error
	if len(c.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	switch c.Notify.Transport {
	case "log":
	case "redis":
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("NOTIFY_TRANSPORT=redis needs REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_TRANSPORT %q, expected log or redis", c.Notify.Transport))
	}
	switch strings.ToLower(c.ReservationPolicy) {
	case "eager", "lazy":
	default:
		errs = append(errs, fmt.Errorf("unknown RESERVATION_POLICY %q, expected eager or lazy", c.ReservationPolicy))
	}
	if c.Notify.BatchSize <= 0 || c.Notify.MaxAttempts <= 0 || c.Notify.PollInterval <= 0 {
		errs = append(errs, errors.New("outbox poll interval, batch size and max attempts must be positive"))
	}
	return errors.Join(errs...)
}
