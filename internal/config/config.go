package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
)

// Isolation levels accepted by RATING_ISOLATION.
const (
	IsolationReadCommitted = "read_committed"
	IsolationSerializable  = "serializable"
)

// Config captures all runtime configuration derived from environment variables
// and, when CONFIG_PATH is set, a YAML file.
type Config struct {
	Port             string `yaml:"port"               env:"PORT"                 env-default:"8080"`
	ReadTimeoutSecs  int    `yaml:"read_timeout_secs"  env:"SERVER_READ_TIMEOUT"  env-default:"15"`
	WriteTimeoutSecs int    `yaml:"write_timeout_secs" env:"SERVER_WRITE_TIMEOUT" env-default:"15"`
	IdleTimeoutSecs  int    `yaml:"idle_timeout_secs"  env:"SERVER_IDLE_TIMEOUT"  env-default:"60"`

	DBURL             string `yaml:"db_url"                    env:"DB_URL"`
	DBMaxConns        int    `yaml:"db_max_conns"              env:"DB_MAX_CONNS"                env-default:"20"`
	DBMinConns        int    `yaml:"db_min_conns"              env:"DB_MIN_CONNS"                env-default:"2"`
	DBMaxIdleSecs     int    `yaml:"db_max_conn_idle_secs"     env:"DB_MAX_CONN_IDLE_SECS"       env-default:"300"`
	DBMaxLifeSecs     int    `yaml:"db_max_conn_lifetime_secs" env:"DB_MAX_CONN_LIFETIME_SECS"   env-default:"3600"`
	DBConnTimeoutSecs int    `yaml:"db_conn_timeout_secs"      env:"DB_CONN_TIMEOUT_SECS"        env-default:"10"`
	DBStatementCache  int    `yaml:"db_statement_cache"        env:"DB_STATEMENT_CACHE_CAPACITY" env-default:"256"`
	MigrateOnStart    bool   `yaml:"migrate_on_start"          env:"MIGRATE_ON_START"            env-default:"true"`

	JWTSecret     string `yaml:"jwt_secret"      env:"JWT_SECRET"`
	JWTIssuer     string `yaml:"jwt_issuer"      env:"JWT_ISSUER"      env-default:"store-rating"`
	JWTTTLMinutes int    `yaml:"jwt_ttl_minutes" env:"JWT_TTL_MINUTES" env-default:"1440"`
	BcryptCost    int    `yaml:"bcrypt_cost"     env:"BCRYPT_COST"     env-default:"10"`

	AuthRateLimitPerMin int `yaml:"auth_rate_limit_per_min" env:"AUTH_RATE_LIMIT_PER_MIN" env-default:"30"`

	RatingMaxAttempts       int    `yaml:"rating_max_attempts"        env:"RATING_MAX_ATTEMPTS"        env-default:"5"`
	RatingRetryBaseMillis   int    `yaml:"rating_retry_base_ms"       env:"RATING_RETRY_BASE_MS"       env-default:"20"`
	RatingSubmitTimeoutSecs int    `yaml:"rating_submit_timeout_secs" env:"RATING_SUBMIT_TIMEOUT_SECS" env-default:"5"`
	RatingIsolation         string `yaml:"rating_isolation"           env:"RATING_ISOLATION"           env-default:"read_committed"`
	RatingLockTimeoutMillis int    `yaml:"rating_lock_timeout_ms"     env:"RATING_LOCK_TIMEOUT_MS"     env-default:"2000"`

	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogMode  string `yaml:"log_mode"  env:"LOG_MODE"  env-default:"production"`
}

// Load reads configuration, applying defaults and validation.
// Priority: ENV > YAML (CONFIG_PATH) > defaults.
func Load() (Config, error) {
	var cfg Config

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read env: %w", err)
	}

	cfg.RatingIsolation = strings.ToLower(strings.TrimSpace(cfg.RatingIsolation))
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DBURL == "" {
		return fmt.Errorf("DB_URL is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters (got %d)", len(c.JWTSecret))
	}
	if c.JWTTTLMinutes <= 0 {
		return fmt.Errorf("JWT_TTL_MINUTES must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31")
	}
	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be non-negative")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if c.DBStatementCache < 0 {
		return fmt.Errorf("DB_STATEMENT_CACHE_CAPACITY must be non-negative")
	}
	if c.AuthRateLimitPerMin <= 0 {
		return fmt.Errorf("AUTH_RATE_LIMIT_PER_MIN must be positive")
	}
	if c.RatingMaxAttempts <= 0 {
		return fmt.Errorf("RATING_MAX_ATTEMPTS must be positive")
	}
	if c.RatingRetryBaseMillis <= 0 {
		return fmt.Errorf("RATING_RETRY_BASE_MS must be positive")
	}
	if c.RatingSubmitTimeoutSecs <= 0 {
		return fmt.Errorf("RATING_SUBMIT_TIMEOUT_SECS must be positive")
	}
	if c.RatingLockTimeoutMillis < 0 {
		return fmt.Errorf("RATING_LOCK_TIMEOUT_MS must be non-negative")
	}
	switch c.RatingIsolation {
	case IsolationReadCommitted, IsolationSerializable:
	default:
		return fmt.Errorf("RATING_ISOLATION must be %q or %q", IsolationReadCommitted, IsolationSerializable)
	}
	return nil
}
