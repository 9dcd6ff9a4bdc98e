package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Backend      BackendConfig
	Commit       CommitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(cfg.FeatureFlags.UseSQLite); err != nil {
		return nil, err
	}
	if err := cfg.Commit.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"FILAZERO_APP_ENV" required:"true"`
	Port         string `envconfig:"FILAZERO_APP_PORT" default:"8080"`
	TerminalID   string `envconfig:"FILAZERO_TERMINAL_ID" default:"terminal-01"`
	LogLevel     string `envconfig:"FILAZERO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"FILAZERO_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"FILAZERO_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"FILAZERO_DB_DSN"`
	Driver string `envconfig:"FILAZERO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"FILAZERO_DB_HOST"`
	LegacyPort     int    `envconfig:"FILAZERO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"FILAZERO_DB_USER"`
	LegacyPassword string `envconfig:"FILAZERO_DB_PASSWORD"`
	LegacyName     string `envconfig:"FILAZERO_DB_NAME"`
	LegacySSLMode  string `envconfig:"FILAZERO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"FILAZERO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"FILAZERO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"FILAZERO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"FILAZERO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"FILAZERO_REDIS_URL"`
	Address      string        `envconfig:"FILAZERO_REDIS_ADDR"`
	Password     string        `envconfig:"FILAZERO_REDIS_PASSWORD"`
	DB           int           `envconfig:"FILAZERO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"FILAZERO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"FILAZERO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"FILAZERO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"FILAZERO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"FILAZERO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

// BackendConfig points terminals at the order persistence API.
type BackendConfig struct {
	BaseURL string        `envconfig:"FILAZERO_BACKEND_BASE_URL" default:"http://localhost:8080"`
	Timeout time.Duration `envconfig:"FILAZERO_BACKEND_TIMEOUT" default:"20s"`
}

const (
	CommitLockLocal = "local"
	CommitLockRedis = "redis"
)

type CommitConfig struct {
	LockBackend         string        `envconfig:"FILAZERO_COMMIT_LOCK_BACKEND" default:"local"`
	LockTTL             time.Duration `envconfig:"FILAZERO_COMMIT_LOCK_TTL" default:"2m"`
	LockPollInterval    time.Duration `envconfig:"FILAZERO_COMMIT_LOCK_POLL_INTERVAL" default:"100ms"`
	LockWait            time.Duration `envconfig:"FILAZERO_COMMIT_LOCK_WAIT" default:"30s"`
	DeleteRetryAttempts int           `envconfig:"FILAZERO_PAYMENT_DELETE_RETRY_ATTEMPTS" default:"5"`
	DeleteQueueCapacity int           `envconfig:"FILAZERO_PAYMENT_DELETE_QUEUE_CAPACITY" default:"32"`
	IdempotencyTTL      time.Duration `envconfig:"FILAZERO_IDEMPOTENCY_TTL" default:"24h"`
}

func (c CommitConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.LockBackend)) {
	case CommitLockLocal, CommitLockRedis:
	default:
		return fmt.Errorf("invalid %s %q (expected local|redis)", EnvCommitLockBackend, c.LockBackend)
	}
	if c.DeleteRetryAttempts <= 0 {
		return fmt.Errorf("payment delete retry attempts must be positive")
	}
	if c.DeleteQueueCapacity <= 0 {
		return fmt.Errorf("payment delete queue capacity must be positive")
	}
	return nil
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"FILAZERO_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"FILAZERO_AUTO_MIGRATE" default:"false"`
	SeedCatalog bool `envconfig:"FILAZERO_SEED_CATALOG" default:"false"`
}

func (db *DBConfig) ensureDSN(useSQLite bool) error {
	if db.DSN != "" {
		return nil
	}
	if useSQLite {
		db.DSN = "file:filazero.db?cache=shared"
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
