package config

// EnvPrefix is handed to envconfig; every field carries an explicit envconfig tag so it only
// matters for error messages.
const EnvPrefix = "FILAZERO"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "FILAZERO_APP_ENV"
	EnvPort     = "FILAZERO_APP_PORT"
	EnvLogLevel = "FILAZERO_LOG_LEVEL"

	EnvDBDSN      = "FILAZERO_DB_DSN"
	EnvDBDriver   = "FILAZERO_DB_DRIVER"
	EnvDBHost     = "FILAZERO_DB_HOST"
	EnvDBPort     = "FILAZERO_DB_PORT"
	EnvDBUser     = "FILAZERO_DB_USER"
	EnvDBPassword = "FILAZERO_DB_PASSWORD"
	EnvDBName     = "FILAZERO_DB_NAME"

	EnvRedisURL = "FILAZERO_REDIS_URL"

	EnvBackendBaseURL = "FILAZERO_BACKEND_BASE_URL"
	EnvBackendTimeout = "FILAZERO_BACKEND_TIMEOUT"

	EnvCommitLockBackend = "FILAZERO_COMMIT_LOCK_BACKEND"
	EnvCommitLockTTL     = "FILAZERO_COMMIT_LOCK_TTL"

	EnvUseSQLite   = "FILAZERO_USE_SQLITE"
	EnvAutoMigrate = "FILAZERO_AUTO_MIGRATE"
	EnvSeedCatalog = "FILAZERO_SEED_CATALOG"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
