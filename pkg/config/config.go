package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvPrefix namespaces every environment variable the core reads.
	EnvPrefix = "NEMRSTORE"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "NEMRSTORE_DB_DSN"
	EnvDBHost = "NEMRSTORE_DB_HOST"
	EnvDBUser = "NEMRSTORE_DB_USER"
	EnvDBName = "NEMRSTORE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Orders       OrdersConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDotenv reads a .env file when present and then loads the config.
func LoadDotenv() (*Config, error) {
	_ = godotenv.Load()
	return Load()
}

type AppConfig struct {
	Env          string `envconfig:"NEMRSTORE_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"NEMRSTORE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NEMRSTORE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"NEMRSTORE_DB_DSN"`
	Driver string `envconfig:"NEMRSTORE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NEMRSTORE_DB_HOST"`
	LegacyPort     int    `envconfig:"NEMRSTORE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NEMRSTORE_DB_USER"`
	LegacyPassword string `envconfig:"NEMRSTORE_DB_PASSWORD"`
	LegacyName     string `envconfig:"NEMRSTORE_DB_NAME"`
	LegacySSLMode  string `envconfig:"NEMRSTORE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NEMRSTORE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NEMRSTORE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NEMRSTORE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NEMRSTORE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// OrdersConfig tunes the order transaction manager.
type OrdersConfig struct {
	// MaxLineQuantity caps how many units a single order line may request.
	MaxLineQuantity int `envconfig:"NEMRSTORE_ORDERS_MAX_LINE_QUANTITY" default:"100"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NEMRSTORE_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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
