package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

const (
	defaultDBPath     = "./dev.db"
	defaultPort       = "8080"
	defaultTaxPercent = "20"

	// MinSessionSecretLen is the shortest SESSION_SECRET accepted in production.
	MinSessionSecretLen = 32
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	Port          string `mapstructure:"port"`
	DBDriver      string `mapstructure:"db_driver"`
	DBDSN         string `mapstructure:"db_dsn"`
	DBPath        string `mapstructure:"db_path"`
	AdminEmail    string `mapstructure:"admin_email"`
	AdminPassword string `mapstructure:"admin_password"`
	SessionSecret string `mapstructure:"session_secret"`
	AppEnv        string `mapstructure:"app_env"`
	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	RunMigrations bool   `mapstructure:"run_migrations"`

	TaxPercent decimal.Decimal `mapstructure:"-"`

	// EphemeralSecret is set when SessionSecret was generated for this process.
	EphemeralSecret bool `mapstructure:"-"`
}

// DSN is the connection string for the configured driver: DB_DSN when set,
// the sqlite file path otherwise.
func (c Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	return c.DBPath
}

func (c Config) Production() bool {
	return c.AppEnv == "production"
}

// Warnings lists settings that are missing but not fatal in development.
func (c Config) Warnings() []string {
	var out []string
	if c.AdminEmail == "" {
		out = append(out, "ADMIN_EMAIL is not set")
	}
	if c.AdminPassword == "" {
		out = append(out, "ADMIN_PASSWORD is not set")
	}
	if c.EphemeralSecret {
		out = append(out, "SESSION_SECRET is not set, using a random secret: sessions end on restart")
	}
	return out
}

// Load reads .env (if present) and then the environment.
func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit dotenv path ("" skips the file). Variables
// already in the environment win over the file.
func LoadFile(path string) (Config, error) {
	// Best-effort: production should use real env injection.
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetDefault("port", defaultPort)
	v.SetDefault("db_driver", "sqlite")
	v.SetDefault("db_dsn", "")
	v.SetDefault("db_path", defaultDBPath)
	v.SetDefault("admin_email", "")
	v.SetDefault("admin_password", "")
	v.SetDefault("session_secret", "")
	v.SetDefault("tax_percent", defaultTaxPercent)
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("run_migrations", true)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return Config{}, fmt.Errorf("DB_DRIVER must be sqlite or postgres, got %q", cfg.DBDriver)
	}
	if cfg.DBDriver == "postgres" && cfg.DBDSN == "" {
		return Config{}, errors.New("DB_DSN is required for postgres")
	}

	tax, err := decimal.NewFromString(strings.TrimSpace(v.GetString("tax_percent")))
	if err != nil || tax.IsNegative() || tax.GreaterThan(decimal.NewFromInt(100)) {
		return Config{}, fmt.Errorf("TAX_PERCENT must be a number between 0 and 100, got %q", v.GetString("tax_percent"))
	}
	cfg.TaxPercent = tax

	switch {
	case cfg.Production() && len(cfg.SessionSecret) < MinSessionSecretLen:
		return Config{}, fmt.Errorf("SESSION_SECRET must be at least %d characters in production", MinSessionSecretLen)
	case cfg.SessionSecret == "":
		secret, err := randomSecret()
		if err != nil {
			return Config{}, err
		}
		cfg.SessionSecret = secret
		cfg.EphemeralSecret = true
	}

	return cfg, nil
}

func randomSecret() (string, error) {
	buf := make([]byte, MinSessionSecretLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
