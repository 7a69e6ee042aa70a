// Package config loads service settings from the environment, an optional
// config file and command-line flags through viper.
package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Keys read from viper. They double as environment variable names.
const (
	KeyStoreDriver    = "STORE_DRIVER"
	KeyMongoURI       = "MONGO_URI"
	KeyMongoDatabase  = "MONGO_DATABASE"
	KeyDatabaseDSN    = "DATABASE_DSN"
	KeyJWTSecret      = "JWT_SECRET"
	KeyJWTExpiresIn   = "JWT_EXPIRES_IN"
	KeyAllowedOrigins = "ALLOWED_ORIGINS"
	KeyPort           = "PORT"
	KeyLogLevel       = "LOG_LEVEL"
	KeyLogFormat      = "LOG_FORMAT"
	KeyRabbitMQURL    = "RABBITMQ_URL"
	KeyBcryptCost     = "BCRYPT_COST"
	KeyAccessLog      = "ACCESS_LOG"
)

// Config holds everything the service needs at startup.
type Config struct {
	StoreDriver    string
	MongoURI       string
	MongoDatabase  string
	DatabaseDSN    string
	JWTSecret      string
	JWTExpiresIn   time.Duration
	AllowedOrigins []string
	Port           string
	LogLevel       string
	LogFormat      string
	RabbitMQURL    string
	BcryptCost     int
	AccessLog      bool
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyStoreDriver, DriverMongo)
	v.SetDefault(KeyMongoDatabase, "usersvc")
	v.SetDefault(KeyPort, "3000")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "json")
	v.SetDefault(KeyBcryptCost, 10)
	v.SetDefault(KeyAccessLog, true)
}

// Load reads configuration from v. If configFile is non-empty it is read
// first; environment variables override file values.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	v.AutomaticEnv()

	expiresIn, err := ParseExpiresIn(v.GetString(KeyJWTExpiresIn))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		StoreDriver:    strings.ToLower(v.GetString(KeyStoreDriver)),
		MongoURI:       v.GetString(KeyMongoURI),
		MongoDatabase:  v.GetString(KeyMongoDatabase),
		DatabaseDSN:    v.GetString(KeyDatabaseDSN),
		JWTSecret:      v.GetString(KeyJWTSecret),
		JWTExpiresIn:   expiresIn,
		AllowedOrigins: splitList(v.GetString(KeyAllowedOrigins)),
		Port:           v.GetString(KeyPort),
		LogLevel:       v.GetString(KeyLogLevel),
		LogFormat:      v.GetString(KeyLogFormat),
		RabbitMQURL:    v.GetString(KeyRabbitMQURL),
		BcryptCost:     v.GetInt(KeyBcryptCost),
		AccessLog:      v.GetBool(KeyAccessLog),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every required setting is present.
func (c *Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, fmt.Errorf("%s is required", KeyMongoURI))
		}
	case DriverPostgres, DriverSQLite:
		if c.DatabaseDSN == "" {
			errs = append(errs, fmt.Errorf("%s is required for %s", KeyDatabaseDSN, c.StoreDriver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("%s %q is not supported", KeyStoreDriver, c.StoreDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyJWTSecret))
	}
	if c.JWTExpiresIn <= 0 {
		errs = append(errs, fmt.Errorf("%s is required", KeyJWTExpiresIn))
	}
	if len(c.AllowedOrigins) == 0 {
		errs = append(errs, fmt.Errorf("%s is required", KeyAllowedOrigins))
	}
	if strings.TrimPrefix(c.Port, ":") == "" {
		errs = append(errs, fmt.Errorf("%s is required", KeyPort))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("%s must be between 4 and 31", KeyBcryptCost))
	}
	return errors.Join(errs...)
}

// ListenAddr returns the address the HTTP server binds to.
func (c *Config) ListenAddr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

// ParseExpiresIn parses a token lifetime. It accepts Go durations ("24h"),
// whole days ("7d") and bare integers, which are seconds. Surrounding JSON
// quotes are ignored. An empty value yields zero.
func ParseExpiresIn(raw string) (time.Duration, error) {
	s := strings.Trim(strings.TrimSpace(raw), `"`)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return scaleExpiresIn(raw, secs, time.Second)
	}
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.ParseInt(days, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s %q", KeyJWTExpiresIn, raw)
		}
		return scaleExpiresIn(raw, n, 24*time.Hour)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", KeyJWTExpiresIn, raw, err)
	}
	return d, nil
}

// scaleExpiresIn returns n units, rejecting values time.Duration cannot hold.
func scaleExpiresIn(raw string, n int64, unit time.Duration) (time.Duration, error) {
	limit := math.MaxInt64 / int64(unit)
	if n > limit || n < -limit {
		return 0, fmt.Errorf("invalid %s %q: out of range", KeyJWTExpiresIn, raw)
	}
	return time.Duration(n) * unit, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
