package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config contains all the configuration options
type Config struct {
	// HTTP server related options

	// Port is the TCP port the API listens on
	Port int `yaml:"port"`
	// CORSOrigins lists the origins allowed to call the API
	CORSOrigins []string `yaml:"cors_origins"`

	// Database related options

	// DatabaseURL is the Postgres connection string
	DatabaseURL string `yaml:"database_url"`
	// MaxConns is the size of the connection pool
	MaxConns int32 `yaml:"max_conns"`
	// StoreTimeout bounds every ledger call to the store
	StoreTimeout time.Duration `yaml:"store_timeout"`
	// LockTimeout is how long a transaction waits for a row lock
	LockTimeout time.Duration `yaml:"lock_timeout"`
	// BidMaxRetries is how many times a bid that lost a race is retried
	BidMaxRetries uint64 `yaml:"bid_max_retries"`

	// Authentication related options

	JWTSecret string        `yaml:"jwt_secret"`
	JWTTTL    time.Duration `yaml:"jwt_ttl"`

	// Logging related options

	// LogLevel can be one of "debug", "info", "warn", "error"
	LogLevel string `yaml:"log_level"`
	// LogFile is the rotated log file; "stdout" or empty logs to standard output
	LogFile string `yaml:"log_file"`
	// LogMaxSize is the maximum size(MB) of a log file before it gets rotated
	LogMaxSize int `yaml:"log_max_size"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Port:          3000,
		CORSOrigins:   []string{"*"},
		MaxConns:      20,
		StoreTimeout:  5 * time.Second,
		LockTimeout:   2 * time.Second,
		BidMaxRetries: 3,
		JWTTTL:        7 * 24 * time.Hour,
		LogLevel:      "info",
		LogFile:       "stdout",
		LogMaxSize:    50,
	}
}

// Load reads the YAML file at path, if any, over the defaults and then
// applies environment overrides
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Port = port
	}
	if v, ok := os.LookupEnv("DATABASE_URL"); ok {
		c.DatabaseURL = v
	}
	if v, ok := os.LookupEnv("JWT_SECRET"); ok {
		c.JWTSecret = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		c.LogLevel = v
	}
	if v, ok := os.LookupEnv("LOG_FILE"); ok {
		c.LogFile = v
	}
	if v, ok := os.LookupEnv("CORS_ORIGINS"); ok {
		c.CORSOrigins = splitList(v)
	}
	if v, ok := os.LookupEnv("BID_MAX_RETRIES"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid BID_MAX_RETRIES %q: %w", v, err)
		}
		c.BidMaxRetries = n
	}

	durations := []struct {
		env string
		dst *time.Duration
	}{
		{"JWT_TTL", &c.JWTTTL},
		{"STORE_TIMEOUT", &c.StoreTimeout},
		{"LOCK_TIMEOUT", &c.LockTimeout},
	}
	for _, d := range durations {
		v, ok := os.LookupEnv(d.env)
		if !ok {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.env, v, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Validate reports every missing or out of range option
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.MaxConns <= 0 {
		errs = append(errs, errors.New("max_conns must be positive"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("jwt_ttl must be positive"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("store_timeout must be positive"))
	}
	if c.LockTimeout < 0 {
		errs = append(errs, errors.New("lock_timeout cannot be negative"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
