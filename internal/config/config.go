// Package config loads the service configuration from defaults, an optional YAML file,
// an optional .env file and the process environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration of the walletauth server.
type Config struct {
	// ListenAddr is the TCP address the HTTP server binds to.
	ListenAddr string `yaml:"listen_addr"`

	// RedisURL points at the session store, e.g. redis://localhost:6379/0.
	RedisURL string `yaml:"redis_url"`

	// StoreTimeout bounds every store round trip.
	StoreTimeout time.Duration `yaml:"store_timeout"`

	// MongoURL enables the Mongo user directory. When empty an in-memory directory is used.
	MongoURL      string `yaml:"mongodb_url"`
	MongoDatabase string `yaml:"mongodb_database"`

	// Product is the name shown in the challenge message.
	Product string `yaml:"product_name"`

	// NonceTTL is the lifetime of a login challenge in both realms.
	NonceTTL time.Duration `yaml:"nonce_ttl"`

	// EventsEnabled publishes login, logout and security events to Redis streams.
	EventsEnabled bool `yaml:"events_enabled"`

	User  RealmConfig `yaml:"user"`
	Admin RealmConfig `yaml:"admin"`
}

// RealmConfig holds the token settings of one realm.
type RealmConfig struct {
	AccessSecret  string        `yaml:"access_secret"`
	RefreshSecret string        `yaml:"refresh_secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl"`
}

// Default returns the built-in configuration. Secrets have no default.
func Default() *Config {
	realm := RealmConfig{
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}
	return &Config{
		ListenAddr:    ":9000",
		RedisURL:      "redis://localhost:6379/0",
		StoreTimeout:  2 * time.Second,
		MongoDatabase: "walletauth",
		Product:       "walletauth",
		NonceTTL:      5 * time.Minute,
		EventsEnabled: true,
		User:          realm,
		Admin:         realm,
	}
}

// Load builds the configuration. path and envFile are optional; a missing envFile is not an error.
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		*dst = d
		return nil
	}

	str("LISTEN_ADDR", &c.ListenAddr)
	str("REDIS_URL", &c.RedisURL)
	str("MONGODB_URL", &c.MongoURL)
	str("MONGODB_DATABASE", &c.MongoDatabase)
	str("PRODUCT_NAME", &c.Product)
	str("ACCESS_SECRET", &c.User.AccessSecret)
	str("REFRESH_SECRET", &c.User.RefreshSecret)
	str("ADMIN_ACCESS_SECRET", &c.Admin.AccessSecret)
	str("ADMIN_REFRESH_SECRET", &c.Admin.RefreshSecret)

	if v, ok := lookup("EVENTS_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid EVENTS_ENABLED: %w", err)
		}
		c.EventsEnabled = enabled
	}

	return errors.Join(
		dur("STORE_TIMEOUT", &c.StoreTimeout),
		dur("NONCE_TTL", &c.NonceTTL),
		dur("ACCESS_TTL", &c.User.AccessTTL),
		dur("REFRESH_TTL", &c.User.RefreshTTL),
		dur("ADMIN_ACCESS_TTL", &c.Admin.AccessTTL),
		dur("ADMIN_REFRESH_TTL", &c.Admin.RefreshTTL),
	)
}

// Validate reports every problem with the configuration at once
func (c *Config) Validate() error {
	var errs []error
	if c.ListenAddr == "" {
		errs = append(errs, errors.New("listen address is required"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("redis url is required"))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("store timeout must be positive"))
	}
	if c.NonceTTL <= 0 {
		errs = append(errs, errors.New("nonce ttl must be positive"))
	}
	errs = append(errs, c.User.validate("user"), c.Admin.validate("admin"))
	if c.User.sharesSecret(c.Admin) {
		errs = append(errs, errors.New("user and admin realms must not share secrets"))
	}
	return errors.Join(errs...)
}

func (r RealmConfig) sharesSecret(other RealmConfig) bool {
	for _, a := range []string{r.AccessSecret, r.RefreshSecret} {
		for _, b := range []string{other.AccessSecret, other.RefreshSecret} {
			if a != "" && a == b {
				return true
			}
		}
	}
	return false
}

func (r RealmConfig) validate(name string) error {
	var errs []error
	if r.AccessSecret == "" || r.RefreshSecret == "" {
		errs = append(errs, fmt.Errorf("%s realm: access and refresh secrets are required", name))
	} else if r.AccessSecret == r.RefreshSecret {
		errs = append(errs, fmt.Errorf("%s realm: access and refresh secrets must differ", name))
	}
	if r.AccessTTL <= 0 || r.RefreshTTL <= 0 {
		errs = append(errs, fmt.Errorf("%s realm: token ttls must be positive", name))
	}
	return errors.Join(errs...)
}
