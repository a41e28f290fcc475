// Package config loads service configuration from an optional YAML file
// with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration unmarshals YAML values like "5s" or "250ms"; a bare integer is
// taken as nanoseconds, time.Duration's native encoding.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Blobstore selects and parameterizes the byte-store backend.
type Blobstore struct {
	Backend  string `yaml:"backend"` // fs | bolt
	Path     string `yaml:"path"`
	Compress bool   `yaml:"compress"` // zstd at rest, fs backend only
}

// Redis configures the optional object-existence cache. An empty Addr
// disables caching.
type Redis struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database int    `yaml:"database"`
}

// Config aggregates runtime configuration for both services; each binary
// reads the fields it needs.
type Config struct {
	Listen         string    `yaml:"listen"`
	Blobstore      Blobstore `yaml:"blobstore"`
	MetaDB         string    `yaml:"meta_db"`
	RefDB          string    `yaml:"ref_db"`
	Redis          Redis     `yaml:"redis"`
	ObjectStoreURL string    `yaml:"object_store_url"`
	RegistryURL    string    `yaml:"registry_url"`
	IdentityURL    string    `yaml:"identity_url"`
	RequestTimeout Duration  `yaml:"request_timeout"`
}

// Load reads path (when non-empty and present), then applies environment
// overrides and defaults.
func Load(path string) (Config, error) {
	cfg := Config{
		Blobstore:      Blobstore{Backend: "fs", Path: "./data/blobs"},
		MetaDB:         "./data/meta.db",
		RefDB:          "./data/refs.db",
		RequestTimeout: Duration(5 * time.Second),
	}
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return Config{}, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(buf, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.Listen = envDefault("LISTEN_ADDR", cfg.Listen)
	cfg.Blobstore.Backend = envDefault("BLOBSTORE_BACKEND", cfg.Blobstore.Backend)
	cfg.Blobstore.Path = envDefault("BLOBSTORE_PATH", cfg.Blobstore.Path)
	cfg.MetaDB = envDefault("META_DB", cfg.MetaDB)
	cfg.RefDB = envDefault("REF_DB", cfg.RefDB)
	cfg.Redis.Addr = envDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Username = envDefault("REDIS_USERNAME", cfg.Redis.Username)
	cfg.Redis.Password = envDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.Database = envInt("REDIS_DB", cfg.Redis.Database)
	cfg.ObjectStoreURL = envDefault("OBJECT_STORE_URL", cfg.ObjectStoreURL)
	cfg.RegistryURL = envDefault("REGISTRY_URL", cfg.RegistryURL)
	cfg.IdentityURL = envDefault("IDENTITY_URL", cfg.IdentityURL)
	cfg.RequestTimeout = Duration(envDuration("REQUEST_TIMEOUT", cfg.RequestTimeout.Std()))
	return cfg, nil
}

func envDefault(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return def
}
