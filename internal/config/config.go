package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"ecommerce-dashboard/internal/logger"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Source selects where the dashboard reads its tables: csv, postgres,
	// mysql, sqlite or mongo.
	Source            string            `yaml:"source"`
	Dataset           Dataset           `yaml:"dataset"`
	Databases         Databases         `yaml:"databases"`
	Server            Server            `yaml:"server"`
	Cache             Cache             `yaml:"cache"`
	Dashboard         Dashboard         `yaml:"dashboard"`
	Logging           logger.Config     `yaml:"logging"`
	BenchmarkSettings BenchmarkSettings `yaml:"benchmark_settings"`
}

type Dataset struct {
	Dir string `yaml:"dir"`
}

type Databases struct {
	Postgres string `yaml:"postgres"`
	MySQL    string `yaml:"mysql"`
	Mongo    string `yaml:"mongo"`
	SQLite   string `yaml:"sqlite"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Cache struct {
	Size          int    `yaml:"size"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTL           string `yaml:"ttl"`
}

type Dashboard struct {
	TopCategories int `yaml:"top_categories"`
	TopStates     int `yaml:"top_states"`
}

type BenchmarkSettings struct {
	DefaultDuration    string `yaml:"default_duration"`
	DefaultConcurrency int    `yaml:"default_concurrency"`
}

func Default() *Config {
	return &Config{
		Source:  "csv",
		Dataset: Dataset{Dir: "data"},
		Server:  Server{Addr: ":8080"},
		Cache:   Cache{Size: 16, TTL: "1h"},
		Dashboard: Dashboard{
			TopCategories: 5,
			TopStates:     10,
		},
		Logging: logger.DefaultConfig(),
		BenchmarkSettings: BenchmarkSettings{
			DefaultDuration:    "10s",
			DefaultConcurrency: 4,
		},
	}
}

// LoadConfig reads path over the defaults and then applies DASHBOARD_*
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := Default()

	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadEnvFile loads KEY=value pairs from the given .env files into the
// process environment without overriding variables already set. Missing
// files are skipped.
func LoadEnvFile(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides fields from DASHBOARD_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("DASHBOARD_SOURCE", &c.Source)
	str("DASHBOARD_DATASET_DIR", &c.Dataset.Dir)
	str("DASHBOARD_POSTGRES_DSN", &c.Databases.Postgres)
	str("DASHBOARD_MYSQL_DSN", &c.Databases.MySQL)
	str("DASHBOARD_MONGO_URI", &c.Databases.Mongo)
	str("DASHBOARD_SQLITE_PATH", &c.Databases.SQLite)
	str("DASHBOARD_ADDR", &c.Server.Addr)
	str("DASHBOARD_REDIS_ADDR", &c.Cache.RedisAddr)
	str("DASHBOARD_REDIS_PASSWORD", &c.Cache.RedisPassword)
	str("DASHBOARD_CACHE_TTL", &c.Cache.TTL)
	str("DASHBOARD_LOG_LEVEL", &c.Logging.Level)
	str("DASHBOARD_LOG_FORMAT", &c.Logging.Format)

	for key, dst := range map[string]*int{
		"DASHBOARD_REDIS_DB":   &c.Cache.RedisDB,
		"DASHBOARD_CACHE_SIZE": &c.Cache.Size,
	} {
		if err := num(key, dst); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) Validate() error {
	if _, err := c.DSN(c.Source); err != nil {
		return err
	}
	if c.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive, got %d", c.Cache.Size)
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	if _, err := c.BenchmarkDuration(); err != nil {
		return err
	}
	return nil
}

// DSN returns the connection string for a source kind. For csv it is the
// dataset directory.
func (c *Config) DSN(kind string) (string, error) {
	switch kind {
	case "csv":
		return c.Dataset.Dir, nil
	case "postgres":
		return c.Databases.Postgres, nil
	case "mysql":
		return c.Databases.MySQL, nil
	case "mongo":
		return c.Databases.Mongo, nil
	case "sqlite":
		return c.Databases.SQLite, nil
	}
	return "", fmt.Errorf("unsupported source type: %s", kind)
}

func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("cache.ttl: %w", err)
	}
	return d, nil
}

func (c *Config) BenchmarkDuration() (time.Duration, error) {
	if c.BenchmarkSettings.DefaultDuration == "" {
		return 10 * time.Second, nil
	}
	d, err := time.ParseDuration(c.BenchmarkSettings.DefaultDuration)
	if err != nil {
		return 0, fmt.Errorf("benchmark_settings.default_duration: %w", err)
	}
	return d, nil
}
