package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// ErrMissingSchedule is returned when trivia.scoreboard_schedule is absent.
var ErrMissingSchedule = errors.New("scoreboard schedule not configured")

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Schedule is one scoreboard publication: a cron spec and the day offset to report.
// A missing days_ago publishes the all-time scoreboard.
type Schedule struct {
	Time    string `yaml:"time"`
	DaysAgo *int   `yaml:"days_ago"`
}

type Config struct {
	Debug bool `yaml:"debug"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Store struct {
		// Driver is one of memory, sqlite or postgres.
		Driver string `yaml:"driver"`
	} `yaml:"store"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`

	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`

	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`

	Names struct {
		CacheSize int `yaml:"cache_size"`
	} `yaml:"names"`

	Trivia struct {
		AdminUID              string     `yaml:"admin_uid"`
		MinMatchingCharacters int        `yaml:"min_matching_characters"`
		Platform              string     `yaml:"platform"`
		Timezone              string     `yaml:"timezone"`
		ScoreboardSchedule    []Schedule `yaml:"scoreboard_schedule"`
	} `yaml:"trivia"`
}

// Load reads YAML config from path, then applies TRIVIA_* environment overrides and defaults.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return cfg, fmt.Errorf("processing the environment: %w", err)
	}
	env.apply(&cfg)
	cfg.applyDefaults()
	return cfg, nil
}

// envOverrides lists every TRIVIA_* variable. Tags are full names because envconfig
// also looks a tag up on its own, so a short tag like PATH would pick up the shell's.
// Unset variables leave their pointer nil.
type envOverrides struct {
	Debug                 *bool   `envconfig:"TRIVIA_DEBUG"`
	Port                  *string `envconfig:"TRIVIA_SERVER_PORT"`
	StoreDriver           *string `envconfig:"TRIVIA_STORE_DRIVER"`
	RedisAddr             *string `envconfig:"TRIVIA_REDIS_ADDR"`
	RedisPassword         *string `envconfig:"TRIVIA_REDIS_PASSWORD"`
	RedisDB               *int    `envconfig:"TRIVIA_REDIS_DB"`
	RedisTTL              *string `envconfig:"TRIVIA_REDIS_TTL"`
	PostgresURL           *string `envconfig:"TRIVIA_POSTGRES_URL"`
	SQLitePath            *string `envconfig:"TRIVIA_SQLITE_PATH"`
	NamesCacheSize        *int    `envconfig:"TRIVIA_NAMES_CACHE_SIZE"`
	AdminUID              *string `envconfig:"TRIVIA_ADMIN_UID"`
	MinMatchingCharacters *int    `envconfig:"TRIVIA_MIN_MATCHING_CHARACTERS"`
	Platform              *string `envconfig:"TRIVIA_PLATFORM"`
	Timezone              *string `envconfig:"TRIVIA_TIMEZONE"`
}

func (e envOverrides) apply(c *Config) {
	override(&c.Debug, e.Debug)
	override(&c.Server.Port, e.Port)
	override(&c.Store.Driver, e.StoreDriver)
	override(&c.Redis.Addr, e.RedisAddr)
	override(&c.Redis.Password, e.RedisPassword)
	override(&c.Redis.DB, e.RedisDB)
	override(&c.Redis.TTL, e.RedisTTL)
	override(&c.Postgres.URL, e.PostgresURL)
	override(&c.SQLite.Path, e.SQLitePath)
	override(&c.Names.CacheSize, e.NamesCacheSize)
	override(&c.Trivia.AdminUID, e.AdminUID)
	override(&c.Trivia.MinMatchingCharacters, e.MinMatchingCharacters)
	override(&c.Trivia.Platform, e.Platform)
	override(&c.Trivia.Timezone, e.Timezone)
}

func override[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (c *Config) applyDefaults() {
	if c.Store.Driver == "" {
		c.Store.Driver = DriverMemory
	}
	if c.Trivia.MinMatchingCharacters <= 0 {
		c.Trivia.MinMatchingCharacters = 5
	}
	if c.Trivia.Platform == "" {
		c.Trivia.Platform = "websocket"
	}
	if c.Names.CacheSize <= 0 {
		c.Names.CacheSize = 1024
	}
	if c.SQLite.Path == "" {
		c.SQLite.Path = "trivia.db"
	}
}

// Validate reports configuration the service cannot start with.
func (c Config) Validate() error {
	if c.Trivia.ScoreboardSchedule == nil {
		return ErrMissingSchedule
	}
	for i, s := range c.Trivia.ScoreboardSchedule {
		if _, err := cron.ParseStandard(s.Time); err != nil {
			return fmt.Errorf("scoreboard_schedule[%d] %q: %w", i, s.Time, err)
		}
	}
	switch c.Store.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Postgres.URL == "" {
			return fmt.Errorf("postgres url not configured")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves trivia.timezone; empty means the host's local zone.
func (c Config) Location() (*time.Location, error) {
	if c.Trivia.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Trivia.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Trivia.Timezone, err)
	}
	return loc, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
