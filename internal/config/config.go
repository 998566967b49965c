package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  Server  `yaml:"server"`
	Store   Store   `yaml:"store"`
	Log     Log     `yaml:"log"`
	Receipt Receipt `yaml:"receipt"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Store struct {
	Driver   string `yaml:"driver"`
	URL      string `yaml:"url"`
	Database string `yaml:"database"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Receipt struct {
	Organization   string   `yaml:"organization"`
	Lines          []string `yaml:"lines"`
	Closing        []string `yaml:"closing"`
	CurrencySymbol string   `yaml:"currency_symbol"`
	GatewayName    string   `yaml:"gateway_name"`
	Timezone       string   `yaml:"timezone"`
	FontDir        string   `yaml:"font_dir"`
	CoreFonts      bool     `yaml:"core_fonts"`
}

// Flags are command line overrides; empty fields leave the file value.
type Flags struct {
	Addr      string
	Driver    string
	URL       string
	LogLevel  string
	LogFormat string
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Server.Addr = expandEnv(cfg.Server.Addr)
	cfg.Store.Driver = expandEnv(cfg.Store.Driver)
	cfg.Store.URL = expandEnv(cfg.Store.URL)
	cfg.Store.Database = expandEnv(cfg.Store.Database)
	cfg.Log.Level = expandEnv(cfg.Log.Level)
	cfg.Receipt.FontDir = expandEnv(cfg.Receipt.FontDir)
	cfg.Receipt.Timezone = expandEnv(cfg.Receipt.Timezone)

	return &cfg, nil
}

func (c *Config) GetAddr(flags *Flags) string {
	if flags != nil && flags.Addr != "" {
		return flags.Addr
	}
	if c.Server.Addr != "" {
		return c.Server.Addr
	}
	return ":9091"
}

func (c *Config) GetReadTimeout() time.Duration {
	if c.Server.ReadTimeout > 0 {
		return c.Server.ReadTimeout
	}
	return 15 * time.Second
}

func (c *Config) GetWriteTimeout() time.Duration {
	if c.Server.WriteTimeout > 0 {
		return c.Server.WriteTimeout
	}
	return 30 * time.Second
}

func (c *Config) GetIdleTimeout() time.Duration {
	if c.Server.IdleTimeout > 0 {
		return c.Server.IdleTimeout
	}
	return 60 * time.Second
}

func (c *Config) GetShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeout > 0 {
		return c.Server.ShutdownTimeout
	}
	return 5 * time.Second
}

func (c *Config) GetDriver(flags *Flags) string {
	if flags != nil && flags.Driver != "" {
		return flags.Driver
	}
	if c.Store.Driver != "" {
		return c.Store.Driver
	}
	return "memory"
}

func (c *Config) GetStoreURL(flags *Flags) (string, error) {
	if flags != nil && flags.URL != "" {
		return flags.URL, nil
	}
	if c.Store.URL != "" {
		return c.Store.URL, nil
	}
	if c.GetDriver(flags) == "memory" {
		return "", nil
	}
	return "", fmt.Errorf("store url is required for the %s driver (set store.url or pass --store-url)", c.GetDriver(flags))
}

func (c *Config) GetLogLevel(flags *Flags) string {
	if flags != nil && flags.LogLevel != "" {
		return flags.LogLevel
	}
	if c.Log.Level != "" {
		return c.Log.Level
	}
	return "info"
}

func (c *Config) GetLogFormat(flags *Flags) string {
	if flags != nil && flags.LogFormat != "" {
		return flags.LogFormat
	}
	if c.Log.Format != "" {
		return c.Log.Format
	}
	return "text"
}

// GetLocation is the zone receipt dates are printed in.
func (c *Config) GetLocation() (*time.Location, error) {
	name := c.Receipt.Timezone
	if name == "" {
		name = "Asia/Kolkata"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid receipt timezone %q: %w", name, err)
	}
	return loc, nil
}

func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := s[2 : len(s)-1]
		return os.Getenv(envVar)
	}
	return os.ExpandEnv(s)
}
