/*
Package config loads service configuration.

PRECEDENCE (later wins):
  1. Defaults
  2. TOML file (optional; --config flag)
  3. .env file (optional; never overrides the real environment)
  4. VACATION_* environment variables

Every invalid value is collected and reported in a single error so an
operator fixes the whole file in one pass.

EXAMPLE vacation.toml:
  [server]
  addr = ":8080"
  allowed_origins = ["http://localhost:5173"]
  shutdown_timeout = "10s"

  [database]
  path = "./data/vacation.db"

  [log]
  level = "info"
  format = "json"

  [report]
  critical_low = 0
  critical_high = 35

  [scheduler]
  holiday_seed = true
  interval = "1h"
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VACATION_"

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Log       LogConfig       `toml:"log"`
	Report    ReportConfig    `toml:"report"`
	Scheduler SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Addr            string   `toml:"addr"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	StaticDir       string   `toml:"static_dir"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // json | console
}

type ReportConfig struct {
	CriticalLow  int `toml:"critical_low"`
	CriticalHigh int `toml:"critical_high"`
	RecentLimit  int `toml:"recent_limit"`
	TopN         int `toml:"top_n"`
}

// SchedulerConfig controls the background holiday seeder.
type SchedulerConfig struct {
	HolidaySeed bool     `toml:"holiday_seed"`
	Interval    Duration `toml:"interval"`
}

// Duration decodes TOML strings like "10s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: Duration{10 * time.Second},
		},
		Database:  DatabaseConfig{Path: "./data/vacation.db"},
		Log:       LogConfig{Level: "info", Format: "json"},
		Report:    ReportConfig{CriticalLow: 0, CriticalHigh: 35, RecentLimit: 6, TopN: 10},
		Scheduler: SchedulerConfig{HolidaySeed: true, Interval: Duration{time.Hour}},
	}
}

// Load builds the configuration. path may be empty (no TOML file). envFile
// is read when it exists; pass "" to skip it.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			return Config{}, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
		}
	}

	dotenv := map[string]string{}
	if envFile != "" {
		values, err := godotenv.Read(envFile)
		switch {
		case err == nil:
			dotenv = values
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read env file %s: %w", envFile, err)
		}
	}
	lookup := func(key string) string {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[EnvPrefix+key])
	}

	invalid := make([]string, 0, 2)
	applyOverrides(&cfg, lookup, &invalid)
	invalid = append(invalid, cfg.validate()...)

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func applyOverrides(cfg *Config, lookup func(string) string, invalid *[]string) {
	if v := lookup("HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := lookup("ALLOWED_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.AllowedOrigins = origins
	}
	if v := lookup("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			*invalid = append(*invalid, EnvPrefix+"SHUTDOWN_TIMEOUT")
		} else {
			cfg.Server.ShutdownTimeout = Duration{d}
		}
	}
	if v := lookup("STATIC_DIR"); v != "" {
		cfg.Server.StaticDir = v
	}
	if v := lookup("HOLIDAY_SEED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			*invalid = append(*invalid, EnvPrefix+"HOLIDAY_SEED")
		} else {
			cfg.Scheduler.HolidaySeed = b
		}
	}
	if v := lookup("DB_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := lookup("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := lookup("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"CRITICAL_LOW", &cfg.Report.CriticalLow},
		{"CRITICAL_HIGH", &cfg.Report.CriticalHigh},
		{"RECENT_LIMIT", &cfg.Report.RecentLimit},
		{"TOP_N", &cfg.Report.TopN},
	}
	for _, it := range ints {
		v := lookup(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			*invalid = append(*invalid, EnvPrefix+it.key)
			continue
		}
		*it.dst = n
	}
}

func (c Config) validate() []string {
	var invalid []string
	if strings.TrimSpace(c.Server.Addr) == "" {
		invalid = append(invalid, "server.addr")
	}
	if c.Server.ShutdownTimeout.Duration <= 0 {
		invalid = append(invalid, "server.shutdown_timeout")
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		invalid = append(invalid, "database.path")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		invalid = append(invalid, "log.level")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		invalid = append(invalid, "log.format")
	}
	if c.Report.CriticalLow > c.Report.CriticalHigh {
		invalid = append(invalid, "report.critical_low > report.critical_high")
	}
	if c.Report.RecentLimit <= 0 {
		invalid = append(invalid, "report.recent_limit")
	}
	if c.Report.TopN <= 0 {
		invalid = append(invalid, "report.top_n")
	}
	if c.Scheduler.HolidaySeed && c.Scheduler.Interval.Duration <= 0 {
		invalid = append(invalid, "scheduler.interval")
	}
	return invalid
}

// NewLogger builds a zap logger for the configured level and format.
func (c LogConfig) NewLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid level %q: %w", c.Level, err)
	}

	zc := zap.NewProductionConfig()
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Encoding = c.Format
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	return logger, nil
}
