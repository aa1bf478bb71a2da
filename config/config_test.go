package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 35, cfg.Report.CriticalHigh)
}

func TestLoad_TOMLFile(t *testing.T) {
	path := writeFile(t, "vacation.toml", `
[server]
addr = ":9090"
allowed_origins = ["http://localhost:5173"]
shutdown_timeout = "3s"

[database]
path = "/tmp/v.db"

[log]
level = "debug"
format = "console"

[report]
critical_low = 5
critical_high = 40
`)

	cfg, err := Load(path, "")

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout.Duration)
	assert.Equal(t, "/tmp/v.db", cfg.Database.Path)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 5, cfg.Report.CriticalLow)
	assert.Equal(t, 40, cfg.Report.CriticalHigh)
	assert.Equal(t, 6, cfg.Report.RecentLimit, "unset keys keep defaults")
	assert.True(t, cfg.Scheduler.HolidaySeed)
}

func TestLoad_SchedulerOverrides(t *testing.T) {
	path := writeFile(t, "vacation.toml", "[scheduler]\ninterval = \"30m\"\n")
	t.Setenv("VACATION_HOLIDAY_SEED", "false")

	cfg, err := Load(path, "")

	require.NoError(t, err)
	assert.False(t, cfg.Scheduler.HolidaySeed)
	assert.Equal(t, 30*time.Minute, cfg.Scheduler.Interval.Duration)

	t.Setenv("VACATION_HOLIDAY_SEED", "sometimes")
	_, err = Load("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VACATION_HOLIDAY_SEED")
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "vacation.toml", "[server]\nport = 8080\n")
	_, err := Load(path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestLoad_EnvOverridesFileAndDotenv(t *testing.T) {
	// GIVEN: A TOML file, a .env file and a real environment variable
	path := writeFile(t, "vacation.toml", "[database]\npath = \"from-toml.db\"\n")
	envFile := writeFile(t, ".env", "VACATION_DB_PATH=from-dotenv.db\nVACATION_LOG_LEVEL=warn\n")
	t.Setenv("VACATION_DB_PATH", "from-env.db")
	t.Setenv("VACATION_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	// WHEN: Loading
	cfg, err := Load(path, envFile)

	// THEN: Environment beats .env beats TOML
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.Path)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_MissingDotenvIsIgnored(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestLoad_InvalidValuesReportedTogether(t *testing.T) {
	t.Setenv("VACATION_CRITICAL_LOW", "abc")
	t.Setenv("VACATION_SHUTDOWN_TIMEOUT", "soon")
	t.Setenv("VACATION_LOG_LEVEL", "loud")

	_, err := Load("", "")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "VACATION_CRITICAL_LOW")
	assert.Contains(t, err.Error(), "VACATION_SHUTDOWN_TIMEOUT")
	assert.Contains(t, err.Error(), "log.level")
}

func TestLoad_ThresholdOrder(t *testing.T) {
	t.Setenv("VACATION_CRITICAL_LOW", "50")
	_, err := Load("", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "critical_low")
}

func TestLogConfig_NewLogger(t *testing.T) {
	logger, err := LogConfig{Level: "debug", Format: "json"}.NewLogger()
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = LogConfig{Level: "nope", Format: "json"}.NewLogger()
	assert.Error(t, err)
}
