package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "admin_gluster.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load([]string{"-c", path})
	require.NoError(t, err)

	assert.True(t, cfg.FileLoaded)
	assert.Equal(t, 10*time.Second, cfg.ScanInterval)
	assert.Equal(t, 10*time.Second, cfg.WarmupDelay)
	assert.Equal(t, 10*time.Second, cfg.CycleTimeout)
	assert.Equal(t, "/var/lib/glusterd/stats", cfg.StatsDir)
	assert.Equal(t, DiscoveryGluster, cfg.Discovery)
	assert.Equal(t, SinkConfig{
		BaseURL:   "http://localhost:8086",
		Database:  "ceph",
		Precision: "s",
	}, cfg.Sink())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
influx_host: influx.example
influx_port: 9086
influx_username: collector
influx_password: secret
influx_database: gluster
scan_interval: 30
stats_dir: /tmp/stats
discovery: static
volumes: [vol1, vol2]
read_only: true
`)

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.ScanInterval)
	assert.Equal(t, 30*time.Second, cfg.WarmupDelay, "warm-up follows the interval unless set")
	assert.Equal(t, []string{"vol1", "vol2"}, cfg.Volumes)
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, SinkConfig{
		BaseURL:   "http://influx.example:9086",
		Database:  "gluster",
		Username:  "collector",
		Password:  "secret",
		Precision: "s",
	}, cfg.Sink())
}

func TestLoad_Precedence(t *testing.T) {
	path := writeConfig(t, `
scan_interval: 30
warmup_delay: 5
influx_host: from-file
`)
	t.Setenv("ADMIN_GLUSTER_INFLUX_HOST", "from-env")
	t.Setenv("ADMIN_GLUSTER_SCAN_INTERVAL", "20")

	cfg, err := Load([]string{"-c", path, "-s", "15", "--loglevel", "debug"})
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.InfluxHost)
	assert.Equal(t, 15*time.Second, cfg.ScanInterval)
	assert.Equal(t, 5*time.Second, cfg.WarmupDelay)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_WarmupIndependentOfInterval(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load([]string{"-c", path, "--scaninterval", "60", "--warmup", "2"})
	require.NoError(t, err)

	assert.Equal(t, 60*time.Second, cfg.ScanInterval)
	assert.Equal(t, 2*time.Second, cfg.WarmupDelay)
	assert.Equal(t, 60*time.Second, cfg.CycleTimeout)
}

func TestLoad_CycleTimeout(t *testing.T) {
	path := writeConfig(t, "cycle_timeout: 25\n")

	cfg, err := Load([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, 25*time.Second, cfg.CycleTimeout)

	t.Setenv("ADMIN_GLUSTER_CYCLE_TIMEOUT", "5")
	cfg, err = Load([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.CycleTimeout)
}

func TestLoad_InfluxURLOverridesHostPort(t *testing.T) {
	path := writeConfig(t, "influx_url: https://metrics.example/influx/\ninflux_host: ignored\n")

	cfg, err := Load([]string{"-c", path})
	require.NoError(t, err)
	assert.Equal(t, "https://metrics.example/influx", cfg.Sink().BaseURL)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		args    []string
		env     map[string]string
	}{
		{name: "invalid yaml", content: "influx_port: [not a port"},
		{name: "zero interval", content: "scan_interval: 0"},
		{name: "bad port", content: "influx_port: 70000"},
		{name: "static without volumes", content: "discovery: static"},
		{name: "unknown discovery", content: "discovery: api"},
		{name: "bad url scheme", content: "influx_url: ftp://host"},
		{name: "bad log level", content: "log_level: loud"},
		{name: "no retry attempts", content: "retry_max_attempts: 0"},
		{name: "sample ratio above one", content: "tracing_sample_ratio: 1.5"},
		{name: "zero cycle timeout", content: "cycle_timeout: 0"},
		{name: "unknown flag", content: "", args: []string{"--bogus"}},
		{name: "env interval not a number", env: map[string]string{"ADMIN_GLUSTER_SCAN_INTERVAL": "ten"}},
		{name: "env port not a number", env: map[string]string{"ADMIN_GLUSTER_INFLUX_PORT": "80x"}},
		{name: "env bool invalid", env: map[string]string{"ADMIN_GLUSTER_READ_ONLY": "maybe"}},
		{name: "env ratio invalid", env: map[string]string{"ADMIN_GLUSTER_TRACING_SAMPLE_RATIO": "half"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, tt.content)
			args := append([]string{"-c", path}, tt.args...)
			if _, err := Load(args); err == nil {
				t.Errorf("Load() expected error for %s", tt.name)
			}
		})
	}
}

func TestLoad_EnvErrorsNameVariables(t *testing.T) {
	t.Setenv("ADMIN_GLUSTER_SCAN_INTERVAL", "ten")
	t.Setenv("ADMIN_GLUSTER_INFLUX_PORT", "80x")

	_, err := Load([]string{"-c", writeConfig(t, "")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "ADMIN_GLUSTER_SCAN_INTERVAL")
	assert.Contains(t, err.Error(), "ADMIN_GLUSTER_INFLUX_PORT")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load([]string{"-c", filepath.Join(t.TempDir(), "missing.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_MissingFileFromEnv(t *testing.T) {
	t.Setenv("ADMIN_GLUSTER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load(nil)
	require.Error(t, err)
}

func TestParseList(t *testing.T) {
	assert.Nil(t, parseList(""))
	assert.Equal(t, []string{"vol1", "vol2"}, parseList(" vol1, ,vol2 "))
}
