package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML config file. Pointer fields distinguish
// "absent" from zero values so the file only overrides what it sets.
type fileConfig struct {
	InfluxHost     *string `yaml:"influx_host"`
	InfluxPort     *int    `yaml:"influx_port"`
	InfluxURL      *string `yaml:"influx_url"`
	InfluxUsername *string `yaml:"influx_username"`
	InfluxPassword *string `yaml:"influx_password"`
	InfluxDatabase *string `yaml:"influx_database"`

	ScanInterval *uint64 `yaml:"scan_interval"` // seconds
	WarmupDelay  *uint64 `yaml:"warmup_delay"`  // seconds
	CycleTimeout *uint64 `yaml:"cycle_timeout"` // seconds
	StatsDir     *string `yaml:"stats_dir"`

	HostnameFile *string `yaml:"hostname_file"`
	Hostname     *string `yaml:"hostname"`

	Discovery     *string  `yaml:"discovery"`
	Volumes       []string `yaml:"volumes"`
	BrickMap      *string  `yaml:"brick_map"`
	GlusterBinary *string  `yaml:"gluster_binary"`

	WriteTimeout          *uint64 `yaml:"write_timeout"` // seconds
	RetryMaxAttempts      *int    `yaml:"retry_max_attempts"`
	RetryInitialDelayMs   *int    `yaml:"retry_initial_delay_ms"`
	RetryMaxDelayMs       *int    `yaml:"retry_max_delay_ms"`
	FailureAlertThreshold *int    `yaml:"failure_alert_threshold"`
	ReadOnly              *bool   `yaml:"read_only"`

	LogLevel           *string  `yaml:"log_level"`
	LogFile            *string  `yaml:"log_file"`
	TracingEnabled     *bool    `yaml:"tracing_enabled"`
	TracingEndpoint    *string  `yaml:"tracing_endpoint"`
	TracingProtocol    *string  `yaml:"tracing_protocol"`
	TracingSampleRatio *float64 `yaml:"tracing_sample_ratio"`
}

// loadFile applies the YAML file at path. A missing file is an error only
// when the path was chosen explicitly.
func (c *Config) loadFile(path string, explicit bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.apply(&fc)
	c.FileLoaded = true
	return nil
}

func (c *Config) apply(fc *fileConfig) {
	setString(&c.InfluxHost, fc.InfluxHost)
	setInt(&c.InfluxPort, fc.InfluxPort)
	setString(&c.InfluxURL, fc.InfluxURL)
	setString(&c.InfluxUsername, fc.InfluxUsername)
	setString(&c.InfluxPassword, fc.InfluxPassword)
	setString(&c.InfluxDatabase, fc.InfluxDatabase)

	setSeconds(&c.ScanInterval, fc.ScanInterval)
	if fc.WarmupDelay != nil {
		setSeconds(&c.WarmupDelay, fc.WarmupDelay)
		c.warmupSet = true
	}
	if fc.CycleTimeout != nil {
		setSeconds(&c.CycleTimeout, fc.CycleTimeout)
		c.cycleTimeoutSet = true
	}
	setString(&c.StatsDir, fc.StatsDir)

	setString(&c.HostnameFile, fc.HostnameFile)
	setString(&c.Hostname, fc.Hostname)

	setString(&c.Discovery, fc.Discovery)
	if len(fc.Volumes) > 0 {
		c.Volumes = fc.Volumes
	}
	setString(&c.BrickMapPath, fc.BrickMap)
	setString(&c.GlusterBinary, fc.GlusterBinary)

	setSeconds(&c.WriteTimeout, fc.WriteTimeout)
	setInt(&c.RetryMaxAttempts, fc.RetryMaxAttempts)
	setInt(&c.RetryInitialDelayMs, fc.RetryInitialDelayMs)
	setInt(&c.RetryMaxDelayMs, fc.RetryMaxDelayMs)
	setInt(&c.FailureAlertThreshold, fc.FailureAlertThreshold)
	if fc.ReadOnly != nil {
		c.ReadOnly = *fc.ReadOnly
	}

	setString(&c.LogLevel, fc.LogLevel)
	setString(&c.LogFile, fc.LogFile)
	if fc.TracingEnabled != nil {
		c.TracingEnabled = *fc.TracingEnabled
	}
	setString(&c.TracingEndpoint, fc.TracingEndpoint)
	setString(&c.TracingProtocol, fc.TracingProtocol)
	if fc.TracingSampleRatio != nil {
		c.TracingSampleRatio = *fc.TracingSampleRatio
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setSeconds(dst *time.Duration, v *uint64) {
	if v != nil {
		*dst = time.Duration(*v) * time.Second
	}
}
