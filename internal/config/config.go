package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
)

const (
	DefaultConfigPath = "/etc/default/admin_gluster.yaml"
	EnvPrefix         = "ADMIN_GLUSTER_"

	// WritePrecision is the only timestamp precision the collector writes
	WritePrecision = "s"
)

// Volume discovery modes
const (
	DiscoveryGluster  = "gluster"  // ask the gluster CLI every cycle
	DiscoveryStatic   = "static"   // use the configured volume list
	DiscoveryFilename = "filename" // accept every name found in the stats directory
)

var validLogLevels = []string{"off", "error", "warn", "warning", "info", "debug", "trace", "fatal", "panic"}

// Config holds all configuration for the collector
type Config struct {
	ConfigPath string

	// InfluxDB configuration
	InfluxHost     string
	InfluxPort     int
	InfluxURL      string // Full base URL, overrides host and port when set
	InfluxUsername string
	InfluxPassword string
	InfluxDatabase string

	// Scan settings
	ScanInterval time.Duration
	WarmupDelay  time.Duration // Delay before the very first scan
	CycleTimeout time.Duration // Deadline for one scan including delivery, defaults to ScanInterval
	StatsDir     string

	// Host identity
	HostnameFile string
	Hostname     string // Overrides the hostname file when set

	// Brick/volume discovery
	Discovery     string
	Volumes       []string // Used by static discovery
	BrickMapPath  string   // Optional brick → volume map
	GlusterBinary string

	// Delivery
	WriteTimeout          time.Duration
	RetryMaxAttempts      int
	RetryInitialDelayMs   int
	RetryMaxDelayMs       int
	FailureAlertThreshold int  // Consecutive failed writes before error-level alerts
	ReadOnly              bool // Technical mode: encode and log measurements, never send

	// Observability
	LogLevel           string
	LogFile            string
	TracingEnabled     bool
	TracingEndpoint    string
	TracingProtocol    string
	TracingSampleRatio float64 // Fraction of cycles traced

	FileLoaded bool // False when the default config file was absent

	warmupSet       bool
	cycleTimeoutSet bool
}

// SinkConfig is the immutable delivery configuration shared with the metrics sink
type SinkConfig struct {
	BaseURL   string
	Database  string
	Username  string
	Password  string
	Precision string
}

// Sink returns the delivery configuration
func (c *Config) Sink() SinkConfig {
	base := c.InfluxURL
	if base == "" {
		base = fmt.Sprintf("http://%s:%d", c.InfluxHost, c.InfluxPort)
	}

	return SinkConfig{
		BaseURL:   strings.TrimRight(base, "/"),
		Database:  c.InfluxDatabase,
		Username:  c.InfluxUsername,
		Password:  c.InfluxPassword,
		Precision: WritePrecision,
	}
}

func defaults() *Config {
	return &Config{
		ConfigPath: DefaultConfigPath,

		InfluxHost:     "localhost",
		InfluxPort:     8086,
		InfluxDatabase: "ceph",

		ScanInterval: 10 * time.Second,
		StatsDir:     "/var/lib/glusterd/stats",

		HostnameFile: "/etc/hostname",

		Discovery:     DiscoveryGluster,
		GlusterBinary: "gluster",

		WriteTimeout:          10 * time.Second,
		RetryMaxAttempts:      3,
		RetryInitialDelayMs:   200,
		RetryMaxDelayMs:       2000,
		FailureAlertThreshold: 5,

		LogLevel:           "info",
		TracingProtocol:    "grpc",
		TracingSampleRatio: 1,
	}
}

// Load builds configuration from command-line arguments, the YAML config file
// and environment variables. Precedence: flags > environment > file > defaults.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("admin-gluster", flag.ContinueOnError)
	configPath := fs.StringP("config", "c", DefaultConfigPath, "Setup admin-gluster with a custom config file")
	scanInterval := fs.Uint64P("scaninterval", "s", 10, "Scan gluster stats every x seconds")
	warmup := fs.Uint64("warmup", 10, "Wait x seconds before the first scan (defaults to the scan interval)")
	logLevel := fs.String("loglevel", "info", "Sets the level to write the logs at: "+strings.Join(validLogLevels, ", "))
	logFile := fs.String("logfile", "", "Also write logs to this file")
	readOnly := fs.Bool("read-only", false, "Log measurements instead of sending them")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	cfg := defaults()

	explicitPath := false
	if v := os.Getenv(EnvPrefix + "CONFIG"); v != "" {
		cfg.ConfigPath = v
		explicitPath = true
	}
	if fs.Changed("config") {
		cfg.ConfigPath = *configPath
		explicitPath = true
	}

	if err := cfg.loadFile(cfg.ConfigPath, explicitPath); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if fs.Changed("scaninterval") {
		cfg.ScanInterval = time.Duration(*scanInterval) * time.Second
	}
	if fs.Changed("warmup") {
		cfg.WarmupDelay = time.Duration(*warmup) * time.Second
		cfg.warmupSet = true
	}
	if fs.Changed("loglevel") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("logfile") {
		cfg.LogFile = *logFile
	}
	if fs.Changed("read-only") {
		cfg.ReadOnly = *readOnly
	}

	if !cfg.warmupSet {
		cfg.WarmupDelay = cfg.ScanInterval
	}
	if !cfg.cycleTimeoutSet {
		cfg.CycleTimeout = cfg.ScanInterval
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyEnv overrides values from ADMIN_GLUSTER_* environment variables.
// Every variable that is set but cannot be parsed is reported.
func (c *Config) applyEnv() error {
	env := &envReader{}

	c.InfluxHost = getEnv("INFLUX_HOST", c.InfluxHost)
	c.InfluxPort = env.Int("INFLUX_PORT", c.InfluxPort)
	c.InfluxURL = getEnv("INFLUX_URL", c.InfluxURL)
	c.InfluxUsername = getEnv("INFLUX_USERNAME", c.InfluxUsername)
	c.InfluxPassword = getEnv("INFLUX_PASSWORD", c.InfluxPassword)
	c.InfluxDatabase = getEnv("INFLUX_DATABASE", c.InfluxDatabase)

	c.ScanInterval = env.Seconds("SCAN_INTERVAL", c.ScanInterval)
	if os.Getenv(EnvPrefix+"WARMUP_DELAY") != "" {
		c.WarmupDelay = env.Seconds("WARMUP_DELAY", c.WarmupDelay)
		c.warmupSet = true
	}
	if os.Getenv(EnvPrefix+"CYCLE_TIMEOUT") != "" {
		c.CycleTimeout = env.Seconds("CYCLE_TIMEOUT", c.CycleTimeout)
		c.cycleTimeoutSet = true
	}
	c.StatsDir = getEnv("STATS_DIR", c.StatsDir)

	c.HostnameFile = getEnv("HOSTNAME_FILE", c.HostnameFile)
	c.Hostname = getEnv("HOSTNAME", c.Hostname)

	c.Discovery = getEnv("DISCOVERY", c.Discovery)
	if v := parseList(getEnv("VOLUMES", "")); len(v) > 0 {
		c.Volumes = v
	}
	c.BrickMapPath = getEnv("BRICK_MAP", c.BrickMapPath)
	c.GlusterBinary = getEnv("GLUSTER_BINARY", c.GlusterBinary)

	c.WriteTimeout = env.Seconds("WRITE_TIMEOUT", c.WriteTimeout)
	c.RetryMaxAttempts = env.Int("RETRY_MAX_ATTEMPTS", c.RetryMaxAttempts)
	c.RetryInitialDelayMs = env.Int("RETRY_INITIAL_DELAY_MS", c.RetryInitialDelayMs)
	c.RetryMaxDelayMs = env.Int("RETRY_MAX_DELAY_MS", c.RetryMaxDelayMs)
	c.FailureAlertThreshold = env.Int("FAILURE_ALERT_THRESHOLD", c.FailureAlertThreshold)
	c.ReadOnly = env.Bool("READ_ONLY", c.ReadOnly)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.TracingEnabled = env.Bool("TRACING_ENABLED", c.TracingEnabled)
	c.TracingEndpoint = getEnv("TRACING_ENDPOINT", c.TracingEndpoint)
	c.TracingProtocol = getEnv("TRACING_PROTOCOL", c.TracingProtocol)
	c.TracingSampleRatio = env.Float("TRACING_SAMPLE_RATIO", c.TracingSampleRatio)

	return errors.Join(env.errs...)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.InfluxURL != "" {
		u, err := url.Parse(c.InfluxURL)
		if err != nil {
			return fmt.Errorf("influx_url is invalid: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("influx_url must use http or https, got %q", u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("influx_url must include a host")
		}
	} else {
		if c.InfluxHost == "" {
			return fmt.Errorf("influx_host is required")
		}
		if c.InfluxPort <= 0 || c.InfluxPort > 65535 {
			return fmt.Errorf("influx_port must be between 1 and 65535")
		}
	}
	if c.InfluxDatabase == "" {
		return fmt.Errorf("influx_database is required")
	}
	if c.ScanInterval <= 0 {
		return fmt.Errorf("scan_interval must be at least 1 second")
	}
	if c.WarmupDelay < 0 {
		return fmt.Errorf("warmup_delay must not be negative")
	}
	if c.CycleTimeout <= 0 {
		return fmt.Errorf("cycle_timeout must be at least 1 second")
	}
	if c.StatsDir == "" {
		return fmt.Errorf("stats_dir is required")
	}
	if c.Hostname == "" && c.HostnameFile == "" {
		return fmt.Errorf("one of hostname or hostname_file must be specified")
	}

	switch c.Discovery {
	case DiscoveryGluster:
		if c.GlusterBinary == "" {
			return fmt.Errorf("gluster_binary is required for gluster discovery")
		}
	case DiscoveryStatic:
		if len(c.Volumes) == 0 {
			return fmt.Errorf("volumes must be specified for static discovery")
		}
	case DiscoveryFilename:
	default:
		return fmt.Errorf("discovery must be one of %s, %s, %s; got %q",
			DiscoveryGluster, DiscoveryStatic, DiscoveryFilename, c.Discovery)
	}

	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write_timeout must be at least 1 second")
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry_max_attempts must be at least 1")
	}
	if c.RetryInitialDelayMs < 0 || c.RetryMaxDelayMs < c.RetryInitialDelayMs {
		return fmt.Errorf("retry delays must satisfy 0 <= retry_initial_delay_ms <= retry_max_delay_ms")
	}
	if c.FailureAlertThreshold < 1 {
		return fmt.Errorf("failure_alert_threshold must be at least 1")
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("log_level must be one of %s", strings.Join(validLogLevels, ", "))
	}
	if c.TracingEnabled && c.TracingProtocol != "grpc" && c.TracingProtocol != "http" {
		return fmt.Errorf("tracing_protocol must be grpc or http")
	}
	if c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1 {
		return fmt.Errorf("tracing_sample_ratio must be between 0 and 1")
	}

	return nil
}

// RetryInitialDelay returns the first retry delay
func (c *Config) RetryInitialDelay() time.Duration {
	return time.Duration(c.RetryInitialDelayMs) * time.Millisecond
}

// RetryMaxDelay returns the retry delay cap
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

func isValidLogLevel(level string) bool {
	level = strings.ToLower(level)
	for _, l := range validLogLevels {
		if l == level {
			return true
		}
	}
	return false
}

// getEnv gets an ADMIN_GLUSTER_ environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

// envReader parses typed environment variables and collects parse errors
type envReader struct {
	errs []error
}

func (r *envReader) lookup(key string) (string, bool) {
	value := os.Getenv(EnvPrefix + key)
	return value, value != ""
}

func (r *envReader) fail(key, value string, err error) {
	r.errs = append(r.errs, fmt.Errorf("%s%s=%q: %w", EnvPrefix, key, value, err))
}

// Int gets an integer environment variable or returns a default value
func (r *envReader) Int(key string, defaultValue int) int {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return intValue
}

// Bool gets a boolean environment variable or returns a default value
func (r *envReader) Bool(key string, defaultValue bool) bool {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return boolValue
}

// Float gets a floating point environment variable or returns a default value
func (r *envReader) Float(key string, defaultValue float64) float64 {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return f
}

// Seconds reads a whole number of seconds or returns a default value
func (r *envReader) Seconds(key string, defaultValue time.Duration) time.Duration {
	value, ok := r.lookup(key)
	if !ok {
		return defaultValue
	}
	secs, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		r.fail(key, value, err)
		return defaultValue
	}
	return time.Duration(secs) * time.Second
}

// parseList parses a comma-separated list
func parseList(s string) []string {
	if s == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
