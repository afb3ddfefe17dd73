// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DBPath string `koanf:"db_path"`

	// Scoring calibration file (optional; built-in defaults apply when empty)
	CalibrationPath string `koanf:"calibration_path"`

	// JWT Authentication. The previous secret is only set while a key
	// rotation is in progress.
	JWTSecret         string `koanf:"jwt_secret"`
	JWTSecretPrevious string `koanf:"jwt_secret_previous"`

	// Redis (optional; in-memory rate limiting is used when unset)
	RedisAddr string `koanf:"redis_addr"`

	// Rate limiting (requests per minute; 0 keeps the built-in defaults)
	ReadRateLimit   int `koanf:"read_rate_limit"`
	WriteRateLimit  int `koanf:"write_rate_limit"`
	ImportRateLimit int `koanf:"import_rate_limit"`

	// CORS
	AllowedOrigins []string `koanf:"allowed_origins"`

	// Observability
	MetricsEnabled  bool    `koanf:"metrics_enabled"`
	TracingEnabled  bool    `koanf:"tracing_enabled"`
	OTLPEndpoint    string  `koanf:"otlp_endpoint"`
	TraceSampleRate float64 `koanf:"trace_sample_rate"`
}

// Configuration validation errors.
var (
	ErrMissingDBPath        = errors.New("DB_PATH is required")
	ErrMissingJWTSecret     = errors.New("JWT_SECRET is required")
	ErrMissingOTLPEndpoint  = errors.New("OTLP_ENDPOINT is required when tracing is enabled")
	ErrInvalidPort          = errors.New("PORT must be a valid integer")
	ErrInvalidSampleRate    = errors.New("TRACE_SAMPLE_RATE must be between 0 and 1")
	ErrInvalidRateLimit     = errors.New("rate limits must not be negative")
)

// Default values for non-secret configuration.
const (
	DefaultPort            = 8080
	DefaultEnv             = "development"
	DefaultTraceSampleRate = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	readLimit, err := getEnvIntOrDefault("READ_RATE_LIMIT", k.Int("read_rate_limit"), 0)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	writeLimit, err := getEnvIntOrDefault("WRITE_RATE_LIMIT", k.Int("write_rate_limit"), 0)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}
	importLimit, err := getEnvIntOrDefault("IMPORT_RATE_LIMIT", k.Int("import_rate_limit"), 0)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	sampleRate, err := getEnvFloatOrDefault("TRACE_SAMPLE_RATE", k.Float64("trace_sample_rate"), DefaultTraceSampleRate)
	if err != nil {
		loadErrs = append(loadErrs, err)
	}

	origins := k.Strings("allowed_origins")
	if val := os.Getenv("ALLOWED_ORIGINS"); val != "" {
		origins = origins[:0]
		for _, o := range strings.Split(val, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	cfg := &Config{
		Port:              port,
		Env:               getEnvOrDefaultMulti([]string{"ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DBPath:            getEnvOrKoanf("DB_PATH", k, "db_path"),
		CalibrationPath:   getEnvOrKoanf("CALIBRATION_PATH", k, "calibration_path"),
		JWTSecret:         getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTSecretPrevious: getEnvOrKoanf("JWT_SECRET_PREVIOUS", k, "jwt_secret_previous"),
		RedisAddr:         getEnvOrKoanf("REDIS_ADDR", k, "redis_addr"),
		ReadRateLimit:     readLimit,
		WriteRateLimit:    writeLimit,
		ImportRateLimit:   importLimit,
		AllowedOrigins:    origins,
		MetricsEnabled:    getEnvBool("METRICS_ENABLED", k, "metrics_enabled", true),
		TracingEnabled:    getEnvBool("TRACING_ENABLED", k, "tracing_enabled", false),
		OTLPEndpoint:      getEnvOrKoanf("OTLP_ENDPOINT", k, "otlp_endpoint"),
		TraceSampleRate:   sampleRate,
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// GetJWTSecrets returns the current and previous JWT secrets.
// The previous secret is empty unless a rotation is in progress.
func (c *Config) GetJWTSecrets() (current, previous string) {
	return c.JWTSecret, c.JWTSecretPrevious
}

// IsProduction reports whether the server runs in the production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvBool returns the environment variable as bool if set, otherwise the koanf value, or default.
func getEnvBool(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	if k.Exists(koanfKey) {
		return k.Bool(koanfKey)
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid integer: %w", envKey, ErrInvalidPort)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DBPath == "" {
		errs = append(errs, ErrMissingDBPath)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.TracingEnabled && c.OTLPEndpoint == "" {
		errs = append(errs, ErrMissingOTLPEndpoint)
	}
	if c.TraceSampleRate < 0 || c.TraceSampleRate > 1 {
		errs = append(errs, ErrInvalidSampleRate)
	}
	if c.ReadRateLimit < 0 || c.WriteRateLimit < 0 || c.ImportRateLimit < 0 {
		errs = append(errs, ErrInvalidRateLimit)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":              fmt.Sprintf("%d", c.Port),
		"env":               c.Env,
		"db_path":           c.DBPath,
		"calibration_path":  c.CalibrationPath,
		"jwt_secret":        maskSecret(c.JWTSecret),
		"jwt_secret_previous": maskSecret(c.JWTSecretPrevious),
		"redis_addr":        c.RedisAddr,
		"read_rate_limit":   fmt.Sprintf("%d", c.ReadRateLimit),
		"write_rate_limit":  fmt.Sprintf("%d", c.WriteRateLimit),
		"import_rate_limit": fmt.Sprintf("%d", c.ImportRateLimit),
		"allowed_origins":   strings.Join(c.AllowedOrigins, ","),
		"metrics_enabled":   fmt.Sprintf("%t", c.MetricsEnabled),
		"tracing_enabled":   fmt.Sprintf("%t", c.TracingEnabled),
		"otlp_endpoint":     c.OTLPEndpoint,
		"trace_sample_rate": fmt.Sprintf("%g", c.TraceSampleRate),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}
