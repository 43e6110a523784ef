// internal/appconfig/appconfig.go
// Package appconfig manages loading and interpreting application configuration.
package appconfig

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	// DefaultConfigPath is the default path to the application's configuration file.
	DefaultConfigPath = "config/config.yaml"
	// MaxSampleSize caps how many dataset rows are sent to the models in one benchmark.
	MaxSampleSize = 1000
	// defaultRequestTimeout is the default timeout for inference service requests.
	defaultRequestTimeout = 120 * time.Second
	defaultSampleSize     = 100
	defaultSeed           = 42
	// defaultDisagreementLimit matches the number of rows the dashboard ever displayed.
	defaultDisagreementLimit = 50
	defaultResultsDir        = "nidsbenchData/comparisons"
	defaultListen            = ":8080"
	defaultBenchmarkRate     = 6
	defaultServiceHealthPath = "/health"
)

// Output formats for written results.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config represents the top-level application configuration.
type Config struct {
	Service                ServiceConfig   `mapstructure:"service" json:"service" yaml:"service"`
	Models                 []ModelEndpoint `mapstructure:"models" json:"models" yaml:"models"`
	SampleSize             int             `mapstructure:"sampleSize" json:"sampleSize" yaml:"sampleSize"`
	Seed                   int64           `mapstructure:"seed" json:"seed" yaml:"seed"`
	DisagreementLimit      int             `mapstructure:"disagreementLimit" json:"disagreementLimit" yaml:"disagreementLimit"`
	ResultsDir             string          `mapstructure:"resultsDir" json:"resultsDir" yaml:"resultsDir"`
	Listen                 string          `mapstructure:"listen" json:"listen" yaml:"listen"`
	BenchmarkRatePerMinute int             `mapstructure:"benchmarkRatePerMinute" json:"benchmarkRatePerMinute" yaml:"benchmarkRatePerMinute"`
	LogFile                string          `mapstructure:"logFile" json:"logFile,omitempty" yaml:"logFile,omitempty"`
	Debug                  bool            `mapstructure:"debug" json:"debug" yaml:"debug"`
	JSONMode               bool            `mapstructure:"jsonMode" json:"jsonMode" yaml:"jsonMode"`
	Format                 string          `mapstructure:"format" json:"format" yaml:"format"`
	ConfigPath             string          `mapstructure:"-" json:"-" yaml:"-"`
}

// ServiceConfig locates the remote inference service that hosts both classifiers.
type ServiceConfig struct {
	BaseURL        string `mapstructure:"baseURL" json:"baseURL" yaml:"baseURL"`
	HealthPath     string `mapstructure:"healthPath" json:"healthPath" yaml:"healthPath"`
	TimeoutSeconds int    `mapstructure:"timeout" json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ModelEndpoint is one classifier exposed by the inference service.
type ModelEndpoint struct {
	Name       string `mapstructure:"name" json:"name" yaml:"name"`
	Endpoint   string `mapstructure:"endpoint" json:"endpoint" yaml:"endpoint"`
	HealthPath string `mapstructure:"healthPath" json:"healthPath,omitempty" yaml:"healthPath,omitempty"`
}

// Default returns the configuration used when no file or flag overrides a value.
func Default() Config {
	return Config{
		Service: ServiceConfig{
			BaseURL:        "http://localhost:8000",
			HealthPath:     defaultServiceHealthPath,
			TimeoutSeconds: int(defaultRequestTimeout.Seconds()),
		},
		Models: []ModelEndpoint{
			{Name: "xgboost", Endpoint: "/models/xgboost/predict", HealthPath: "/models/xgboost/health"},
			{Name: "mlp", Endpoint: "/models/mlp/predict", HealthPath: "/models/mlp/health"},
		},
		SampleSize:             defaultSampleSize,
		Seed:                   defaultSeed,
		DisagreementLimit:      defaultDisagreementLimit,
		ResultsDir:             defaultResultsDir,
		Listen:                 defaultListen,
		BenchmarkRatePerMinute: defaultBenchmarkRate,
		Format:                 FormatJSON,
	}
}

// SetDefaults registers Default() on a viper instance so that file values and flags
// layer on top of it.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("service.baseURL", d.Service.BaseURL)
	v.SetDefault("service.healthPath", d.Service.HealthPath)
	v.SetDefault("service.timeout", d.Service.TimeoutSeconds)
	v.SetDefault("models", []map[string]any{
		{"name": d.Models[0].Name, "endpoint": d.Models[0].Endpoint, "healthPath": d.Models[0].HealthPath},
		{"name": d.Models[1].Name, "endpoint": d.Models[1].Endpoint, "healthPath": d.Models[1].HealthPath},
	})
	v.SetDefault("sampleSize", d.SampleSize)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("disagreementLimit", d.DisagreementLimit)
	v.SetDefault("resultsDir", d.ResultsDir)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("benchmarkRatePerMinute", d.BenchmarkRatePerMinute)
	v.SetDefault("debug", false)
	v.SetDefault("jsonMode", false)
	v.SetDefault("format", d.Format)
}

// RequestTimeout returns the timeout duration for service requests, falling back to the default if not specified.
func (c Config) RequestTimeout() time.Duration {
	if c.Service.TimeoutSeconds <= 0 {
		return defaultRequestTimeout
	}
	return time.Duration(c.Service.TimeoutSeconds) * time.Second
}

// LogFilePath returns the path to the application log file, applying a default if not set.
func (c Config) LogFilePath() string {
	if path := c.LogFile; strings.TrimSpace(path) != "" {
		return path
	}
	return "nidsbench.log"
}

// ResultsPath returns the directory benchmark records are written to.
func (c Config) ResultsPath() string {
	if dir := strings.TrimSpace(c.ResultsDir); dir != "" {
		return dir
	}
	return defaultResultsDir
}

// OutputFormat returns the normalised results format.
func (c Config) OutputFormat() string {
	if strings.EqualFold(strings.TrimSpace(c.Format), FormatYAML) {
		return FormatYAML
	}
	return FormatJSON
}

// BenchmarkInterval is the minimum spacing between benchmark requests on the HTTP API.
// Zero disables the limit.
func (c Config) BenchmarkInterval() time.Duration {
	if c.BenchmarkRatePerMinute <= 0 {
		return 0
	}
	return time.Minute / time.Duration(c.BenchmarkRatePerMinute)
}

// Validate checks the settings every command relies on.
func (c Config) Validate() error {
	var errs []error
	if c.SampleSize < 1 || c.SampleSize > MaxSampleSize {
		errs = append(errs, fmt.Errorf("sampleSize must be between 1 and %d, got %d", MaxSampleSize, c.SampleSize))
	}
	if c.DisagreementLimit < 0 {
		errs = append(errs, fmt.Errorf("disagreementLimit must not be negative, got %d", c.DisagreementLimit))
	}
	switch f := strings.ToLower(strings.TrimSpace(c.Format)); f {
	case "", FormatJSON, FormatYAML:
	default:
		errs = append(errs, fmt.Errorf("format must be %q or %q, got %q", FormatJSON, FormatYAML, c.Format))
	}
	return errors.Join(errs...)
}

// ValidateService checks the settings needed to talk to the inference service.
func (c Config) ValidateService() error {
	var errs []error
	u, err := url.Parse(strings.TrimSpace(c.Service.BaseURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("service.baseURL must be an absolute http(s) URL, got %q", c.Service.BaseURL))
	}
	if len(c.Models) != 2 {
		errs = append(errs, fmt.Errorf("exactly two models are required for a comparison, got %d", len(c.Models)))
	}
	seen := make(map[string]bool)
	for i, m := range c.Models {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			errs = append(errs, fmt.Errorf("models[%d].name is required", i))
		} else if seen[name] {
			errs = append(errs, fmt.Errorf("models[%d].name %q is used twice", i, name))
		}
		seen[name] = true
		if strings.TrimSpace(m.Endpoint) == "" {
			errs = append(errs, fmt.Errorf("models[%d].endpoint is required", i))
		}
	}
	return errors.Join(errs...)
}

// Load reads the application configuration from the specified path on top of the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultConfigPath
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("could not read config file %q: %w", path, err)
	}

	cfg, err := Decode(v)
	if err != nil {
		return Config{}, err
	}
	cfg.ConfigPath = path
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return cfg, nil
}

// Decode materialises the merged viper state (flags > file > defaults) into a Config.
func Decode(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Service.TimeoutSeconds <= 0 {
		cfg.Service.TimeoutSeconds = int(defaultRequestTimeout.Seconds())
	}
	if strings.TrimSpace(cfg.Service.HealthPath) == "" {
		cfg.Service.HealthPath = defaultServiceHealthPath
	}
	cfg.ConfigPath = v.ConfigFileUsed()
	return cfg, nil
}
