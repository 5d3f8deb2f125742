package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML can carry values like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std converts back to the standard library type.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the application configuration
type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Redis       RedisConfig     `yaml:"redis"`
	Quotes      QuotesConfig    `yaml:"quotes"`
	Discovery   DiscoveryConfig `yaml:"discovery"`
	Logging     LoggingConfig   `yaml:"logging"`
	Environment string          `yaml:"environment"`
}

type ServerConfig struct {
	Host    string   `yaml:"host"`
	Port    int      `yaml:"port"`
	Timeout Duration `yaml:"timeout"`
}

// RedisConfig configures the optional cache backend. An empty host
// disables caching; nothing else in the service depends on Redis.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type QuotesConfig struct {
	AlphaVantageKey string   `yaml:"alpha_vantage_key"`
	RequestTimeout  Duration `yaml:"request_timeout"`
}

// DiscoveryConfig tunes the ticker discovery pipeline.
type DiscoveryConfig struct {
	Workers         int      `yaml:"workers"`
	EnrichmentDelay Duration `yaml:"enrichment_delay"`
	CandidateFactor int      `yaml:"candidate_factor"`
	DefaultLimit    int      `yaml:"default_limit"`
	MaxLimit        int      `yaml:"max_limit"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	expandEnvVars(config)
	applyDefaults(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// expandEnvVars expands environment variables in string fields
func expandEnvVars(config *Config) {
	config.Quotes.AlphaVantageKey = os.ExpandEnv(config.Quotes.AlphaVantageKey)
	config.Redis.Password = os.ExpandEnv(config.Redis.Password)
}

// applyDefaults fills in values for fields the file may omit
func applyDefaults(config *Config) {
	if config.Server.Timeout == 0 {
		config.Server.Timeout = Duration(120 * time.Second)
	}
	if config.Quotes.RequestTimeout == 0 {
		config.Quotes.RequestTimeout = Duration(30 * time.Second)
	}
	if config.Discovery.Workers == 0 {
		config.Discovery.Workers = 8
	}
	if config.Discovery.EnrichmentDelay == 0 {
		config.Discovery.EnrichmentDelay = Duration(50 * time.Millisecond)
	}
	if config.Discovery.CandidateFactor == 0 {
		config.Discovery.CandidateFactor = 20
	}
	if config.Discovery.DefaultLimit == 0 {
		config.Discovery.DefaultLimit = 50
	}
	if config.Discovery.MaxLimit == 0 {
		config.Discovery.MaxLimit = 200
	}
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
}

// validate ensures the configuration is valid
func validate(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	if config.Discovery.Workers < 1 {
		return fmt.Errorf("discovery workers must be positive: %d", config.Discovery.Workers)
	}

	if config.Discovery.MaxLimit < config.Discovery.DefaultLimit {
		return fmt.Errorf("max limit %d is below default limit %d",
			config.Discovery.MaxLimit, config.Discovery.DefaultLimit)
	}

	return nil
}
