package hfsm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the engine settings that are not part of the state graph
type Config struct {
	// Name labels the machine in logs and metrics
	Name string `yaml:"name"`
	// HistoryActive enables recording of exited states
	HistoryActive bool `yaml:"historyActive"`
	// HistoryCapacity bounds the history buffer; the oldest entries are trimmed
	HistoryCapacity int `yaml:"historyCapacity"`
	// PendingQueueCapacity bounds transitions requested while one is in flight
	PendingQueueCapacity int `yaml:"pendingQueueCapacity"`
	// MaxEventsPerTick bounds how many queued events one Process call drains
	MaxEventsPerTick int `yaml:"maxEventsPerTick"`
	// CooldownMode selects the loop that advances cooldowns and the history clock
	CooldownMode ProcessMode `yaml:"cooldownMode"`
	// LogLevel and LogFormat configure the default zap logger
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

const (
	defaultHistoryCapacity      = 32
	defaultPendingQueueCapacity = 20
	defaultMaxEventsPerTick     = 64
)

// DefaultConfig returns the settings used by NewMachine
func DefaultConfig() Config {
	return Config{
		Name:                 "StateMachine",
		HistoryActive:        true,
		HistoryCapacity:      defaultHistoryCapacity,
		PendingQueueCapacity: defaultPendingQueueCapacity,
		MaxEventsPerTick:     defaultMaxEventsPerTick,
		CooldownMode:         ProcessIdle,
		LogLevel:             "WARN",
		LogFormat:            FormatConsole,
	}
}

// Validate checks the numeric bounds
func (c Config) Validate() error {
	if c.HistoryCapacity <= 0 {
		return NewConfigurationError("Config", fmt.Sprintf("historyCapacity must be positive, got %d", c.HistoryCapacity))
	}
	if c.PendingQueueCapacity <= 0 {
		return NewConfigurationError("Config", fmt.Sprintf("pendingQueueCapacity must be positive, got %d", c.PendingQueueCapacity))
	}
	if c.MaxEventsPerTick <= 0 {
		return NewConfigurationError("Config", fmt.Sprintf("maxEventsPerTick must be positive, got %d", c.MaxEventsPerTick))
	}
	return nil
}

// ParseConfig reads YAML on top of DefaultConfig
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse machine config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read machine config %s: %w", path, err)
	}
	return ParseConfig(data)
}

// Option customizes a machine at construction
type Option func(*options)

type options struct {
	config Config
	logger Logger
}

// WithConfig replaces the default configuration
func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.config = cfg
	}
}

// WithName sets Config.Name
func WithName(name string) Option {
	return func(o *options) {
		o.config.Name = name
	}
}

// WithLogger sets the logging sink
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}
