package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"gitlab.com/sysmon-2025.net/internal/agent"
	"gitlab.com/sysmon-2025.net/internal/tcp/defs"
)

// AgentConfig holds the collector agent's configuration.
type AgentConfig struct {
	ServerAddress  string        `yaml:"server_address"`
	IdentityPath   string        `yaml:"identity_path"`
	SampleInterval time.Duration `yaml:"sample_interval"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	IOTimeout      time.Duration `yaml:"io_timeout"`
	MaxPending     int           `yaml:"max_pending"`
	OverflowPolicy string        `yaml:"overflow_policy"`
	BackoffInitial time.Duration `yaml:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max"`
	Debug          bool          `yaml:"debug"`
}

// DefaultAgentConfig returns the configuration used when no file exists.
func DefaultAgentConfig() *AgentConfig {
	queue := agent.DefaultQueueConfig()
	loop := agent.DefaultConfig()

	return &AgentConfig{
		ServerAddress:  defs.DefaultCollectorAddress,
		IdentityPath:   "uuid",
		SampleInterval: loop.SampleInterval,
		DialTimeout:    5 * time.Second,
		IOTimeout:      10 * time.Second,
		MaxPending:     queue.MaxPending,
		OverflowPolicy: string(queue.OverflowPolicy),
		BackoffInitial: loop.BackoffInitial,
		BackoffMax:     loop.BackoffMax,
	}
}

// LoadAgentConfig reads the configuration from path. Keys missing from the
// file keep their defaults; a missing file yields the defaults.
func LoadAgentConfig(path string) (*AgentConfig, error) {
	cfg := DefaultAgentConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration can run an agent.
func (c *AgentConfig) Validate() error {
	if c.ServerAddress == "" {
		return errors.New("server_address is required")
	}
	if c.IdentityPath == "" {
		return errors.New("identity_path is required")
	}
	if c.SampleInterval <= 0 {
		return errors.New("sample_interval must be positive")
	}
	if c.DialTimeout < 0 || c.IOTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.MaxPending < 0 {
		return errors.New("max_pending must not be negative")
	}
	if err := agent.OverflowPolicy(c.OverflowPolicy).Validate(); err != nil {
		return err
	}
	if c.BackoffInitial < 0 || c.BackoffMax < 0 {
		return errors.New("backoff must not be negative")
	}
	if c.BackoffInitial > 0 && c.BackoffMax > 0 && c.BackoffMax < c.BackoffInitial {
		return errors.New("backoff_max must not be less than backoff_initial")
	}
	return nil
}

// QueueConfig returns the delivery queue settings.
func (c *AgentConfig) QueueConfig() agent.QueueConfig {
	return agent.QueueConfig{
		MaxPending:     c.MaxPending,
		OverflowPolicy: agent.OverflowPolicy(c.OverflowPolicy),
	}
}

// LoopConfig returns the sampling loop settings.
func (c *AgentConfig) LoopConfig() agent.Config {
	return agent.Config{
		SampleInterval: c.SampleInterval,
		BackoffInitial: c.BackoffInitial,
		BackoffMax:     c.BackoffMax,
	}
}
