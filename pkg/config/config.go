// Package config loads event loop settings from YAML.
//
//	entries: 256
//	flags: [single_issuer, coop_taskrun]
//	log:
//	  level: info
//	  format: console
//	metrics:
//	  enabled: true
//	  namespace: uring
package config

import (
	"os"

	"github.com/brickingsoft/errors"
	"github.com/brickingsoft/uring"
	"github.com/brickingsoft/uring/pkg/ring"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.Define("config: invalid configuration")

type Config struct {
	Entries uint32          `yaml:"entries" validate:"omitempty,min=1,max=32768"`
	Flags   []string        `yaml:"flags" validate:"dive,oneof=iopoll sqpoll clamp submit_all coop_taskrun taskrun_flag single_issuer defer_taskrun"`
	Log     uring.LogConfig `yaml:"log"`
	Metrics Metrics         `yaml:"metrics"`
}

type Metrics struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace" validate:"omitempty,alphanum"`
}

// Default is the configuration used when no file is given.
func Default() *Config {
	return &Config{Entries: uring.DefaultEntries}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.From(ErrInvalid, errors.WithWrap(err))
	}
	return ParseConfig(data)
}

// ParseConfig decodes and validates data. Unset fields keep their defaults.
func ParseConfig(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.From(ErrInvalid, errors.WithWrap(err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.From(ErrInvalid, errors.WithWrap(err))
	}
	return nil
}

// Options turns c into event loop options. reg receives the loop metrics when
// they are enabled; a nil reg means prometheus.DefaultRegisterer.
func (c *Config) Options(reg prometheus.Registerer) ([]uring.Option, error) {
	flags, err := ring.ParseSetupFlags(c.Flags...)
	if err != nil {
		return nil, errors.From(ErrInvalid, errors.WithWrap(err))
	}
	options := []uring.Option{
		uring.WithEntries(c.Entries),
		uring.WithFlags(flags),
		uring.WithLogConfig(c.Log),
	}
	if c.Metrics.Enabled {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		options = append(options, uring.WithMetrics(reg, c.Metrics.Namespace))
	}
	return options, nil
}
