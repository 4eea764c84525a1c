// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package config loads engine run configurations from YAML files.
//
package config

import (
	"log/slog"
	"math"
	"os"
	"strings"

	"github.com/db47h/dase"
	"github.com/db47h/dase/internal/pattern"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config describes a single engine run.
//
type Config struct {
	// Engine arena size. 0 selects dase.DefaultCapacity.
	Capacity int `json:"capacity" yaml:"capacity"`
	// Worker pool size. 0 selects GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`
	// Number of active nodes.
	Nodes int `json:"nodes" yaml:"nodes"`
	// Role pattern, see package pattern.
	Roles string `json:"roles" yaml:"roles"`
	// Base input of each wave, in order.
	Inputs []float64 `json:"inputs" yaml:"inputs"`
	// Waves between role pattern rotations. 0 applies the pattern once
	// before the first wave.
	SwitchEvery int    `json:"switch_every" yaml:"switch_every"`
	LogLevel    string `json:"log_level" yaml:"log_level"`
	Metrics     bool   `json:"metrics" yaml:"metrics"`
}

// Default returns the default configuration: 100 worker nodes driven by a
// single wave with base input 1.
//
func Default() Config {
	return Config{
		Capacity: dase.DefaultCapacity,
		Nodes:    100,
		Roles:    "worker",
		Inputs:   []float64{1},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path. Fields missing from the file keep their
// Default value. The result is validated.
//
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	return Parse(data)
}

// Parse is like Load but reads the configuration from data.
//
func Parse(data []byte) (Config, error) {
	c := Default()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks c for consistency.
//
func (c *Config) Validate() error {
	capacity := c.Capacity
	if capacity <= 0 {
		capacity = dase.DefaultCapacity
	}
	switch {
	case c.Capacity < 0:
		return errors.Errorf("invalid capacity %d", c.Capacity)
	case c.Workers < 0:
		return errors.Errorf("invalid worker count %d", c.Workers)
	case c.Nodes < 0 || c.Nodes > capacity:
		return errors.Wrapf(dase.ErrCapacityExceeded, "%d nodes, capacity %d", c.Nodes, capacity)
	case c.SwitchEvery < 0:
		return errors.Errorf("invalid switch_every %d", c.SwitchEvery)
	}
	for i, in := range c.Inputs {
		if math.IsNaN(in) || math.IsInf(in, 0) {
			return errors.Errorf("inputs[%d]: non-finite value %v", i, in)
		}
	}
	if _, err := c.Pattern(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Pattern returns the parsed role pattern.
//
func (c *Config) Pattern() (*pattern.Pattern, error) {
	p, err := pattern.Parse(c.Roles)
	return p, errors.WithMessage(err, "roles")
}

// Level returns the configured log level. An empty level is slog.LevelInfo.
//
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if strings.TrimSpace(c.LogLevel) == "" {
		return l, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, errors.Wrap(err, "log_level")
	}
	return l, nil
}
