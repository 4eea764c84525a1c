// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package config_test

import (
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/db47h/dase"
	"github.com/db47h/dase/internal/config"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c := config.Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, dase.DefaultCapacity, c.Capacity)
	assert.Equal(t, 100, c.Nodes)
	assert.Equal(t, []float64{1}, c.Inputs)

	p, err := c.Pattern()
	require.NoError(t, err)
	assert.Equal(t, dase.Worker, p.At(42))
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := `
capacity: 512
workers: 4
nodes: 300
roles: "cyclic, 0..9=kernel"
inputs: [0.5, 1, 1.5]
switch_every: 2
log_level: debug
metrics: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	c, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Config{
		Capacity:    512,
		Workers:     4,
		Nodes:       300,
		Roles:       "cyclic, 0..9=kernel",
		Inputs:      []float64{0.5, 1, 1.5},
		SwitchEvery: 2,
		LogLevel:    "debug",
		Metrics:     true,
	}, c)

	p, err := c.Pattern()
	require.NoError(t, err)
	assert.Equal(t, dase.Kernel, p.At(3))
	assert.Equal(t, dase.Comm, p.At(13))

	l, err := c.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, l)
}

func TestLoad_partial(t *testing.T) {
	c, err := config.Parse([]byte("nodes: 12\n"))
	require.NoError(t, err)
	def := config.Default()
	def.Nodes = 12
	assert.Equal(t, def, c)
}

func TestLoad_nonFinite(t *testing.T) {
	_, err := config.Parse([]byte("inputs: [1, .inf]\n"))
	assert.EqualError(t, err, "inputs[1]: non-finite value +Inf")
}

func TestLoad_missing(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(errors.Cause(err)))
}

func TestValidate(t *testing.T) {
	td := []struct {
		name string
		mod  func(*config.Config)
		err  string
	}{
		{"capacity", func(c *config.Config) { c.Capacity = -1 }, "invalid capacity -1"},
		{"workers", func(c *config.Config) { c.Workers = -2 }, "invalid worker count -2"},
		{"nodes", func(c *config.Config) { c.Capacity, c.Nodes = 10, 11 }, "11 nodes, capacity 10: node count exceeds engine capacity"},
		{"switch", func(c *config.Config) { c.SwitchEvery = -1 }, "invalid switch_every -1"},
		{"inputs", func(c *config.Config) { c.Inputs = []float64{1, math.Inf(-1)} }, "inputs[1]: non-finite value -Inf"},
		{"nan", func(c *config.Config) { c.Inputs = []float64{math.NaN()} }, "inputs[0]: non-finite value NaN"},
		{"roles", func(c *config.Config) { c.Roles = "worker*" }, `roles: in "worker*" at pos 8: repeat count expected after '*'`},
		{"level", func(c *config.Config) { c.LogLevel = "loud" }, `log_level: slog: level string "loud"`},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			c := config.Default()
			d.mod(&c)
			assert.ErrorContains(t, c.Validate(), d.err)
		})
	}

	c := config.Default()
	c.Capacity, c.Nodes = 0, dase.DefaultCapacity
	assert.NoError(t, c.Validate(), "capacity 0 selects the default arena size")
	c.Nodes++
	assert.Equal(t, dase.ErrCapacityExceeded, errors.Cause(c.Validate()))
}
