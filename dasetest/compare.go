// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package dasetest provides utility functions for testing engines.
//
package dasetest

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/db47h/dase"
)

// A Run describes a reproducible engine workload.
//
type Run struct {
	Nodes int
	// Pattern assigns roles to nodes. If nil, all nodes stay Worker nodes.
	Pattern func(i int) dase.Role
	// SwitchEvery rotates the pattern by one node every SwitchEvery waves.
	// If 0, the pattern is applied once before the first wave.
	SwitchEvery int
	// Base inputs, one wave per input.
	Inputs []float64
	// Reducer used to aggregate waves. Defaults to dase.Mean.
	Reducer dase.Reducer
}

// Exec runs r on a fresh engine with the given number of workers and returns
// the aggregate output of every wave.
//
func Exec(t testing.TB, workers int, r Run) []float64 {
	t.Helper()

	e := dase.NewEngine(r.Nodes, workers)
	defer e.Dispose()

	if err := e.Initialize(r.Nodes); err != nil {
		t.Fatal(err)
	}
	red := r.Reducer
	if red == nil {
		red = dase.Mean
	}
	out := make([]float64, 0, len(r.Inputs))
	for w, in := range r.Inputs {
		if p := dase.RotatedPattern(r.Pattern, w, r.SwitchEvery); p != nil {
			if _, err := e.PerformRoleSwitch(p); err != nil {
				t.Fatal(err)
			}
		}
		out = append(out, e.ExecuteWaveReduce(in, red))
	}
	return out
}

// CompareRuns executes r once per given worker count and fails if the
// aggregate outputs are not bit for bit identical across all runs.
//
func CompareRuns(t *testing.T, r Run, workers ...int) {
	t.Helper()

	if len(workers) < 2 {
		t.Fatal("CompareRuns needs at least two worker counts")
	}
	start := time.Now()
	ref := Exec(t, workers[0], r)
	for _, w := range workers[1:] {
		got := Exec(t, w, r)
		for i := range ref {
			if math.Float64bits(ref[i]) != math.Float64bits(got[i]) {
				t.Fatalf("wave %d: %d workers => %v, %d workers => %v", i, workers[0], ref[i], w, got[i])
			}
		}
	}
	elapsed := time.Since(start)
	waves := len(ref) * len(workers)
	t.Logf("%d nodes. %d waves in %v => %.2f waves/s", r.Nodes, waves, elapsed, float64(waves)/elapsed.Seconds())
}

// RandomInputs returns n pseudo-random base inputs in [0.1, 10) generated from
// seed.
//
func RandomInputs(seed int64, n int) []float64 {
	rnd := rand.New(rand.NewSource(seed))
	in := make([]float64, n)
	for i := range in {
		in[i] = 0.1 + rnd.Float64()*9.9
	}
	return in
}

// RandomPattern returns a deterministic pseudo-random role pattern for up to
// size nodes. Indices past size wrap around.
//
func RandomPattern(seed int64, size int) func(i int) dase.Role {
	if size <= 0 {
		size = 1
	}
	rnd := rand.New(rand.NewSource(seed))
	roles := make([]dase.Role, size)
	for i := range roles {
		roles[i] = dase.Roles[rnd.Intn(len(dase.Roles))]
	}
	return func(i int) dase.Role { return roles[i%size] }
}
