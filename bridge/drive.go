// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package bridge connects front ends to the node engine: it evaluates JSON
// sheets of basic analog modules, drives sessions through a sequence of waves
// and exports results in the layout expected by the web interface.
//
package bridge

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/db47h/dase"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// A Job describes a sequence of waves over a fixed set of nodes.
//
type Job struct {
	Name string
	// Engine arena size and worker count, as passed to dase.NewEngine. They
	// are only used by RunBatch.
	Capacity int
	Workers  int
	Nodes    int
	// Pattern assigns roles to nodes. If nil, all nodes are Worker nodes.
	Pattern func(i int) dase.Role
	// Inputs holds the base input of each wave.
	Inputs []float64
	// SwitchEvery rotates Pattern by one node every SwitchEvery waves. If 0,
	// the pattern is applied once before the first wave.
	SwitchEvery int
}

// WaveRef returns the cell reference holding the output of wave w: waves are
// laid out down column A starting at A1.
//
func WaveRef(w int) string {
	return "A" + strconv.Itoa(w+1)
}

// Drive configures s for j and runs its waves. The output of each wave is
// stored in cell WaveRef(wave) and the final node states in Nodes. Non-finite
// outputs and node values are reported as errors and mark the results as
// failed.
//
// Drive checks ctx between waves.
//
func Drive(ctx context.Context, s *dase.Session, j Job) (*Results, error) {
	start := time.Now()
	if err := s.Configure(j.Nodes); err != nil {
		return nil, errors.WithMessagef(err, "job %q", j.Name)
	}
	r := NewResults()
	r.Name = j.Name
	for w, in := range j.Inputs {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "job %q: wave %d", j.Name, w)
		}
		if p := dase.RotatedPattern(j.Pattern, w, j.SwitchEvery); p != nil {
			if _, err := s.SwitchRoles(p); err != nil {
				return nil, errors.WithMessagef(err, "job %q: wave %d", j.Name, w)
			}
		}
		r.add(WaveRef(w), computed(s.Step(in)))
	}
	st := s.Stats()
	r.addNodes(s.Snapshot())
	r.Performance = newPerformance(time.Since(start), int(st.Executions), "universal")
	r.Performance.RoleSwitches = st.Switches
	return r, nil
}

// RunBatch runs every job on its own engine, concurrently, and returns the
// results in job order. Engines are built with opts. The first failing job
// cancels the others.
//
func RunBatch(ctx context.Context, jobs []Job, opts ...dase.Option) ([]*Results, error) {
	res := make([]*Results, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range jobs {
		i := i
		g.Go(func() error {
			s := dase.NewSession(dase.NewEngine(jobs[i].Capacity, jobs[i].Workers, opts...))
			defer s.Close()
			r, err := Drive(ctx, s, jobs[i])
			if err != nil {
				return err
			}
			res[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
