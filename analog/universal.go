// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package analog

import (
	"math"

	"github.com/db47h/dase"
)

// Control signal thresholds of a Universal node.
//
const (
	IntegrateAbove      = 0.5
	DifferentiateBelow  = -0.5
	universalIntegStep  = 0.1
	minFeedback         = 0.1
	maxFeedback         = 10.0
	cellularControlSpan = 0.3
)

// Mode is the behavior selected by a Universal node's control signal.
//
type Mode uint8

// Universal node modes.
//
const (
	Inverting Mode = iota
	Amplifying
	Integrating
	Differentiating
)

var modeNames = [...]string{"inverting", "amplifying", "integrating", "differentiating"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "mode(?)"
}

// ModeOf returns the mode selected by control signal c.
//
//	c > 0.5:        Integrating
//	c < -0.5:       Differentiating
//	0 < c <= 0.5:   Amplifying
//	-0.5 <= c <= 0: Inverting
//
func ModeOf(c float64) Mode {
	switch {
	case c > IntegrateAbove:
		return Integrating
	case c < DifferentiateBelow:
		return Differentiating
	case c > 0:
		return Amplifying
	}
	return Inverting
}

// Universal is an analog node whose function is selected on every call by a
// control signal, the way op-amp feedback selects the function of an analog
// computing element.
//
type Universal struct {
	X, Y, Z int16
	ID      int

	out      float64
	integ    float64
	prev     float64
	feedback float64
	ops      uint64
}

// NewUniversal returns a universal node with unit feedback.
//
func NewUniversal(id int, x, y, z int16) *Universal {
	return &Universal{ID: id, X: x, Y: y, Z: z, feedback: 1}
}

// ProcessSignal processes input x in the mode selected by control c and
// returns the output.
//
func (u *Universal) ProcessSignal(x, c float64) float64 {
	u.ops++
	var r float64
	switch ModeOf(c) {
	case Integrating:
		u.integ += x * universalIntegStep
		r = u.integ * u.feedback
	case Differentiating:
		r = (x - u.prev) * u.feedback
		u.prev = x
	case Amplifying:
		r = x * (1 + c) * u.feedback
	default:
		r = -x * (1 + math.Abs(c)) * u.feedback
	}
	u.out = r
	return r
}

// SetFeedback sets the feedback coefficient, clamped to [0.1, 10].
//
func (u *Universal) SetFeedback(f float64) {
	u.feedback = math.Max(minFeedback, math.Min(maxFeedback, f))
}

// Feedback returns the feedback coefficient.
func (u *Universal) Feedback() float64 { return u.feedback }

// ResetIntegrator clears the integrator and differentiator state.
//
func (u *Universal) ResetIntegrator() {
	u.integ = 0
	u.prev = 0
}

// Output returns the last output.
func (u *Universal) Output() float64 { return u.out }

// IntegratorState returns the integrator state.
func (u *Universal) IntegratorState() float64 { return u.integ }

// Operations returns the number of ProcessSignal calls.
func (u *Universal) Operations() uint64 { return u.ops }

// Cellular is a bank of Universal nodes laid out like the nodes of a
// dase.Engine and processed in waves on a persistent worker pool.
//
// Callers must make sure to call Dispose() once the bank is no longer needed.
//
type Cellular struct {
	nodes []Universal
	out   []float64
	sched *dase.WaveScheduler
}

// NewCellular returns a bank of n universal nodes. workers has the same
// meaning as in dase.NewEngine.
//
func NewCellular(n, workers int) *Cellular {
	c := &Cellular{
		nodes: make([]Universal, n),
		out:   make([]float64, n),
		sched: dase.NewWaveScheduler(workers),
	}
	for i := range c.nodes {
		c.nodes[i] = Universal{ID: i, X: int16(i % 10), Y: int16((i / 10) % 10), Z: int16(i / 100), feedback: 1}
	}
	return c
}

// Len returns the number of nodes.
func (c *Cellular) Len() int { return len(c.nodes) }

// Node returns node i. It panics if i is out of range.
func (c *Cellular) Node(i int) *Universal { return &c.nodes[i] }

// ProcessWave feeds input x to every node, node i receiving control signal
// control + 0.3*sin(0.1*i), and returns the mean output, or 0 for an empty
// bank.
//
func (c *Cellular) ProcessWave(x, control float64) float64 {
	if len(c.nodes) == 0 {
		return 0
	}
	nodes, out := c.nodes, c.out
	c.sched.Run(len(nodes), func(i int) {
		ci := control + math.Sin(float64(i)*0.1)*cellularControlSpan
		out[i] = nodes[i].ProcessSignal(x, ci)
	})
	return dase.Mean(out)
}

// SetFeedback sets the feedback coefficient of all nodes.
//
func (c *Cellular) SetFeedback(f float64) {
	for i := range c.nodes {
		c.nodes[i].SetFeedback(f)
	}
}

// ResetIntegrators resets the integrators of all nodes.
//
func (c *Cellular) ResetIntegrators() {
	for i := range c.nodes {
		c.nodes[i].ResetIntegrator()
	}
}

// Dispose stops the worker pool.
func (c *Cellular) Dispose() { c.sched.Close() }
