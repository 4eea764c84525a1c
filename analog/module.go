// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package analog provides the basic analog computer modules: amplifiers,
// summers and integrators, as well as the control signal driven universal node.
//
// Unlike dase.Node, these modules have a single fixed behavior. They share the
// Module contract.
//
package analog

// DefaultTimeStep is the integration time step of a new Integrator.
//
const DefaultTimeStep = 0.01

// A Module is a single-role analog computing element.
//
type Module interface {
	// Process computes a new output from input x and returns it.
	Process(x float64) float64
	// Output returns the output of the last Process call.
	Output() float64
	// Reset returns the module to its initial state.
	Reset()
	// Name returns the module instance name.
	Name() string
	// Type returns the module type name.
	Type() string
}

type base struct {
	name string
	out  float64
}

func (b *base) Output() float64 { return b.out }
func (b *base) Name() string    { return b.name }
func (b *base) Reset()          { b.out = 0 }

// Amplifier multiplies its input by a gain.
//
//	Function: out = x * gain
//
type Amplifier struct {
	base
	Gain float64
}

// NewAmplifier returns a new amplifier.
//
func NewAmplifier(name string, gain float64) *Amplifier {
	return &Amplifier{base{name: name}, gain}
}

// Process implements Module.
func (a *Amplifier) Process(x float64) float64 {
	a.out = x * a.Gain
	return a.out
}

// Type implements Module.
func (*Amplifier) Type() string { return "Amplifier" }

// Summer adds its inputs.
//
//	Function: out = x0 + x1 + ... + xn
//
type Summer struct {
	base
}

// NewSummer returns a new summer.
//
func NewSummer(name string) *Summer {
	return &Summer{base{name: name}}
}

// Process implements Module. With a single input, a summer is a pass-through.
func (s *Summer) Process(x float64) float64 {
	s.out = x
	return s.out
}

// ProcessInputs sets the output to the sum of xs and returns it.
//
func (s *Summer) ProcessInputs(xs ...float64) float64 {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	s.out = sum
	return sum
}

// Type implements Module.
func (*Summer) Type() string { return "Summer" }

// Integrator accumulates its input over time.
//
//	Function: acc(t) = acc(t-1) + x*dt
//	          out = acc(t)
//
type Integrator struct {
	base
	acc float64
	DT  float64
}

// NewIntegrator returns a new integrator with time step dt. If dt is 0,
// DefaultTimeStep is used.
//
func NewIntegrator(name string, dt float64) *Integrator {
	if dt == 0 {
		dt = DefaultTimeStep
	}
	return &Integrator{base: base{name: name}, DT: dt}
}

// Process implements Module.
func (i *Integrator) Process(x float64) float64 {
	i.acc += x * i.DT
	i.out = i.acc
	return i.out
}

// Reset clears the accumulated value and the output.
func (i *Integrator) Reset() {
	i.acc = 0
	i.out = 0
}

// Type implements Module.
func (*Integrator) Type() string { return "Integrator" }
