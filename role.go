// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dase

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Role selects the computation rule and state shape of a Node.
//
type Role uint8

// Node roles.
//
const (
	Worker Role = iota
	Comm
	Vector
	Processor
	Markov
	Kernel

	roleCount = iota
)

// Roles lists all valid roles in declaration order.
//
var Roles = [roleCount]Role{Worker, Comm, Vector, Processor, Markov, Kernel}

var roleNames = [roleCount]string{"worker", "comm", "vector", "processor", "markov", "kernel"}

// Computation constants.
//
const (
	IntegrationConstant = 0.01 // Worker integration step
	CommConstant        = 0.01 // Comm output offset per message
	SpreadConstant      = 0.1  // per-index input spread in a wave
	vectorSeedScale     = 0.1
)

// Valid returns true if r is one of the declared roles.
//
func (r Role) Valid() bool { return r < roleCount }

func (r Role) String() string {
	if !r.Valid() {
		return "role(" + strconv.Itoa(int(r)) + ")"
	}
	return roleNames[r]
}

// ParseRole returns the role with the given name. The match is case
// insensitive.
//
func ParseRole(name string) (Role, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, rn := range roleNames {
		if rn == n {
			return Role(i), nil
		}
	}
	return 0, errors.Errorf("unknown role %q", name)
}

// MarshalText implements encoding.TextMarshaler.
//
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, errors.Errorf("invalid role %d", r)
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
//
func (r *Role) UnmarshalText(text []byte) error {
	v, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// RoleState is the state record of a node's current role. The concrete type is
// one of *WorkerState, *CommState, *VectorState, *ProcessorState, *MarkovState
// or *KernelState.
//
type RoleState interface {
	Role() Role
	exec(x float64) float64
}

// WorkerState is an amplifier + integrator hybrid.
//
type WorkerState struct {
	Gain          float64
	Accumulator   float64
	PreviousValue float64
}

// Role implements RoleState.
func (*WorkerState) Role() Role { return Worker }

func (s *WorkerState) exec(x float64) float64 {
	r := x * s.Gain
	s.Accumulator += r * IntegrationConstant
	s.PreviousValue = x
	return r + s.Accumulator
}

// CommState counts calls and offsets its output by the message count.
//
type CommState struct {
	MessageCount uint32
	RoutingTable [6]uint8
}

// Role implements RoleState.
func (*CommState) Role() Role { return Comm }

func (s *CommState) exec(x float64) float64 {
	s.MessageCount++
	return x + float64(s.MessageCount)*CommConstant
}

// VectorState computes the dot product of its data lanes against the input
// broadcast across all lanes.
//
type VectorState struct {
	Data      [8]float32
	Threshold float32
}

// Role implements RoleState.
func (*VectorState) Role() Role { return Vector }

func (s *VectorState) exec(x float64) float64 {
	var sim float32
	xf := float32(x)
	for _, d := range s.Data {
		sim += d * xf
	}
	return float64(sim)
}

// ProcessorState is a toy register machine.
//
type ProcessorState struct {
	Registers      [4]uint32
	ProgramCounter uint16
}

// Role implements RoleState.
func (*ProcessorState) Role() Role { return Processor }

func (s *ProcessorState) exec(x float64) float64 {
	s.Registers[1] = s.Registers[0] + toUint32(math.Round(x))
	s.ProgramCounter++
	return float64(s.Registers[1])
}

// MarkovState walks a bounded 4 state chain.
//
type MarkovState struct {
	State       uint8
	Transitions [4]float32
}

// Role implements RoleState.
func (*MarkovState) Role() Role { return Markov }

func (s *MarkovState) exec(x float64) float64 {
	s.State = uint8(mod4(math.Floor(x*4) + float64(s.State)))
	return float64(s.State) + x
}

// KernelState is an exponentially decaying scalar.
//
type KernelState struct {
	Influence float64
	Decay     float64
}

// Role implements RoleState.
func (*KernelState) Role() Role { return Kernel }

func (s *KernelState) exec(x float64) float64 {
	s.Influence *= s.Decay
	return s.Influence + x
}

// newState returns a default state record for role r, seeded from the value
// carried over from the previous role. x, y, z are the node coordinates.
//
func newState(r Role, carried float64, x, y, z int16) RoleState {
	switch r {
	case Worker:
		return &WorkerState{Gain: 1, Accumulator: carried}
	case Comm:
		return &CommState{}
	case Vector:
		s := &VectorState{Threshold: 0.8}
		base := int(x) + int(y) + int(z)
		for i := range s.Data {
			s.Data[i] = float32(math.Sin(float64(base+i) * vectorSeedScale))
		}
		return s
	case Processor:
		s := &ProcessorState{}
		s.Registers[0] = toUint32(carried)
		return s
	case Markov:
		return &MarkovState{
			State:       uint8(mod4(math.Trunc(carried))),
			Transitions: [4]float32{0.25, 0.25, 0.25, 0.25},
		}
	case Kernel:
		return &KernelState{Influence: carried, Decay: 0.9}
	}
	panic("invalid role " + r.String())
}

// toUint32 converts v to a register value. Negative, NaN and out of range
// values saturate.
//
func toUint32(v float64) uint32 {
	switch {
	case !(v > 0): // also catches NaN
		return 0
	case v >= math.MaxUint32:
		return math.MaxUint32
	}
	return uint32(v)
}

// mod4 returns the non-negative remainder of the integral value v divided by
// 4. Non-finite values yield 0.
//
func mod4(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	m := math.Mod(v, 4)
	if m < 0 {
		m += 4
	}
	return int(m)
}
