// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dase

// A Node is a single computational unit of an Engine. Its behavior is selected
// by its current Role and it holds exactly one role state record at a time.
//
// A Node is not safe for concurrent use. Within an Engine, a node is only ever
// touched by the worker that owns its index for the duration of a wave.
//
type Node struct {
	id      int
	x, y, z int16
	role    Role
	value   float64
	state   RoleState

	switches   uint64
	executions uint64
}

// NewNode returns a Worker node with the given id and coordinates.
//
func NewNode(id int, x, y, z int16) *Node {
	n := &Node{id: id, x: x, y: y, z: z}
	n.Reset()
	return n
}

func (n *Node) init(id int, x, y, z int16) {
	n.id, n.x, n.y, n.z = id, x, y, z
	n.Reset()
}

// Execute computes the node output for input x under the current role rule,
// updates the role state in place and returns the new output.
//
func (n *Node) Execute(x float64) float64 {
	n.value = n.state.exec(x)
	n.executions++
	return n.value
}

// SwitchRole switches the node to role r. It returns false and leaves the node
// untouched if r is the current role.
//
// The old role state is dropped and replaced by a default record for r, seeded
// from the node's current value:
//
//	Worker: accumulator = value
//	Comm: not seeded
//	Vector: data lanes derived from the node coordinates
//	Processor: registers[0] = value
//	Markov: state = value mod 4
//	Kernel: influence = value
//
// SwitchRole panics if r is not a valid role.
//
func (n *Node) SwitchRole(r Role) bool {
	if r == n.role {
		return false
	}
	if !r.Valid() {
		panic("dase: invalid role " + r.String())
	}
	n.state = newState(r, n.value, n.x, n.y, n.z)
	n.role = r
	n.switches++
	return true
}

// Reset returns the node to role Worker with default state, a zero value and
// cleared switch and execution counters.
//
func (n *Node) Reset() {
	n.role = Worker
	n.value = 0
	n.state = newState(Worker, 0, n.x, n.y, n.z)
	n.switches = 0
	n.executions = 0
}

// ID returns the node index within its engine.
func (n *Node) ID() int { return n.id }

// Coords returns the node's layout coordinates. They play no part in
// computation besides seeding the Vector role.
//
func (n *Node) Coords() (x, y, z int16) { return n.x, n.y, n.z }

// Role returns the current role.
func (n *Node) Role() Role { return n.role }

// Value returns the last output.
func (n *Node) Value() float64 { return n.value }

// State returns the current role state record. Callers must not retain or
// modify it across waves.
//
func (n *Node) State() RoleState { return n.state }

// Switches returns the number of effective role switches.
func (n *Node) Switches() uint64 { return n.switches }

// Executions returns the number of Execute calls.
func (n *Node) Executions() uint64 { return n.executions }
