// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dase

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

// DefaultCapacity is the arena size used when NewEngine is given a capacity
// less or equal to 0.
//
const DefaultCapacity = 4096

// A Reducer aggregates the node outputs of a wave. outputs is ordered by node
// index and must not be retained after the call returns.
//
type Reducer func(outputs []float64) float64

// Mean is the default Reducer. It returns the arithmetic mean of outputs, or 0
// if outputs is empty.
//
func Mean(outputs []float64) float64 {
	if len(outputs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range outputs {
		sum += v
	}
	return sum / float64(len(outputs))
}

// Sum is a Reducer returning the sum of outputs.
//
func Sum(outputs []float64) float64 {
	var sum float64
	for _, v := range outputs {
		sum += v
	}
	return sum
}

// An Option configures an Engine.
//
type Option func(*Engine)

// WithLogger sets the engine logger. The default is slog.Default().
//
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithCollector makes the engine report its metrics to c.
//
func WithCollector(c *Collector) Option {
	return func(e *Engine) { e.metrics = c }
}

// An Engine owns a bounded arena of nodes and the worker pool that executes
// them.
//
// The arena is allocated once by NewEngine and never grows, so node addresses
// stay stable for the lifetime of the engine.
//
// An Engine is not reentrant: ExecuteWave, role switches and node accessors
// must not be called concurrently on the same engine. Such misuse is detected
// and reported as ErrConcurrentMisuse. Use a Session for a concurrency safe
// wrapper.
//
// Callers must make sure to call Dispose() once the engine is no longer needed
// in order to release the worker pool.
//
type Engine struct {
	nodes []Node    // arena, len(nodes) == capacity
	out   []float64 // per-node outputs of the last wave
	count int
	waves uint64

	sched   *WaveScheduler
	busy    atomic.Bool
	log     *slog.Logger
	metrics *Collector
}

// NewEngine returns an empty engine with room for capacity nodes.
//
// workers is the number of goroutines used to execute each wave. If less or
// equal to 0, the value of GOMAXPROCS will be used. If capacity is less or
// equal to 0, DefaultCapacity is used.
//
func NewEngine(capacity, workers int, opts ...Option) *Engine {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	e := &Engine{
		nodes: make([]Node, capacity),
		out:   make([]float64, capacity),
		log:   slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	e.sched = NewWaveScheduler(workers)
	e.log.Debug("engine created",
		slog.Int("capacity", capacity),
		slog.Int("workers", e.sched.Workers()))
	return e
}

// enter acquires the engine for op. It fails if the engine is in use or has
// been disposed.
func (e *Engine) enter(op string) error {
	if !e.busy.CompareAndSwap(false, true) {
		return misuseError(op)
	}
	if e.sched.closed {
		e.leave()
		return disposedError(op)
	}
	return nil
}

func (e *Engine) leave() { e.busy.Store(false) }

// Initialize clears the engine and populates it with count Worker nodes with
// zero state. Node i is placed at x = i%10, y = (i/10)%10, z = i/100.
//
// If count exceeds the engine capacity, Initialize returns ErrCapacityExceeded
// and the engine is left untouched.
//
func (e *Engine) Initialize(count int) error {
	if err := e.enter("Initialize"); err != nil {
		return err
	}
	defer e.leave()

	if count < 0 || count > len(e.nodes) {
		e.metrics.capacityError()
		e.log.Warn("initialize rejected",
			slog.Int("count", count),
			slog.Int("capacity", len(e.nodes)))
		return capacityError(count, len(e.nodes))
	}
	for i := 0; i < count; i++ {
		e.nodes[i].init(i, int16(i%10), int16((i/10)%10), int16(i/100))
	}
	e.count = count
	e.waves = 0
	e.log.Debug("engine initialized", slog.Int("nodes", count))
	return nil
}

// ExecuteWave runs one wave: every node i executes once with input
// base + i*SpreadConstant. It returns the mean of all node outputs, or 0 if the
// engine has no nodes.
//
// ExecuteWave panics with an error wrapping ErrConcurrentMisuse if called
// concurrently with any other engine operation, or wrapping ErrDisposed after
// Dispose.
//
func (e *Engine) ExecuteWave(base float64) float64 {
	return e.ExecuteWaveReduce(base, Mean)
}

// ExecuteWaveReduce is like ExecuteWave but aggregates node outputs with r.
// Outputs are passed to r in node index order regardless of the order in which
// workers completed, so identical waves produce bit-identical results. r is
// not called on an empty engine and the wave yields 0.
//
func (e *Engine) ExecuteWaveReduce(base float64, r Reducer) float64 {
	if err := e.enter("ExecuteWave"); err != nil {
		panic(err)
	}
	defer e.leave()

	count := e.count
	if count == 0 {
		return 0
	}
	start := time.Now()
	nodes, out := e.nodes[:count], e.out[:count]
	e.sched.Run(count, func(i int) {
		out[i] = nodes[i].Execute(base + float64(i)*SpreadConstant)
	})
	e.waves++
	e.metrics.wave(count, time.Since(start))
	return r(out)
}

// CyclicRoles assigns roles to nodes by cycling through all roles in
// declaration order.
//
func CyclicRoles(i int) Role {
	return Roles[i%len(Roles)]
}

// Uniform returns a role pattern assigning r to every node.
//
func Uniform(r Role) func(int) Role {
	return func(int) Role { return r }
}

// RotatedPattern returns the role pattern to apply before wave number wave when
// pattern p is rotated by one node every `every` waves, or nil if no switch is
// due before that wave. If every is less or equal to 0, p is applied once,
// before wave 0.
//
func RotatedPattern(p func(i int) Role, wave, every int) func(i int) Role {
	switch {
	case p == nil:
		return nil
	case every <= 0:
		if wave == 0 {
			return p
		}
		return nil
	case wave%every != 0:
		return nil
	}
	shift := wave / every
	if shift == 0 {
		return p
	}
	return func(i int) Role { return p(i + shift) }
}

// PerformRoleSwitch switches every node i to role pattern(i) and returns the
// number of nodes whose role actually changed. pattern must be deterministic;
// it is called twice per node, first to validate all target roles, then to
// apply them. If any target role is invalid, no node is modified.
//
func (e *Engine) PerformRoleSwitch(pattern func(i int) Role) (int, error) {
	if err := e.enter("PerformRoleSwitch"); err != nil {
		return 0, err
	}
	defer e.leave()

	for i := 0; i < e.count; i++ {
		if r := pattern(i); !r.Valid() {
			return 0, errors.Errorf("invalid role %v for node %d", r, i)
		}
	}
	n := 0
	for i := range e.nodes[:e.count] {
		if e.nodes[i].SwitchRole(pattern(i)) {
			n++
		}
	}
	e.metrics.switched(n)
	return n, nil
}

// SetRole switches node i to role r. It reports whether the role changed.
//
func (e *Engine) SetRole(i int, r Role) (bool, error) {
	if err := e.enter("SetRole"); err != nil {
		return false, err
	}
	defer e.leave()

	if i < 0 || i >= e.count {
		return false, indexError(i, e.count)
	}
	if !r.Valid() {
		return false, errors.Errorf("invalid role %v for node %d", r, i)
	}
	ok := e.nodes[i].SwitchRole(r)
	if ok {
		e.metrics.switched(1)
	}
	return ok, nil
}

// Node returns node i. The returned node must not be used while a wave or a
// role switch is in progress.
//
func (e *Engine) Node(i int) (*Node, error) {
	if err := e.enter("Node"); err != nil {
		return nil, err
	}
	defer e.leave()

	if i < 0 || i >= e.count {
		return nil, indexError(i, e.count)
	}
	return &e.nodes[i], nil
}

// NodeSnapshot is the externally visible state of a node.
//
type NodeSnapshot struct {
	Index int     `json:"index" yaml:"index"`
	Role  Role    `json:"role" yaml:"role"`
	Value float64 `json:"value" yaml:"value"`
}

// Snapshot returns the index, role and value of every node, ordered by index.
//
func (e *Engine) Snapshot() ([]NodeSnapshot, error) {
	if err := e.enter("Snapshot"); err != nil {
		return nil, err
	}
	defer e.leave()

	s := make([]NodeSnapshot, e.count)
	for i := range s {
		n := &e.nodes[i]
		s[i] = NodeSnapshot{Index: i, Role: n.role, Value: n.value}
	}
	return s, nil
}

// Reset resets all nodes to role Worker with zero state and counters. The node
// count is preserved.
//
func (e *Engine) Reset() error {
	if err := e.enter("Reset"); err != nil {
		return err
	}
	defer e.leave()

	for i := range e.nodes[:e.count] {
		e.nodes[i].Reset()
	}
	e.waves = 0
	return nil
}

// Stats are cumulative engine counters.
//
type Stats struct {
	Nodes      int    `json:"nodes"`
	Waves      uint64 `json:"waves"`
	Switches   uint64 `json:"switches"`
	Executions uint64 `json:"executions"`
}

// AvgSwitches returns the average number of role switches per node.
//
func (s Stats) AvgSwitches() float64 {
	if s.Nodes == 0 {
		return 0
	}
	return float64(s.Switches) / float64(s.Nodes)
}

// Stats returns the engine counters, summed over all nodes.
//
func (e *Engine) Stats() (Stats, error) {
	if err := e.enter("Stats"); err != nil {
		return Stats{}, err
	}
	defer e.leave()

	st := Stats{Nodes: e.count, Waves: e.waves}
	for i := range e.nodes[:e.count] {
		st.Switches += e.nodes[i].switches
		st.Executions += e.nodes[i].executions
	}
	return st, nil
}

// Len returns the number of active nodes.
func (e *Engine) Len() int { return e.count }

// Cap returns the engine capacity.
func (e *Engine) Cap() int { return len(e.nodes) }

// Waves returns the number of waves executed since the last Initialize or
// Reset.
func (e *Engine) Waves() uint64 { return e.waves }

// Workers returns the size of the worker pool.
func (e *Engine) Workers() int { return e.sched.Workers() }

// Dispose stops the worker pool. Afterwards, engine operations fail with
// ErrDisposed and waves panic with it.
//
func (e *Engine) Dispose() {
	e.sched.Close()
	e.log.Debug("engine disposed", slog.Int("nodes", e.count), slog.Uint64("waves", e.waves))
}
