/*
Package dase provides the node execution engine of a digital analog
simulation engine: a bounded arena of small stateful "universal" nodes
advanced through discrete computation passes called waves.

Each Node carries a Role (Worker, Comm, Vector, Processor, Markov or Kernel)
selecting its computation rule, and exactly one state record for that role.
Switching roles drops the old record and seeds the new one from the node's
last output.

An Engine owns the nodes and a persistent pool of worker goroutines. During a
wave, node indices are statically partitioned across workers (worker w owns
indices w, w+n, w+2n, ...), so nodes need no locking and results are
aggregated in index order, making repeated runs bit-for-bit reproducible.

A Session wraps an Engine with the operations a front end needs:

	s := dase.NewSession(dase.NewEngine(0, 0))
	defer s.Close()
	if err := s.Configure(100); err != nil {
		// handle error
	}
	s.SwitchRoles(dase.CyclicRoles)
	out := s.Step(2.0)
	snap := s.Snapshot()

Simple single-role analog modules (amplifiers, summers, integrators) live in
the analog sub-package.

*/
package dase
