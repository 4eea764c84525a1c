// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dase

import (
	"runtime"
	"sync"
)

// A WaveScheduler runs waves of per-index work on a fixed pool of worker
// goroutines.
//
// Indices are statically partitioned: worker w owns indices w, w+n, w+2n, ...
// where n is the number of workers. No two workers ever touch the same index
// during a wave, so per-index work needs no synchronization. The only
// synchronization point is the join at the end of each wave.
//
// Callers must make sure to call Close() once the scheduler is no longer
// needed in order to stop the worker goroutines.
//
type WaveScheduler struct {
	wc []chan struct{}
	wg sync.WaitGroup

	// wave parameters. Written by Run before waking the workers and only read
	// by the workers until the join.
	count int
	fn    func(i int)

	closed bool
}

// NewWaveScheduler starts a scheduler with the given number of workers. If
// workers is less or equal to 0, the value of GOMAXPROCS will be used.
//
func NewWaveScheduler(workers int) *WaveScheduler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers <= 0 {
		workers = 1
	}
	s := &WaveScheduler{wc: make([]chan struct{}, workers)}
	for w := range s.wc {
		wc := make(chan struct{}, 1)
		s.wc[w] = wc
		go s.worker(w, wc)
	}
	return s
}

func (s *WaveScheduler) worker(w int, wc <-chan struct{}) {
	n := len(s.wc)
	for {
		_, ok := <-wc
		if !ok {
			s.wg.Done()
			return
		}
		for i := w; i < s.count; i += n {
			s.fn(i)
		}
		s.wg.Done()
	}
}

// Workers returns the number of worker goroutines.
//
func (s *WaveScheduler) Workers() int { return len(s.wc) }

// Run calls fn exactly once for every index in [0, count) and returns once all
// calls have completed. Calls for distinct indices may run concurrently; calls
// for a given index always run on the same worker.
//
// Run must not be called concurrently with itself or with Close. It panics if
// the scheduler has been closed.
//
func (s *WaveScheduler) Run(count int, fn func(i int)) {
	if s.closed {
		panic(ErrDisposed)
	}
	if count <= 0 {
		return
	}
	s.count, s.fn = count, fn

	// workers past count would have nothing to do.
	active := s.wc
	if count < len(active) {
		active = active[:count]
	}
	s.wg.Add(len(active))
	for _, wc := range active {
		wc <- struct{}{}
	}
	s.wg.Wait()
	s.fn = nil
}

// Close stops all worker goroutines and waits for them to exit. Close is
// idempotent.
//
func (s *WaveScheduler) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.wg.Add(len(s.wc))
	for _, wc := range s.wc {
		close(wc)
	}
	s.wg.Wait()
}
