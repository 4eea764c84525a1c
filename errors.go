// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dase

import "github.com/pkg/errors"

// Errors returned by the engine. Returned errors carry context and a stack
// trace; use errors.Cause to compare them against these values.
//
var (
	ErrCapacityExceeded = errors.New("node count exceeds engine capacity")
	ErrIndexOutOfRange  = errors.New("node index out of range")
	ErrConcurrentMisuse = errors.New("concurrent use of engine")
	ErrDisposed         = errors.New("engine disposed")
)

func capacityError(count, capacity int) error {
	return errors.Wrapf(ErrCapacityExceeded, "initialize %d nodes (capacity %d)", count, capacity)
}

func indexError(i, count int) error {
	return errors.Wrapf(ErrIndexOutOfRange, "index %d (node count %d)", i, count)
}

func misuseError(op string) error {
	return errors.Wrap(ErrConcurrentMisuse, op)
}

func disposedError(op string) error {
	return errors.Wrap(ErrDisposed, op)
}
