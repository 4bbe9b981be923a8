package util

import "sync"

// Perror accumulates diagnostics reported from one or more goroutines during a single compiler run. It is a
// simplified, non-channel-based descendant of the teacher's own perror: codegen's -t worker pool, its only
// user, only ever needs to append and, once finished, drain a buffer, never to stream errors live to a listener.
type Perror struct {
	mu     sync.Mutex
	errors []error
}

// NewPerror returns an empty error accumulator with n pre-allocated slots.
func NewPerror(n int) *Perror {
	if n < 1 {
		n = 16
	}
	return &Perror{errors: make([]error, 0, n)}
}

// Append records err. A <nil> err is ignored, so callers may append the direct result of a fallible call.
func (pe *Perror) Append(err error) {
	if err == nil {
		return
	}
	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.errors = append(pe.errors, err)
}

// Len returns the number of buffered errors.
func (pe *Perror) Len() int {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	return len(pe.errors)
}

// Errors returns a snapshot of every error appended so far, in the order they were appended.
func (pe *Perror) Errors() []error {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	out := make([]error, len(pe.errors))
	copy(out, pe.errors)
	return out
}
