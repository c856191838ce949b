package gateway

import "context"

// DefaultMaxConcurrentWrites bounds concurrent message-write admissions.
const DefaultMaxConcurrentWrites = 2048

// Semaphore is a counting admission gate. Writes acquire a permit before
// touching room state; a saturated gate fails fast instead of queueing
// unbounded work.
type Semaphore struct {
	permits chan struct{}
}

// NewSemaphore creates a gate with the given permit count.
func NewSemaphore(permits int) *Semaphore {
	if permits <= 0 {
		permits = DefaultMaxConcurrentWrites
	}
	return &Semaphore{permits: make(chan struct{}, permits)}
}

// TryAcquire takes a permit without blocking.
func (s *Semaphore) TryAcquire() bool {
	select {
	case s.permits <- struct{}{}:
		return true
	default:
		return false
	}
}

// Acquire blocks for a permit until the context ends.
func (s *Semaphore) Acquire(ctx context.Context) error {
	select {
	case s.permits <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a permit.
func (s *Semaphore) Release() {
	select {
	case <-s.permits:
	default:
	}
}

// Available reports the free permit count.
func (s *Semaphore) Available() int {
	return cap(s.permits) - len(s.permits)
}
