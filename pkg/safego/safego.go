// Package safego keeps background goroutines from taking the process
// down with them.
package safego

import (
	"go.uber.org/zap"
)

// Recover is meant to be deferred at the top of a goroutine. It logs
// the panic value with a stack and swallows it.
func Recover(logger *zap.Logger, name string) {
	if r := recover(); r != nil {
		logger.Error("Goroutine panicked",
			zap.String("goroutine", name),
			zap.Any("panic", r),
			zap.Stack("stack"),
		)
	}
}

// Go runs fn on a new goroutine guarded by Recover. A panicking fn
// logs and exits; the caller is never affected.
func Go(logger *zap.Logger, name string, fn func()) {
	go func() {
		defer Recover(logger, name)
		fn()
	}()
}
