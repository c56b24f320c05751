package bridge

import "fmt"

// Executor runs script-side work on the script execution context. Script
// engines are not thread-reentrant, so an engine supplies an executor that
// marshals calls onto its own goroutine and blocks the caller until done.
// Implementations must run fn inline when already on that context.
type Executor interface {
	Run(fn func() (any, error)) (any, error)
}

// Inline runs work on the calling goroutine. It suits Go-native
// implementations, which are safe to call from any goroutine.
type Inline struct{}

// Run implements Executor. A panic in fn is returned as an error.
func (Inline) Run(fn func() (any, error)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("%v", r)
		}
	}()
	return fn()
}
