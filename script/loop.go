package script

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/chazu/graft/errors"
	"github.com/petermattis/goid"
)

// DefaultQueueSize is the request buffer used when none is configured.
const DefaultQueueSize = 64

// request is a unit of work for the loop goroutine.
type request struct {
	fn   func() (any, error)
	done chan result
}

type result struct {
	value any
	err   error
}

// Loop serializes script work onto one goroutine. Script runtimes are not
// safe for concurrent use, so every call into script code, from any
// goroutine, goes through Run.
//
// Run called from the loop goroutine itself executes inline. That is what
// makes re-entry work: script code calling native code that dispatches back
// into script code is already on the loop and must not queue behind itself.
type Loop struct {
	requests chan request
	quit     chan struct{}
	stopped  chan struct{}
	owner    atomic.Int64
	once     sync.Once
}

// NewLoop starts a loop goroutine with a request buffer of queueSize.
func NewLoop(queueSize int) *Loop {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	l := &Loop{
		requests: make(chan request, queueSize),
		quit:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	started := make(chan struct{})
	go l.loop(started)
	<-started
	return l
}

func (l *Loop) loop(started chan<- struct{}) {
	defer close(l.stopped)
	l.owner.Store(goid.Get())
	close(started)
	for {
		select {
		case req := <-l.requests:
			req.done <- execute(req.fn)
		case <-l.quit:
			return
		}
	}
}

// execute runs fn, turning a panic into an error.
func execute(fn func() (any, error)) (res result) {
	defer func() {
		if r := recover(); r != nil {
			res = result{err: fmt.Errorf("%v", r)}
		}
	}()
	v, err := fn()
	return result{value: v, err: err}
}

// OnLoop reports whether the caller is running on the loop goroutine.
func (l *Loop) OnLoop() bool {
	return goid.Get() == l.owner.Load()
}

// Run executes fn on the loop goroutine and blocks until it returns. It
// implements bridge.Executor.
func (l *Loop) Run(fn func() (any, error)) (any, error) {
	if l.OnLoop() {
		res := execute(fn)
		return res.value, res.err
	}
	req := request{fn: fn, done: make(chan result, 1)}
	select {
	case l.requests <- req:
	case <-l.stopped:
		return nil, errStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-l.stopped:
		return nil, errStopped
	}
}

// Stop shuts the loop down and waits for it to exit. Work already running
// finishes; queued work fails. Stop is idempotent. Called from the loop
// itself, it returns without waiting.
func (l *Loop) Stop() {
	l.once.Do(func() {
		close(l.quit)
	})
	if l.OnLoop() {
		return
	}
	<-l.stopped
}

var errStopped = errors.New(errors.KindRouting).Detail("script loop is stopped").Build()
