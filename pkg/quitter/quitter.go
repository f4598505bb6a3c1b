// Package quitter provides a proxy object meant to replace a process's
// quit/exit entry points when a debug console is embedded in a long-running
// host.
//
// Quitting a console session normally means two things: raising an exit
// request, and closing the session's input stream. The exit request can be
// caught, but a closed input stream kills the underlying connection, and
// with it every other session sharing the host. The Proxy lets each session
// goroutine register its own quit behavior (typically SafeQuit, which raises
// the exit request but leaves the stream alone) while everything else falls
// through to the host's original quit.
package quitter

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Behavior is a registered quit implementation. It receives an optional exit
// code (nil, an int, or a message to print) and does not return normally:
// it unwinds the calling session by panicking with an *ExitRequest.
type Behavior func(code any)

// ExitRequest is the unwind signal raised by a quit behavior. It carries the
// exit code payload verbatim and is recovered at the session boundary.
type ExitRequest struct {
	// Code is the value passed to the quit call: nil, an int exit status,
	// or an arbitrary message.
	Code any
}

func (e *ExitRequest) Error() string {
	if e.Code == nil {
		return "exit requested"
	}
	return fmt.Sprintf("exit requested: %v", e.Code)
}

// ExitCode maps the carried payload to a process exit status: nil is 0, an
// int is itself, and anything else is 1 (callers are expected to print the
// payload in that case).
func (e *ExitRequest) ExitCode() int {
	switch code := e.Code.(type) {
	case nil:
		return 0
	case int:
		return code
	default:
		return 1
	}
}

// AsExitRequest extracts an *ExitRequest from a recovered panic value.
func AsExitRequest(recovered any) (*ExitRequest, bool) {
	req, ok := recovered.(*ExitRequest)
	return req, ok
}

// SafeQuit raises the standard exit request carrying code, but does not
// close or otherwise touch the session's input stream. This is the behavior
// a session registers so that quitting ends only the session, not the
// connection it arrived on.
func SafeQuit(code any) {
	panic(&ExitRequest{Code: code})
}

// Proxy resolves quit/exit calls per calling goroutine. Each session
// goroutine registers its own quit behavior; goroutines with no registration
// fall through to the original behavior captured at construction.
//
// Routes are partitioned by goroutine id: a goroutine only ever reads and
// writes its own slot, so registrations in one session can never change what
// another session resolves to. Goroutine ids are recycled by the runtime, so
// a session must unregister on every exit path (use defer).
type Proxy struct {
	original Behavior
	routes   sync.Map // goroutine id -> Behavior
	logger   *zap.Logger
}

// NewProxy creates a proxy around the host's original quit behavior and
// registers that behavior as the constructing goroutine's own route.
func NewProxy(original Behavior, logger *zap.Logger) *Proxy {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Proxy{
		original: original,
		logger:   logger,
	}
	p.Register(original)
	return p
}

// Register sets the calling goroutine's quit behavior, overwriting any
// previous registration for this goroutine. Other goroutines are unaffected.
func (p *Proxy) Register(b Behavior) {
	p.routes.Store(goid(), b)
}

// Unregister removes the calling goroutine's quit behavior, reverting it to
// the original. Calling with nothing registered is a no-op.
func (p *Proxy) Unregister() {
	id := goid()
	if _, ok := p.routes.LoadAndDelete(id); !ok {
		p.logger.Debug("Unregister() called, but no quit behavior registered",
			zap.Uint64("goroutine", id))
	}
}

// Call resolves the calling goroutine's quit behavior and delegates code to
// it, falling back to the original behavior when nothing is registered. The
// resolved behavior unwinds by panicking with an *ExitRequest; that panic
// propagates to the caller untouched.
func (p *Proxy) Call(code any) {
	if b, ok := p.routes.Load(goid()); ok {
		b.(Behavior)(code)
		return
	}
	p.original(code)
}

// Quit is Call(nil): the bare `exit` form with no code attached.
func (p *Proxy) Quit() {
	p.Call(nil)
}
