package hfsm

import (
	"io"
	"log/slog"

	"github.com/enetx/g"
	"github.com/enetx/hfsm/store"
)

// Container is the observable store a Machine commits its snapshots to.
// *store.Store satisfies it.
//
// Version must advance on every commit that lands and stay put when a commit
// is dropped; the machine records history only for landed commits. Hold must
// postpone listener notifications until its release function is called.
type Container[T any] interface {
	Get() T
	Set(next T)
	Version() uint64
	Hold() func()
	Subscribe(fn store.Listener[T]) func()
}

// Option configures a Machine at construction time.
type Option[C any] func(*config[C])

type config[C any] struct {
	id           g.String
	logger       *slog.Logger
	historyLimit int
	middleware   []store.Middleware[Snapshot[C]]
	container    func(initial Snapshot[C]) Container[Snapshot[C]]
}

// WithID sets the machine ID used in log records and by adapters such as
// persistence. By default a random UUID is used.
func WithID[C any](id g.String) Option[C] {
	return func(c *config[C]) { c.id = id }
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger[C any](logger *slog.Logger) Option[C] {
	return func(c *config[C]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHistoryLimit keeps at most n history records, dropping the oldest.
// Zero, the default, keeps everything.
func WithHistoryLimit[C any](n int) Option[C] {
	return func(c *config[C]) {
		if n >= 0 {
			c.historyLimit = n
		}
	}
}

// WithMiddleware wraps commits to the default store. Middleware is applied in
// the order given, the first one being the outermost. It has no effect when
// WithContainer is used.
//
// Middleware may drop a commit, in which case the machine is left exactly as
// it was and no history is recorded. It may rewrite the context. A snapshot
// whose state or previous state the definition does not declare is refused
// before it reaches the store.
func WithMiddleware[C any](mw ...store.Middleware[Snapshot[C]]) Option[C] {
	return func(c *config[C]) { c.middleware = append(c.middleware, mw...) }
}

// WithContainer replaces the default store. newContainer receives the
// initial snapshot and must return a container holding it. The container is
// trusted to hold only declared states.
func WithContainer[C any](newContainer func(initial Snapshot[C]) Container[Snapshot[C]]) Option[C] {
	return func(c *config[C]) { c.container = newContainer }
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
