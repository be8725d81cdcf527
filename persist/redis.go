// Package persist keeps machine snapshots in Redis.
//
// A Store saves the snapshot of a machine after every commit when its
// middleware is installed, and restores it when a machine starts:
//
//	snapshots := persist.New[Cart](client, persist.WithTTL(24*time.Hour))
//	m := def.New(
//		hfsm.WithID[Cart](sessionID),
//		hfsm.WithMiddleware[Cart](snapshots.Middleware(sessionID)),
//	)
//	if err := snapshots.Restore(ctx, m); err != nil && !errors.Is(err, persist.ErrNotFound) {
//		return err
//	}
//
// Only snapshots are stored. Definitions and history stay in process.
package persist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/enetx/hfsm"
	"github.com/enetx/hfsm/store"
	backend "github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Load and Restore when no snapshot is stored.
var ErrNotFound = errors.New("persist: snapshot not found")

type options struct {
	prefix  string
	ttl     time.Duration
	timeout time.Duration
	codec   Codec
	logger  *slog.Logger
}

// Option configures a Store.
type Option func(*options)

// WithPrefix sets the key prefix. The default is "hfsm:snapshot:".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithTTL sets the expiration of stored snapshots. Zero, the default, keeps
// them forever.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithTimeout bounds each Redis call made by the middleware. The default is
// five seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithCodec sets the snapshot encoding. The default is JSON.
func WithCodec(codec Codec) Option {
	return func(o *options) {
		if codec != nil {
			o.codec = codec
		}
	}
}

// WithLogger sets the logger used to report failed saves from the middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Store saves and loads snapshots of machines with context type C.
type Store[C any] struct {
	client *backend.Client
	opts   options
}

// New creates a Store on an existing client.
func New[C any](client *backend.Client, opts ...Option) *Store[C] {
	o := options{
		prefix:  "hfsm:snapshot:",
		timeout: 5 * time.Second,
		codec:   JSON,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, opt := range opts {
		opt(&o)
	}

	return &Store[C]{client: client, opts: o}
}

func (s *Store[C]) key(id string) string {
	return s.opts.prefix + id
}

// Save stores snap under id.
func (s *Store[C]) Save(ctx context.Context, id string, snap hfsm.Snapshot[C]) error {
	data, err := s.opts.codec.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.key(id), data, s.opts.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot %q: %w", id, err)
	}

	return nil
}

// Load returns the snapshot stored under id.
func (s *Store[C]) Load(ctx context.Context, id string) (hfsm.Snapshot[C], error) {
	var snap hfsm.Snapshot[C]

	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, backend.Nil) {
		return snap, ErrNotFound
	}

	if err != nil {
		return snap, fmt.Errorf("failed to load snapshot %q: %w", id, err)
	}

	if err := s.opts.codec.Unmarshal(data, &snap); err != nil {
		return snap, fmt.Errorf("failed to decode snapshot %q: %w", id, err)
	}

	return snap, nil
}

// Delete removes the snapshot stored under id.
func (s *Store[C]) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}

// Restore loads the snapshot stored under the machine ID and applies it with
// Machine.Restore.
func (s *Store[C]) Restore(ctx context.Context, m *hfsm.Machine[C]) error {
	snap, err := s.Load(ctx, string(m.ID()))
	if err != nil {
		return err
	}

	return m.Restore(snap)
}

// Middleware returns store middleware that saves every committed snapshot
// under id. Save failures are logged; they never block the commit.
func (s *Store[C]) Middleware(id string) store.Middleware[hfsm.Snapshot[C]] {
	return func(set store.SetFunc[hfsm.Snapshot[C]], get store.GetFunc[hfsm.Snapshot[C]]) store.SetFunc[hfsm.Snapshot[C]] {
		return func(next hfsm.Snapshot[C]) {
			set(next)

			ctx, cancel := context.WithTimeout(context.Background(), s.opts.timeout)
			defer cancel()

			if err := s.Save(ctx, id, get()); err != nil {
				s.opts.logger.Error("snapshot save failed", "id", id, "error", err)
			}
		}
	}
}
