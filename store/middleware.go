package store

import (
	"context"
	"log/slog"
)

// Logger returns a middleware that logs every commit at debug level before
// passing it on.
func Logger[T any](logger *slog.Logger) Middleware[T] {
	return func(set SetFunc[T], get GetFunc[T]) SetFunc[T] {
		return func(next T) {
			logger.LogAttrs(context.Background(), slog.LevelDebug, "store commit",
				slog.Any("prev", get()),
				slog.Any("next", next),
			)
			set(next)
		}
	}
}

// Filter returns a middleware that drops commits for which keep returns false.
func Filter[T any](keep func(next, prev T) bool) Middleware[T] {
	return func(set SetFunc[T], get GetFunc[T]) SetFunc[T] {
		return func(next T) {
			if keep(next, get()) {
				set(next)
			}
		}
	}
}

// Map returns a middleware that rewrites every value before it is committed.
func Map[T any](fn func(T) T) Middleware[T] {
	return func(set SetFunc[T], _ GetFunc[T]) SetFunc[T] {
		return func(next T) { set(fn(next)) }
	}
}
