package httpserver

import (
	"log/slog"
	"time"
)

// Option configures the server at construction time.
// Options validate eagerly and panic on programmer error; a server with a
// bad listen address or a negative timeout should never reach Run.
type Option func(*config)

func mustPositive(name string, d time.Duration) {
	if d <= 0 {
		panic(name + ": duration must be positive")
	}
}

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	if addr == "" {
		panic("httpserver.WithAddr: empty address")
	}
	return func(c *config) { c.addr = addr }
}

// WithReadTimeout bounds reading of the full request, body included.
func WithReadTimeout(d time.Duration) Option {
	mustPositive("httpserver.WithReadTimeout", d)
	return func(c *config) { c.readTimeout = d }
}

// WithWriteTimeout bounds writing of the response.
func WithWriteTimeout(d time.Duration) Option {
	mustPositive("httpserver.WithWriteTimeout", d)
	return func(c *config) { c.writeTimeout = d }
}

// WithIdleTimeout bounds how long a keep-alive connection may sit idle.
func WithIdleTimeout(d time.Duration) Option {
	mustPositive("httpserver.WithIdleTimeout", d)
	return func(c *config) { c.idleTimeout = d }
}

// WithShutdownTimeout bounds the drain period during graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	mustPositive("httpserver.WithShutdownTimeout", d)
	return func(c *config) { c.shutdownTimeout = d }
}

// WithLogger attaches a logger for lifecycle hooks. Nil keeps logging off.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStartHook runs fn right before the listener starts accepting.
func WithStartHook(fn func(*slog.Logger)) Option {
	if fn == nil {
		panic("httpserver.WithStartHook: nil hook")
	}
	return func(c *config) { c.startHooks = append(c.startHooks, fn) }
}

// WithStopHook runs fn after the listener has drained.
func WithStopHook(fn func(*slog.Logger)) Option {
	if fn == nil {
		panic("httpserver.WithStopHook: nil hook")
	}
	return func(c *config) { c.stopHooks = append(c.stopHooks, fn) }
}
