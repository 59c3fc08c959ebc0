// Package httpd
// Author: momentics <momentics@gmail.com>
//
// HTTP/1.0 and HTTP/1.1 server engine: a per-connection request parser
// state machine, a trigger trie dispatching mounted path handlers, and
// pipelined response buffering via outbuf.
package httpd

import (
	"github.com/momentics/hioload-http/alloc"
)

// Config holds the listener's tunable knobs, following a
// Config/DefaultConfig/functional-options pattern (server.Config in
// server/types.go).
type Config struct {
	OutbufMaxSize    int // backpressure ceiling on the connection outbuf
	OnDataThreshold  int // bufferize() accumulation threshold
	MaxQueries       int // per-connection request lifetime limit
	NoActDelayMs     int64
	MaxConns         int
	PipelineDepthIn  int
	HeaderSizeMax    int
	Allocator        alloc.Allocator
}

// ServerOption customizes a Config in place.
type ServerOption func(*Config)

// DefaultConfig returns tunable defaults: 32 MiB / BUFSIZ /
// 1024 / 30000 / 1000 / 32.
func DefaultConfig() *Config {
	return &Config{
		OutbufMaxSize:   32 * 1024 * 1024,
		OnDataThreshold: 8192,
		MaxQueries:      1024,
		NoActDelayMs:    30000,
		MaxConns:        1000,
		PipelineDepthIn: 32,
		HeaderSizeMax:   64 * 1024,
		Allocator:       alloc.NewLibc(),
	}
}

// WithAllocator overrides the per-connection allocator (e.g. an
// alloc.Arena for bulk-freed request scratch memory).
func WithAllocator(a alloc.Allocator) ServerOption {
	return func(c *Config) { c.Allocator = a }
}

// WithMaxConns overrides the listener's accept ceiling.
func WithMaxConns(n int) ServerOption {
	return func(c *Config) { c.MaxConns = n }
}

// WithPipelineDepth overrides the in-flight query ceiling per connection.
func WithPipelineDepth(n int) ServerOption {
	return func(c *Config) { c.PipelineDepthIn = n }
}

// WithNoActDelay overrides the inactivity watchdog timeout.
func WithNoActDelay(ms int64) ServerOption {
	return func(c *Config) { c.NoActDelayMs = ms }
}

// Apply runs opts over a copy of DefaultConfig.
func Apply(opts ...ServerOption) *Config {
	c := DefaultConfig()
	for _, opt := range opts {
		opt(c)
	}
	return c
}
