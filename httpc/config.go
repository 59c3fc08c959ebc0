package httpc

import "github.com/momentics/hioload-http/alloc"

// Config holds the client's tunable knobs: {use_proxy, pipeline_depth,
// noact_delay_ms, max_queries, on_data_threshold}.
type Config struct {
	UseProxy        bool
	PipelineDepth   int
	NoActDelayMs    int64
	MaxQueries      int
	OnDataThreshold int
	Allocator       alloc.Allocator
}

// ClientOption configures a Config via DefaultConfig.
type ClientOption func(*Config)

// DefaultConfig returns the client's baseline tunable defaults.
func DefaultConfig() *Config {
	return &Config{
		UseProxy:        false,
		PipelineDepth:   8,
		NoActDelayMs:    30000,
		MaxQueries:      1000,
		OnDataThreshold: 8192,
		Allocator:       alloc.NewLibc(),
	}
}

func WithAllocator(a alloc.Allocator) ClientOption {
	return func(c *Config) { c.Allocator = a }
}

func WithProxy(enabled bool) ClientOption {
	return func(c *Config) { c.UseProxy = enabled }
}

func WithPipelineDepth(depth int) ClientOption {
	return func(c *Config) { c.PipelineDepth = depth }
}

func WithMaxQueries(n int) ClientOption {
	return func(c *Config) { c.MaxQueries = n }
}

func WithNoActDelay(ms int64) ClientOption {
	return func(c *Config) { c.NoActDelayMs = ms }
}

func Apply(opts ...ClientOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
