package query

import "time"

// Defaults match the console's query client.
const (
	DefaultStaleAfter    = time.Minute
	DefaultGCAfter       = 5 * time.Minute
	DefaultRetry         = 1
	DefaultRetryDelay    = time.Second
	DefaultMaxRetryDelay = 30 * time.Second
)

// Options control how one entry is fetched and retained.
type Options struct {
	StaleAfter    time.Duration
	GCAfter       time.Duration
	Retry         int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
	Enabled       bool
}

// Option overrides one field of the cache-wide Options for a subscription.
type Option func(*Options)

// WithStaleAfter sets how long a successful result is served without refetching.
func WithStaleAfter(d time.Duration) Option {
	return func(o *Options) { o.StaleAfter = d }
}

// WithGCAfter sets how long an entry with no subscribers is retained.
func WithGCAfter(d time.Duration) Option {
	return func(o *Options) { o.GCAfter = d }
}

// WithRetry sets the number of additional attempts after a failed fetch.
func WithRetry(n int) Option {
	return func(o *Options) {
		if n < 0 {
			n = 0
		}
		o.Retry = n
	}
}

// Enabled gates fetching. A disabled subscription only reads what is cached.
func Enabled(enabled bool) Option {
	return func(o *Options) { o.Enabled = enabled }
}

func (o Options) apply(opts []Option) Options {
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

func (o Options) normalized() Options {
	if o.StaleAfter < 0 {
		o.StaleAfter = 0
	}
	if o.GCAfter <= 0 {
		o.GCAfter = DefaultGCAfter
	}
	if o.Retry < 0 {
		o.Retry = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.MaxRetryDelay < o.RetryDelay {
		o.MaxRetryDelay = o.RetryDelay
	}
	return o
}
