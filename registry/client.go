package registry

import (
	"log/slog"

	"oras.land/oras-go/v2"
)

// Client pushes and pulls packs through one OCI target.
type Client struct {
	target oras.Target
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for push and pull events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}

// New creates a client for target.
func New(target oras.Target, opts ...Option) *Client {
	c := &Client{target: target}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Target returns the target the client operates on.
func (c *Client) Target() oras.Target {
	return c.target
}
