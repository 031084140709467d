package bale

import (
	"log/slog"

	"github.com/meigma/bale/registry/oras"
)

// Option configures a Client.
type Option func(*Client) error

// --- Authentication Options ---

// WithDockerConfig enables reading credentials from ~/.docker/config.json.
// This is the recommended way to authenticate with registries.
func WithDockerConfig() Option {
	return func(c *Client) error {
		c.orasOpts = append(c.orasOpts, oras.WithDockerConfig())
		return nil
	}
}

// WithStaticCredentials sets static username/password credentials for a registry.
// The registry parameter should be the registry host (e.g., "ghcr.io").
func WithStaticCredentials(registry, username, password string) Option {
	return func(c *Client) error {
		c.orasOpts = append(c.orasOpts, oras.WithStaticCredentials(registry, username, password))
		return nil
	}
}

// WithStaticToken sets a static bearer token for a registry.
// The registry parameter should be the registry host (e.g., "ghcr.io").
func WithStaticToken(registry, token string) Option {
	return func(c *Client) error {
		c.orasOpts = append(c.orasOpts, oras.WithStaticToken(registry, token))
		return nil
	}
}

// WithAnonymous forces anonymous access, ignoring any configured credentials.
func WithAnonymous() Option {
	return func(c *Client) error {
		c.orasOpts = append(c.orasOpts, oras.WithAnonymous())
		return nil
	}
}

// --- Transport Options ---

// WithPlainHTTP enables plain HTTP (no TLS) for registries.
// This is useful for local development registries.
func WithPlainHTTP(enabled bool) Option {
	return func(c *Client) error {
		c.orasOpts = append(c.orasOpts, oras.WithPlainHTTP(enabled))
		return nil
	}
}

// WithUserAgent sets the User-Agent header for registry requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		c.orasOpts = append(c.orasOpts, oras.WithUserAgent(ua))
		return nil
	}
}

// --- Logging ---

// WithLogger sets the logger for client operations.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = logger
		return nil
	}
}
