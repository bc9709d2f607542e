// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"net"
	"time"
)

// TransportMode selects how the remote meeting source is reached.
type TransportMode string

const (
	// TransportDocker runs the MCP server image with docker or podman and
	// talks JSON-RPC over the container's stdio.
	TransportDocker TransportMode = "docker"

	// TransportLocal runs a local Node.js MCP server script over stdio.
	TransportLocal TransportMode = "local"

	// TransportHTTP posts JSON-RPC requests to an MCP HTTP endpoint.
	TransportHTTP TransportMode = "http"
)

// Defaults applied by the Validate methods when a field is unset.
const (
	DefaultImage        = "tldv-mcp-server"
	DefaultNodeBinary   = "node"
	DefaultTimeout      = 60 * time.Second
	DefaultMaxRetries   = 3
	DefaultListLimit    = 100
	DefaultServerAddr   = ":3010"
	DefaultServiceName  = "tldv-mcp-wrapper"
	DefaultAPIKeyEnvVar = "TLDV_API_KEY"
)

// SourceConfig carries everything the meeting source adapter needs. It is
// built once at startup and passed in explicitly.
type SourceConfig struct {
	// Mode selects docker, local, or http.
	Mode TransportMode `json:"mode" yaml:"mode"`

	// APIKey is the tl;dv credential forwarded to the MCP server.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Image is the container image used in docker mode.
	Image string `json:"image" yaml:"image"`

	// NodeBinary and ServerPath describe the local-mode process.
	NodeBinary string `json:"node_binary" yaml:"node_binary"`
	ServerPath string `json:"server_path" yaml:"server_path"`

	// Endpoint is the MCP URL used in http mode.
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// EndpointToken is the bearer token for Endpoint. APIKey is sent when
	// it is empty.
	EndpointToken string `json:"endpoint_token,omitempty" yaml:"endpoint_token,omitempty"`

	// Timeout bounds every single tool call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// MaxRetries bounds 429 retries in http mode.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// BearerToken returns the credential sent to an HTTP endpoint.
func (c SourceConfig) BearerToken() string {
	if c.EndpointToken != "" {
		return c.EndpointToken
	}
	return c.APIKey
}

// Validate fills defaults and rejects configurations that cannot work.
func (c *SourceConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = TransportDocker
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	switch c.Mode {
	case TransportDocker:
		if c.Image == "" {
			c.Image = DefaultImage
		}
	case TransportLocal:
		if c.NodeBinary == "" {
			c.NodeBinary = DefaultNodeBinary
		}
		if c.ServerPath == "" {
			return fmt.Errorf("source.server_path is required in %s mode", c.Mode)
		}
	case TransportHTTP:
		if c.Endpoint == "" {
			return fmt.Errorf("source.endpoint is required in %s mode", c.Mode)
		}
	default:
		return fmt.Errorf("unknown source mode %q (want docker, local, or http)", c.Mode)
	}
	return nil
}

// MatchConfig tunes the text normalizer used by the matcher.
type MatchConfig struct {
	// ExtraStopWords are added to the built-in stop-word set.
	ExtraStopWords []string `json:"extra_stop_words,omitempty" yaml:"extra_stop_words,omitempty"`
}

// PipelineConfig holds batch processing settings.
type PipelineConfig struct {
	// Workers is the number of meetings processed concurrently (default 1).
	Workers int `json:"workers" yaml:"workers"`

	// DefaultLimit caps list_meetings when the request does not set a limit.
	DefaultLimit int `json:"default_limit" yaml:"default_limit"`

	// CachePath is the SQLite transcript cache file; empty disables caching.
	CachePath string `json:"cache_path,omitempty" yaml:"cache_path,omitempty"`
}

// Validate fills defaults.
func (c *PipelineConfig) Validate() error {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = DefaultListLimit
	}
	return nil
}

// ServerConfig holds HTTP surface settings.
type ServerConfig struct {
	Addr            string        `json:"addr" yaml:"addr"`
	ServiceName     string        `json:"service_name" yaml:"service_name"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Validate fills defaults.
func (c *ServerConfig) Validate() error {
	if c.Addr == "" {
		c.Addr = DefaultServerAddr
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("server.addr %q: %w", c.Addr, err)
	}
	if c.ServiceName == "" {
		c.ServiceName = DefaultServiceName
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return nil
}

// Config groups all settings for one process.
type Config struct {
	Source   SourceConfig   `json:"source" yaml:"source"`
	Match    MatchConfig    `json:"match" yaml:"match"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline"`
	Server   ServerConfig   `json:"server" yaml:"server"`
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	return c.Server.Validate()
}
