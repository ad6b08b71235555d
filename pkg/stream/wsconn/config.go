package wsconn

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds gorilla/websocket transport settings.
type Config struct {
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	// ReadTimeout is the watchdog reset by every inbound frame; 0 disables it.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	ReadLimit   int64         `mapstructure:"read_limit"`
	BufferSize  int           `mapstructure:"buffer_size"` // frames queued between the read pump and the actor
	Header      http.Header   `mapstructure:"-"`
}

// ApplyDefaults applies fallback defaults if values are unset.
func (c *Config) ApplyDefaults() {
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 5 * time.Second
	}
	if c.ReadLimit <= 0 {
		c.ReadLimit = 1 << 20
	}
	if c.BufferSize <= 0 {
		c.BufferSize = 64
	}
}

// Validate checks values that have no sensible default.
func (c Config) Validate() error {
	if c.ReadTimeout < 0 {
		return fmt.Errorf("wsconn: read timeout must be >= 0, got %v", c.ReadTimeout)
	}
	return nil
}
