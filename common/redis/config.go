// common/redis/config.go
package redis

import (
	"fmt"
	"time"

	"github.com/YaganovValera/analytics-system/stream-connector/common/backoff"
)

// Config holds Redis connection parameters.
type Config struct {
	Addr     string         `mapstructure:"addr"`
	Password string         `mapstructure:"password"`
	DB       int            `mapstructure:"db"`
	TTL      time.Duration  `mapstructure:"ttl"` // default 10m
	Backoff  backoff.Config `mapstructure:"backoff"`
}

func (c *Config) applyDefaults() {
	if c.TTL <= 0 {
		c.TTL = 10 * time.Minute
	}
}

func (c Config) validate() error {
	if c.Addr == "" {
		return fmt.Errorf("redis: addr required")
	}
	if c.DB < 0 {
		return fmt.Errorf("redis: db must be >= 0, got %d", c.DB)
	}
	return nil
}
