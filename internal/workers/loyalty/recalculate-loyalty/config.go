// internal/workers/loyalty/recalculate-loyalty/config.go
package recalculateloyalty

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
