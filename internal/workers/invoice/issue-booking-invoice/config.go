// internal/workers/invoice/issue-booking-invoice/config.go
package issuebookinginvoice

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
