// internal/workers/invoice/update-invoice-status/config.go
package updateinvoicestatus

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
