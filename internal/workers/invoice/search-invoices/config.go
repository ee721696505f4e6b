// internal/workers/invoice/search-invoices/config.go
package searchinvoices

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
