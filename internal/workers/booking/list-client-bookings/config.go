// internal/workers/booking/list-client-bookings/config.go
package listclientbookings

import "time"

type Config struct {
	Timeout  time.Duration
	CacheTTL time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout:  10 * time.Second,
		CacheTTL: time.Minute,
	}
}
