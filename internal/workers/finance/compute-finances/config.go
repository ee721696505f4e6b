// internal/workers/finance/compute-finances/config.go
package computefinances

import (
	"time"
	_ "time/tzdata"
)

type Config struct {
	Timeout time.Duration
	// Location decides where the dashboard day starts.
	Location *time.Location
}

func LoadConfig() *Config {
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		loc = time.UTC
	}
	return &Config{
		Timeout:  20 * time.Second,
		Location: loc,
	}
}
