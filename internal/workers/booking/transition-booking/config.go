// internal/workers/booking/transition-booking/config.go
package transitionbooking

import (
	"time"
	_ "time/tzdata"
)

type Config struct {
	Timeout time.Duration
	// Location used to print the appointment in the approval SMS.
	Location *time.Location
}

func LoadConfig() *Config {
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		loc = time.UTC
	}
	return &Config{
		Timeout:  15 * time.Second,
		Location: loc,
	}
}
