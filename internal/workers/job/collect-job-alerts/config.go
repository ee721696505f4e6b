// internal/workers/job/collect-job-alerts/config.go
package collectjobalerts

import (
	"time"
	_ "time/tzdata"
)

type Config struct {
	Timeout time.Duration
	// AdminPhone receives the urgent alert SMS. Empty disables it.
	AdminPhone        string
	PaymentDueAfter   time.Duration
	PaymentUrgentFrom time.Duration
	Location          *time.Location
}

func LoadConfig() *Config {
	loc, err := time.LoadLocation("Europe/Prague")
	if err != nil {
		loc = time.UTC
	}
	return &Config{
		Timeout:           10 * time.Second,
		PaymentDueAfter:   7 * 24 * time.Hour,
		PaymentUrgentFrom: 14 * 24 * time.Hour,
		Location:          loc,
	}
}
