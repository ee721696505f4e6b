// internal/workers/job/mark-job-paid/config.go
package markjobpaid

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
