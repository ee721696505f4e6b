// internal/workers/job/update-job-expenses/config.go
package updatejobexpenses

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
