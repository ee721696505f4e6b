// internal/workers/job/reassign-jobs/config.go
package reassignjobs

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 15 * time.Second,
	}
}
