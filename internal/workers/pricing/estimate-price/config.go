// internal/workers/pricing/estimate-price/config.go
package estimateprice

import "time"

type Config struct {
	Timeout          time.Duration
	MinOverridePrice float64
	DefaultTeamSize  int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:          5 * time.Second,
		MinOverridePrice: 0,
		DefaultTeamSize:  1,
	}
}
