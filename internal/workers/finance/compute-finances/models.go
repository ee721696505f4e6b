// internal/workers/finance/compute-finances/models.go
package computefinances

import (
	"time"

	"drclean-workers/internal/finance"
)

type Input struct {
	Period      string           `json:"period"`
	CustomStart *time.Time       `json:"customStart,omitempty"`
	CustomEnd   *time.Time       `json:"customEnd,omitempty"`
	Category    string           `json:"category,omitempty"`
	Grouping    finance.Grouping `json:"grouping,omitempty"`
}

type Output struct {
	Summary finance.Summary  `json:"summary"`
	Chart   []finance.Bucket `json:"chart"`
}
