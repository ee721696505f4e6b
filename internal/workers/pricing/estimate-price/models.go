// internal/workers/pricing/estimate-price/models.go
package estimateprice

import (
	"encoding/json"

	"drclean-workers/internal/models"
	"drclean-workers/internal/pricing"
)

type Input struct {
	Category   models.ServiceCategory `json:"category"`
	Parameters json.RawMessage        `json:"parameters,omitempty"`
	// OverridePrice is the single price an admin agreed with the client.
	OverridePrice *float64 `json:"overridePrice,omitempty"`
	TeamSize      int      `json:"teamSize,omitempty"`
}

// Output carries the full estimate plus the shape stored on the booking.
type Output struct {
	Estimate     pricing.PriceEstimate  `json:"estimate"`
	Complete     bool                   `json:"complete"`
	Stored       *models.StoredEstimate `json:"stored"`
	TimeEstimate *pricing.TimeEstimate  `json:"timeEstimate,omitempty"`
}
