// internal/workers/loyalty/recalculate-loyalty/models.go
package recalculateloyalty

import "drclean-workers/internal/models"

type Input struct {
	ClientID string `json:"clientId"`
}

type Output struct {
	Credits models.LoyaltyCredits  `json:"credits"`
	Before  *models.LoyaltyCredits `json:"before,omitempty"`
	Drifted bool                   `json:"drifted"`
}
