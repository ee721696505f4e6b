package pricing

import (
	"fmt"
	"math"

	"drclean-workers/internal/models"
)

const (
	defaultHourlyRate    = 500.0
	upholsteryHourlyRate = 1500.0
	timeBandLow          = 0.85
	timeBandHigh         = 1.15
)

type TimeEstimate struct {
	Rate           float64 `json:"rate"`
	TotalHours     float64 `json:"totalHours"`
	HoursPerPerson float64 `json:"hoursPerPerson"`
	MinHours       float64 `json:"minHours"`
	MaxHours       float64 `json:"maxHours"`
	FormattedRange string  `json:"formattedRange"`
}

// EstimateTime derives on-site duration per cleaner from an agreed price.
// A zero price has no estimate.
func EstimateTime(category models.ServiceCategory, price float64, teamSize int) (TimeEstimate, bool) {
	if price <= 0 {
		return TimeEstimate{}, false
	}

	rate := defaultHourlyRate
	if category == models.CategoryUpholstery {
		rate = upholsteryHourlyRate
	}
	if teamSize < 1 {
		teamSize = 1
	}

	total := price / rate
	perPerson := total / float64(teamSize)
	est := TimeEstimate{
		Rate:           rate,
		TotalHours:     total,
		HoursPerPerson: perPerson,
		MinHours:       perPerson * timeBandLow,
		MaxHours:       perPerson * timeBandHigh,
	}
	est.FormattedRange = fmt.Sprintf("%s - %s", formatHours(est.MinHours), formatHours(est.MaxHours))
	return est, true
}

func formatHours(h float64) string {
	hrs := int(math.Floor(h))
	mins := int(math.Round((h - float64(hrs)) * 60))
	if mins == 60 {
		hrs++
		mins = 0
	}
	switch {
	case hrs == 0:
		return fmt.Sprintf("%d min", mins)
	case mins == 0:
		return fmt.Sprintf("%d h", hrs)
	default:
		return fmt.Sprintf("%d h %d min", hrs, mins)
	}
}
