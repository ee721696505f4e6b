package finance

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

var ErrInvalidPeriod = errors.New("INVALID_PERIOD")

const (
	PeriodTotal  = "total"
	PeriodCustom = "custom"
)

var allowedDays = map[int]bool{7: true, 30: true, 90: true, 180: true, 365: true}

// Period is an inclusive time window.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// PeriodFor resolves a dashboard filter. Day filters count back from the
// start of today; a custom end date covers that whole day.
func PeriodFor(filter string, now time.Time, customStart, customEnd *time.Time) (Period, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch filter {
	case PeriodTotal:
		return Period{Start: time.Date(2020, 1, 1, 0, 0, 0, 0, now.Location()), End: now}, nil
	case PeriodCustom:
		p := Period{Start: today, End: now}
		if customStart != nil {
			p.Start = *customStart
		}
		if customEnd != nil {
			e := *customEnd
			p.End = time.Date(e.Year(), e.Month(), e.Day(), 23, 59, 59, 0, e.Location())
		}
		if p.End.Before(p.Start) {
			return Period{}, fmt.Errorf("%w: end before start", ErrInvalidPeriod)
		}
		return p, nil
	}

	days, err := strconv.Atoi(filter)
	if err != nil || !allowedDays[days] {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, filter)
	}
	return Period{Start: today.AddDate(0, 0, -days), End: now}, nil
}
