package pricing

import (
	"math"

	"drclean-workers/internal/models"
)

const (
	// EquipmentSurcharge is added to both ends of the band when the client
	// does not provide cleaning equipment.
	EquipmentSurcharge = 290

	// MinimumOrder is the upholstery order floor in CZK.
	MinimumOrder = 1500
)

// Line is one priced component of an estimate.
type Line struct {
	Key string  `json:"key"`
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Breakdown struct {
	BaseMin       int64  `json:"baseServiceMin"`
	BaseMax       int64  `json:"baseServiceMax"`
	AddOnsMin     int64  `json:"addOnsMin"`
	AddOnsMax     int64  `json:"addOnsMax"`
	WindowMin     int64  `json:"windowMin"`
	WindowMax     int64  `json:"windowMax"`
	UpholsteryMin int64  `json:"upholsteryMin"`
	UpholsteryMax int64  `json:"upholsteryMax"`
	EquipmentCost int64  `json:"equipmentCost"`
	Lines         []Line `json:"lines,omitempty"`
}

type PriceEstimate struct {
	HoursMin        float64   `json:"hoursMin"`
	HoursMax        float64   `json:"hoursMax"`
	PriceMin        int64     `json:"priceMin"`
	PriceMax        int64     `json:"priceMax"`
	DiscountPercent float64   `json:"discountPercent"`
	BelowMinimum    bool      `json:"belowMinimum"`
	MinimumOrder    int64     `json:"minimumOrder"`
	Breakdown       Breakdown `json:"breakdown"`
}

// IsZero reports whether the estimate carries no price, either because the
// input was incomplete or because the category is priced manually.
func (e PriceEstimate) IsZero() bool {
	return e.PriceMin == 0 && e.PriceMax == 0
}

// Estimate prices a job. Incomplete or impossible input (a negative area
// or count) yields the zero estimate rather than an error; callers gate
// submission on IsZero.
func Estimate(params JobParameters) PriceEstimate {
	var est PriceEstimate
	switch p := params.(type) {
	case HomeParams:
		est = estimateHome(p)
	case *HomeParams:
		if p != nil {
			est = estimateHome(*p)
		}
	case CommercialParams:
		est = estimateCommercial(p)
	case *CommercialParams:
		if p != nil {
			est = estimateCommercial(*p)
		}
	case WindowParams:
		est = estimateWindowStandalone(p)
	case *WindowParams:
		if p != nil {
			est = estimateWindowStandalone(*p)
		}
	case UpholsteryParams:
		est = estimateUpholsteryStandalone(p)
	case *UpholsteryParams:
		if p != nil {
			est = estimateUpholsteryStandalone(*p)
		}
	}
	est.MinimumOrder = MinimumOrder
	return est
}

// ApplyOverride pins both ends of the band to an admin-chosen price.
func ApplyOverride(est PriceEstimate, price int64) PriceEstimate {
	est.PriceMin = price
	est.PriceMax = price
	est.BelowMinimum = false
	return est
}

// ToStored converts an estimate into the shape persisted on bookings.
func ToStored(est PriceEstimate, override *float64) *models.StoredEstimate {
	return &models.StoredEstimate{
		Price:           override,
		PriceMin:        float64(est.PriceMin),
		PriceMax:        float64(est.PriceMax),
		HoursMin:        est.HoursMin,
		HoursMax:        est.HoursMax,
		DiscountPercent: est.DiscountPercent,
	}
}

// compose adds the optional window and upholstery add-ons and the equipment
// surcharge on top of a base band.
func compose(base PriceEstimate, equipmentProvided bool, window *WindowParams, upholstery *UpholsteryParams) PriceEstimate {
	est := base
	est.Breakdown.BaseMin = base.PriceMin
	est.Breakdown.BaseMax = base.PriceMax
	est.Breakdown.Lines = append(est.Breakdown.Lines, Line{Key: "base", Min: float64(base.PriceMin), Max: float64(base.PriceMax)})

	if !equipmentProvided {
		est.Breakdown.EquipmentCost = EquipmentSurcharge
		est.Breakdown.AddOnsMin += EquipmentSurcharge
		est.Breakdown.AddOnsMax += EquipmentSurcharge
		est.Breakdown.Lines = append(est.Breakdown.Lines, Line{Key: "equipment", Min: EquipmentSurcharge, Max: EquipmentSurcharge})
	}

	if window != nil {
		w := *window
		if w.ObjectType == "" {
			w.ObjectType = ObjectFlat
		}
		if wMin, wMax, ok := windowBand(w); ok {
			est.Breakdown.WindowMin = wMin
			est.Breakdown.WindowMax = wMax
			est.Breakdown.AddOnsMin += wMin
			est.Breakdown.AddOnsMax += wMax
			est.Breakdown.Lines = append(est.Breakdown.Lines, Line{Key: "window", Min: float64(wMin), Max: float64(wMax)})
		}
	}

	if upholstery != nil {
		u := upholsteryQuote(*upholstery)
		est.Breakdown.UpholsteryMin = u.priceMin
		est.Breakdown.UpholsteryMax = u.priceMax
		est.Breakdown.AddOnsMin += u.priceMin
		est.Breakdown.AddOnsMax += u.priceMax
		if u.total > 0 {
			est.Breakdown.Lines = append(est.Breakdown.Lines, Line{Key: "upholstery", Min: float64(u.priceMin), Max: float64(u.priceMax)})
		}
	}

	est.PriceMin = base.PriceMin + est.Breakdown.AddOnsMin
	est.PriceMax = base.PriceMax + est.Breakdown.AddOnsMax
	return est
}

func roundUp10(v float64) int64 {
	return int64(math.Ceil(v/10) * 10)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func discountPercent(multiplier float64) float64 {
	return round2((1 - multiplier) * 100)
}
