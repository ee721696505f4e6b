package pricing

import "math"

const (
	windowRatePerM2 = 276.0
	windowMinimum   = 1500.0
	windowBandLow   = 0.9
	windowBandHigh  = 1.1
)

var windowDirtiness = map[Dirtiness]float64{
	DirtinessLow:    1.0,
	DirtinessMedium: 1.2,
	DirtinessHigh:   1.4,
}

var windowObject = map[ObjectType]float64{
	ObjectFlat:   1.0,
	ObjectHouse:  1.1,
	ObjectOffice: 1.05,
	ObjectShop:   1.15,
}

func normalizeObject(o ObjectType) ObjectType {
	switch o {
	case ObjectResidential:
		return ObjectFlat
	case ObjectCommercial:
		return ObjectOffice
	}
	return o
}

// windowBand returns the rounded price band for a window job, or ok=false
// when a required field is missing.
func windowBand(p WindowParams) (int64, int64, bool) {
	dirt, okDirt := windowDirtiness[p.Dirtiness]
	obj, okObj := windowObject[normalizeObject(p.ObjectType)]
	if p.WindowAreaM2 <= 0 || !okDirt || !okObj {
		return 0, 0, false
	}

	price := p.WindowAreaM2 * windowRatePerM2
	price = price * dirt * obj
	if price < windowMinimum {
		price = windowMinimum
	}
	return int64(math.Round(price * windowBandLow)), int64(math.Round(price * windowBandHigh)), true
}

func estimateWindowStandalone(p WindowParams) PriceEstimate {
	if p.ObjectType == "" {
		return PriceEstimate{}
	}
	priceMin, priceMax, ok := windowBand(p)
	if !ok {
		return PriceEstimate{}
	}
	return PriceEstimate{
		PriceMin: priceMin,
		PriceMax: priceMax,
		Breakdown: Breakdown{
			BaseMin: priceMin,
			BaseMax: priceMax,
			Lines:   []Line{{Key: "window", Min: float64(priceMin), Max: float64(priceMax)}},
		},
	}
}
