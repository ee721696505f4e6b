package pricing

import "math"

const (
	homeRate        = 400.0
	homeMinAreaRate = 30.0
	homeMaxAreaRate = 20.0
	homeBathMin     = 0.5
	homeBathMax     = 1.0
	homeKitchenMin  = 0.75
	homeKitchenMax  = 1.25
	homePrepMin     = 0.25
	homePrepMax     = 0.5
	homeMinHours    = 2.0
)

var homeDirtiness = map[Dirtiness]float64{
	DirtinessLow:    1.0,
	DirtinessMedium: 1.2,
	DirtinessHigh:   1.4,
}

var homeFrequency = map[Frequency]float64{
	FrequencyOneTime:  1.0,
	FrequencyMonthly:  0.9,
	FrequencyBiweekly: 0.85,
	FrequencyWeekly:   0.8,
}

func estimateHome(p HomeParams) PriceEstimate {
	dirt, ok := homeDirtiness[p.Dirtiness]
	if p.AreaM2 <= 0 || !ok || p.hasNegative() {
		return PriceEstimate{}
	}
	freq, ok := homeFrequency[p.Frequency]
	if !ok {
		freq = 1.0
	}

	rawMin := p.AreaM2/homeMinAreaRate + float64(p.BathroomCount)*homeBathMin + float64(p.KitchenCount)*homeKitchenMin + homePrepMin
	rawMax := p.AreaM2/homeMaxAreaRate + float64(p.BathroomCount)*homeBathMax + float64(p.KitchenCount)*homeKitchenMax + homePrepMax

	hoursMin := math.Max(homeMinHours, rawMin*dirt)
	hoursMax := math.Max(hoursMin, rawMax*dirt)

	priceMin := hoursMin * homeRate
	priceMax := hoursMax * homeRate
	priceMin *= freq
	priceMax *= freq

	base := PriceEstimate{
		HoursMin:        round2(hoursMin),
		HoursMax:        round2(hoursMax),
		PriceMin:        roundUp10(priceMin),
		PriceMax:        roundUp10(priceMax),
		DiscountPercent: discountPercent(freq),
	}
	return compose(base, p.EquipmentProvided, p.Window, p.Upholstery)
}
