package pricing

const (
	commercialRate       = 600.0
	commercialWCHours    = 0.5
	commercialKitchHours = 0.5
	commercialExtraHours = 0.5
	commercialMinFactor  = 0.85
	commercialMaxFactor  = 1.02
	nightShiftSurcharge  = 1.1
)

var commercialSpeed = map[SpaceType]float64{
	SpaceOffice:     60,
	SpaceShop:       50,
	SpaceWarehouse:  70,
	SpaceProduction: 40,
}

var commercialDirtiness = map[Dirtiness]float64{
	DirtinessLow:     1.0,
	DirtinessMedium:  1.2,
	DirtinessHigh:    1.4,
	DirtinessExtreme: 1.6,
}

var commercialFrequency = map[Frequency]float64{
	FrequencyOneTime:  1.0,
	FrequencyMonthly:  0.9,
	FrequencyBiweekly: 0.85,
	FrequencyWeekly:   0.8,
	FrequencyDaily:    0.7,
}

func estimateCommercial(p CommercialParams) PriceEstimate {
	speed, okSpeed := commercialSpeed[p.SpaceType]
	dirt, okDirt := commercialDirtiness[p.Dirtiness]
	freq, okFreq := commercialFrequency[p.Frequency]
	if p.AreaM2 <= 0 || !okSpeed || !okDirt || !okFreq || p.hasNegative() {
		return PriceEstimate{}
	}

	basic := p.AreaM2/speed + float64(p.WCCount)*commercialWCHours + float64(p.KitchenetteCount)*commercialKitchHours
	basic += float64(len(p.Extras)) * commercialExtraHours
	basic *= dirt

	hoursMin := basic * commercialMinFactor
	hoursMax := basic * commercialMaxFactor

	priceMin := hoursMin * commercialRate
	priceMax := hoursMax * commercialRate
	if p.NightShift {
		priceMin *= nightShiftSurcharge
		priceMax *= nightShiftSurcharge
	}
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
