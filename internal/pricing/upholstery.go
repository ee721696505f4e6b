package pricing

import (
	"fmt"
	"math"
)

const (
	upholsteryBandLow  = 0.9
	upholsteryBandHigh = 1.1
)

var carpetRates = map[CarpetType][3]float64{
	CarpetRug:           {200, 230, 260},
	CarpetWallShortPile: {84, 108, 132},
	CarpetWallLongPile:  {108, 132, 156},
}

var sofaPrices = map[SofaSize][3]float64{
	Sofa1Seat:  {770, 990, 1210},
	Sofa2Seat:  {990, 1210, 1430},
	Sofa3Seat:  {1210, 1430, 1650},
	Sofa4Seat:  {1430, 1650, 1870},
	Sofa5Seat:  {1650, 1870, 2090},
	Sofa6Seat:  {1870, 2090, 2310},
	SofaCorner: {2090, 2530, 2970},
}

type mattressKey struct {
	width     int
	bothSides bool
}

var mattressPrices = map[mattressKey][3]float64{
	{90, false}:  {800, 960, 1120},
	{90, true}:   {1400, 1600, 1800},
	{140, false}: {1100, 1300, 1500},
	{140, true}:  {1900, 2100, 2300},
	{160, false}: {1200, 1400, 1600},
	{160, true}:  {2000, 2200, 2400},
	{180, false}: {1300, 1500, 1700},
	{180, true}:  {2200, 2400, 2600},
	{200, false}: {1400, 1600, 1800},
	{200, true}:  {2400, 2600, 2800},
}

var (
	armchairPrices = [3]float64{400, 550, 700}
	chairPrices    = [3]float64{195, 260, 325}
)

type upholsteryResult struct {
	total    float64
	priceMin int64
	priceMax int64
	lines    []Line
}

func upholsteryQuote(p UpholsteryParams) upholsteryResult {
	var res upholsteryResult
	add := func(key string, price float64) {
		res.total += price
		res.lines = append(res.lines, Line{Key: key, Min: price, Max: price})
	}

	if c := p.Carpet; c != nil {
		kind := c.Type
		if kind == "" {
			kind = CarpetRug
		}
		rates := carpetRates[kind]
		add("carpet", c.AreaM2*rates[c.Dirtiness.tier()])
	}
	if s := p.Sofa; s != nil {
		size := s.Size
		if size == "" {
			size = Sofa2Seat
		}
		prices := sofaPrices[size]
		add("sofa", prices[s.Dirtiness.tier()])
	}
	if m := p.Mattress; m != nil {
		prices := mattressPrices[mattressKey{width: m.WidthCm, bothSides: m.BothSides}]
		add("mattress", prices[m.Dirtiness.tier()])
	}
	if a := p.Armchairs; a != nil {
		add("armchairs", float64(a.Count)*armchairPrices[a.Dirtiness.tier()])
	}
	if c := p.Chairs; c != nil {
		add("chairs", float64(c.Count)*chairPrices[c.Dirtiness.tier()])
	}

	if res.total > 0 {
		res.priceMin = int64(math.Round(res.total * upholsteryBandLow))
		res.priceMax = int64(math.Round(res.total * upholsteryBandHigh))
	}
	return res
}

func estimateUpholsteryStandalone(p UpholsteryParams) PriceEstimate {
	if p.hasNegative() {
		return PriceEstimate{}
	}
	res := upholsteryQuote(p)
	return PriceEstimate{
		PriceMin:     res.priceMin,
		PriceMax:     res.priceMax,
		BelowMinimum: res.total > 0 && res.priceMax < MinimumOrder,
		Breakdown: Breakdown{
			BaseMin: res.priceMin,
			BaseMax: res.priceMax,
			Lines:   res.lines,
		},
	}
}

// MinimumOrderMessage is shown when an upholstery order is below the floor.
func MinimumOrderMessage() string {
	return fmt.Sprintf("Min. objednávka %d Kč", MinimumOrder)
}
