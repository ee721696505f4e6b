package pricing

import (
	"encoding/json"
	"errors"
	"fmt"

	"drclean-workers/internal/models"
)

var ErrUnknownCategory = errors.New("unknown service category")

type Dirtiness string

const (
	DirtinessLow     Dirtiness = "low"
	DirtinessMedium  Dirtiness = "medium"
	DirtinessHigh    Dirtiness = "high"
	DirtinessExtreme Dirtiness = "extreme"
)

// tier maps a dirtiness level to the index used by the per-item price
// tables. Unset or unknown levels price as low.
func (d Dirtiness) tier() int {
	switch d {
	case DirtinessMedium:
		return 1
	case DirtinessHigh, DirtinessExtreme:
		return 2
	default:
		return 0
	}
}

type Frequency string

const (
	FrequencyOneTime  Frequency = "one_time"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyDaily    Frequency = "daily"
)

type SpaceType string

const (
	SpaceOffice     SpaceType = "office"
	SpaceShop       SpaceType = "shop"
	SpaceWarehouse  SpaceType = "warehouse"
	SpaceProduction SpaceType = "production"
)

type ObjectType string

const (
	ObjectFlat   ObjectType = "flat"
	ObjectHouse  ObjectType = "house"
	ObjectOffice ObjectType = "office"
	ObjectShop   ObjectType = "shop"

	ObjectResidential ObjectType = "residential"
	ObjectCommercial  ObjectType = "commercial"
)

// JobParameters is the sizing input of one service category. Each
// category has its own concrete type so a home booking cannot carry
// commercial-only fields and vice versa.
type JobParameters interface {
	Category() models.ServiceCategory
}

type HomeParams struct {
	AreaM2            float64           `json:"areaM2"`
	BathroomCount     int               `json:"bathroomCount"`
	KitchenCount      int               `json:"kitchenCount"`
	Dirtiness         Dirtiness         `json:"dirtiness"`
	Frequency         Frequency         `json:"frequency"`
	EquipmentProvided bool              `json:"equipmentProvided"`
	Window            *WindowParams     `json:"window,omitempty"`
	Upholstery        *UpholsteryParams `json:"upholstery,omitempty"`
}

func (HomeParams) Category() models.ServiceCategory { return models.CategoryHome }

type CommercialParams struct {
	AreaM2            float64           `json:"areaM2"`
	WCCount           int               `json:"wcCount"`
	KitchenetteCount  int               `json:"kitchenetteCount"`
	SpaceType         SpaceType         `json:"spaceType"`
	Dirtiness         Dirtiness         `json:"dirtiness"`
	Frequency         Frequency         `json:"frequency"`
	NightShift        bool              `json:"nightShift"`
	Extras            []string          `json:"extras,omitempty"`
	EquipmentProvided bool              `json:"equipmentProvided"`
	Window            *WindowParams     `json:"window,omitempty"`
	Upholstery        *UpholsteryParams `json:"upholstery,omitempty"`
}

func (CommercialParams) Category() models.ServiceCategory { return models.CategoryCommercial }

type WindowParams struct {
	WindowAreaM2 float64    `json:"windowAreaM2"`
	Dirtiness    Dirtiness  `json:"dirtiness"`
	ObjectType   ObjectType `json:"objectType,omitempty"`
}

func (WindowParams) Category() models.ServiceCategory { return models.CategoryWindow }

type CarpetType string

const (
	CarpetRug           CarpetType = "rug"
	CarpetWallShortPile CarpetType = "wall_to_wall_short"
	CarpetWallLongPile  CarpetType = "wall_to_wall_long"
)

type SofaSize string

const (
	Sofa1Seat  SofaSize = "1_seat"
	Sofa2Seat  SofaSize = "2_seat"
	Sofa3Seat  SofaSize = "3_seat"
	Sofa4Seat  SofaSize = "4_seat"
	Sofa5Seat  SofaSize = "5_seat"
	Sofa6Seat  SofaSize = "6_seat"
	SofaCorner SofaSize = "corner"
)

type CarpetItem struct {
	Type      CarpetType `json:"type"`
	AreaM2    float64    `json:"areaM2"`
	Dirtiness Dirtiness  `json:"dirtiness"`
}

type SofaItem struct {
	Size      SofaSize  `json:"size"`
	Dirtiness Dirtiness `json:"dirtiness"`
}

type MattressItem struct {
	WidthCm   int       `json:"widthCm"`
	BothSides bool      `json:"bothSides"`
	Dirtiness Dirtiness `json:"dirtiness"`
}

type PieceItem struct {
	Count     int       `json:"count"`
	Dirtiness Dirtiness `json:"dirtiness"`
}

// UpholsteryParams toggles an item by setting it; nil items are not
// ordered.
type UpholsteryParams struct {
	Carpet    *CarpetItem   `json:"carpet,omitempty"`
	Sofa      *SofaItem     `json:"sofa,omitempty"`
	Mattress  *MattressItem `json:"mattress,omitempty"`
	Armchairs *PieceItem    `json:"armchairs,omitempty"`
	Chairs    *PieceItem    `json:"chairs,omitempty"`
}

func (UpholsteryParams) Category() models.ServiceCategory { return models.CategoryUpholstery }

type PostConstructionParams struct {
	AreaM2 float64 `json:"areaM2,omitempty"`
	Notes  string  `json:"notes,omitempty"`
}

func (PostConstructionParams) Category() models.ServiceCategory {
	return models.CategoryPostConstruction
}

// hasNegative reports sizing input no job can have: negative areas or
// counts anywhere in the request, add-ons included.
func (p HomeParams) hasNegative() bool {
	return p.AreaM2 < 0 || p.BathroomCount < 0 || p.KitchenCount < 0 ||
		p.Window.hasNegative() || p.Upholstery.hasNegative()
}

func (p CommercialParams) hasNegative() bool {
	return p.AreaM2 < 0 || p.WCCount < 0 || p.KitchenetteCount < 0 ||
		p.Window.hasNegative() || p.Upholstery.hasNegative()
}

func (p *WindowParams) hasNegative() bool {
	return p != nil && p.WindowAreaM2 < 0
}

func (p *UpholsteryParams) hasNegative() bool {
	if p == nil {
		return false
	}
	return (p.Carpet != nil && p.Carpet.AreaM2 < 0) ||
		(p.Mattress != nil && p.Mattress.WidthCm < 0) ||
		(p.Armchairs != nil && p.Armchairs.Count < 0) ||
		(p.Chairs != nil && p.Chairs.Count < 0)
}

// DecodeParameters decodes the category-specific fields of raw into the
// matching variant. Equipment is assumed provided unless the payload says
// otherwise.
func DecodeParameters(category models.ServiceCategory, raw json.RawMessage) (JobParameters, error) {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	var params JobParameters
	var err error
	switch category {
	case models.CategoryHome:
		p := HomeParams{EquipmentProvided: true}
		err = json.Unmarshal(raw, &p)
		params = p
	case models.CategoryCommercial:
		p := CommercialParams{EquipmentProvided: true}
		err = json.Unmarshal(raw, &p)
		params = p
	case models.CategoryWindow:
		var p WindowParams
		err = json.Unmarshal(raw, &p)
		params = p
	case models.CategoryUpholstery:
		var p UpholsteryParams
		err = json.Unmarshal(raw, &p)
		params = p
	case models.CategoryPostConstruction:
		var p PostConstructionParams
		err = json.Unmarshal(raw, &p)
		params = p
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, category)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s parameters: %w", category, err)
	}
	return params, nil
}
