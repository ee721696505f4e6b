package models

// ServiceCategory is fixed when a booking or job is created.
type ServiceCategory string

const (
	CategoryHome             ServiceCategory = "home_cleaning"
	CategoryCommercial       ServiceCategory = "commercial_cleaning"
	CategoryWindow           ServiceCategory = "window_cleaning"
	CategoryPostConstruction ServiceCategory = "post_construction_cleaning"
	CategoryUpholstery       ServiceCategory = "upholstery_cleaning"
)

var serviceLabels = map[ServiceCategory]string{
	CategoryHome:             "Úklid domácnosti",
	CategoryCommercial:       "Komerční úklid",
	CategoryWindow:           "Mytí oken",
	CategoryPostConstruction: "Úklid po stavbě",
	CategoryUpholstery:       "Čištění čalounění",
}

func (c ServiceCategory) Valid() bool {
	_, ok := serviceLabels[c]
	return ok
}

// Label is the Czech name printed on invoices. Unknown categories fall back
// to the raw value.
func (c ServiceCategory) Label() string {
	if l, ok := serviceLabels[c]; ok {
		return l
	}
	return string(c)
}
