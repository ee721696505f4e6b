package models

import (
	"encoding/json"
	"time"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingApproved   BookingStatus = "approved"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingDeclined   BookingStatus = "declined"
)

// Terminal reports whether no further transition may leave the status.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingDeclined
}

type Booking struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId,omitempty"`
	ClientID       string          `json:"clientId"`
	ServiceType    ServiceCategory `json:"serviceType"`
	Address        string          `json:"address"`
	ScheduledDate  *time.Time      `json:"scheduledDate,omitempty"`
	Status         BookingStatus   `json:"status"`
	StartedAt      *time.Time      `json:"startedAt,omitempty"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	ClientViewedAt *time.Time      `json:"clientViewedAt,omitempty"`
	InvoiceID      *string         `json:"invoiceId,omitempty"`
	SkipInvoice    bool            `json:"skipInvoice"`
	TeamMemberIDs  []string        `json:"teamMemberIds"`
	AdminNotes     string          `json:"adminNotes,omitempty"`
	Feedback       *string         `json:"feedback,omitempty"`
	BookingDetails BookingDetails  `json:"bookingDetails"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// BookingDetails is the booking_details json column: the raw job
// parameters plus the estimate that was shown when the booking was made.
type BookingDetails struct {
	ServiceID     string          `json:"service_id,omitempty"`
	ServiceTitle  string          `json:"service_title,omitempty"`
	Parameters    json.RawMessage `json:"parameters,omitempty"`
	PriceEstimate *StoredEstimate `json:"priceEstimate,omitempty"`
	ManualPoints  *int            `json:"manual_loyalty_points,omitempty"`
}

// StoredEstimate keeps the numbers of an estimate persisted on a booking.
// Price is set when an admin overrides the band with a single figure.
type StoredEstimate struct {
	Price           *float64 `json:"price,omitempty"`
	PriceMin        float64  `json:"priceMin"`
	PriceMax        float64  `json:"priceMax"`
	HoursMin        float64  `json:"hoursMin,omitempty"`
	HoursMax        float64  `json:"hoursMax,omitempty"`
	DiscountPercent float64  `json:"discountPercent,omitempty"`
}

// ChosenPrice is the single number persisted onto jobs and invoices.
func (d BookingDetails) ChosenPrice() float64 {
	if d.PriceEstimate == nil {
		return 0
	}
	if d.PriceEstimate.Price != nil && *d.PriceEstimate.Price > 0 {
		return *d.PriceEstimate.Price
	}
	return d.PriceEstimate.PriceMin
}
