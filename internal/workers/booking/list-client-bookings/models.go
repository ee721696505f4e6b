// internal/workers/booking/list-client-bookings/models.go
package listclientbookings

import (
	"drclean-workers/internal/lifecycle"
	"drclean-workers/internal/models"
)

type Input struct {
	ClientID string `json:"clientId"`
	// MarkViewed stamps settled bookings as seen so the next load moves
	// them to history.
	MarkViewed bool `json:"markViewed"`
}

type BookingView struct {
	Booking models.Booking    `json:"booking"`
	Invoice *models.Invoice   `json:"invoice,omitempty"`
	Display lifecycle.Display `json:"display"`
}

type Output struct {
	Active       []BookingView `json:"active"`
	History      []BookingView `json:"history"`
	MarkedViewed []string      `json:"markedViewed,omitempty"`
	Cached       bool          `json:"cached"`
}
