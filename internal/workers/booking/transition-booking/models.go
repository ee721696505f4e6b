// internal/workers/booking/transition-booking/models.go
package transitionbooking

import (
	"time"

	"drclean-workers/internal/lifecycle"
	"drclean-workers/internal/models"
)

type Input struct {
	BookingID string                   `json:"bookingId"`
	Action    lifecycle.Action         `json:"action"`
	Options   lifecycle.ApproveOptions `json:"options"`
}

type Output struct {
	Booking        models.Booking       `json:"booking"`
	PreviousStatus models.BookingStatus `json:"previousStatus"`
	Changed        bool                 `json:"changed"`
	Display        lifecycle.Display    `json:"display"`
	EventPublished bool                 `json:"eventPublished"`
	SMSSent        bool                 `json:"smsSent"`
}

// StatusEvent is published as booking.<status>.
type StatusEvent struct {
	BookingID     string               `json:"bookingId"`
	ClientID      string               `json:"clientId"`
	From          models.BookingStatus `json:"from"`
	To            models.BookingStatus `json:"to"`
	ScheduledDate *time.Time           `json:"scheduledDate,omitempty"`
	TeamMemberIDs []string             `json:"teamMemberIds,omitempty"`
}
