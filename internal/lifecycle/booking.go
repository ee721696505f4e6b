// Package lifecycle holds the booking and job state machines and the
// display state derived from them.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"drclean-workers/internal/models"
)

var (
	ErrInvalidTransition   = errors.New("INVALID_TRANSITION")
	ErrUnknownAction       = errors.New("UNKNOWN_ACTION")
	ErrPaymentDateRequired = errors.New("PAYMENT_DATE_REQUIRED")
)

type Action string

const (
	ActionApprove  Action = "approve"
	ActionDecline  Action = "decline"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
)

// ApproveOptions are the assignments an admin may make while approving.
type ApproveOptions struct {
	ScheduledDate *time.Time `json:"scheduledDate,omitempty"`
	TeamMemberIDs []string   `json:"teamMemberIds,omitempty"`
	AdminNotes    string     `json:"adminNotes,omitempty"`
	SkipInvoice   bool       `json:"skipInvoice"`
}

// Approve moves a pending booking to approved.
func Approve(b models.Booking, opts ApproveOptions, now time.Time) (models.Booking, error) {
	if b.Status != models.BookingPending {
		return b, invalid(b.Status, models.BookingApproved)
	}
	b.Status = models.BookingApproved
	if opts.ScheduledDate != nil {
		b.ScheduledDate = opts.ScheduledDate
	}
	if opts.TeamMemberIDs != nil {
		b.TeamMemberIDs = opts.TeamMemberIDs
	}
	if opts.AdminNotes != "" {
		b.AdminNotes = opts.AdminNotes
	}
	b.SkipInvoice = opts.SkipInvoice
	b.UpdatedAt = now
	return b, nil
}

// Decline rejects a pending booking.
func Decline(b models.Booking, now time.Time) (models.Booking, error) {
	if b.Status != models.BookingPending {
		return b, invalid(b.Status, models.BookingDeclined)
	}
	b.Status = models.BookingDeclined
	b.UpdatedAt = now
	return b, nil
}

// Start records that staff arrived on site. Starting a booking whose
// started_at is already set is a no-op so that a late status write can
// catch up without failing.
func Start(b models.Booking, now time.Time) (models.Booking, error) {
	switch {
	case b.Status == models.BookingApproved:
	case b.Status == models.BookingInProgress && b.StartedAt != nil:
		return b, nil
	default:
		return b, invalid(b.Status, models.BookingInProgress)
	}
	b.Status = models.BookingInProgress
	if b.StartedAt == nil {
		started := now
		b.StartedAt = &started
	}
	b.UpdatedAt = now
	return b, nil
}

// Complete finishes a booking that is in progress. A booking counts as in
// progress once started_at is set, even if its status still says approved.
func Complete(b models.Booking, now time.Time) (models.Booking, error) {
	if !IsInProgress(b) {
		return b, invalid(b.Status, models.BookingCompleted)
	}
	b.Status = models.BookingCompleted
	completed := now
	b.CompletedAt = &completed
	b.UpdatedAt = now
	return b, nil
}

// Apply dispatches an action by name.
func Apply(b models.Booking, action Action, opts ApproveOptions, now time.Time) (models.Booking, error) {
	switch action {
	case ActionApprove:
		return Approve(b, opts, now)
	case ActionDecline:
		return Decline(b, now)
	case ActionStart:
		return Start(b, now)
	case ActionComplete:
		return Complete(b, now)
	default:
		return b, fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
}

// NewAdminBooking prepares a booking created directly by an admin. Those
// skip the approval step.
func NewAdminBooking(b models.Booking, now time.Time) models.Booking {
	b.Status = models.BookingApproved
	b.CreatedAt = now
	b.UpdatedAt = now
	return b
}

// IsInProgress treats a set started_at as equivalent to the in_progress
// status.
func IsInProgress(b models.Booking) bool {
	if b.Status.Terminal() {
		return false
	}
	return b.Status == models.BookingInProgress || b.StartedAt != nil
}

// Transitioned reports whether next differs from prev in status or in the
// started/completed stamps, which is what a no-op action leaves untouched.
func Transitioned(prev, next models.Booking) bool {
	return prev.Status != next.Status ||
		!sameInstant(prev.StartedAt, next.StartedAt) ||
		!sameInstant(prev.CompletedAt, next.CompletedAt)
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func invalid(from, to models.BookingStatus) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}
