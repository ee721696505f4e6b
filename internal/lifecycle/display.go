package lifecycle

import (
	"time"

	"drclean-workers/internal/models"
)

type PaymentState string

const (
	DisplayPaid            PaymentState = "paid"
	DisplayInvoicePending  PaymentState = "invoice_pending"
	DisplayNoInvoiceNeeded PaymentState = "no_invoice_needed"
	DisplayInProgress      PaymentState = "in_progress"
)

// Display is what a booking card shows.
type Display struct {
	State         PaymentState         `json:"state"`
	InvoiceStatus models.InvoiceStatus `json:"invoiceStatus,omitempty"`
	InvoiceLabel  string               `json:"invoiceLabel,omitempty"`
}

var invoiceLabels = map[models.InvoiceStatus]string{
	models.InvoiceIssued:  "K úhradě",
	models.InvoiceOverdue: "Po splatnosti",
	models.InvoicePaid:    "Zaplaceno",
}

// PaymentDisplay derives the effective payment state of a booking. inv is
// the linked invoice, nil when none is assigned.
func PaymentDisplay(b models.Booking, inv *models.Invoice, now time.Time) Display {
	var d Display
	if inv != nil {
		d.InvoiceStatus = inv.EffectiveStatus(now)
		d.InvoiceLabel = invoiceLabels[d.InvoiceStatus]
	}

	switch {
	case inv != nil && d.InvoiceStatus == models.InvoicePaid:
		d.State = DisplayPaid
	case b.Status == models.BookingCompleted && inv == nil && !b.SkipInvoice:
		d.State = DisplayInvoicePending
	case b.SkipInvoice:
		d.State = DisplayNoInvoiceNeeded
	case IsInProgress(b):
		d.State = DisplayInProgress
	default:
		d.State = PaymentState(b.Status)
	}
	return d
}

// IsActiveForClient decides whether a booking stays on the client's
// dashboard or moves to history.
func IsActiveForClient(b models.Booking, inv *models.Invoice, now time.Time) bool {
	if b.Status != models.BookingCompleted {
		return true
	}

	var status models.InvoiceStatus
	if inv != nil {
		status = inv.EffectiveStatus(now)
	}
	if status == models.InvoiceOverdue {
		return true
	}
	if (status == models.InvoicePaid || b.SkipInvoice) && b.ClientViewedAt == nil {
		return true
	}
	return inv == nil && !b.SkipInvoice && b.Feedback == nil
}

// NeedsViewedMark reports whether opening the dashboard should stamp
// client_viewed_at, which retires a settled booking to history.
func NeedsViewedMark(b models.Booking, inv *models.Invoice, now time.Time) bool {
	if b.Status != models.BookingCompleted || b.ClientViewedAt != nil {
		return false
	}
	return b.SkipInvoice || (inv != nil && inv.EffectiveStatus(now) == models.InvoicePaid)
}
