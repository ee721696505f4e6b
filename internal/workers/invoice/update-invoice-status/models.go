// internal/workers/invoice/update-invoice-status/models.go
package updateinvoicestatus

import (
	"drclean-workers/internal/loyalty"
	"drclean-workers/internal/models"
)

type Input struct {
	InvoiceID string               `json:"invoiceId"`
	Status    models.InvoiceStatus `json:"status"`
}

type Output struct {
	InvoiceID      string                  `json:"invoiceId"`
	PreviousStatus models.InvoiceStatus    `json:"previousStatus"`
	Status         models.InvoiceStatus    `json:"status"`
	Changed        bool                    `json:"changed"`
	Accrual        *loyalty.AccrualResult  `json:"accrual,omitempty"`
	Reversal       *loyalty.ReversalResult `json:"reversal,omitempty"`
	Indexed        bool                    `json:"indexed"`
	EventPublished bool                    `json:"eventPublished"`
}

// StatusEvent is published as invoice.status_changed.
type StatusEvent struct {
	InvoiceID     string               `json:"invoiceId"`
	InvoiceNumber string               `json:"invoiceNumber"`
	ClientID      string               `json:"clientId,omitempty"`
	From          models.InvoiceStatus `json:"from"`
	To            models.InvoiceStatus `json:"to"`
	Total         string               `json:"total"`
}
