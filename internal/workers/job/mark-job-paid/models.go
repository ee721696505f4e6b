// internal/workers/job/mark-job-paid/models.go
package markjobpaid

import (
	"time"

	"drclean-workers/internal/lifecycle"
	"drclean-workers/internal/models"
)

type Input struct {
	JobID               string             `json:"jobId"`
	PaymentReceivedDate *time.Time         `json:"paymentReceivedDate,omitempty"`
	PaymentType         models.PaymentType `json:"paymentType,omitempty"`
}

type Output struct {
	JobID              string            `json:"jobId"`
	AlreadyPaid        bool              `json:"alreadyPaid"`
	Outcome            lifecycle.Outcome `json:"outcome,omitempty"`
	TransactionWritten bool              `json:"transactionWritten"`
	InvoiceUpdated     bool              `json:"invoiceUpdated"`
	InvoicesSettled    int64             `json:"invoicesSettled"`
	EventPublished     bool              `json:"eventPublished"`
}

// PaidEvent is published as job.paid.
type PaidEvent struct {
	JobID       string             `json:"jobId"`
	ClientID    string             `json:"clientId"`
	Revenue     float64            `json:"revenue"`
	PaymentType models.PaymentType `json:"paymentType,omitempty"`
	PaidAt      time.Time          `json:"paidAt"`
	Outcome     lifecycle.Outcome  `json:"outcome"`
}
