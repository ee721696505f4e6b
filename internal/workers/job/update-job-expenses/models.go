// internal/workers/job/update-job-expenses/models.go
package updatejobexpenses

import (
	"time"

	"drclean-workers/internal/lifecycle"
	"drclean-workers/internal/models"
)

type CleanerExpense struct {
	TeamMemberID   string  `json:"teamMemberId"`
	CleanerExpense float64 `json:"cleanerExpense"`
}

// Input carries the edited job form. Nil fields keep their stored value;
// a nil CleanerExpenses keeps the stored payouts.
type Input struct {
	JobID                 string             `json:"jobId"`
	Status                models.JobStatus   `json:"status,omitempty"`
	Revenue               *float64           `json:"revenue,omitempty"`
	SuppliesExpenseTotal  *float64           `json:"suppliesExpenseTotal,omitempty"`
	TransportExpenseTotal *float64           `json:"transportExpenseTotal,omitempty"`
	PaymentReceivedDate   *time.Time         `json:"paymentReceivedDate,omitempty"`
	PaymentType           models.PaymentType `json:"paymentType,omitempty"`
	CleanerExpenses       []CleanerExpense   `json:"cleanerExpenses,omitempty"`
}

type Payment struct {
	Outcome            lifecycle.Outcome `json:"outcome"`
	TransactionWritten bool              `json:"transactionWritten"`
	InvoiceUpdated     bool              `json:"invoiceUpdated"`
	InvoicesSettled    int64             `json:"invoicesSettled"`
}

type Output struct {
	Job            models.Job          `json:"job"`
	Expenses       float64             `json:"expenses"`
	CleanerPayouts []models.JobExpense `json:"cleanerPayouts"`
	BecamePaid     bool                `json:"becamePaid"`
	Payment        *Payment            `json:"payment,omitempty"`
	EventPublished bool                `json:"eventPublished"`
}

// PaidEvent is published as job.paid when the save marks the job paid.
type PaidEvent struct {
	JobID       string             `json:"jobId"`
	ClientID    string             `json:"clientId"`
	Revenue     float64            `json:"revenue"`
	PaymentType models.PaymentType `json:"paymentType,omitempty"`
	PaidAt      time.Time          `json:"paidAt"`
	Outcome     lifecycle.Outcome  `json:"outcome"`
}
