package models

import "time"

type JobStatus string

const (
	JobScheduled  JobStatus = "scheduled"
	JobPending    JobStatus = "pending"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobPaid       JobStatus = "paid"
)

type PaymentType string

const (
	PaymentCash PaymentType = "cash"
	PaymentBank PaymentType = "bank"
)

type Job struct {
	ID                    string          `json:"id"`
	UserID                string          `json:"userId,omitempty"`
	JobNumber             string          `json:"jobNumber"`
	ClientID              string          `json:"clientId"`
	Title                 string          `json:"title"`
	Description           string          `json:"description,omitempty"`
	Category              ServiceCategory `json:"category"`
	ScheduledDate         time.Time       `json:"scheduledDate"`
	ScheduledDates        []time.Time     `json:"scheduledDates,omitempty"`
	CompletedDate         *time.Time      `json:"completedDate,omitempty"`
	DurationHours         float64         `json:"durationHours,omitempty"`
	Revenue               float64         `json:"revenue"`
	Expenses              float64         `json:"expenses"`
	SuppliesExpenseTotal  float64         `json:"suppliesExpenseTotal"`
	TransportExpenseTotal float64         `json:"transportExpenseTotal"`
	TeamMemberIDs         []string        `json:"teamMemberIds"`
	Status                JobStatus       `json:"status"`
	PaymentReceivedDate   *time.Time      `json:"paymentReceivedDate,omitempty"`
	PaymentType           PaymentType     `json:"paymentType,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
}

// JobExpense is one cleaner's payout on a job (job_expenses row).
type JobExpense struct {
	ID             string  `json:"id,omitempty"`
	JobID          string  `json:"jobId"`
	TeamMemberID   string  `json:"teamMemberId"`
	CleanerExpense float64 `json:"cleanerExpense"`
}

type TransactionType string

const (
	TransactionRevenue TransactionType = "revenue"
	TransactionExpense TransactionType = "expense"
)

// Transaction is a ledger row of the finance module.
type Transaction struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId,omitempty"`
	Type            TransactionType `json:"type"`
	Category        string          `json:"category"`
	Amount          float64         `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	TransactionDate time.Time       `json:"transactionDate"`
	JobID           *string         `json:"jobId,omitempty"`
}
