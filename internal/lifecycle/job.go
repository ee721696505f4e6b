package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	apperrors "drclean-workers/internal/common/errors"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/models"
)

const (
	paymentCategory = "job_payment"
	currencyCZK     = "CZK"
)

// Outcome classifies the two writes performed when a job is paid.
type Outcome string

const (
	OutcomeFull    Outcome = "full"
	OutcomePartial Outcome = "partial"
	OutcomeFailed  Outcome = "failed"
)

// TransactionWriter records the revenue of a paid job.
type TransactionWriter interface {
	InsertTransaction(ctx context.Context, tx models.Transaction) error
}

// InvoiceUpdater settles the client's outstanding invoices.
type InvoiceUpdater interface {
	MarkIssuedPaidByClientName(ctx context.Context, clientName string) (int64, error)
}

// PaidResult reports each write separately. The writes are not atomic: a
// crash between them leaves revenue recorded without the invoice update.
type PaidResult struct {
	Transaction        *models.Transaction `json:"transaction,omitempty"`
	TransactionWritten bool                `json:"transactionWritten"`
	InvoiceUpdated     bool                `json:"invoiceUpdated"`
	InvoicesSettled    int64               `json:"invoicesSettled"`
	TransactionErr     error               `json:"-"`
	InvoiceErr         error               `json:"-"`
}

func (r PaidResult) Outcome() Outcome {
	switch {
	case r.TransactionWritten && r.InvoiceUpdated:
		return OutcomeFull
	case r.TransactionWritten || r.InvoiceUpdated:
		return OutcomePartial
	default:
		return OutcomeFailed
	}
}

// SyncError is what a worker reports for the result. A failed sync wrote
// nothing, so its error is retryable. A partial sync is not: a retry would
// write the revenue twice. Its metadata names the write that landed.
func (r PaidResult) SyncError(jobID string) error {
	switch r.Outcome() {
	case OutcomeFull:
		return nil
	case OutcomeFailed:
		return apperrors.NewQueryExecutionFailedError("mark job "+jobID+" paid", r.TransactionErr)
	}

	var failures []string
	if r.TransactionErr != nil {
		failures = append(failures, "transaction: "+r.TransactionErr.Error())
	}
	if r.InvoiceErr != nil {
		failures = append(failures, "invoice: "+r.InvoiceErr.Error())
	}
	stdErr := apperrors.New(apperrors.ErrCodePartialPaymentSync, "job "+jobID)
	stdErr.Metadata = map[string]interface{}{
		"jobId":              jobID,
		"transactionWritten": r.TransactionWritten,
		"invoiceUpdated":     r.InvoiceUpdated,
		"errors":             failures,
	}
	return stdErr
}

// SaveError reports a job whose paid status could not be stored after the
// payment writes ran. Like a partial sync it is not retried.
func (r PaidResult) SaveError(jobID string, err error) error {
	stdErr := apperrors.New(apperrors.ErrCodePartialPaymentSync, "job "+jobID+" not saved")
	stdErr.Metadata = map[string]interface{}{
		"jobId":              jobID,
		"transactionWritten": r.TransactionWritten,
		"invoiceUpdated":     r.InvoiceUpdated,
		"jobUpdated":         false,
		"errors":             []string{"job: " + err.Error()},
	}
	return stdErr
}

// JobExpenses is the recomputed expense total of a job. The stored
// expenses column is derived from this and may drift.
func JobExpenses(job models.Job, cleaner []models.JobExpense) float64 {
	total := job.SuppliesExpenseTotal + job.TransportExpenseTotal
	for _, e := range cleaner {
		total += e.CleanerExpense
	}
	return total
}

// BecomesPaid reports whether saving next over prev is the transition that
// triggers the payment side effects.
func BecomesPaid(prev, next models.JobStatus) bool {
	return next == models.JobPaid && prev != models.JobPaid
}

// ValidJobStatus accepts the forward states and the legacy values still
// present in old rows.
func ValidJobStatus(s models.JobStatus) bool {
	switch s {
	case models.JobScheduled, models.JobPending, models.JobInProgress, models.JobCompleted, models.JobPaid:
		return true
	}
	return false
}

// PaymentSync performs the side effects of marking a job paid.
type PaymentSync struct {
	transactions TransactionWriter
	invoices     InvoiceUpdater
	log          logger.Logger
}

func NewPaymentSync(transactions TransactionWriter, invoices InvoiceUpdater, log logger.Logger) *PaymentSync {
	return &PaymentSync{
		transactions: transactions,
		invoices:     invoices,
		log:          log,
	}
}

// MarkPaid writes the revenue transaction and settles the client's issued
// invoices. Both writes are attempted even if the first fails. clientName
// may be empty when the client record is gone, in which case no invoice is
// touched.
func (s *PaymentSync) MarkPaid(ctx context.Context, job models.Job, clientName string) (PaidResult, error) {
	var res PaidResult
	if job.PaymentReceivedDate == nil {
		return res, fmt.Errorf("%w: job %s", ErrPaymentDateRequired, job.ID)
	}

	jobID := job.ID
	tx := models.Transaction{
		ID:              uuid.New().String(),
		UserID:          job.UserID,
		Type:            models.TransactionRevenue,
		Category:        paymentCategory,
		Amount:          job.Revenue,
		Currency:        currencyCZK,
		Description:     fmt.Sprintf("Platba za zakázku: %s", job.Title),
		TransactionDate: *job.PaymentReceivedDate,
		JobID:           &jobID,
	}
	if err := s.transactions.InsertTransaction(ctx, tx); err != nil {
		res.TransactionErr = err
	} else {
		res.TransactionWritten = true
		res.Transaction = &tx
	}

	if clientName == "" {
		res.InvoiceUpdated = true
	} else if n, err := s.invoices.MarkIssuedPaidByClientName(ctx, clientName); err != nil {
		res.InvoiceErr = err
	} else {
		res.InvoiceUpdated = true
		res.InvoicesSettled = n
	}

	fields := map[string]interface{}{
		"jobId":              job.ID,
		"outcome":            string(res.Outcome()),
		"transactionWritten": res.TransactionWritten,
		"invoiceUpdated":     res.InvoiceUpdated,
	}
	switch res.Outcome() {
	case OutcomeFull:
		s.log.Info("job payment recorded", fields)
	case OutcomePartial:
		if res.TransactionErr != nil {
			fields["transactionError"] = res.TransactionErr.Error()
		}
		if res.InvoiceErr != nil {
			fields["invoiceError"] = res.InvoiceErr.Error()
		}
		s.log.Warn("job payment partially recorded", fields)
	default:
		fields["transactionError"] = res.TransactionErr.Error()
		fields["invoiceError"] = res.InvoiceErr.Error()
		s.log.Error("job payment not recorded", fields)
	}
	return res, nil
}
