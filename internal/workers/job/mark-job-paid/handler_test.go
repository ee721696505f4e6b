// internal/workers/job/mark-job-paid/handler_test.go
package markjobpaid

import (
	"context"
	"errors"
	"testing"
	"time"

	"drclean-workers/internal/common/camunda/camundatest"
	apperrors "drclean-workers/internal/common/errors"
	"drclean-workers/internal/common/events"
	"drclean-workers/internal/common/events/eventstest"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/lifecycle"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var paidAt = time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)

type fixture struct {
	handler   *Handler
	store     *repotest.Memory
	publisher *eventstest.Recorder
}

func setup(t *testing.T) *fixture {
	log := logger.NewTestLogger(t)
	store := repotest.New()
	store.Clients["c-1"] = models.Client{ID: "c-1", Name: "Jana Nováková"}
	store.Jobs["job-1"] = models.Job{
		ID:       "job-1",
		ClientID: "c-1",
		Title:    "Korunní 12",
		Revenue:  2400,
		Status:   models.JobCompleted,
	}
	store.Invoices["inv-1"] = models.Invoice{ID: "inv-1", ClientName: "Jana Nováková", Status: models.InvoiceIssued}
	store.Invoices["inv-2"] = models.Invoice{ID: "inv-2", ClientName: "Petr Svoboda", Status: models.InvoiceIssued}

	f := &fixture{store: store, publisher: &eventstest.Recorder{}}
	f.handler = NewHandler(LoadConfig(), store, lifecycle.NewPaymentSync(store, store, log), f.publisher, log)
	return f
}

func paidInput() *Input {
	at := paidAt
	return &Input{JobID: "job-1", PaymentReceivedDate: &at, PaymentType: models.PaymentBank}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_FullSync(t *testing.T) {
	f := setup(t)

	out, err := f.handler.Execute(context.Background(), paidInput())

	require.NoError(t, err)
	assert.Equal(t, lifecycle.OutcomeFull, out.Outcome)
	assert.Equal(t, int64(1), out.InvoicesSettled)
	assert.True(t, out.EventPublished)

	job := f.store.Jobs["job-1"]
	assert.Equal(t, models.JobPaid, job.Status)
	assert.Equal(t, models.PaymentBank, job.PaymentType)

	require.Len(t, f.store.Transactions, 1)
	tx := f.store.Transactions[0]
	assert.Equal(t, models.TransactionRevenue, tx.Type)
	assert.Equal(t, 2400.0, tx.Amount)
	assert.Equal(t, "Platba za zakázku: Korunní 12", tx.Description)
	assert.Equal(t, paidAt, tx.TransactionDate)

	assert.Equal(t, models.InvoicePaid, f.store.Invoices["inv-1"].Status)
	assert.Equal(t, models.InvoiceIssued, f.store.Invoices["inv-2"].Status)
	assert.Equal(t, []string{events.JobPaid}, f.publisher.Keys())
}

func TestHandler_Execute_AlreadyPaidIsNoop(t *testing.T) {
	f := setup(t)
	job := f.store.Jobs["job-1"]
	job.Status = models.JobPaid
	f.store.Jobs["job-1"] = job

	out, err := f.handler.Execute(context.Background(), paidInput())

	require.NoError(t, err)
	assert.True(t, out.AlreadyPaid)
	assert.Empty(t, f.store.Transactions)
	assert.Empty(t, f.publisher.Events())
}

func TestHandler_Execute_MissingClientSkipsInvoices(t *testing.T) {
	f := setup(t)
	delete(f.store.Clients, "c-1")

	out, err := f.handler.Execute(context.Background(), paidInput())

	require.NoError(t, err)
	assert.Equal(t, lifecycle.OutcomeFull, out.Outcome)
	assert.Equal(t, models.InvoiceIssued, f.store.Invoices["inv-1"].Status)
}

func TestHandler_Execute_UsesStoredPaymentDate(t *testing.T) {
	f := setup(t)
	job := f.store.Jobs["job-1"]
	stored := paidAt.AddDate(0, 0, -3)
	job.PaymentReceivedDate = &stored
	f.store.Jobs["job-1"] = job

	_, err := f.handler.Execute(context.Background(), &Input{JobID: "job-1"})

	require.NoError(t, err)
	require.Len(t, f.store.Transactions, 1)
	assert.Equal(t, stored, f.store.Transactions[0].TransactionDate)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_PaymentDateRequired(t *testing.T) {
	f := setup(t)

	_, err := f.handler.Execute(context.Background(), &Input{JobID: "job-1"})

	assert.ErrorIs(t, err, lifecycle.ErrPaymentDateRequired)
	assert.Empty(t, f.store.Transactions)
	assert.Equal(t, models.JobCompleted, f.store.Jobs["job-1"].Status)
}

func TestHandler_Execute_PartialSync(t *testing.T) {
	f := setup(t)
	f.store.Errors["MarkIssuedPaidByClientName"] = errors.New("lock timeout")

	_, err := f.handler.Execute(context.Background(), paidInput())

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodePartialPaymentSync, stdErr.Code)
	assert.Equal(t, true, stdErr.Metadata["transactionWritten"])
	assert.Equal(t, false, stdErr.Metadata["invoiceUpdated"])
	assert.Len(t, f.store.Transactions, 1)
	assert.Equal(t, models.JobPaid, f.store.Jobs["job-1"].Status)
}

func TestHandler_Execute_FailedSyncLeavesJobUntouched(t *testing.T) {
	f := setup(t)
	f.store.Errors["InsertTransaction"] = errors.New("connection reset")
	f.store.Errors["MarkIssuedPaidByClientName"] = errors.New("connection reset")

	_, err := f.handler.Execute(context.Background(), paidInput())

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
	assert.Equal(t, models.JobCompleted, f.store.Jobs["job-1"].Status)
	assert.Empty(t, f.publisher.Events())
}

func TestHandler_Execute_SaveFailureAfterPayment(t *testing.T) {
	f := setup(t)
	f.store.Errors["UpdateJob"] = errors.New("deadlock")

	_, err := f.handler.Execute(context.Background(), paidInput())

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodePartialPaymentSync, stdErr.Code)
	assert.Equal(t, false, stdErr.Metadata["jobUpdated"])
}

func TestHandler_Execute_LookupErrors(t *testing.T) {
	tests := []struct {
		name    string
		jobID   string
		failing string
		wantErr error
	}{
		{name: "unknown job", jobID: "job-9", wantErr: ErrJobNotFound},
		{name: "job query fails", jobID: "job-1", failing: "GetJob", wantErr: ErrQueryFailed},
		{name: "client query fails", jobID: "job-1", failing: "GetClient", wantErr: ErrQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			if tt.failing != "" {
				f.store.Errors[tt.failing] = errors.New("connection reset")
			}
			in := paidInput()
			in.JobID = tt.jobID

			_, err := f.handler.Execute(context.Background(), in)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.store.Transactions)
		})
	}
}

func TestHandler_Handle_PartialSyncIsThrownWithDetails(t *testing.T) {
	f := setup(t)
	f.store.Errors["MarkIssuedPaidByClientName"] = errors.New("lock timeout")
	client := camundatest.NewJobClient()

	f.handler.Handle(client, camundatest.NewJob(6, TaskType, map[string]interface{}{
		"jobId":               "job-1",
		"paymentReceivedDate": paidAt.Format(time.RFC3339),
	}))

	require.Len(t, client.Thrown(), 1)
	thrown := client.Thrown()[0]
	assert.Equal(t, "PARTIAL_PAYMENT_SYNC", thrown.ErrorCode)
	assert.Contains(t, thrown.Variables, `"transactionWritten":true`)
}

func TestHandler_Handle_FailedSyncIsRetried(t *testing.T) {
	f := setup(t)
	f.store.Errors["InsertTransaction"] = errors.New("connection reset")
	f.store.Errors["MarkIssuedPaidByClientName"] = errors.New("connection reset")
	client := camundatest.NewJobClient()

	f.handler.Handle(client, camundatest.NewJob(7, TaskType, map[string]interface{}{
		"jobId":               "job-1",
		"paymentReceivedDate": paidAt.Format(time.RFC3339),
	}))

	require.Len(t, client.Failed(), 1)
	assert.Equal(t, int32(2), client.Failed()[0].Retries)
}
