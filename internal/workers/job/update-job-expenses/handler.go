// internal/workers/job/update-job-expenses/handler.go
package updatejobexpenses

import (
	"context"
	"errors"
	"fmt"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/events"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/common/metrics"
	"drclean-workers/internal/lifecycle"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "update-job-expenses"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
	ErrJobNotFound  = errors.New("JOB_NOT_FOUND")
	ErrQueryFailed  = errors.New("QUERY_EXECUTION_FAILED")
)

type Store interface {
	GetJob(ctx context.Context, id string) (models.Job, error)
	UpdateJob(ctx context.Context, job models.Job) error
	ListJobExpenses(ctx context.Context, jobIDs []string) ([]models.JobExpense, error)
	ReplaceJobExpenses(ctx context.Context, jobID string, expenses []models.JobExpense) error
	GetClient(ctx context.Context, id string) (models.Client, error)
}

// Payments is satisfied by *lifecycle.PaymentSync.
type Payments interface {
	MarkPaid(ctx context.Context, job models.Job, clientName string) (lifecycle.PaidResult, error)
}

type Handler struct {
	config    *Config
	store     Store
	payments  Payments
	publisher events.Publisher
	runner    *camunda.Runner
	logger    logger.Logger
}

func NewHandler(config *Config, store Store, payments Payments, publisher events.Publisher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store,
		payments:  payments,
		publisher: publisher,
		runner:    camunda.NewRunner(TaskType, config.Timeout, log),
		logger:    log,
	}
}

func (h *Handler) WithRecorder(rec camunda.JobRecorder) *Handler {
	h.runner.WithRecorder(rec)
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(h.runner, client, job, h.Execute)
}

// Execute saves the edited job with its expense total recomputed from the
// payouts. When the save moves the job to paid, the payment writes run
// first so a sync that wrote nothing leaves the job as it was.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	job, err := h.store.GetJob(ctx, input.JobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, input.JobID)
		}
		return nil, fmt.Errorf("%w: load job: %v", ErrQueryFailed, err)
	}
	previous := job.Status

	if err := apply(&job, input); err != nil {
		return nil, err
	}

	payouts, replace, err := h.payouts(ctx, job.ID, input.CleanerExpenses)
	if err != nil {
		return nil, err
	}
	job.Expenses = lifecycle.JobExpenses(job, payouts)

	output := &Output{
		Expenses:       job.Expenses,
		CleanerPayouts: payouts,
		BecamePaid:     lifecycle.BecomesPaid(previous, job.Status),
	}

	var paid *lifecycle.PaidResult
	if output.BecamePaid {
		if job.PaymentReceivedDate == nil {
			return nil, fmt.Errorf("%w: job %s", lifecycle.ErrPaymentDateRequired, job.ID)
		}
		res, err := h.pay(ctx, job)
		if err != nil {
			return nil, err
		}
		paid = &res
		output.Payment = &Payment{
			Outcome:            res.Outcome(),
			TransactionWritten: res.TransactionWritten,
			InvoiceUpdated:     res.InvoiceUpdated,
			InvoicesSettled:    res.InvoicesSettled,
		}
		if res.Outcome() == lifecycle.OutcomeFailed {
			return nil, res.SyncError(job.ID)
		}
	}

	if err := h.save(ctx, job, payouts, replace); err != nil {
		if paid != nil {
			return nil, paid.SaveError(job.ID, err)
		}
		return nil, err
	}
	output.Job = job

	h.logger.Info("job saved", map[string]interface{}{
		"jobId":      job.ID,
		"status":     string(job.Status),
		"expenses":   job.Expenses,
		"becamePaid": output.BecamePaid,
	})

	if paid == nil {
		return output, nil
	}

	err = h.publisher.Publish(ctx, events.JobPaid, PaidEvent{
		JobID:       job.ID,
		ClientID:    job.ClientID,
		Revenue:     job.Revenue,
		PaymentType: job.PaymentType,
		PaidAt:      *job.PaymentReceivedDate,
		Outcome:     paid.Outcome(),
	})
	if err != nil {
		h.logger.Warn("job paid event not published", map[string]interface{}{
			"jobId": job.ID,
			"error": err.Error(),
		})
	} else {
		output.EventPublished = true
	}

	if err := paid.SyncError(job.ID); err != nil {
		return nil, err
	}
	return output, nil
}

func apply(job *models.Job, input *Input) error {
	if input.Status != "" {
		if !lifecycle.ValidJobStatus(input.Status) {
			return fmt.Errorf("%w: unknown job status %q", ErrInvalidInput, input.Status)
		}
		job.Status = input.Status
	}
	for name, v := range map[string]*float64{
		"revenue":               input.Revenue,
		"suppliesExpenseTotal":  input.SuppliesExpenseTotal,
		"transportExpenseTotal": input.TransportExpenseTotal,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidInput, name)
		}
	}
	if input.Revenue != nil {
		job.Revenue = *input.Revenue
	}
	if input.SuppliesExpenseTotal != nil {
		job.SuppliesExpenseTotal = *input.SuppliesExpenseTotal
	}
	if input.TransportExpenseTotal != nil {
		job.TransportExpenseTotal = *input.TransportExpenseTotal
	}
	if input.PaymentReceivedDate != nil {
		job.PaymentReceivedDate = input.PaymentReceivedDate
	}
	if input.PaymentType != "" {
		job.PaymentType = input.PaymentType
	}
	return nil
}

// payouts returns the cleaner payouts the job will carry and whether they
// replace the stored ones.
func (h *Handler) payouts(ctx context.Context, jobID string, edited []CleanerExpense) ([]models.JobExpense, bool, error) {
	if edited == nil {
		stored, err := h.store.ListJobExpenses(ctx, []string{jobID})
		if err != nil {
			return nil, false, fmt.Errorf("%w: load expenses: %v", ErrQueryFailed, err)
		}
		return stored, false, nil
	}

	out := make([]models.JobExpense, 0, len(edited))
	for _, e := range edited {
		if e.TeamMemberID == "" || e.CleanerExpense < 0 {
			return nil, false, fmt.Errorf("%w: invalid cleaner expense for %q", ErrInvalidInput, e.TeamMemberID)
		}
		out = append(out, models.JobExpense{
			ID:             uuid.New().String(),
			JobID:          jobID,
			TeamMemberID:   e.TeamMemberID,
			CleanerExpense: e.CleanerExpense,
		})
	}
	return out, true, nil
}

func (h *Handler) pay(ctx context.Context, job models.Job) (lifecycle.PaidResult, error) {
	clientName := ""
	if job.ClientID != "" {
		client, err := h.store.GetClient(ctx, job.ClientID)
		switch {
		case errors.Is(err, repository.ErrNotFound):
		case err != nil:
			return lifecycle.PaidResult{}, fmt.Errorf("%w: load client: %v", ErrQueryFailed, err)
		default:
			clientName = client.Name
		}
	}

	res, err := h.payments.MarkPaid(ctx, job, clientName)
	if err != nil {
		return res, err
	}
	metrics.JobPaidSync.WithLabelValues(string(res.Outcome())).Inc()
	return res, nil
}

func (h *Handler) save(ctx context.Context, job models.Job, payouts []models.JobExpense, replace bool) error {
	if replace {
		if err := h.store.ReplaceJobExpenses(ctx, job.ID, payouts); err != nil {
			return fmt.Errorf("%w: replace expenses: %v", ErrQueryFailed, err)
		}
	}
	if err := h.store.UpdateJob(ctx, job); err != nil {
		return fmt.Errorf("%w: update job: %v", ErrQueryFailed, err)
	}
	return nil
}
