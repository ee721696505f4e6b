// internal/workers/job/mark-job-paid/handler.go
package markjobpaid

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
)

const (
	TaskType = "mark-job-paid"
)

var (
	ErrJobNotFound = errors.New("JOB_NOT_FOUND")
	ErrQueryFailed = errors.New("QUERY_EXECUTION_FAILED")
)

type Store interface {
	GetJob(ctx context.Context, id string) (models.Job, error)
	UpdateJob(ctx context.Context, job models.Job) error
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

// Execute records the payment before storing the job as paid. A sync that
// wrote nothing leaves the job untouched so the retry starts clean.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	job, err := h.store.GetJob(ctx, input.JobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, input.JobID)
		}
		return nil, fmt.Errorf("%w: load job: %v", ErrQueryFailed, err)
	}

	output := &Output{JobID: job.ID}
	if !lifecycle.BecomesPaid(job.Status, models.JobPaid) {
		output.AlreadyPaid = true
		return output, nil
	}

	if input.PaymentReceivedDate != nil {
		job.PaymentReceivedDate = input.PaymentReceivedDate
	}
	if input.PaymentType != "" {
		job.PaymentType = input.PaymentType
	}
	if job.PaymentReceivedDate == nil {
		return nil, fmt.Errorf("%w: job %s", lifecycle.ErrPaymentDateRequired, job.ID)
	}

	clientName, err := h.clientName(ctx, job.ClientID)
	if err != nil {
		return nil, err
	}

	res, err := h.payments.MarkPaid(ctx, job, clientName)
	if err != nil {
		return nil, err
	}
	outcome := res.Outcome()
	metrics.JobPaidSync.WithLabelValues(string(outcome)).Inc()

	output.Outcome = outcome
	output.TransactionWritten = res.TransactionWritten
	output.InvoiceUpdated = res.InvoiceUpdated
	output.InvoicesSettled = res.InvoicesSettled
	if outcome == lifecycle.OutcomeFailed {
		return nil, res.SyncError(job.ID)
	}

	job.Status = models.JobPaid
	if err := h.store.UpdateJob(ctx, job); err != nil {
		return nil, res.SaveError(job.ID, err)
	}

	err = h.publisher.Publish(ctx, events.JobPaid, PaidEvent{
		JobID:       job.ID,
		ClientID:    job.ClientID,
		Revenue:     job.Revenue,
		PaymentType: job.PaymentType,
		PaidAt:      *job.PaymentReceivedDate,
		Outcome:     outcome,
	})
	if err != nil {
		h.logger.Warn("job paid event not published", map[string]interface{}{
			"jobId": job.ID,
			"error": err.Error(),
		})
	} else {
		output.EventPublished = true
	}

	if err := res.SyncError(job.ID); err != nil {
		return nil, err
	}
	return output, nil
}

// clientName returns "" for a client that no longer exists.
func (h *Handler) clientName(ctx context.Context, clientID string) (string, error) {
	if clientID == "" {
		return "", nil
	}
	client, err := h.store.GetClient(ctx, clientID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: load client: %v", ErrQueryFailed, err)
	}
	return client.Name, nil
}
