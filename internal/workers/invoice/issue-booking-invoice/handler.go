// internal/workers/invoice/issue-booking-invoice/handler.go
package issuebookinginvoice

import (
	"context"
	"errors"
	"fmt"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/database"
	"drclean-workers/internal/common/events"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/common/metrics"
	"drclean-workers/internal/invoicing"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "issue-booking-invoice"
)

var (
	ErrBookingNotFound = errors.New("BOOKING_NOT_FOUND")
	ErrQueryFailed     = errors.New("QUERY_EXECUTION_FAILED")
	ErrInsertFailed    = errors.New("DATABASE_INSERT_FAILED")
)

type Store interface {
	GetBooking(ctx context.Context, id string) (models.Booking, error)
	GetClient(ctx context.Context, id string) (models.Client, error)
}

type Issuer interface {
	FromBooking(ctx context.Context, b models.Booking, client models.Client) (invoicing.Result, error)
}

type Indexer interface {
	Index(ctx context.Context, inv models.Invoice) error
}

type Handler struct {
	config    *Config
	store     Store
	issuer    Issuer
	index     Indexer
	publisher events.Publisher
	cache     redis.Cmdable
	runner    *camunda.Runner
	logger    logger.Logger
}

// NewHandler wires the worker. index and cache may be nil.
func NewHandler(config *Config, store Store, issuer Issuer, index Indexer, publisher events.Publisher, cache redis.Cmdable, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store,
		issuer:    issuer,
		index:     index,
		publisher: publisher,
		cache:     cache,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	booking, err := h.store.GetBooking(ctx, input.BookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, input.BookingID)
		}
		return nil, fmt.Errorf("%w: load booking: %v", ErrQueryFailed, err)
	}

	client, err := h.store.GetClient(ctx, booking.ClientID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		h.logger.Warn("booking client not found, invoicing without client details", map[string]interface{}{
			"bookingId": booking.ID,
			"clientId":  booking.ClientID,
		})
		client = models.Client{ID: booking.ClientID}
	case err != nil:
		return nil, fmt.Errorf("%w: load client: %v", ErrQueryFailed, err)
	}

	result, err := h.issuer.FromBooking(ctx, booking, client)
	if err != nil {
		if errors.Is(err, invoicing.ErrBookingNotCompleted) ||
			errors.Is(err, invoicing.ErrInvoiceNotNeeded) ||
			errors.Is(err, invoicing.ErrNumberUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInsertFailed, err)
	}

	if result.AlreadyExists {
		h.logger.Info("booking already invoiced", map[string]interface{}{
			"bookingId": booking.ID,
			"invoiceId": result.InvoiceID,
		})
		return &Output{InvoiceID: result.InvoiceID, AlreadyExists: true}, nil
	}

	inv := *result.Invoice
	metrics.InvoicesIssued.Inc()
	h.logger.Info("invoice issued", map[string]interface{}{
		"bookingId":     booking.ID,
		"invoiceId":     inv.ID,
		"invoiceNumber": inv.InvoiceNumber,
		"total":         inv.Total.StringFixed(2),
	})

	output := &Output{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientEmail:   inv.ClientEmail,
		Total:         inv.Total.StringFixed(2),
	}

	if h.index != nil {
		if err := h.index.Index(ctx, inv); err != nil {
			h.logger.Warn("invoice not indexed", map[string]interface{}{
				"invoiceId": inv.ID,
				"error":     err.Error(),
			})
		} else {
			output.Indexed = true
		}
	}

	if h.cache != nil {
		_ = h.cache.Del(ctx, database.ClientBookingsKey(booking.ClientID)).Err()
	}

	err = h.publisher.Publish(ctx, events.InvoiceIssued, IssuedEvent{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		BookingID:     booking.ID,
		ClientID:      booking.ClientID,
		Total:         output.Total,
	})
	if err != nil {
		h.logger.Warn("invoice event not published", map[string]interface{}{
			"invoiceId": inv.ID,
			"error":     err.Error(),
		})
	} else {
		output.EventPublished = true
	}

	return output, nil
}
