// internal/workers/invoice/update-invoice-status/handler.go
package updateinvoicestatus

import (
	"context"
	"errors"
	"fmt"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/database"
	"drclean-workers/internal/common/events"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/common/metrics"
	"drclean-workers/internal/loyalty"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	TaskType = "update-invoice-status"
)

var (
	ErrInvoiceNotFound = errors.New("INVOICE_NOT_FOUND")
	ErrInvalidStatus   = errors.New("INVALID_INVOICE_STATUS")
	ErrQueryFailed     = errors.New("QUERY_EXECUTION_FAILED")
)

type Store interface {
	GetInvoice(ctx context.Context, id string) (models.Invoice, error)
	UpdateInvoiceStatus(ctx context.Context, id string, status models.InvoiceStatus) error
}

// Loyalty is satisfied by *loyalty.Service.
type Loyalty interface {
	Accrue(ctx context.Context, clientID string, total decimal.Decimal, bookingID string) (loyalty.AccrualResult, error)
	Reverse(ctx context.Context, clientID string, total decimal.Decimal, bookingID string) (loyalty.ReversalResult, error)
}

type Indexer interface {
	Index(ctx context.Context, inv models.Invoice) error
}

type Handler struct {
	config    *Config
	store     Store
	loyalty   Loyalty
	index     Indexer
	publisher events.Publisher
	cache     redis.Cmdable
	runner    *camunda.Runner
	logger    logger.Logger
}

func NewHandler(config *Config, store Store, loyalty Loyalty, index Indexer, publisher events.Publisher, cache redis.Cmdable, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store,
		loyalty:   loyalty,
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

func validStatus(s models.InvoiceStatus) bool {
	return s == models.InvoiceIssued || s == models.InvoicePaid || s == models.InvoiceOverdue
}

// Execute stores the new status, then moves loyalty points. Entering paid
// credits them and leaving paid reverses them. Once the status is stored,
// no later step fails the job: a retry would see the status unchanged and
// skip the points.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if !validStatus(input.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	inv, err := h.store.GetInvoice(ctx, input.InvoiceID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrInvoiceNotFound, input.InvoiceID)
		}
		return nil, fmt.Errorf("%w: load invoice: %v", ErrQueryFailed, err)
	}

	output := &Output{
		InvoiceID:      inv.ID,
		PreviousStatus: inv.Status,
		Status:         input.Status,
	}
	if inv.Status == input.Status {
		return output, nil
	}

	if err := h.store.UpdateInvoiceStatus(ctx, inv.ID, input.Status); err != nil {
		return nil, fmt.Errorf("%w: update status: %v", ErrQueryFailed, err)
	}
	output.Changed = true
	previous := inv.Status
	inv.Status = input.Status

	h.logger.Info("invoice status updated", map[string]interface{}{
		"invoiceId": inv.ID,
		"from":      string(previous),
		"to":        string(input.Status),
	})

	h.moveLoyalty(ctx, inv, previous, output)

	if h.index != nil {
		if err := h.index.Index(ctx, inv); err != nil {
			h.logger.Warn("invoice not reindexed", map[string]interface{}{
				"invoiceId": inv.ID,
				"error":     err.Error(),
			})
		} else {
			output.Indexed = true
		}
	}

	if h.cache != nil && inv.ClientID != "" {
		_ = h.cache.Del(ctx, database.ClientBookingsKey(inv.ClientID)).Err()
	}

	err = h.publisher.Publish(ctx, events.InvoiceStatus, StatusEvent{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientID:      inv.ClientID,
		From:          previous,
		To:            inv.Status,
		Total:         inv.Total.StringFixed(2),
	})
	if err != nil {
		h.logger.Warn("invoice status event not published", map[string]interface{}{
			"invoiceId": inv.ID,
			"error":     err.Error(),
		})
	} else {
		output.EventPublished = true
	}

	return output, nil
}

func (h *Handler) moveLoyalty(ctx context.Context, inv models.Invoice, previous models.InvoiceStatus, output *Output) {
	if h.loyalty == nil || inv.ClientID == "" {
		return
	}
	bookingID := ""
	if inv.BookingID != nil {
		bookingID = *inv.BookingID
	}

	switch {
	case inv.Status == models.InvoicePaid:
		res, err := h.loyalty.Accrue(ctx, inv.ClientID, inv.Total, bookingID)
		if err != nil {
			h.logger.Error("loyalty accrual failed", map[string]interface{}{
				"invoiceId": inv.ID,
				"clientId":  inv.ClientID,
				"error":     err.Error(),
			})
			return
		}
		output.Accrual = &res
		if res.Points > 0 {
			metrics.LoyaltyPoints.WithLabelValues("earned").Add(float64(res.Points + res.ReferrerPoints))
		}

	case previous == models.InvoicePaid:
		res, err := h.loyalty.Reverse(ctx, inv.ClientID, inv.Total, bookingID)
		if err != nil {
			h.logger.Error("loyalty reversal failed", map[string]interface{}{
				"invoiceId": inv.ID,
				"clientId":  inv.ClientID,
				"error":     err.Error(),
			})
			return
		}
		output.Reversal = &res
		if res.Points > 0 {
			metrics.LoyaltyPoints.WithLabelValues("reversed").Add(float64(res.Points))
		}
	}
}
