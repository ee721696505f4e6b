// internal/workers/booking/transition-booking/handler.go
package transitionbooking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/database"
	"drclean-workers/internal/common/events"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/common/metrics"
	"drclean-workers/internal/lifecycle"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "transition-booking"
)

var (
	ErrBookingNotFound = errors.New("BOOKING_NOT_FOUND")
	ErrQueryFailed     = errors.New("QUERY_EXECUTION_FAILED")
)

type Store interface {
	GetBooking(ctx context.Context, id string) (models.Booking, error)
	SaveBooking(ctx context.Context, b models.Booking) error
	GetClient(ctx context.Context, id string) (models.Client, error)
	GetInvoice(ctx context.Context, id string) (models.Invoice, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config    *Config
	store     Store
	publisher events.Publisher
	sms       SMSSender
	cache     redis.Cmdable
	runner    *camunda.Runner
	logger    logger.Logger
	now       func() time.Time
}

// NewHandler wires the worker. sms and cache are optional.
func NewHandler(config *Config, store Store, publisher events.Publisher, sms SMSSender, cache redis.Cmdable, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store,
		publisher: publisher,
		sms:       sms,
		cache:     cache,
		runner:    camunda.NewRunner(TaskType, config.Timeout, log),
		logger:    log,
		now:       time.Now,
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

	now := h.now().UTC()
	next, err := lifecycle.Apply(booking, input.Action, input.Options, now)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Booking:        next,
		PreviousStatus: booking.Status,
		Changed:        lifecycle.Transitioned(booking, next),
	}

	if output.Changed {
		if err := h.store.SaveBooking(ctx, next); err != nil {
			return nil, fmt.Errorf("%w: save booking: %v", ErrQueryFailed, err)
		}
		metrics.BookingTransitions.WithLabelValues(string(booking.Status), string(next.Status)).Inc()
		h.logger.Info("booking transitioned", map[string]interface{}{
			"bookingId": next.ID,
			"from":      booking.Status,
			"to":        next.Status,
		})

		h.invalidate(ctx, next.ClientID)
		output.EventPublished = h.publish(ctx, booking.Status, next)
		if next.Status == models.BookingApproved {
			output.SMSSent = h.notifyApproved(ctx, next)
		}
	}

	output.Display = lifecycle.PaymentDisplay(next, h.invoice(ctx, next), now)
	return output, nil
}

func (h *Handler) invalidate(ctx context.Context, clientID string) {
	if h.cache == nil || clientID == "" {
		return
	}
	if err := h.cache.Del(ctx, database.ClientBookingsKey(clientID)).Err(); err != nil {
		h.logger.Warn("failed to invalidate client bookings cache", map[string]interface{}{
			"clientId": clientID,
			"error":    err.Error(),
		})
	}
}

func (h *Handler) publish(ctx context.Context, from models.BookingStatus, b models.Booking) bool {
	err := h.publisher.Publish(ctx, events.BookingKey(string(b.Status)), StatusEvent{
		BookingID:     b.ID,
		ClientID:      b.ClientID,
		From:          from,
		To:            b.Status,
		ScheduledDate: b.ScheduledDate,
		TeamMemberIDs: b.TeamMemberIDs,
	})
	if err != nil {
		h.logger.Warn("booking event not published", map[string]interface{}{
			"bookingId": b.ID,
			"error":     err.Error(),
		})
		return false
	}
	return true
}

// notifyApproved texts the client. A missing phone or a failed send does
// not undo the approval.
func (h *Handler) notifyApproved(ctx context.Context, b models.Booking) bool {
	if h.sms == nil {
		return false
	}
	client, err := h.store.GetClient(ctx, b.ClientID)
	if err != nil || client.Phone == "" {
		h.logger.Debug("approval sms skipped", map[string]interface{}{"bookingId": b.ID})
		return false
	}

	if _, err := h.sms.SendSMS(ctx, client.Phone, h.approvalMessage(b)); err != nil {
		h.logger.Warn("approval sms failed", map[string]interface{}{
			"bookingId": b.ID,
			"error":     err.Error(),
		})
		return false
	}
	return true
}

func (h *Handler) approvalMessage(b models.Booking) string {
	if b.ScheduledDate == nil {
		return "Dr.Clean: Vaše rezervace úklidu byla potvrzena. Termín vám brzy upřesníme."
	}
	when := b.ScheduledDate.In(h.config.Location).Format("2.1.2006 15:04")
	return fmt.Sprintf("Dr.Clean: Vaše rezervace úklidu byla potvrzena na %s.", when)
}

func (h *Handler) invoice(ctx context.Context, b models.Booking) *models.Invoice {
	if b.InvoiceID == nil || *b.InvoiceID == "" {
		return nil
	}
	inv, err := h.store.GetInvoice(ctx, *b.InvoiceID)
	if err != nil {
		h.logger.Warn("linked invoice not loaded", map[string]interface{}{
			"bookingId": b.ID,
			"invoiceId": *b.InvoiceID,
			"error":     err.Error(),
		})
		return nil
	}
	return &inv
}
