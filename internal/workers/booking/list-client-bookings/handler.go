// internal/workers/booking/list-client-bookings/handler.go
package listclientbookings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/database"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/lifecycle"
	"drclean-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "list-client-bookings"
)

var (
	ErrQueryFailed = errors.New("QUERY_EXECUTION_FAILED")
)

type Store interface {
	ListClientBookings(ctx context.Context, clientID string) ([]models.Booking, error)
	InvoicesByIDs(ctx context.Context, ids []string) (map[string]models.Invoice, error)
	MarkViewed(ctx context.Context, bookingIDs []string, at time.Time) error
}

type Handler struct {
	config *Config
	store  Store
	cache  redis.Cmdable
	runner *camunda.Runner
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, store Store, cache redis.Cmdable, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		cache:  cache,
		runner: camunda.NewRunner(TaskType, config.Timeout, log),
		logger: log,
		now:    time.Now,
	}
}

func (h *Handler) WithRecorder(rec camunda.JobRecorder) *Handler {
	h.runner.WithRecorder(rec)
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(h.runner, client, job, h.Execute)
}

// Execute splits the client's bookings into active and history. Only a
// dashboard with nothing left to mark as viewed is cached, so a cache hit
// never skips a pending mark.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	key := database.ClientBookingsKey(input.ClientID)
	if cached, ok := h.fromCache(ctx, key); ok {
		return cached, nil
	}

	bookings, err := h.store.ListClientBookings(ctx, input.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: list bookings: %v", ErrQueryFailed, err)
	}

	var invoiceIDs []string
	for _, b := range bookings {
		if b.InvoiceID != nil && *b.InvoiceID != "" {
			invoiceIDs = append(invoiceIDs, *b.InvoiceID)
		}
	}
	invoices := map[string]models.Invoice{}
	if len(invoiceIDs) > 0 {
		invoices, err = h.store.InvoicesByIDs(ctx, invoiceIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: load invoices: %v", ErrQueryFailed, err)
		}
	}

	now := h.now().UTC()
	output := &Output{Active: []BookingView{}, History: []BookingView{}}
	var toMark []string
	for _, b := range bookings {
		view := BookingView{Booking: b}
		if b.InvoiceID != nil {
			if inv, ok := invoices[*b.InvoiceID]; ok {
				view.Invoice = &inv
			}
		}
		view.Display = lifecycle.PaymentDisplay(b, view.Invoice, now)

		if lifecycle.IsActiveForClient(b, view.Invoice, now) {
			output.Active = append(output.Active, view)
		} else {
			output.History = append(output.History, view)
		}
		if lifecycle.NeedsViewedMark(b, view.Invoice, now) {
			toMark = append(toMark, b.ID)
		}
	}

	if len(toMark) == 0 {
		h.toCache(ctx, key, output)
		return output, nil
	}

	if input.MarkViewed {
		if err := h.store.MarkViewed(ctx, toMark, now); err != nil {
			h.logger.Warn("failed to mark bookings viewed", map[string]interface{}{
				"clientId": input.ClientID,
				"count":    len(toMark),
				"error":    err.Error(),
			})
		} else {
			output.MarkedViewed = toMark
		}
	}
	return output, nil
}

func (h *Handler) fromCache(ctx context.Context, key string) (*Output, bool) {
	if h.cache == nil {
		return nil, false
	}
	val, err := h.cache.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			h.logger.Warn("client bookings cache read failed", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return nil, false
	}

	var out Output
	if err := json.Unmarshal([]byte(val), &out); err != nil {
		return nil, false
	}
	out.Cached = true
	return &out, true
}

func (h *Handler) toCache(ctx context.Context, key string, output *Output) {
	if h.cache == nil || h.config.CacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(output)
	if err != nil {
		return
	}
	if err := h.cache.Set(ctx, key, data, h.config.CacheTTL).Err(); err != nil {
		h.logger.Warn("client bookings cache write failed", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}
