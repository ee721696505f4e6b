// internal/workers/invoice/search-invoices/handler.go
package searchinvoices

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/models"
	"drclean-workers/internal/search"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "search-invoices"
)

var (
	ErrInvalidStatus = errors.New("INVALID_INVOICE_STATUS")
)

// Searcher is satisfied by *search.InvoiceIndex.
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Result, error)
}

type Handler struct {
	config   *Config
	searcher Searcher
	runner   *camunda.Runner
	logger   logger.Logger
}

func NewHandler(config *Config, searcher Searcher, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:   config,
		searcher: searcher,
		runner:   camunda.NewRunner(TaskType, config.Timeout, log),
		logger:   log,
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
	switch models.InvoiceStatus(input.Status) {
	case "", models.InvoiceIssued, models.InvoicePaid, models.InvoiceOverdue:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, input.Status)
	}

	result, err := h.searcher.Search(ctx, search.Query{
		Text:   strings.TrimSpace(input.Text),
		Status: input.Status,
		From:   input.From,
		Size:   input.Size,
	})
	if err != nil {
		return nil, err
	}

	h.logger.Debug("invoice search", map[string]interface{}{
		"text":      input.Text,
		"status":    input.Status,
		"totalHits": result.TotalHits,
	})

	invoices := result.Invoices
	if invoices == nil {
		invoices = []search.Document{}
	}
	return &Output{
		Invoices:  invoices,
		TotalHits: result.TotalHits,
		Took:      result.Took,
	}, nil
}
