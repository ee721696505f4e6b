// internal/workers/loyalty/recalculate-loyalty/handler.go
package recalculateloyalty

import (
	"context"
	"errors"
	"fmt"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "recalculate-loyalty"
)

var (
	ErrClientNotFound = errors.New("CLIENT_NOT_FOUND")
	ErrQueryFailed    = errors.New("QUERY_EXECUTION_FAILED")
)

type Store interface {
	GetClient(ctx context.Context, id string) (models.Client, error)
	GetCredits(ctx context.Context, clientID string) (*models.LoyaltyCredits, error)
}

// Recalculator is satisfied by *loyalty.Service.
type Recalculator interface {
	Recalculate(ctx context.Context, clientID string) (models.LoyaltyCredits, error)
}

type Handler struct {
	config  *Config
	store   Store
	loyalty Recalculator
	runner  *camunda.Runner
	logger  logger.Logger
}

func NewHandler(config *Config, store Store, loyalty Recalculator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:  config,
		store:   store,
		loyalty: loyalty,
		runner:  camunda.NewRunner(TaskType, config.Timeout, log),
		logger:  log,
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
	if _, err := h.store.GetClient(ctx, input.ClientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, input.ClientID)
		}
		return nil, fmt.Errorf("%w: load client: %v", ErrQueryFailed, err)
	}

	before, err := h.store.GetCredits(ctx, input.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: load credits: %v", ErrQueryFailed, err)
	}

	credits, err := h.loyalty.Recalculate(ctx, input.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	output := &Output{Credits: credits, Before: before}
	output.Drifted = before == nil || *before != credits
	if output.Drifted {
		fields := map[string]interface{}{
			"clientId": input.ClientID,
			"credits":  credits.CurrentCredits,
		}
		if before != nil {
			fields["previous"] = before.CurrentCredits
		}
		h.logger.Warn("loyalty balance drifted from history", fields)
	}
	return output, nil
}
