// internal/workers/job/reassign-jobs/handler.go
package reassignjobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "reassign-jobs"
)

var (
	ErrInvalidInput   = errors.New("INVALID_INPUT")
	ErrClientNotFound = errors.New("CLIENT_NOT_FOUND")
	ErrQueryFailed    = errors.New("QUERY_EXECUTION_FAILED")
)

type Store interface {
	GetClient(ctx context.Context, id string) (models.Client, error)
	ReassignByTitle(ctx context.Context, title, clientID string) ([]repository.ReassignedJob, error)
}

type Handler struct {
	config *Config
	store  Store
	runner *camunda.Runner
	logger logger.Logger
}

func NewHandler(config *Config, store Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		runner: camunda.NewRunner(TaskType, config.Timeout, log),
		logger: log,
	}
}

func (h *Handler) WithRecorder(rec camunda.JobRecorder) *Handler {
	h.runner.WithRecorder(rec)
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(h.runner, client, job, h.Execute)
}

// Execute moves every job titled with the address to the client. Jobs
// imported from the calendar carry the address as their title.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	address := strings.TrimSpace(input.Address)
	if address == "" || input.ClientID == "" {
		return nil, fmt.Errorf("%w: address and clientId are required", ErrInvalidInput)
	}

	if _, err := h.store.GetClient(ctx, input.ClientID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, input.ClientID)
		}
		return nil, fmt.Errorf("%w: load client: %v", ErrQueryFailed, err)
	}

	moved, err := h.store.ReassignByTitle(ctx, address, input.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: reassign jobs: %v", ErrQueryFailed, err)
	}

	h.logger.Info("jobs reassigned", map[string]interface{}{
		"clientId": input.ClientID,
		"address":  address,
		"count":    len(moved),
	})
	return &Output{
		ClientID:   input.ClientID,
		Reassigned: moved,
		Count:      len(moved),
	}, nil
}
