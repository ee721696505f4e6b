// internal/workers/client/delete-client/handler.go
package deleteclient

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/database"
	"drclean-workers/internal/common/events"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/repository"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
)

const (
	TaskType = "delete-client"
)

var (
	ErrInvalidInput   = errors.New("INVALID_INPUT")
	ErrClientNotFound = errors.New("CLIENT_NOT_FOUND")
	ErrDeleteFailed   = errors.New("DATABASE_DELETE_FAILED")
)

type Store interface {
	DeleteClient(ctx context.Context, id string) (repository.DeleteReport, error)
}

type Handler struct {
	config    *Config
	store     Store
	publisher events.Publisher
	cache     redis.Cmdable
	runner    *camunda.Runner
	logger    logger.Logger
}

// NewHandler wires the worker. cache may be nil.
func NewHandler(config *Config, store Store, publisher events.Publisher, cache redis.Cmdable, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:    config,
		store:     store,
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

// Execute removes the client with its dependent records. Failed deletes of
// secondary tables are reported, not returned; only the jobs table and the
// client row itself can fail the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	clientID := strings.TrimSpace(input.ClientID)
	if clientID == "" {
		return nil, fmt.Errorf("%w: clientId is required", ErrInvalidInput)
	}

	report, err := h.store.DeleteClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrClientNotFound, clientID)
		}
		return nil, fmt.Errorf("%w: client %s: %v", ErrDeleteFailed, clientID, err)
	}

	output := &Output{
		ClientID:          clientID,
		ClientDeleted:     report.ClientDeleted,
		SecondaryFailures: report.SecondaryFailures,
	}
	if output.SecondaryFailures == nil {
		output.SecondaryFailures = []string{}
	} else {
		h.logger.Warn("client deleted with leftovers", map[string]interface{}{
			"clientId": clientID,
			"tables":   report.SecondaryFailures,
		})
	}

	if h.cache != nil {
		if err := h.cache.Del(ctx, database.ClientBookingsKey(clientID)).Err(); err != nil {
			h.logger.Warn("cache invalidation failed", map[string]interface{}{"error": err.Error()})
		}
	}

	err = h.publisher.Publish(ctx, events.ClientDeleted, DeletedEvent{
		ClientID:          clientID,
		SecondaryFailures: report.SecondaryFailures,
	})
	if err != nil {
		h.logger.Warn("client.deleted not published", map[string]interface{}{"error": err.Error()})
	} else {
		output.EventPublished = true
	}
	return output, nil
}
