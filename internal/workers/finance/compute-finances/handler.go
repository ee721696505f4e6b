// internal/workers/finance/compute-finances/handler.go
package computefinances

import (
	"context"
	"errors"
	"fmt"
	"time"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/finance"
	"drclean-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "compute-finances"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
	ErrQueryFailed  = errors.New("QUERY_EXECUTION_FAILED")
)

type Store interface {
	ListJobs(ctx context.Context) ([]models.Job, error)
	ListJobExpenses(ctx context.Context, jobIDs []string) ([]models.JobExpense, error)
	ListTeamMembers(ctx context.Context) ([]models.TeamMember, error)
	ClientNames(ctx context.Context) (map[string]string, error)
}

type Handler struct {
	config *Config
	store  Store
	runner *camunda.Runner
	logger logger.Logger
	now    func() time.Time
}

func NewHandler(config *Config, store Store, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	grouping := input.Grouping
	switch grouping {
	case "":
		grouping = finance.GroupMonths
	case finance.GroupDays, finance.GroupMonths, finance.GroupQuarters:
	default:
		return nil, fmt.Errorf("%w: unknown grouping %q", ErrInvalidInput, grouping)
	}

	period, err := finance.PeriodFor(input.Period, h.now().In(h.config.Location), input.CustomStart, input.CustomEnd)
	if err != nil {
		return nil, err
	}

	jobs, err := h.store.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list jobs: %v", ErrQueryFailed, err)
	}
	jobs = finance.FilterCategory(jobs, input.Category)

	ids := make([]string, len(jobs))
	for i, j := range jobs {
		ids[i] = j.ID
	}
	var expenses []models.JobExpense
	if len(ids) > 0 {
		expenses, err = h.store.ListJobExpenses(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("%w: list expenses: %v", ErrQueryFailed, err)
		}
	}

	members, err := h.store.ListTeamMembers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list team: %v", ErrQueryFailed, err)
	}
	names, err := h.store.ClientNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: client names: %v", ErrQueryFailed, err)
	}

	summary := finance.Aggregate(jobs, expenses, members, period)
	h.logger.Debug("finances computed", map[string]interface{}{
		"period":   input.Period,
		"category": input.Category,
		"paidJobs": summary.PaidJobs,
	})
	return &Output{
		Summary: summary,
		Chart:   finance.Chart(jobs, names, grouping, &period),
	}, nil
}
