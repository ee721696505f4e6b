// internal/workers/job/collect-job-alerts/handler.go
package collectjobalerts

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "collect-job-alerts"
)

var (
	ErrQueryFailed = errors.New("QUERY_EXECUTION_FAILED")
)

type Store interface {
	ListJobs(ctx context.Context) ([]models.Job, error)
	ClientNames(ctx context.Context) (map[string]string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config *Config
	store  Store
	sms    SMSSender
	runner *camunda.Runner
	logger logger.Logger
	now    func() time.Time
}

// NewHandler wires the worker. sms may be nil when SMS delivery is off.
func NewHandler(config *Config, store Store, sms SMSSender, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		store:  store,
		sms:    sms,
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
	jobs, err := h.store.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list jobs: %v", ErrQueryFailed, err)
	}
	names, err := h.store.ClientNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: client names: %v", ErrQueryFailed, err)
	}

	alerts := Collect(jobs, names, h.now().In(h.config.Location), h.config)
	output := &Output{Alerts: alerts}
	for _, a := range alerts {
		if a.Urgent {
			output.UrgentCount++
		}
	}

	if input.NotifyAdmin && output.UrgentCount > 0 {
		output.SMSSent = h.notifyAdmin(ctx, alerts, output.UrgentCount)
	}
	return output, nil
}

// Collect builds the alert list: jobs due between the start of today and
// the next 24 hours, scheduled jobs left from earlier days, and completed
// jobs still unpaid after the due period.
func Collect(jobs []models.Job, clientNames map[string]string, now time.Time, cfg *Config) []Alert {
	startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	horizon := now.Add(24 * time.Hour)

	var scheduled, overdue, payments []Alert
	for _, job := range jobs {
		client := clientNames[job.ClientID]
		when := job.ScheduledDate.In(now.Location())

		switch job.Status {
		case models.JobScheduled, models.JobInProgress:
			if !when.Before(startOfToday) && !when.After(horizon) {
				today := sameDay(when, now)
				title := "Upcoming Job"
				if today {
					title = "Job Today"
				}
				scheduled = append(scheduled, Alert{
					ID:          "scheduled_" + job.ID,
					Type:        AlertScheduled,
					JobID:       job.ID,
					Title:       title,
					Description: job.Title + " - " + client,
					Date:        job.ScheduledDate,
					Urgent:      today,
				})
			}
			if job.Status == models.JobScheduled && when.Before(startOfToday) {
				overdue = append(overdue, Alert{
					ID:          "overdue_" + job.ID,
					Type:        AlertOverdue,
					JobID:       job.ID,
					Title:       "Overdue Job",
					Description: job.Title + " - " + client,
					Date:        job.ScheduledDate,
					Urgent:      true,
				})
			}

		case models.JobCompleted:
			if job.CompletedDate == nil {
				continue
			}
			since := now.Sub(*job.CompletedDate)
			if since < cfg.PaymentDueAfter {
				continue
			}
			payments = append(payments, Alert{
				ID:          "payment_" + job.ID,
				Type:        AlertPaymentDue,
				JobID:       job.ID,
				Title:       "Payment Overdue",
				Description: fmt.Sprintf("%s - %s Kč from %s", job.Title, strconv.FormatFloat(job.Revenue, 'f', -1, 64), client),
				Date:        *job.CompletedDate,
				Urgent:      since >= cfg.PaymentUrgentFrom,
			})
		}
	}

	alerts := make([]Alert, 0, len(scheduled)+len(overdue)+len(payments))
	alerts = append(alerts, scheduled...)
	alerts = append(alerts, overdue...)
	return append(alerts, payments...)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func (h *Handler) notifyAdmin(ctx context.Context, alerts []Alert, urgent int) bool {
	if h.sms == nil || h.config.AdminPhone == "" {
		return false
	}

	var first Alert
	for _, a := range alerts {
		if a.Urgent {
			first = a
			break
		}
	}
	msg := fmt.Sprintf("Dr.Clean: %d urgentní upozornění. %s: %s", urgent, first.Title, first.Description)

	if _, err := h.sms.SendSMS(ctx, h.config.AdminPhone, msg); err != nil {
		h.logger.Warn("admin alert SMS not sent", map[string]interface{}{
			"urgent": urgent,
			"error":  err.Error(),
		})
		return false
	}
	return true
}
