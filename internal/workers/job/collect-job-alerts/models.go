// internal/workers/job/collect-job-alerts/models.go
package collectjobalerts

import "time"

type AlertType string

const (
	AlertScheduled  AlertType = "scheduled_job"
	AlertOverdue    AlertType = "overdue_job"
	AlertPaymentDue AlertType = "payment_due"
)

type Alert struct {
	ID          string    `json:"id"`
	Type        AlertType `json:"type"`
	JobID       string    `json:"jobId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Urgent      bool      `json:"urgent"`
}

type Input struct {
	NotifyAdmin bool `json:"notifyAdmin"`
}

type Output struct {
	Alerts      []Alert `json:"alerts"`
	UrgentCount int     `json:"urgentCount"`
	SMSSent     bool    `json:"smsSent"`
}
