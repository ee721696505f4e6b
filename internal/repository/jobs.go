package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"drclean-workers/internal/models"
)

const jobSelect = `
	SELECT id, user_id, job_number, client_id, title, description, category, scheduled_date,
	       scheduled_dates, completed_date, duration_hours, revenue, expenses,
	       supplies_expense_total, transport_expense_total, team_member_ids, status,
	       payment_received_date, payment_type, notes
	FROM jobs`

func scanJob(r rowScanner) (models.Job, error) {
	var (
		j                            models.Job
		description, status, payType sql.NullString
		notes                        sql.NullString
		scheduledDates, teamIDs      []string
		completed, paid              sql.NullTime
		duration, expenses           sql.NullFloat64
		supplies, transport          sql.NullFloat64
	)
	err := r.Scan(
		&j.ID, &j.UserID, &j.JobNumber, &j.ClientID, &j.Title, &description, &j.Category, &j.ScheduledDate,
		pq.Array(&scheduledDates), &completed, &duration, &j.Revenue, &expenses,
		&supplies, &transport, pq.Array(&teamIDs), &status,
		&paid, &payType, &notes,
	)
	if err != nil {
		return models.Job{}, err
	}
	j.Description = description.String
	j.Status = models.JobStatus(status.String)
	if j.Status == "" {
		j.Status = models.JobScheduled
	}
	j.PaymentType = models.PaymentType(payType.String)
	j.Notes = notes.String
	j.CompletedDate = timePtr(completed)
	j.PaymentReceivedDate = timePtr(paid)
	j.DurationHours = duration.Float64
	j.Expenses = expenses.Float64
	j.SuppliesExpenseTotal = supplies.Float64
	j.TransportExpenseTotal = transport.Float64
	j.TeamMemberIDs = teamIDs
	if j.TeamMemberIDs == nil {
		j.TeamMemberIDs = []string{}
	}
	for _, d := range scheduledDates {
		t, err := parseDate(d)
		if err != nil {
			return models.Job{}, fmt.Errorf("job %s scheduled_dates: %w", j.ID, err)
		}
		j.ScheduledDates = append(j.ScheduledDates, t)
	}
	return j, nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if len(s) >= 10 {
		return time.Parse("2006-01-02", s[:10])
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func (p *Postgres) GetJob(ctx context.Context, id string) (models.Job, error) {
	j, err := scanJob(p.db.QueryRowContext(ctx, jobSelect+` WHERE id = $1`, id))
	if err != nil {
		return models.Job{}, notFound(err)
	}
	return j, nil
}

func (p *Postgres) ListJobs(ctx context.Context) ([]models.Job, error) {
	rows, err := p.db.QueryContext(ctx, jobSelect+` ORDER BY scheduled_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (p *Postgres) UpdateJob(ctx context.Context, j models.Job) error {
	dates := make([]string, 0, len(j.ScheduledDates))
	for _, d := range j.ScheduledDates {
		dates = append(dates, d.UTC().Format(time.RFC3339))
	}

	res, err := p.db.ExecContext(ctx, `
		UPDATE jobs SET
			title = $2, description = $3, category = $4, client_id = $5, team_member_ids = $6,
			duration_hours = $7, revenue = $8, expenses = $9, supplies_expense_total = $10,
			transport_expense_total = $11, scheduled_date = $12, scheduled_dates = $13, status = $14,
			payment_received_date = $15, payment_type = $16, completed_date = $17, updated_at = NOW()
		WHERE id = $1`,
		j.ID, j.Title, emptyAsNull(j.Description), string(j.Category), j.ClientID, pq.Array(j.TeamMemberIDs),
		j.DurationHours, j.Revenue, j.Expenses, j.SuppliesExpenseTotal,
		j.TransportExpenseTotal, j.ScheduledDate, pq.Array(dates), string(j.Status),
		nullTime(j.PaymentReceivedDate), emptyAsNull(string(j.PaymentType)), nullTime(j.CompletedDate),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListJobExpenses returns the cleaner payouts of the given jobs.
func (p *Postgres) ListJobExpenses(ctx context.Context, jobIDs []string) ([]models.JobExpense, error) {
	if len(jobIDs) == 0 {
		return nil, nil
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, job_id, team_member_id, COALESCE(cleaner_expense, 0)
		FROM job_expenses WHERE job_id = ANY($1)`, pq.Array(jobIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.JobExpense
	for rows.Next() {
		var e models.JobExpense
		if err := rows.Scan(&e.ID, &e.JobID, &e.TeamMemberID, &e.CleanerExpense); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplaceJobExpenses swaps the job's payout rows in one transaction.
func (p *Postgres) ReplaceJobExpenses(ctx context.Context, jobID string, expenses []models.JobExpense) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM job_expenses WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("clear job expenses: %w", err)
	}

	for _, e := range expenses {
		id := e.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO job_expenses (id, job_id, team_member_id, cleaner_expense)
			VALUES ($1, $2, $3, $4)`, id, jobID, e.TeamMemberID, e.CleanerExpense); err != nil {
			return fmt.Errorf("insert job expense: %w", err)
		}
	}

	return tx.Commit()
}

type ReassignedJob struct {
	ID        string `json:"id"`
	JobNumber string `json:"jobNumber"`
	Title     string `json:"title"`
}

// ReassignByTitle moves every job whose title equals the address to the
// given client.
func (p *Postgres) ReassignByTitle(ctx context.Context, title, clientID string) ([]ReassignedJob, error) {
	rows, err := p.db.QueryContext(ctx, `
		UPDATE jobs SET client_id = $1, updated_at = NOW()
		WHERE title = $2
		RETURNING id, job_number, title`, clientID, title)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ReassignedJob{}
	for rows.Next() {
		var r ReassignedJob
		if err := rows.Scan(&r.ID, &r.JobNumber, &r.Title); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
