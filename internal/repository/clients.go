package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"drclean-workers/internal/models"
)

const clientColumns = `id, user_id, name, email, phone, address, city, postal_code,
	client_type, company_id, dic, referred_by_id, total_spent, created_at`

func (p *Postgres) GetClient(ctx context.Context, id string) (models.Client, error) {
	var (
		c                                          models.Client
		email, phone, address, city, postal, ctype sql.NullString
		companyID, dic, referredBy                 sql.NullString
		totalSpent                                 sql.NullFloat64
	)
	err := p.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id).Scan(
		&c.ID, &c.UserID, &c.Name, &email, &phone, &address, &city, &postal,
		&ctype, &companyID, &dic, &referredBy, &totalSpent, &c.CreatedAt,
	)
	if err != nil {
		return models.Client{}, notFound(err)
	}
	c.Email = email.String
	c.Phone = phone.String
	c.Address = address.String
	c.City = city.String
	c.PostalCode = postal.String
	c.ClientType = ctype.String
	c.CompanyID = companyID.String
	c.VatID = dic.String
	c.ReferredByID = referredBy.String
	c.TotalSpent = totalSpent.Float64
	return c, nil
}

// ClientNames maps every client id to its display name.
func (p *Postgres) ClientNames(ctx context.Context) (map[string]string, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, name FROM clients`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

func (p *Postgres) AddTotalSpent(ctx context.Context, clientID string, delta decimal.Decimal) error {
	res, err := p.db.ExecContext(ctx, `
		UPDATE clients SET total_spent = GREATEST(COALESCE(total_spent, 0) + $2, 0), updated_at = NOW()
		WHERE id = $1`, clientID, delta)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteReport lists the dependent deletes that failed while a client was
// removed. The client row itself is only reported deleted when its own
// delete succeeded.
type DeleteReport struct {
	ClientDeleted     bool     `json:"clientDeleted"`
	SecondaryFailures []string `json:"secondaryFailures,omitempty"`
}

var clientCascade = []struct {
	table string
	query string
	fatal bool
}{
	{"job_earnings", `DELETE FROM job_earnings WHERE job_id IN (SELECT id FROM jobs WHERE client_id = $1)`, false},
	{"job_expenses", `DELETE FROM job_expenses WHERE job_id IN (SELECT id FROM jobs WHERE client_id = $1)`, false},
	{"job_extra_services", `DELETE FROM job_extra_services WHERE job_id IN (SELECT id FROM jobs WHERE client_id = $1)`, false},
	{"jobs", `DELETE FROM jobs WHERE client_id = $1`, true},
	{"client_feedback", `DELETE FROM client_feedback WHERE client_id = $1`, false},
	{"loyalty_credits", `DELETE FROM loyalty_credits WHERE client_id = $1`, false},
	{"loyalty_transactions", `DELETE FROM loyalty_transactions WHERE client_id = $1`, false},
	{"client_notifications", `DELETE FROM client_notifications WHERE client_id = $1`, false},
	{"bookings", `DELETE FROM bookings WHERE client_id = $1`, false},
}

// DeleteClient removes dependent rows first. A failed dependent delete is
// logged and skipped; a failed jobs delete aborts.
func (p *Postgres) DeleteClient(ctx context.Context, id string) (DeleteReport, error) {
	var report DeleteReport

	for _, step := range clientCascade {
		_, err := p.db.ExecContext(ctx, step.query, id)
		if err == nil {
			continue
		}
		if step.fatal {
			return report, fmt.Errorf("delete %s: %w", step.table, err)
		}
		p.log.Warn("Dependent delete failed, continuing", map[string]interface{}{
			"clientId": id,
			"table":    step.table,
			"error":    err.Error(),
		})
		report.SecondaryFailures = append(report.SecondaryFailures, step.table)
	}

	res, err := p.db.ExecContext(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		return report, fmt.Errorf("delete client: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return report, ErrNotFound
	}
	report.ClientDeleted = true
	return report, nil
}
