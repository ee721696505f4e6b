package repository

import (
	"context"
	"database/sql"
	"errors"

	"drclean-workers/internal/models"
)

// NetEarnedForBooking sums earned minus reversed points already booked for
// the client against one booking.
func (p *Postgres) NetEarnedForBooking(ctx context.Context, clientID, bookingID string) (int64, error) {
	var net int64
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(CASE WHEN type = 'earned' THEN amount WHEN type = 'reversed' THEN -amount ELSE 0 END), 0)
		FROM loyalty_transactions
		WHERE client_id = $1 AND related_job_id = $2`, clientID, bookingID).Scan(&net)
	return net, err
}

// GetCredits returns nil when the client has no credits row yet.
func (p *Postgres) GetCredits(ctx context.Context, clientID string) (*models.LoyaltyCredits, error) {
	c := models.LoyaltyCredits{ClientID: clientID}
	err := p.db.QueryRowContext(ctx, `
		SELECT COALESCE(current_credits, 0), COALESCE(total_earned, 0), COALESCE(total_spent, 0)
		FROM loyalty_credits WHERE client_id = $1`, clientID).Scan(&c.CurrentCredits, &c.TotalEarned, &c.TotalSpent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (p *Postgres) SaveCredits(ctx context.Context, c models.LoyaltyCredits) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO loyalty_credits (client_id, current_credits, total_earned, total_spent, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (client_id) DO UPDATE SET
			current_credits = EXCLUDED.current_credits,
			total_earned = EXCLUDED.total_earned,
			total_spent = EXCLUDED.total_spent,
			updated_at = NOW()`,
		c.ClientID, c.CurrentCredits, c.TotalEarned, c.TotalSpent)
	return err
}

func (p *Postgres) AppendTransaction(ctx context.Context, tx models.LoyaltyTransaction) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO loyalty_transactions (id, client_id, amount, type, description, related_job_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tx.ID, tx.ClientID, tx.Amount, string(tx.Type), emptyAsNull(tx.Description), nullString(tx.RelatedJobID), tx.CreatedAt)
	return err
}

func (p *Postgres) ListTransactions(ctx context.Context, clientID string) ([]models.LoyaltyTransaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, client_id, amount, type, description, related_job_id, created_at
		FROM loyalty_transactions WHERE client_id = $1
		ORDER BY created_at`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LoyaltyTransaction
	for rows.Next() {
		var (
			t                models.LoyaltyTransaction
			desc, relatedJob sql.NullString
			created          sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.ClientID, &t.Amount, &t.Type, &desc, &relatedJob, &created); err != nil {
			return nil, err
		}
		t.Description = desc.String
		t.RelatedJobID = stringPtr(relatedJob)
		t.CreatedAt = created.Time
		out = append(out, t)
	}
	return out, rows.Err()
}
