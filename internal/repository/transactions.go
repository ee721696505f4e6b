package repository

import (
	"context"

	"drclean-workers/internal/models"
)

func (p *Postgres) InsertTransaction(ctx context.Context, tx models.Transaction) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, type, category, amount, currency, description, transaction_date, job_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		tx.ID, emptyAsNull(tx.UserID), string(tx.Type), tx.Category, tx.Amount, tx.Currency,
		tx.Description, tx.TransactionDate, nullString(tx.JobID),
	)
	return err
}
