package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"drclean-workers/internal/models"
)

const invoiceSelect = `
	SELECT id, user_id, invoice_number, booking_id, client_id, client_name, client_email, client_phone,
	       client_address, client_vat, subtotal, vat_amount, total, COALESCE(currency, 'CZK'),
	       COALESCE(status, 'issued'), date_created, date_due, date_performance, payment_method,
	       variable_symbol, pdf_path, notes
	FROM invoices`

func scanInvoice(r rowScanner) (models.Invoice, error) {
	var (
		inv                                      models.Invoice
		bookingID, clientID, email, phone        sql.NullString
		address, vat, method, symbol, pdf, notes sql.NullString
		due, performed                           sql.NullTime
	)
	err := r.Scan(
		&inv.ID, &inv.UserID, &inv.InvoiceNumber, &bookingID, &clientID, &inv.ClientName, &email, &phone,
		&address, &vat, &inv.Subtotal, &inv.VatAmount, &inv.Total, &inv.Currency,
		&inv.Status, &inv.DateCreated, &due, &performed, &method,
		&symbol, &pdf, &notes,
	)
	if err != nil {
		return models.Invoice{}, err
	}
	inv.BookingID = stringPtr(bookingID)
	inv.ClientID = clientID.String
	inv.ClientEmail = email.String
	inv.ClientPhone = phone.String
	inv.ClientAddress = address.String
	inv.ClientVat = vat.String
	inv.PaymentMethod = method.String
	inv.VariableSymbol = symbol.String
	inv.PDFPath = pdf.String
	inv.Notes = notes.String
	inv.DateDue = timePtr(due)
	inv.DatePerformance = timePtr(performed)
	return inv, nil
}

func (p *Postgres) GetInvoice(ctx context.Context, id string) (models.Invoice, error) {
	inv, err := scanInvoice(p.db.QueryRowContext(ctx, invoiceSelect+` WHERE id = $1`, id))
	if err != nil {
		return models.Invoice{}, notFound(err)
	}
	return inv, nil
}

func (p *Postgres) InvoicesByIDs(ctx context.Context, ids []string) (map[string]models.Invoice, error) {
	out := make(map[string]models.Invoice, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := p.db.QueryContext(ctx, invoiceSelect+` WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out[inv.ID] = inv
	}
	return out, rows.Err()
}

// CreateInvoice inserts the invoice and its items in one transaction.
func (p *Postgres) CreateInvoice(ctx context.Context, inv models.Invoice, items []models.InvoiceItem) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (
			id, user_id, invoice_number, booking_id, client_id, client_name, client_email, client_phone,
			client_address, client_vat, subtotal, vat_amount, total, currency, status,
			date_created, date_due, date_performance, payment_method, variable_symbol, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		inv.ID, inv.UserID, inv.InvoiceNumber, nullString(inv.BookingID), emptyAsNull(inv.ClientID), inv.ClientName,
		emptyAsNull(inv.ClientEmail), emptyAsNull(inv.ClientPhone),
		emptyAsNull(inv.ClientAddress), emptyAsNull(inv.ClientVat), inv.Subtotal, inv.VatAmount, inv.Total,
		inv.Currency, string(inv.Status),
		inv.DateCreated, nullTime(inv.DateDue), nullTime(inv.DatePerformance), emptyAsNull(inv.PaymentMethod),
		emptyAsNull(inv.VariableSymbol), emptyAsNull(inv.Notes),
	)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", err)
	}

	for i, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO invoice_items (id, invoice_id, description, quantity, unit_price, vat_rate, total, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			item.ID, inv.ID, item.Description, item.Quantity, item.UnitPrice, item.VatRate, item.TotalPrice, i,
		)
		if err != nil {
			return fmt.Errorf("insert invoice item: %w", err)
		}
	}

	return tx.Commit()
}

func (p *Postgres) LinkBookingInvoice(ctx context.Context, bookingID, invoiceID string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE bookings SET invoice_id = $2, updated_at = NOW() WHERE id = $1`, bookingID, invoiceID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) UpdateInvoiceStatus(ctx context.Context, id string, status models.InvoiceStatus) error {
	res, err := p.db.ExecContext(ctx, `UPDATE invoices SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkIssuedPaidByClientName settles every issued invoice addressed to the
// client name and reports how many rows changed.
func (p *Postgres) MarkIssuedPaidByClientName(ctx context.Context, clientName string) (int64, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE invoices SET status = 'paid', updated_at = NOW()
		WHERE client_name = $1 AND status = 'issued'`, clientName)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// LastInvoiceNumber returns the highest number with the given prefix, or ""
// when the month has no invoices yet.
func (p *Postgres) LastInvoiceNumber(ctx context.Context, prefix string) (string, error) {
	var number string
	err := p.db.QueryRowContext(ctx, `
		SELECT invoice_number FROM invoices
		WHERE invoice_number LIKE $1
		ORDER BY invoice_number DESC LIMIT 1`, prefix+"%").Scan(&number)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return number, err
}
