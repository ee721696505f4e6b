package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"drclean-workers/internal/models"
)

const bookingSelect = `
	SELECT b.id, b.user_id, b.client_id, b.service_type, b.address, b.scheduled_date, b.status,
	       b.started_at, b.completed_at, b.client_viewed_at, b.invoice_id, COALESCE(b.skip_invoice, false),
	       b.team_member_ids, b.admin_notes, b.booking_details, b.created_at, b.updated_at,
	       (SELECT f.comment FROM booking_feedback f WHERE f.booking_id = b.id LIMIT 1) AS feedback
	FROM bookings b`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(r rowScanner) (models.Booking, error) {
	var (
		b                               models.Booking
		scheduled, started, completed   sql.NullTime
		viewed                          sql.NullTime
		invoiceID, adminNotes, feedback sql.NullString
		teamIDs                         []string
		details                         []byte
	)
	err := r.Scan(
		&b.ID, &b.UserID, &b.ClientID, &b.ServiceType, &b.Address, &scheduled, &b.Status,
		&started, &completed, &viewed, &invoiceID, &b.SkipInvoice,
		pq.Array(&teamIDs), &adminNotes, &details, &b.CreatedAt, &b.UpdatedAt,
		&feedback,
	)
	if err != nil {
		return models.Booking{}, err
	}
	b.ScheduledDate = timePtr(scheduled)
	b.StartedAt = timePtr(started)
	b.CompletedAt = timePtr(completed)
	b.ClientViewedAt = timePtr(viewed)
	b.InvoiceID = stringPtr(invoiceID)
	b.AdminNotes = adminNotes.String
	b.Feedback = stringPtr(feedback)
	b.TeamMemberIDs = teamIDs
	if b.TeamMemberIDs == nil {
		b.TeamMemberIDs = []string{}
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &b.BookingDetails); err != nil {
			return models.Booking{}, fmt.Errorf("booking %s details: %w", b.ID, err)
		}
	}
	return b, nil
}

func (p *Postgres) GetBooking(ctx context.Context, id string) (models.Booking, error) {
	b, err := scanBooking(p.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if err != nil {
		return models.Booking{}, notFound(err)
	}
	return b, nil
}

// SaveBooking writes every mutable column of the booking.
func (p *Postgres) SaveBooking(ctx context.Context, b models.Booking) error {
	details, err := json.Marshal(b.BookingDetails)
	if err != nil {
		return fmt.Errorf("encode booking details: %w", err)
	}

	res, err := p.db.ExecContext(ctx, `
		UPDATE bookings SET
			status = $2, scheduled_date = $3, started_at = $4, completed_at = $5,
			client_viewed_at = $6, invoice_id = $7, skip_invoice = $8,
			team_member_ids = $9, admin_notes = $10, booking_details = $11, updated_at = $12
		WHERE id = $1`,
		b.ID, string(b.Status), nullTime(b.ScheduledDate), nullTime(b.StartedAt), nullTime(b.CompletedAt),
		nullTime(b.ClientViewedAt), nullString(b.InvoiceID), b.SkipInvoice,
		pq.Array(b.TeamMemberIDs), emptyAsNull(b.AdminNotes), details, b.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) ListClientBookings(ctx context.Context, clientID string) ([]models.Booking, error) {
	rows, err := p.db.QueryContext(ctx, bookingSelect+` WHERE b.client_id = $1 ORDER BY b.created_at DESC`, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// MarkViewed stamps client_viewed_at on bookings that have not been seen yet.
func (p *Postgres) MarkViewed(ctx context.Context, bookingIDs []string, at time.Time) error {
	if len(bookingIDs) == 0 {
		return nil
	}
	_, err := p.db.ExecContext(ctx, `
		UPDATE bookings SET client_viewed_at = $1
		WHERE id = ANY($2) AND client_viewed_at IS NULL`, at, pq.Array(bookingIDs))
	return err
}
