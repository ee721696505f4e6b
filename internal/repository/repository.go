// Package repository holds the postgres implementations of the stores the
// workers and domain services depend on.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/models"
)

var ErrNotFound = errors.New("RECORD_NOT_FOUND")

type ClientStore interface {
	GetClient(ctx context.Context, id string) (models.Client, error)
	ClientNames(ctx context.Context) (map[string]string, error)
	AddTotalSpent(ctx context.Context, clientID string, delta decimal.Decimal) error
	DeleteClient(ctx context.Context, id string) (DeleteReport, error)
}

type BookingStore interface {
	GetBooking(ctx context.Context, id string) (models.Booking, error)
	SaveBooking(ctx context.Context, b models.Booking) error
	ListClientBookings(ctx context.Context, clientID string) ([]models.Booking, error)
	MarkViewed(ctx context.Context, bookingIDs []string, at time.Time) error
}

type JobStore interface {
	GetJob(ctx context.Context, id string) (models.Job, error)
	ListJobs(ctx context.Context) ([]models.Job, error)
	UpdateJob(ctx context.Context, job models.Job) error
	ListJobExpenses(ctx context.Context, jobIDs []string) ([]models.JobExpense, error)
	ReplaceJobExpenses(ctx context.Context, jobID string, expenses []models.JobExpense) error
	ReassignByTitle(ctx context.Context, title, clientID string) ([]ReassignedJob, error)
}

type InvoiceStore interface {
	GetInvoice(ctx context.Context, id string) (models.Invoice, error)
	InvoicesByIDs(ctx context.Context, ids []string) (map[string]models.Invoice, error)
	CreateInvoice(ctx context.Context, inv models.Invoice, items []models.InvoiceItem) error
	LinkBookingInvoice(ctx context.Context, bookingID, invoiceID string) error
	UpdateInvoiceStatus(ctx context.Context, id string, status models.InvoiceStatus) error
	MarkIssuedPaidByClientName(ctx context.Context, clientName string) (int64, error)
	LastInvoiceNumber(ctx context.Context, prefix string) (string, error)
}

type TransactionStore interface {
	InsertTransaction(ctx context.Context, tx models.Transaction) error
}

type LoyaltyStore interface {
	NetEarnedForBooking(ctx context.Context, clientID, bookingID string) (int64, error)
	GetCredits(ctx context.Context, clientID string) (*models.LoyaltyCredits, error)
	SaveCredits(ctx context.Context, credits models.LoyaltyCredits) error
	AppendTransaction(ctx context.Context, tx models.LoyaltyTransaction) error
	ListTransactions(ctx context.Context, clientID string) ([]models.LoyaltyTransaction, error)
}

type TeamStore interface {
	ListTeamMembers(ctx context.Context) ([]models.TeamMember, error)
}

// Postgres implements every store over one connection pool.
type Postgres struct {
	db  *sql.DB
	log logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Postgres {
	return &Postgres{db: db, log: log}
}

var (
	_ ClientStore      = (*Postgres)(nil)
	_ BookingStore     = (*Postgres)(nil)
	_ JobStore         = (*Postgres)(nil)
	_ InvoiceStore     = (*Postgres)(nil)
	_ TransactionStore = (*Postgres)(nil)
	_ LoyaltyStore     = (*Postgres)(nil)
	_ TeamStore        = (*Postgres)(nil)
)

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func emptyAsNull(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}
