// Package invoicing issues invoices for completed bookings.
package invoicing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"drclean-workers/internal/models"
)

var (
	ErrBookingNotCompleted = errors.New("BOOKING_NOT_COMPLETED")
	ErrInvoiceNotNeeded    = errors.New("INVOICE_NOT_NEEDED")
)

const (
	DefaultVATRate  = 21
	DefaultDueDays  = 7
	paymentMethod   = "bank_transfer"
	invoiceCurrency = "CZK"
)

// NumberSource is satisfied by *Numberer.
type NumberSource interface {
	Next(ctx context.Context) (string, error)
}

// Store persists a new invoice and links it back to its booking.
type Store interface {
	CreateInvoice(ctx context.Context, inv models.Invoice, items []models.InvoiceItem) error
	LinkBookingInvoice(ctx context.Context, bookingID, invoiceID string) error
}

type Options struct {
	VATRate int
	DueDays int
}

type Issuer struct {
	numbers NumberSource
	store   Store
	vatRate decimal.Decimal
	dueDays int
	now     func() time.Time
}

func NewIssuer(numbers NumberSource, store Store, opts Options) *Issuer {
	if opts.VATRate <= 0 {
		opts.VATRate = DefaultVATRate
	}
	if opts.DueDays <= 0 {
		opts.DueDays = DefaultDueDays
	}
	return &Issuer{
		numbers: numbers,
		store:   store,
		vatRate: decimal.NewFromInt(int64(opts.VATRate)),
		dueDays: opts.DueDays,
		now:     time.Now,
	}
}

type Result struct {
	Invoice       *models.Invoice      `json:"invoice,omitempty"`
	Items         []models.InvoiceItem `json:"items,omitempty"`
	AlreadyExists bool                 `json:"alreadyExists"`
	InvoiceID     string               `json:"invoiceId"`
}

// Totals splits a net amount into VAT and gross, rounded to hellers.
func Totals(subtotal, vatRate decimal.Decimal) (vat, total decimal.Decimal) {
	vat = subtotal.Mul(vatRate).Div(decimal.NewFromInt(100)).Round(2)
	return vat, subtotal.Add(vat)
}

// FromBooking issues the invoice of a completed booking. A booking that is
// already linked to an invoice returns that id with AlreadyExists set.
func (i *Issuer) FromBooking(ctx context.Context, b models.Booking, client models.Client) (Result, error) {
	if b.InvoiceID != nil && *b.InvoiceID != "" {
		return Result{AlreadyExists: true, InvoiceID: *b.InvoiceID}, nil
	}
	if b.SkipInvoice {
		return Result{}, fmt.Errorf("%w: booking %s", ErrInvoiceNotNeeded, b.ID)
	}
	if b.Status != models.BookingCompleted {
		return Result{}, fmt.Errorf("%w: booking %s is %s", ErrBookingNotCompleted, b.ID, b.Status)
	}

	number, err := i.numbers.Next(ctx)
	if err != nil {
		return Result{}, err
	}

	now := i.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	performed := today
	if b.ScheduledDate != nil {
		s := b.ScheduledDate.UTC()
		performed = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC)
	}
	due := today.AddDate(0, 0, i.dueDays)

	subtotal := decimal.NewFromFloat(b.BookingDetails.ChosenPrice())
	vat, total := Totals(subtotal, i.vatRate)

	clientName := client.Name
	if clientName == "" {
		clientName = "Unknown"
	}
	bookingID := b.ID
	inv := models.Invoice{
		ID:              uuid.New().String(),
		UserID:          b.UserID,
		InvoiceNumber:   number,
		VariableSymbol:  number,
		BookingID:       &bookingID,
		ClientID:        b.ClientID,
		ClientName:      clientName,
		ClientEmail:     client.Email,
		ClientPhone:     client.Phone,
		ClientAddress:   b.Address,
		ClientVat:       client.CompanyID,
		Subtotal:        subtotal,
		VatAmount:       vat,
		Total:           total,
		Currency:        invoiceCurrency,
		Status:          models.InvoiceIssued,
		DateCreated:     today,
		DatePerformance: &performed,
		DateDue:         &due,
		PaymentMethod:   paymentMethod,
	}
	items := []models.InvoiceItem{{
		ID:          uuid.New().String(),
		InvoiceID:   inv.ID,
		Description: b.ServiceType.Label(),
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   subtotal,
		VatRate:     i.vatRate,
		TotalPrice:  subtotal,
	}}

	if err := i.store.CreateInvoice(ctx, inv, items); err != nil {
		return Result{}, fmt.Errorf("create invoice: %w", err)
	}
	if err := i.store.LinkBookingInvoice(ctx, b.ID, inv.ID); err != nil {
		return Result{}, fmt.Errorf("link invoice to booking: %w", err)
	}

	return Result{Invoice: &inv, Items: items, InvoiceID: inv.ID}, nil
}
