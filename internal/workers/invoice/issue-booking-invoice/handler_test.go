// internal/workers/invoice/issue-booking-invoice/handler_test.go
package issuebookinginvoice

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"drclean-workers/internal/common/camunda/camundatest"
	"drclean-workers/internal/common/database"
	"drclean-workers/internal/common/events"
	"drclean-workers/internal/common/events/eventstest"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/invoicing"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository/repotest"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockIndexer struct {
	mock.Mock
}

func (m *MockIndexer) Index(ctx context.Context, inv models.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

// ==========================
// Test Helper Functions
// ==========================

var invoiceNumberPattern = regexp.MustCompile(`^\d{4}001$`)

type fixture struct {
	handler   *Handler
	store     *repotest.Memory
	indexer   *MockIndexer
	publisher *eventstest.Recorder
	redis     *miniredis.Miniredis
}

func setup(t *testing.T) *fixture {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := repotest.New()
	store.Clients["c-1"] = models.Client{
		ID:    "c-1",
		Name:  "Jana Nováková",
		Email: "jana@example.cz",
	}

	issuer := invoicing.NewIssuer(invoicing.NewNumberer(rdb, store), store, invoicing.Options{VATRate: 21, DueDays: 7})

	f := &fixture{
		store:     store,
		indexer:   &MockIndexer{},
		publisher: &eventstest.Recorder{},
		redis:     mr,
	}
	f.handler = NewHandler(LoadConfig(), store, issuer, f.indexer, f.publisher, rdb, logger.NewTestLogger(t))
	return f
}

func addBooking(store *repotest.Memory, id string, status models.BookingStatus) models.Booking {
	price := 2000.0
	scheduled := time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC)
	b := models.Booking{
		ID:            id,
		ClientID:      "c-1",
		ServiceType:   models.CategoryHome,
		Address:       "Korunní 12, Praha",
		Status:        status,
		ScheduledDate: &scheduled,
		BookingDetails: models.BookingDetails{
			PriceEstimate: &models.StoredEstimate{Price: &price, PriceMin: 1800, PriceMax: 2400},
		},
	}
	store.Bookings[id] = b
	return b
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_IssuesInvoice(t *testing.T) {
	f := setup(t)
	addBooking(f.store, "b-1", models.BookingCompleted)
	f.redis.Set(database.ClientBookingsKey("c-1"), "{}")
	f.indexer.On("Index", mock.Anything, mock.AnythingOfType("models.Invoice")).Return(nil)

	out, err := f.handler.Execute(context.Background(), &Input{BookingID: "b-1"})

	require.NoError(t, err)
	assert.False(t, out.AlreadyExists)
	assert.Regexp(t, invoiceNumberPattern, out.InvoiceNumber)
	assert.Equal(t, "2420.00", out.Total)
	assert.Equal(t, "jana@example.cz", out.ClientEmail)
	assert.True(t, out.Indexed)
	assert.True(t, out.EventPublished)

	inv := f.store.Invoices[out.InvoiceID]
	assert.Equal(t, models.InvoiceIssued, inv.Status)
	assert.Equal(t, "Jana Nováková", inv.ClientName)
	assert.Equal(t, "420.00", inv.VatAmount.StringFixed(2))
	require.NotNil(t, f.store.Bookings["b-1"].InvoiceID)
	assert.Equal(t, out.InvoiceID, *f.store.Bookings["b-1"].InvoiceID)

	assert.Equal(t, []string{events.InvoiceIssued}, f.publisher.Keys())
	assert.False(t, f.redis.Exists(database.ClientBookingsKey("c-1")))
	f.indexer.AssertExpectations(t)
}

func TestHandler_Execute_AlreadyInvoiced(t *testing.T) {
	f := setup(t)
	b := addBooking(f.store, "b-1", models.BookingCompleted)
	existing := "inv-7"
	b.InvoiceID = &existing
	f.store.Bookings["b-1"] = b

	out, err := f.handler.Execute(context.Background(), &Input{BookingID: "b-1"})

	require.NoError(t, err)
	assert.True(t, out.AlreadyExists)
	assert.Equal(t, "inv-7", out.InvoiceID)
	assert.Empty(t, f.store.Invoices)
	assert.Empty(t, f.publisher.Events())
	f.indexer.AssertNotCalled(t, "Index", mock.Anything, mock.Anything)
}

func TestHandler_Execute_MissingClientUsesUnknownName(t *testing.T) {
	f := setup(t)
	b := addBooking(f.store, "b-1", models.BookingCompleted)
	b.ClientID = "c-gone"
	f.store.Bookings["b-1"] = b
	f.indexer.On("Index", mock.Anything, mock.Anything).Return(nil)

	out, err := f.handler.Execute(context.Background(), &Input{BookingID: "b-1"})

	require.NoError(t, err)
	assert.Equal(t, "Unknown", f.store.Invoices[out.InvoiceID].ClientName)
}

func TestHandler_Execute_SideEffectFailuresDoNotFail(t *testing.T) {
	f := setup(t)
	addBooking(f.store, "b-1", models.BookingCompleted)
	f.indexer.On("Index", mock.Anything, mock.Anything).Return(errors.New("cluster red"))
	f.publisher.Err = errors.New("channel closed")

	out, err := f.handler.Execute(context.Background(), &Input{BookingID: "b-1"})

	require.NoError(t, err)
	assert.False(t, out.Indexed)
	assert.False(t, out.EventPublished)
	assert.Len(t, f.store.Invoices, 1)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fixture)
		wantErr error
	}{
		{
			name:    "unknown booking",
			prepare: func(f *fixture) {},
			wantErr: ErrBookingNotFound,
		},
		{
			name:    "booking not completed",
			prepare: func(f *fixture) { addBooking(f.store, "b-1", models.BookingApproved) },
			wantErr: invoicing.ErrBookingNotCompleted,
		},
		{
			name: "invoice skipped",
			prepare: func(f *fixture) {
				b := addBooking(f.store, "b-1", models.BookingCompleted)
				b.SkipInvoice = true
				f.store.Bookings["b-1"] = b
			},
			wantErr: invoicing.ErrInvoiceNotNeeded,
		},
		{
			name: "booking query fails",
			prepare: func(f *fixture) {
				f.store.Errors["GetBooking"] = errors.New("connection reset")
			},
			wantErr: ErrQueryFailed,
		},
		{
			name: "client query fails",
			prepare: func(f *fixture) {
				addBooking(f.store, "b-1", models.BookingCompleted)
				f.store.Errors["GetClient"] = errors.New("connection reset")
			},
			wantErr: ErrQueryFailed,
		},
		{
			name: "number sequence unavailable",
			prepare: func(f *fixture) {
				addBooking(f.store, "b-1", models.BookingCompleted)
				f.store.Errors["LastInvoiceNumber"] = errors.New("connection reset")
			},
			wantErr: invoicing.ErrNumberUnavailable,
		},
		{
			name: "insert fails",
			prepare: func(f *fixture) {
				addBooking(f.store, "b-1", models.BookingCompleted)
				f.store.Errors["CreateInvoice"] = errors.New("unique violation")
			},
			wantErr: ErrInsertFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			tt.prepare(f)

			_, err := f.handler.Execute(context.Background(), &Input{BookingID: "b-1"})

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.publisher.Events())
		})
	}
}

func TestHandler_Handle_NotCompletedIsThrown(t *testing.T) {
	f := setup(t)
	addBooking(f.store, "b-1", models.BookingPending)
	client := camundatest.NewJobClient()

	f.handler.Handle(client, camundatest.NewJob(3, TaskType, map[string]interface{}{"bookingId": "b-1"}))

	require.Len(t, client.Thrown(), 1)
	assert.Equal(t, "BOOKING_NOT_COMPLETED", client.Thrown()[0].ErrorCode)
}
