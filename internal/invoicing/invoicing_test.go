package invoicing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drclean-workers/internal/models"
)

var march = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

type lastNumberFunc func(ctx context.Context, prefix string) (string, error)

func (f lastNumberFunc) LastInvoiceNumber(ctx context.Context, prefix string) (string, error) {
	return f(ctx, prefix)
}

// ==========================
// Numbering
// ==========================

func TestNumberer_SeedsFromLastInvoice(t *testing.T) {
	rdb, mr := setupRedis(t)
	calls := 0
	n := NewNumberer(rdb, lastNumberFunc(func(_ context.Context, prefix string) (string, error) {
		calls++
		assert.Equal(t, "2503", prefix)
		return "2503007", nil
	}))
	n.now = func() time.Time { return march }

	first, err := n.Next(context.Background())
	require.NoError(t, err)
	second, err := n.Next(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2503008", first)
	assert.Equal(t, "2503009", second)
	assert.Equal(t, 1, calls, "postgres is consulted only while the counter is missing")
	assert.True(t, mr.Exists("invoice:seq:2503"))
	assert.Positive(t, mr.TTL("invoice:seq:2503"))
}

func TestNumberer_NewMonthStartsAtOne(t *testing.T) {
	rdb, _ := setupRedis(t)
	n := NewNumberer(rdb, lastNumberFunc(func(context.Context, string) (string, error) { return "", nil }))
	n.now = func() time.Time { return time.Date(2025, 4, 1, 0, 5, 0, 0, time.UTC) }

	number, err := n.Next(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "2504001", number)
}

func TestNumberer_RedisError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectExists("invoice:seq:2503").SetErr(errors.New("connection refused"))
	n := NewNumberer(rdb, lastNumberFunc(func(context.Context, string) (string, error) { return "", nil }))
	n.now = func() time.Time { return march }

	_, err := n.Next(context.Background())

	assert.ErrorIs(t, err, ErrNumberUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNumberer_SeedError(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	mock.ExpectExists("invoice:seq:2503").SetVal(0)
	n := NewNumberer(rdb, lastNumberFunc(func(context.Context, string) (string, error) { return "", errors.New("timeout") }))
	n.now = func() time.Time { return march }

	_, err := n.Next(context.Background())

	assert.ErrorIs(t, err, ErrNumberUnavailable)
}

func TestSequenceOf(t *testing.T) {
	assert.Equal(t, int64(12), SequenceOf("2503012", "2503"))
	assert.Equal(t, int64(0), SequenceOf("2502012", "2503"))
	assert.Equal(t, int64(0), SequenceOf("", "2503"))
	assert.Equal(t, int64(0), SequenceOf("2503ABC", "2503"))
	assert.Equal(t, "2503045", FormatNumber("2503", 45))
}

// ==========================
// Issuing
// ==========================

type fixedNumbers string

func (f fixedNumbers) Next(context.Context) (string, error) { return string(f), nil }

type memoryStore struct {
	invoices []models.Invoice
	items    []models.InvoiceItem
	links    map[string]string
	err      error
}

func (m *memoryStore) CreateInvoice(_ context.Context, inv models.Invoice, items []models.InvoiceItem) error {
	if m.err != nil {
		return m.err
	}
	m.invoices = append(m.invoices, inv)
	m.items = append(m.items, items...)
	return nil
}

func (m *memoryStore) LinkBookingInvoice(_ context.Context, bookingID, invoiceID string) error {
	if m.links == nil {
		m.links = map[string]string{}
	}
	m.links[bookingID] = invoiceID
	return nil
}

func completedBooking() models.Booking {
	price := 2400.0
	scheduled := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	return models.Booking{
		ID:            "b1",
		UserID:        "admin",
		ClientID:      "c1",
		ServiceType:   models.CategoryHome,
		Address:       "Vinohradská 12, Praha",
		Status:        models.BookingCompleted,
		ScheduledDate: &scheduled,
		BookingDetails: models.BookingDetails{
			PriceEstimate: &models.StoredEstimate{Price: &price, PriceMin: 2000, PriceMax: 2600},
		},
	}
}

func TestIssuer_FromBooking(t *testing.T) {
	store := &memoryStore{}
	issuer := NewIssuer(fixedNumbers("2503008"), store, Options{})
	issuer.now = func() time.Time { return march }

	res, err := issuer.FromBooking(context.Background(), completedBooking(), models.Client{
		ID: "c1", Name: "Jana Nováková", Email: "jana@example.cz", CompanyID: "12345678",
	})

	require.NoError(t, err)
	require.NotNil(t, res.Invoice)
	inv := res.Invoice
	assert.Equal(t, "2503008", inv.InvoiceNumber)
	assert.Equal(t, "2503008", inv.VariableSymbol)
	assert.True(t, inv.Subtotal.Equal(decimal.NewFromInt(2400)))
	assert.True(t, inv.VatAmount.Equal(decimal.NewFromInt(504)))
	assert.True(t, inv.Total.Equal(decimal.NewFromInt(2904)))
	assert.Equal(t, models.InvoiceIssued, inv.Status)
	assert.Equal(t, "bank_transfer", inv.PaymentMethod)
	assert.Equal(t, time.Date(2025, 3, 21, 0, 0, 0, 0, time.UTC), *inv.DateDue)
	assert.Equal(t, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), *inv.DatePerformance)
	assert.Equal(t, "Vinohradská 12, Praha", inv.ClientAddress)
	assert.Equal(t, "12345678", inv.ClientVat)

	require.Len(t, store.items, 1)
	assert.Equal(t, "Úklid domácnosti", store.items[0].Description)
	assert.True(t, store.items[0].TotalPrice.Equal(decimal.NewFromInt(2400)))
	assert.Equal(t, inv.ID, store.links["b1"])
}

func TestIssuer_FromBookingUsesMinimumWithoutOverride(t *testing.T) {
	b := completedBooking()
	b.BookingDetails.PriceEstimate.Price = nil
	issuer := NewIssuer(fixedNumbers("2503009"), &memoryStore{}, Options{VATRate: 21})
	issuer.now = func() time.Time { return march }

	res, err := issuer.FromBooking(context.Background(), b, models.Client{Name: "Jana"})

	require.NoError(t, err)
	assert.True(t, res.Invoice.Subtotal.Equal(decimal.NewFromInt(2000)))
	assert.True(t, res.Invoice.Total.Equal(decimal.NewFromInt(2420)))
}

func TestIssuer_FromBookingGuards(t *testing.T) {
	existing := "inv-9"

	tests := []struct {
		name       string
		mutate     func(b *models.Booking)
		wantErr    error
		wantExists bool
	}{
		{"already invoiced", func(b *models.Booking) { b.InvoiceID = &existing }, nil, true},
		{"skip invoice", func(b *models.Booking) { b.SkipInvoice = true }, ErrInvoiceNotNeeded, false},
		{"not completed", func(b *models.Booking) { b.Status = models.BookingInProgress }, ErrBookingNotCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memoryStore{}
			b := completedBooking()
			tt.mutate(&b)

			res, err := NewIssuer(fixedNumbers("2503010"), store, Options{}).FromBooking(context.Background(), b, models.Client{})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantExists, res.AlreadyExists)
			assert.Empty(t, store.invoices)
		})
	}
}

func TestIssuer_StoreError(t *testing.T) {
	store := &memoryStore{err: errors.New("unique violation")}

	_, err := NewIssuer(fixedNumbers("2503011"), store, Options{}).FromBooking(context.Background(), completedBooking(), models.Client{})

	assert.Error(t, err)
	assert.Empty(t, store.links)
}

func TestTotals(t *testing.T) {
	vat, total := Totals(decimal.RequireFromString("1234.56"), decimal.NewFromInt(21))

	assert.Equal(t, "259.26", vat.StringFixed(2))
	assert.Equal(t, "1493.82", total.StringFixed(2))
}
