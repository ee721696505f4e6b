// Package repotest provides an in-memory implementation of every repository
// store for worker tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"drclean-workers/internal/models"
	"drclean-workers/internal/repository"
)

// Memory holds records in maps keyed by id. Set Errors[method] to make that
// method fail.
type Memory struct {
	mu sync.Mutex

	Clients       map[string]models.Client
	Bookings      map[string]models.Booking
	Jobs          map[string]models.Job
	JobExpenses   map[string][]models.JobExpense
	Invoices      map[string]models.Invoice
	InvoiceItems  map[string][]models.InvoiceItem
	Transactions  []models.Transaction
	Credits       map[string]models.LoyaltyCredits
	LoyaltyTxs    []models.LoyaltyTransaction
	Team          []models.TeamMember
	ViewedAt      map[string]time.Time
	DeletedTables []string

	Errors map[string]error
}

var (
	_ repository.ClientStore      = (*Memory)(nil)
	_ repository.BookingStore     = (*Memory)(nil)
	_ repository.JobStore         = (*Memory)(nil)
	_ repository.InvoiceStore     = (*Memory)(nil)
	_ repository.TransactionStore = (*Memory)(nil)
	_ repository.LoyaltyStore     = (*Memory)(nil)
	_ repository.TeamStore        = (*Memory)(nil)
)

func New() *Memory {
	return &Memory{
		Clients:      map[string]models.Client{},
		Bookings:     map[string]models.Booking{},
		Jobs:         map[string]models.Job{},
		JobExpenses:  map[string][]models.JobExpense{},
		Invoices:     map[string]models.Invoice{},
		InvoiceItems: map[string][]models.InvoiceItem{},
		Credits:      map[string]models.LoyaltyCredits{},
		ViewedAt:     map[string]time.Time{},
		Errors:       map[string]error{},
	}
}

func (m *Memory) fail(method string) error {
	return m.Errors[method]
}

// ==========================
// Clients
// ==========================

func (m *Memory) GetClient(_ context.Context, id string) (models.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetClient"); err != nil {
		return models.Client{}, err
	}
	c, ok := m.Clients[id]
	if !ok {
		return models.Client{}, repository.ErrNotFound
	}
	return c, nil
}

func (m *Memory) ClientNames(_ context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ClientNames"); err != nil {
		return nil, err
	}
	names := make(map[string]string, len(m.Clients))
	for id, c := range m.Clients {
		names[id] = c.Name
	}
	return names, nil
}

func (m *Memory) AddTotalSpent(_ context.Context, clientID string, delta decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AddTotalSpent"); err != nil {
		return err
	}
	c, ok := m.Clients[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	spent, _ := decimal.NewFromFloat(c.TotalSpent).Add(delta).Float64()
	c.TotalSpent = max(spent, 0)
	m.Clients[clientID] = c
	return nil
}

// DeleteClient mimics the cascade: a "jobs" error aborts, errors keyed
// "Delete:<table>" for other tables are recorded as secondary failures.
func (m *Memory) DeleteClient(_ context.Context, id string) (repository.DeleteReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var report repository.DeleteReport

	for _, table := range []string{"job_expenses", "jobs", "loyalty_credits", "loyalty_transactions", "bookings"} {
		if err := m.fail("Delete:" + table); err != nil {
			if table == "jobs" {
				return report, err
			}
			report.SecondaryFailures = append(report.SecondaryFailures, table)
			continue
		}
		m.DeletedTables = append(m.DeletedTables, table)
		switch table {
		case "jobs":
			for jid, j := range m.Jobs {
				if j.ClientID == id {
					delete(m.Jobs, jid)
					delete(m.JobExpenses, jid)
				}
			}
		case "loyalty_credits":
			delete(m.Credits, id)
		case "bookings":
			for bid, b := range m.Bookings {
				if b.ClientID == id {
					delete(m.Bookings, bid)
				}
			}
		}
	}

	if _, ok := m.Clients[id]; !ok {
		return report, repository.ErrNotFound
	}
	delete(m.Clients, id)
	report.ClientDeleted = true
	return report, nil
}

// ==========================
// Bookings
// ==========================

func (m *Memory) GetBooking(_ context.Context, id string) (models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetBooking"); err != nil {
		return models.Booking{}, err
	}
	b, ok := m.Bookings[id]
	if !ok {
		return models.Booking{}, repository.ErrNotFound
	}
	return b, nil
}

func (m *Memory) SaveBooking(_ context.Context, b models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveBooking"); err != nil {
		return err
	}
	if _, ok := m.Bookings[b.ID]; !ok {
		return repository.ErrNotFound
	}
	m.Bookings[b.ID] = b
	return nil
}

func (m *Memory) ListClientBookings(_ context.Context, clientID string) ([]models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListClientBookings"); err != nil {
		return nil, err
	}
	out := []models.Booking{}
	for _, b := range m.Bookings {
		if b.ClientID == clientID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) MarkViewed(_ context.Context, bookingIDs []string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkViewed"); err != nil {
		return err
	}
	for _, id := range bookingIDs {
		b, ok := m.Bookings[id]
		if !ok || b.ClientViewedAt != nil {
			continue
		}
		viewed := at
		b.ClientViewedAt = &viewed
		m.Bookings[id] = b
		m.ViewedAt[id] = at
	}
	return nil
}

// ==========================
// Jobs
// ==========================

func (m *Memory) GetJob(_ context.Context, id string) (models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetJob"); err != nil {
		return models.Job{}, err
	}
	j, ok := m.Jobs[id]
	if !ok {
		return models.Job{}, repository.ErrNotFound
	}
	return j, nil
}

func (m *Memory) ListJobs(_ context.Context) ([]models.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListJobs"); err != nil {
		return nil, err
	}
	out := make([]models.Job, 0, len(m.Jobs))
	for _, j := range m.Jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (m *Memory) UpdateJob(_ context.Context, job models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateJob"); err != nil {
		return err
	}
	if _, ok := m.Jobs[job.ID]; !ok {
		return repository.ErrNotFound
	}
	m.Jobs[job.ID] = job
	return nil
}

func (m *Memory) ListJobExpenses(_ context.Context, jobIDs []string) ([]models.JobExpense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListJobExpenses"); err != nil {
		return nil, err
	}
	out := []models.JobExpense{}
	for _, id := range jobIDs {
		out = append(out, m.JobExpenses[id]...)
	}
	return out, nil
}

func (m *Memory) ReplaceJobExpenses(_ context.Context, jobID string, expenses []models.JobExpense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ReplaceJobExpenses"); err != nil {
		return err
	}
	m.JobExpenses[jobID] = append([]models.JobExpense(nil), expenses...)
	return nil
}

func (m *Memory) ReassignByTitle(_ context.Context, title, clientID string) ([]repository.ReassignedJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ReassignByTitle"); err != nil {
		return nil, err
	}
	out := []repository.ReassignedJob{}
	for id, j := range m.Jobs {
		if j.Title != title {
			continue
		}
		j.ClientID = clientID
		m.Jobs[id] = j
		out = append(out, repository.ReassignedJob{ID: j.ID, JobNumber: j.JobNumber, Title: j.Title})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JobNumber < out[j].JobNumber })
	return out, nil
}

// ==========================
// Invoices
// ==========================

func (m *Memory) GetInvoice(_ context.Context, id string) (models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetInvoice"); err != nil {
		return models.Invoice{}, err
	}
	inv, ok := m.Invoices[id]
	if !ok {
		return models.Invoice{}, repository.ErrNotFound
	}
	return inv, nil
}

func (m *Memory) InvoicesByIDs(_ context.Context, ids []string) (map[string]models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InvoicesByIDs"); err != nil {
		return nil, err
	}
	out := map[string]models.Invoice{}
	for _, id := range ids {
		if inv, ok := m.Invoices[id]; ok {
			out[id] = inv
		}
	}
	return out, nil
}

func (m *Memory) CreateInvoice(_ context.Context, inv models.Invoice, items []models.InvoiceItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CreateInvoice"); err != nil {
		return err
	}
	m.Invoices[inv.ID] = inv
	m.InvoiceItems[inv.ID] = items
	return nil
}

func (m *Memory) LinkBookingInvoice(_ context.Context, bookingID, invoiceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("LinkBookingInvoice"); err != nil {
		return err
	}
	b, ok := m.Bookings[bookingID]
	if !ok {
		return repository.ErrNotFound
	}
	id := invoiceID
	b.InvoiceID = &id
	m.Bookings[bookingID] = b
	return nil
}

func (m *Memory) UpdateInvoiceStatus(_ context.Context, id string, status models.InvoiceStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpdateInvoiceStatus"); err != nil {
		return err
	}
	inv, ok := m.Invoices[id]
	if !ok {
		return repository.ErrNotFound
	}
	inv.Status = status
	m.Invoices[id] = inv
	return nil
}

func (m *Memory) MarkIssuedPaidByClientName(_ context.Context, clientName string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkIssuedPaidByClientName"); err != nil {
		return 0, err
	}
	var n int64
	for id, inv := range m.Invoices {
		if inv.ClientName == clientName && inv.Status == models.InvoiceIssued {
			inv.Status = models.InvoicePaid
			m.Invoices[id] = inv
			n++
		}
	}
	return n, nil
}

func (m *Memory) LastInvoiceNumber(_ context.Context, prefix string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("LastInvoiceNumber"); err != nil {
		return "", err
	}
	last := ""
	for _, inv := range m.Invoices {
		if strings.HasPrefix(inv.InvoiceNumber, prefix) && inv.InvoiceNumber > last {
			last = inv.InvoiceNumber
		}
	}
	return last, nil
}

// ==========================
// Transactions, loyalty, team
// ==========================

func (m *Memory) InsertTransaction(_ context.Context, tx models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertTransaction"); err != nil {
		return err
	}
	m.Transactions = append(m.Transactions, tx)
	return nil
}

func (m *Memory) NetEarnedForBooking(_ context.Context, clientID, bookingID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("NetEarnedForBooking"); err != nil {
		return 0, err
	}
	var net int64
	for _, tx := range m.LoyaltyTxs {
		if tx.ClientID != clientID || tx.RelatedJobID == nil || *tx.RelatedJobID != bookingID {
			continue
		}
		switch tx.Type {
		case models.LoyaltyEarned:
			net += tx.Amount
		case models.LoyaltyReversed:
			net -= tx.Amount
		}
	}
	return net, nil
}

func (m *Memory) GetCredits(_ context.Context, clientID string) (*models.LoyaltyCredits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetCredits"); err != nil {
		return nil, err
	}
	c, ok := m.Credits[clientID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *Memory) SaveCredits(_ context.Context, credits models.LoyaltyCredits) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("SaveCredits"); err != nil {
		return err
	}
	m.Credits[credits.ClientID] = credits
	return nil
}

func (m *Memory) AppendTransaction(_ context.Context, tx models.LoyaltyTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("AppendTransaction"); err != nil {
		return err
	}
	m.LoyaltyTxs = append(m.LoyaltyTxs, tx)
	return nil
}

func (m *Memory) ListTransactions(_ context.Context, clientID string) ([]models.LoyaltyTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListTransactions"); err != nil {
		return nil, err
	}
	out := []models.LoyaltyTransaction{}
	for _, tx := range m.LoyaltyTxs {
		if tx.ClientID == clientID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (m *Memory) ListTeamMembers(_ context.Context) ([]models.TeamMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListTeamMembers"); err != nil {
		return nil, err
	}
	return append([]models.TeamMember(nil), m.Team...), nil
}
