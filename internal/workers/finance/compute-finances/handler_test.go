// internal/workers/finance/compute-finances/handler_test.go
package computefinances

import (
	"context"
	"errors"
	"testing"
	"time"

	"drclean-workers/internal/common/camunda/camundatest"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/finance"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository/repotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

func day(m time.Month, d int) *time.Time {
	t := time.Date(2026, m, d, 12, 0, 0, 0, time.UTC)
	return &t
}

func seed(store *repotest.Memory) {
	store.Clients["c-1"] = models.Client{ID: "c-1", Name: "Jana Nováková"}
	store.Clients["c-2"] = models.Client{ID: "c-2", Name: "Alfa s.r.o."}
	store.Team = []models.TeamMember{
		{ID: "tm-1", Name: "Eva"},
		{ID: "tm-2", Name: "Marek"},
	}

	add := func(j models.Job) { store.Jobs[j.ID] = j }
	add(models.Job{ID: "p1", ClientID: "c-1", Category: models.CategoryHome, Status: models.JobPaid,
		Revenue: 2000, SuppliesExpenseTotal: 100, TransportExpenseTotal: 50, Expenses: 1,
		PaymentReceivedDate: day(time.October, 10), PaymentType: models.PaymentCash, ScheduledDate: *day(time.October, 9)})
	add(models.Job{ID: "p2", ClientID: "c-2", Category: models.CategoryCommercial, Status: models.JobPaid,
		Revenue: 5000, SuppliesExpenseTotal: 200,
		PaymentReceivedDate: day(time.September, 25), PaymentType: models.PaymentBank, ScheduledDate: *day(time.September, 24)})
	add(models.Job{ID: "p3", ClientID: "c-2", Category: models.CategoryCommercial, Status: models.JobPaid,
		Revenue: 3000, PaymentReceivedDate: day(time.August, 1), PaymentType: models.PaymentBank, ScheduledDate: *day(time.July, 30)})
	add(models.Job{ID: "s1", ClientID: "c-1", Category: models.CategoryHome, Status: models.JobScheduled,
		Revenue: 1800, ScheduledDate: *day(time.October, 25)})
	add(models.Job{ID: "c1", ClientID: "c-1", Category: models.CategoryHome, Status: models.JobCompleted,
		Revenue: 2200, ScheduledDate: *day(time.October, 15)})

	store.JobExpenses["p1"] = []models.JobExpense{{JobID: "p1", TeamMemberID: "tm-1", CleanerExpense: 600}}
	store.JobExpenses["p2"] = []models.JobExpense{
		{JobID: "p2", TeamMemberID: "tm-2", CleanerExpense: 1500},
		{JobID: "p2", TeamMemberID: "tm-1", CleanerExpense: 500},
	}
	store.JobExpenses["p3"] = []models.JobExpense{{JobID: "p3", TeamMemberID: "tm-2", CleanerExpense: 900}}
}

func createTestHandler(t *testing.T, store Store) *Handler {
	h := NewHandler(LoadConfig(), store, logger.NewTestLogger(t))
	h.now = func() time.Time { return fixedNow }
	return h
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_LastThirtyDays(t *testing.T) {
	store := repotest.New()
	seed(store)
	h := createTestHandler(t, store)

	out, err := h.Execute(context.Background(), &Input{Period: "30"})

	require.NoError(t, err)
	s := out.Summary
	assert.Equal(t, 2, s.PaidJobs)
	assert.Equal(t, "7000", s.Revenue.String())
	assert.Equal(t, "2950", s.Expenses.String())
	assert.Equal(t, "4050", s.Profit.String())
	assert.Equal(t, "0.5786", s.Margin.String())
	assert.Equal(t, "2000", s.CashRevenue.String())
	assert.Equal(t, "5000", s.BankRevenue.String())
	assert.Equal(t, "1800", s.ProjectedRevenue.String())
	assert.Equal(t, "2200", s.Outstanding.String())

	require.Len(t, s.Earnings, 2)
	assert.Equal(t, "Marek", s.Earnings[0].Name)
	assert.Equal(t, "1100", s.Earnings[1].Earnings.String())

	require.Len(t, out.Chart, 2)
	assert.Equal(t, "2026-09", out.Chart[0].Period)
	assert.Equal(t, "5000", out.Chart[0].Bank.String())
	assert.Equal(t, "Alfa s.r.o.", out.Chart[0].Clients[0].Name)
	assert.Equal(t, "2026-10", out.Chart[1].Period)
	assert.Equal(t, "2000", out.Chart[1].Cash.String())
}

func TestHandler_Execute_CategoryFilter(t *testing.T) {
	store := repotest.New()
	seed(store)
	h := createTestHandler(t, store)

	out, err := h.Execute(context.Background(), &Input{Period: "total", Category: string(models.CategoryHome)})

	require.NoError(t, err)
	assert.Equal(t, 1, out.Summary.PaidJobs)
	assert.Equal(t, "2000", out.Summary.Revenue.String())
	assert.Equal(t, "750", out.Summary.Expenses.String())
}

func TestHandler_Execute_QuarterGrouping(t *testing.T) {
	store := repotest.New()
	seed(store)
	h := createTestHandler(t, store)

	out, err := h.Execute(context.Background(), &Input{Period: "total", Grouping: finance.GroupQuarters})

	require.NoError(t, err)
	require.Len(t, out.Chart, 2)
	assert.Equal(t, "Q3 2026", out.Chart[0].Period)
	assert.Equal(t, "8000", out.Chart[0].Total.String())
	assert.Equal(t, "Q4 2026", out.Chart[1].Period)
}

func TestHandler_Execute_CustomPeriod(t *testing.T) {
	store := repotest.New()
	seed(store)
	h := createTestHandler(t, store)

	out, err := h.Execute(context.Background(), &Input{
		Period:      "custom",
		CustomStart: day(time.September, 1),
		CustomEnd:   day(time.September, 30),
		Grouping:    finance.GroupDays,
	})

	require.NoError(t, err)
	assert.Equal(t, "5000", out.Summary.Revenue.String())
	require.Len(t, out.Chart, 1)
	assert.Equal(t, "2026-09-25", out.Chart[0].Period)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   Input
		failing string
		wantErr error
	}{
		{name: "unknown period", input: Input{Period: "14"}, wantErr: finance.ErrInvalidPeriod},
		{name: "end before start", input: Input{Period: "custom", CustomStart: day(time.October, 5), CustomEnd: day(time.October, 1)}, wantErr: finance.ErrInvalidPeriod},
		{name: "unknown grouping", input: Input{Period: "30", Grouping: "weeks"}, wantErr: ErrInvalidInput},
		{name: "jobs unavailable", input: Input{Period: "30"}, failing: "ListJobs", wantErr: ErrQueryFailed},
		{name: "expenses unavailable", input: Input{Period: "30"}, failing: "ListJobExpenses", wantErr: ErrQueryFailed},
		{name: "team unavailable", input: Input{Period: "30"}, failing: "ListTeamMembers", wantErr: ErrQueryFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := repotest.New()
			seed(store)
			if tt.failing != "" {
				store.Errors[tt.failing] = errors.New("connection reset")
			}
			h := createTestHandler(t, store)

			_, err := h.Execute(context.Background(), &tt.input)

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHandler_Handle_InvalidPeriodIsThrown(t *testing.T) {
	store := repotest.New()
	h := createTestHandler(t, store)
	client := camundatest.NewJobClient()

	h.Handle(client, camundatest.NewJob(12, TaskType, map[string]interface{}{"period": "weekly"}))

	require.Len(t, client.Thrown(), 1)
	assert.Equal(t, "INVALID_PERIOD", client.Thrown()[0].ErrorCode)
}
