package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drclean-workers/internal/models"
)

var now = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
	return &t
}

func fixtureJobs() []models.Job {
	return []models.Job{
		{ID: "j1", ClientID: "c1", Category: models.CategoryHome, Status: models.JobPaid, PaymentReceivedDate: day(2025, 3, 10), PaymentType: models.PaymentCash,
			Revenue: 2400, SuppliesExpenseTotal: 100, TransportExpenseTotal: 50, Expenses: 9999},
		{ID: "j2", ClientID: "c2", Category: models.CategoryWindow, Status: models.JobPaid, PaymentReceivedDate: day(2025, 3, 1), PaymentType: models.PaymentBank,
			Revenue: 1600, TransportExpenseTotal: 80},
		{ID: "j3", ClientID: "c1", Category: models.CategoryHome, Status: models.JobPaid, PaymentReceivedDate: day(2025, 1, 5), PaymentType: models.PaymentBank, Revenue: 5000},
		{ID: "j4", Category: models.CategoryHome, Status: models.JobCompleted, Revenue: 1800},
		{ID: "j5", Category: models.CategoryHome, Status: models.JobScheduled, Revenue: 1200},
		{ID: "j6", Category: models.CategoryCommercial, Status: models.JobPending, Revenue: 800},
		{ID: "j7", Category: models.CategoryHome, Status: models.JobPaid, Revenue: 700},
	}
}

func fixtureExpenses() []models.JobExpense {
	return []models.JobExpense{
		{JobID: "j1", TeamMemberID: "m1", CleanerExpense: 600},
		{JobID: "j1", TeamMemberID: "m2", CleanerExpense: 400},
		{JobID: "j2", TeamMemberID: "m1", CleanerExpense: 300},
		{JobID: "j3", TeamMemberID: "m2", CleanerExpense: 1000},
	}
}

func fixtureMembers() []models.TeamMember {
	return []models.TeamMember{
		{ID: "m1", Name: "Eva"},
		{ID: "m2", Name: "Tomáš"},
		{ID: "m3", Name: "Karel"},
	}
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

// ==========================
// Periods
// ==========================

func TestPeriodFor(t *testing.T) {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    string
		start     *time.Time
		end       *time.Time
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{name: "30 days", filter: "30", wantStart: time.Date(2025, 2, 12, 0, 0, 0, 0, time.UTC), wantEnd: now},
		{name: "7 days", filter: "7", wantStart: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC), wantEnd: now},
		{name: "total", filter: "total", wantStart: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), wantEnd: now},
		{name: "custom covers the whole end day", filter: "custom", start: &start, end: &end,
			wantStart: start, wantEnd: time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC)},
		{name: "custom without dates", filter: "custom", wantStart: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC), wantEnd: now},
		{name: "custom reversed", filter: "custom", start: &end, end: &start, wantErr: true},
		{name: "unsupported day count", filter: "14", wantErr: true},
		{name: "garbage", filter: "last-week", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := PeriodFor(tt.filter, now, tt.start, tt.end)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPeriod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStart, p.Start)
			assert.Equal(t, tt.wantEnd, p.End)
		})
	}
}

// ==========================
// Aggregation
// ==========================

func TestAggregate(t *testing.T) {
	period, err := PeriodFor("30", now, nil, nil)
	require.NoError(t, err)

	s := Aggregate(fixtureJobs(), fixtureExpenses(), fixtureMembers(), period)

	assert.Equal(t, 2, s.PaidJobs)
	assert.True(t, s.Revenue.Equal(dec("4000")), s.Revenue.String())
	assert.True(t, s.CashRevenue.Equal(dec("2400")))
	assert.True(t, s.BankRevenue.Equal(dec("1600")))
	assert.True(t, s.SuppliesExpenses.Equal(dec("100")))
	assert.True(t, s.TransportExpenses.Equal(dec("130")))
	assert.True(t, s.CleanerExpenses.Equal(dec("1300")))
	assert.True(t, s.Expenses.Equal(dec("1530")), "stored expenses column is ignored")
	assert.True(t, s.Profit.Equal(dec("2470")))
	assert.True(t, s.Margin.Equal(dec("0.6175")), s.Margin.String())
	assert.True(t, s.ProjectedRevenue.Equal(dec("2000")))
	assert.True(t, s.Outstanding.Equal(dec("1800")))

	require.Len(t, s.Earnings, 2, "members without earnings are left out")
	assert.Equal(t, "Eva", s.Earnings[0].Name)
	assert.True(t, s.Earnings[0].Earnings.Equal(dec("900")))
	assert.Equal(t, "Tomáš", s.Earnings[1].Name)
	assert.True(t, s.Earnings[1].Earnings.Equal(dec("400")))
}

func TestAggregate_ProfitIdentity(t *testing.T) {
	period, _ := PeriodFor("total", now, nil, nil)

	s := Aggregate(fixtureJobs(), fixtureExpenses(), fixtureMembers(), period)

	assert.True(t, s.Profit.Equal(s.Revenue.Sub(s.Expenses)))
	assert.True(t, s.Expenses.Equal(s.SuppliesExpenses.Add(s.TransportExpenses).Add(s.CleanerExpenses)))
	assert.True(t, s.Revenue.Equal(dec("9000")))
}

func TestAggregate_NoRevenue(t *testing.T) {
	period, _ := PeriodFor("7", now, nil, nil)

	s := Aggregate([]models.Job{{ID: "x", Status: models.JobScheduled, Revenue: 500}}, nil, fixtureMembers(), period)

	assert.True(t, s.Revenue.IsZero())
	assert.True(t, s.Margin.IsZero())
	assert.Empty(t, s.Earnings)
	assert.NotNil(t, s.Earnings)
}

func TestFilterCategory(t *testing.T) {
	jobs := fixtureJobs()

	assert.Len(t, FilterCategory(jobs, "all"), len(jobs))
	assert.Len(t, FilterCategory(jobs, ""), len(jobs))
	assert.Len(t, FilterCategory(jobs, string(models.CategoryWindow)), 1)
}

// ==========================
// Chart
// ==========================

func TestChart(t *testing.T) {
	names := map[string]string{"c1": "Jana Nováková", "c2": "Kavárna U Mostu"}

	t.Run("months", func(t *testing.T) {
		buckets := Chart(fixtureJobs(), names, GroupMonths, nil)

		require.Len(t, buckets, 2)
		assert.Equal(t, "2025-01", buckets[0].Period)
		assert.Equal(t, "2025-03", buckets[1].Period)
		assert.True(t, buckets[1].Cash.Equal(dec("2400")))
		assert.True(t, buckets[1].Bank.Equal(dec("1600")))
		assert.True(t, buckets[1].Total.Equal(dec("4000")))
		require.Len(t, buckets[1].Clients, 2)
		assert.Equal(t, "Kavárna U Mostu", buckets[1].Clients[0].Name)
	})

	t.Run("quarters", func(t *testing.T) {
		buckets := Chart(fixtureJobs(), names, GroupQuarters, nil)

		require.Len(t, buckets, 1)
		assert.Equal(t, "Q1 2025", buckets[0].Period)
		assert.True(t, buckets[0].Total.Equal(dec("9000")))
	})

	t.Run("days within window", func(t *testing.T) {
		start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
		window, err := PeriodFor("custom", now, &start, &end)
		require.NoError(t, err)

		buckets := Chart(fixtureJobs(), nil, GroupDays, &window)

		require.Len(t, buckets, 1)
		assert.Equal(t, "2025-03-01", buckets[0].Period)
		assert.Equal(t, "Unknown", buckets[0].Clients[0].Name)
	})
}
