// Package finance projects job records into the admin finance dashboard.
package finance

import (
	"sort"

	"github.com/shopspring/decimal"

	"drclean-workers/internal/models"
)

type MemberEarnings struct {
	MemberID string          `json:"memberId"`
	Name     string          `json:"name"`
	Earnings decimal.Decimal `json:"earnings"`
}

type Summary struct {
	Period            Period           `json:"period"`
	Revenue           decimal.Decimal  `json:"periodRevenue"`
	Expenses          decimal.Decimal  `json:"periodExpenses"`
	Profit            decimal.Decimal  `json:"periodProfit"`
	Margin            decimal.Decimal  `json:"margin"`
	SuppliesExpenses  decimal.Decimal  `json:"periodSuppliesExpenses"`
	TransportExpenses decimal.Decimal  `json:"periodTransportExpenses"`
	CleanerExpenses   decimal.Decimal  `json:"periodCleanerExpenses"`
	CashRevenue       decimal.Decimal  `json:"periodCashRevenue"`
	BankRevenue       decimal.Decimal  `json:"periodBankRevenue"`
	ProjectedRevenue  decimal.Decimal  `json:"projectedRevenue"`
	Outstanding       decimal.Decimal  `json:"outstandingBalance"`
	PaidJobs          int              `json:"paidJobs"`
	Earnings          []MemberEarnings `json:"earningsDistribution"`
}

// PaidInPeriod reports whether a job counts toward realized revenue.
func PaidInPeriod(job models.Job, p Period) bool {
	return job.Status == models.JobPaid && job.PaymentReceivedDate != nil && p.Contains(*job.PaymentReceivedDate)
}

// Aggregate computes the dashboard figures. Period expenses are rebuilt
// from their components; the stored expenses column is ignored.
func Aggregate(jobs []models.Job, expenses []models.JobExpense, members []models.TeamMember, period Period) Summary {
	s := Summary{Period: period}

	paid := make(map[string]bool)
	for _, job := range jobs {
		revenue := decimal.NewFromFloat(job.Revenue)

		switch job.Status {
		case models.JobScheduled, models.JobPending:
			s.ProjectedRevenue = s.ProjectedRevenue.Add(revenue)
		case models.JobCompleted:
			s.Outstanding = s.Outstanding.Add(revenue)
		}

		if !PaidInPeriod(job, period) {
			continue
		}
		paid[job.ID] = true
		s.PaidJobs++
		s.Revenue = s.Revenue.Add(revenue)
		s.SuppliesExpenses = s.SuppliesExpenses.Add(decimal.NewFromFloat(job.SuppliesExpenseTotal))
		s.TransportExpenses = s.TransportExpenses.Add(decimal.NewFromFloat(job.TransportExpenseTotal))
		switch job.PaymentType {
		case models.PaymentCash:
			s.CashRevenue = s.CashRevenue.Add(revenue)
		case models.PaymentBank:
			s.BankRevenue = s.BankRevenue.Add(revenue)
		}
	}

	perMember := make(map[string]decimal.Decimal)
	for _, e := range expenses {
		if !paid[e.JobID] {
			continue
		}
		amount := decimal.NewFromFloat(e.CleanerExpense)
		s.CleanerExpenses = s.CleanerExpenses.Add(amount)
		perMember[e.TeamMemberID] = perMember[e.TeamMemberID].Add(amount)
	}

	s.Expenses = s.SuppliesExpenses.Add(s.TransportExpenses).Add(s.CleanerExpenses)
	s.Profit = s.Revenue.Sub(s.Expenses)
	if !s.Revenue.IsZero() {
		s.Margin = s.Profit.Div(s.Revenue).Round(4)
	}

	s.Earnings = []MemberEarnings{}
	for _, m := range members {
		earned := perMember[m.ID]
		if earned.IsPositive() {
			s.Earnings = append(s.Earnings, MemberEarnings{MemberID: m.ID, Name: m.Name, Earnings: earned})
		}
	}
	sort.SliceStable(s.Earnings, func(i, j int) bool {
		return s.Earnings[i].Earnings.GreaterThan(s.Earnings[j].Earnings)
	})
	return s
}

// FilterCategory keeps the jobs of one service category. An empty
// category or "all" keeps everything.
func FilterCategory(jobs []models.Job, category string) []models.Job {
	if category == "" || category == "all" {
		return jobs
	}
	out := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if string(j.Category) == category {
			out = append(out, j)
		}
	}
	return out
}
