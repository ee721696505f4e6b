package finance

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"drclean-workers/internal/models"
)

type Grouping string

const (
	GroupDays     Grouping = "days"
	GroupMonths   Grouping = "months"
	GroupQuarters Grouping = "quarters"
)

type ClientAmount struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type Bucket struct {
	Period  string          `json:"period"`
	Cash    decimal.Decimal `json:"cash"`
	Bank    decimal.Decimal `json:"bank"`
	Total   decimal.Decimal `json:"total"`
	Clients []ClientAmount  `json:"clients"`
}

// Chart groups paid jobs by payment date. Every non-cash payment counts as
// bank. window may be nil to chart all history. clientNames maps client ids
// to display names.
func Chart(jobs []models.Job, clientNames map[string]string, grouping Grouping, window *Period) []Bucket {
	paid := make([]models.Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Status != models.JobPaid || j.PaymentReceivedDate == nil {
			continue
		}
		if window != nil && !window.Contains(*j.PaymentReceivedDate) {
			continue
		}
		paid = append(paid, j)
	}
	sort.SliceStable(paid, func(i, k int) bool {
		return paid[i].PaymentReceivedDate.Before(*paid[k].PaymentReceivedDate)
	})

	buckets := []Bucket{}
	index := make(map[string]int)
	for _, j := range paid {
		key := bucketKey(*j.PaymentReceivedDate, grouping)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, Bucket{Period: key, Clients: []ClientAmount{}})
		}

		amount := decimal.NewFromFloat(j.Revenue)
		b := &buckets[i]
		if j.PaymentType == models.PaymentCash {
			b.Cash = b.Cash.Add(amount)
		} else {
			b.Bank = b.Bank.Add(amount)
		}
		b.Total = b.Total.Add(amount)

		name, ok := clientNames[j.ClientID]
		if !ok {
			name = "Unknown"
		}
		b.Clients = append(b.Clients, ClientAmount{Name: name, Amount: amount})
	}
	return buckets
}

func bucketKey(t time.Time, g Grouping) string {
	switch g {
	case GroupDays:
		return t.Format("2006-01-02")
	case GroupQuarters:
		return fmt.Sprintf("Q%d %d", (int(t.Month())+2)/3, t.Year())
	default:
		return t.Format("2006-01")
	}
}
