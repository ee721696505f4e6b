// internal/workers/invoice/search-invoices/models.go
package searchinvoices

import "drclean-workers/internal/search"

type Input struct {
	Text   string `json:"text"`
	Status string `json:"status"`
	From   int    `json:"from"`
	Size   int    `json:"size"`
}

type Output struct {
	Invoices  []search.Document `json:"invoices"`
	TotalHits int64             `json:"totalHits"`
	Took      int64             `json:"took"`
}
