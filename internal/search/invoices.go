// Package search keeps a denormalised copy of invoices in elasticsearch so
// the admin invoice storage can be searched by number and client name.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"drclean-workers/internal/models"
)

var (
	ErrSearchFailed = errors.New("SEARCH_QUERY_FAILED")
	ErrIndexFailed  = errors.New("SEARCH_INDEX_FAILED")
)

const (
	DefaultIndex = "invoices"
	defaultSize  = 20
	maxSize      = 100
)

const indexMapping = `{
	"mappings": {
		"properties": {
			"invoice_number": {"type": "keyword"},
			"client_name":    {"type": "text", "fields": {"raw": {"type": "keyword"}}},
			"client_id":      {"type": "keyword"},
			"booking_id":     {"type": "keyword"},
			"status":         {"type": "keyword"},
			"total":          {"type": "scaled_float", "scaling_factor": 100},
			"date_created":   {"type": "date"},
			"date_due":       {"type": "date"}
		}
	}
}`

// Document is the indexed shape of an invoice.
type Document struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoice_number"`
	ClientName    string     `json:"client_name"`
	ClientID      string     `json:"client_id,omitempty"`
	BookingID     string     `json:"booking_id,omitempty"`
	Status        string     `json:"status"`
	Total         float64    `json:"total"`
	DateCreated   time.Time  `json:"date_created"`
	DateDue       *time.Time `json:"date_due,omitempty"`
}

func DocumentFrom(inv models.Invoice) Document {
	doc := Document{
		ID:            inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		ClientName:    inv.ClientName,
		ClientID:      inv.ClientID,
		Status:        string(inv.Status),
		Total:         inv.Total.InexactFloat64(),
		DateCreated:   inv.DateCreated,
		DateDue:       inv.DateDue,
	}
	if inv.BookingID != nil {
		doc.BookingID = *inv.BookingID
	}
	return doc
}

type Query struct {
	Text   string `json:"text,omitempty"`
	Status string `json:"status,omitempty"`
	From   int    `json:"from,omitempty"`
	Size   int    `json:"size,omitempty"`
}

type Result struct {
	Invoices  []Document `json:"invoices"`
	TotalHits int64      `json:"totalHits"`
	Took      int64      `json:"took"`
}

type InvoiceIndex struct {
	es    *elasticsearch.Client
	index string
}

func NewInvoiceIndex(es *elasticsearch.Client, index string) *InvoiceIndex {
	if index == "" {
		index = DefaultIndex
	}
	return &InvoiceIndex{es: es, index: index}
}

// EnsureIndex creates the index with its mapping when it does not exist.
func (x *InvoiceIndex) EnsureIndex(ctx context.Context) error {
	res, err := esapi.IndicesExistsRequest{Index: []string{x.index}}.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{
		Index: x.index,
		Body:  bytes.NewReader([]byte(indexMapping)),
	}.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: create index: %s", ErrIndexFailed, res.String())
	}
	return nil
}

// Index upserts one invoice document.
func (x *InvoiceIndex) Index(ctx context.Context, inv models.Invoice) error {
	body, err := json.Marshal(DocumentFrom(inv))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}

	res, err := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: inv.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "wait_for",
	}.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndexFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("%w: %s", ErrIndexFailed, res.String())
	}
	return nil
}

// Search matches the text against invoice number and client name. The
// overdue status is derived: an issued invoice whose due date has passed.
func (x *InvoiceIndex) Search(ctx context.Context, q Query) (*Result, error) {
	size := q.Size
	if size < 1 {
		size = defaultSize
	}
	if size > maxSize {
		size = maxSize
	}
	from := q.From
	if from < 0 {
		from = 0
	}

	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	res, err := esapi.SearchRequest{
		Index: []string{x.index},
		Body:  bytes.NewReader(body),
		From:  &from,
		Size:  &size,
	}.Do(ctx, x.es)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.String())
	}
	return decodeResult(res.Body)
}

func buildQuery(q Query) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}
	mustNot := []interface{}{}

	if q.Text != "" {
		must = append(must, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"prefix": map[string]interface{}{"invoice_number": q.Text}},
					map[string]interface{}{"match": map[string]interface{}{"client_name": map[string]interface{}{"query": q.Text, "operator": "and"}}},
				},
				"minimum_should_match": 1,
			},
		})
	}

	pastDue := map[string]interface{}{"range": map[string]interface{}{"date_due": map[string]interface{}{"lt": "now/d"}}}
	switch q.Status {
	case "":
	case string(models.InvoiceOverdue):
		filter = append(filter, term("status", string(models.InvoiceIssued)), pastDue)
	case string(models.InvoiceIssued):
		filter = append(filter, term("status", string(models.InvoiceIssued)))
		mustNot = append(mustNot, pastDue)
	default:
		filter = append(filter, term("status", q.Status))
	}

	if len(must) == 0 {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":     must,
				"filter":   filter,
				"must_not": mustNot,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"date_created": map[string]interface{}{"order": "desc"}},
		},
	}
}

func term(field, value string) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

func decodeResult(r io.Reader) (*Result, error) {
	var raw struct {
		Took int64 `json:"took"`
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source Document `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrSearchFailed, err)
	}

	out := &Result{
		Invoices:  make([]Document, 0, len(raw.Hits.Hits)),
		TotalHits: raw.Hits.Total.Value,
		Took:      raw.Took,
	}
	for _, h := range raw.Hits.Hits {
		out.Invoices = append(out.Invoices, h.Source)
	}
	return out, nil
}
