// internal/workers/invoice/search-invoices/handler_test.go
package searchinvoices

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"drclean-workers/internal/common/camunda/camundatest"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/search"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) Search(ctx context.Context, q search.Query) (*search.Result, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*search.Result), args.Error(1)
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute(t *testing.T) {
	searcher := &MockSearcher{}
	searcher.On("Search", mock.Anything, search.Query{Text: "Nováková", Status: "overdue", Size: 10}).
		Return(&search.Result{
			Invoices:  []search.Document{{ID: "inv-1", InvoiceNumber: "2610004", ClientName: "Jana Nováková"}},
			TotalHits: 1,
			Took:      2,
		}, nil)
	h := NewHandler(LoadConfig(), searcher, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{Text: "  Nováková ", Status: "overdue", Size: 10})

	require.NoError(t, err)
	require.Len(t, out.Invoices, 1)
	assert.Equal(t, "2610004", out.Invoices[0].InvoiceNumber)
	assert.Equal(t, int64(1), out.TotalHits)
	searcher.AssertExpectations(t)
}

func TestHandler_Execute_NoHitsIsEmptyList(t *testing.T) {
	searcher := &MockSearcher{}
	searcher.On("Search", mock.Anything, mock.Anything).Return(&search.Result{}, nil)
	h := NewHandler(LoadConfig(), searcher, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), &Input{})

	require.NoError(t, err)
	assert.NotNil(t, out.Invoices)
	assert.Empty(t, out.Invoices)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name      string
		input     Input
		searchErr error
		wantErr   error
	}{
		{
			name:    "unknown status",
			input:   Input{Status: "draft"},
			wantErr: ErrInvalidStatus,
		},
		{
			name:      "search fails",
			input:     Input{Text: "2610"},
			searchErr: fmt.Errorf("%w: cluster unavailable", search.ErrSearchFailed),
			wantErr:   search.ErrSearchFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &MockSearcher{}
			searcher.On("Search", mock.Anything, mock.Anything).Return(nil, tt.searchErr).Maybe()
			h := NewHandler(LoadConfig(), searcher, logger.NewTestLogger(t))

			_, err := h.Execute(context.Background(), &tt.input)

			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

// ==========================
// Integration Tests
// ==========================

func TestHandler_Handle_WithElasticsearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"took": 4, "hits": {"total": {"value": 1}, "hits": [
			{"_source": {"id": "inv-1", "invoice_number": "2610001", "client_name": "Petr Svoboda", "status": "paid", "total": 2420, "date_created": "2026-10-12T00:00:00Z"}}
		]}}`))
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	h := NewHandler(LoadConfig(), search.NewInvoiceIndex(es, ""), logger.NewTestLogger(t))
	client := camundatest.NewJobClient()

	h.Handle(client, camundatest.NewJob(5, TaskType, map[string]interface{}{"text": "Svoboda"}))

	require.Len(t, client.Completed(), 1)
	var out Output
	require.NoError(t, client.CompletedVariables(0, &out))
	require.Len(t, out.Invoices, 1)
	assert.Equal(t, "Petr Svoboda", out.Invoices[0].ClientName)
	assert.Equal(t, int64(4), out.Took)
}
