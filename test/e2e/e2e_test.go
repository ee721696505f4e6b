// test/e2e/e2e_test.go
package e2e

import (
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/camunda/camundatest"
	"drclean-workers/internal/common/events"
	"drclean-workers/internal/common/events/eventstest"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/common/validation"
	"drclean-workers/internal/invoicing"
	"drclean-workers/internal/loyalty"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository/repotest"
	"drclean-workers/pkg/registry"

	ep "drclean-workers/internal/workers/pricing/estimate-price"
	lcb "drclean-workers/internal/workers/booking/list-client-bookings"
	tb "drclean-workers/internal/workers/booking/transition-booking"
	ibi "drclean-workers/internal/workers/invoice/issue-booking-invoice"
	uis "drclean-workers/internal/workers/invoice/update-invoice-status"
	rl "drclean-workers/internal/workers/loyalty/recalculate-loyalty"
)

// ==========================
// Test Helper Functions
// ==========================

// env wires the booking workers the way cmd/worker-manager does, with the
// Postgres store replaced by the in-memory one and Redis by miniredis.
type env struct {
	t         *testing.T
	store     *repotest.Memory
	publisher *eventstest.Recorder
	validator camunda.Validator
	log       logger.Logger
	key       int64

	estimate    worker.JobHandler
	transition  worker.JobHandler
	listBooking worker.JobHandler
	issue       worker.JobHandler
	status      worker.JobHandler
	recalculate worker.JobHandler
}

func newEnv(t *testing.T) *env {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := logger.NewTestLogger(t)
	validator, err := validation.NewSchemaValidator(registry.Default())
	require.NoError(t, err)

	store := repotest.New()
	store.Clients["c-1"] = models.Client{
		ID:    "c-1",
		Name:  "Jana Nováková",
		Email: "jana@example.cz",
	}

	e := &env{t: t, store: store, publisher: &eventstest.Recorder{}, validator: validator, log: log}

	issuer := invoicing.NewIssuer(invoicing.NewNumberer(rdb, store), store, invoicing.Options{VATRate: 21, DueDays: 7})
	loyaltyService := loyalty.NewService(store, 0.27, log)

	e.estimate = e.guard(ep.TaskType, ep.NewHandler(ep.LoadConfig(), log).Handle)
	e.transition = e.guard(tb.TaskType, tb.NewHandler(tb.LoadConfig(), store, e.publisher, nil, rdb, log).Handle)
	e.listBooking = e.guard(lcb.TaskType, lcb.NewHandler(lcb.LoadConfig(), store, rdb, log).Handle)
	e.issue = e.guard(ibi.TaskType, ibi.NewHandler(ibi.LoadConfig(), store, issuer, nil, e.publisher, rdb, log).Handle)
	e.status = e.guard(uis.TaskType, uis.NewHandler(uis.LoadConfig(), store, loyaltyService, nil, e.publisher, rdb, log).Handle)
	e.recalculate = e.guard(rl.TaskType, rl.NewHandler(rl.LoadConfig(), store, loyaltyService, log).Handle)
	return e
}

func (e *env) guard(taskType string, h worker.JobHandler) worker.JobHandler {
	return camunda.Validated(taskType, e.validator, e.log, h)
}

// run activates one job and decodes the completed variables into out.
func (e *env) run(h worker.JobHandler, taskType string, vars map[string]interface{}, out interface{}) {
	e.t.Helper()
	e.key++
	client := camundatest.NewJobClient()

	h(client, camundatest.NewJob(e.key, taskType, vars))

	require.Empty(e.t, client.Thrown(), "%s threw", taskType)
	require.Empty(e.t, client.Failed(), "%s failed", taskType)
	require.Len(e.t, client.Completed(), 1)
	if out != nil {
		require.NoError(e.t, client.CompletedVariables(0, out))
	}
}

// ==========================
// Booking to paid invoice
// ==========================

func TestBookingLifecycle(t *testing.T) {
	e := newEnv(t)

	// 1. Price the request with an agreed override.
	var estimate ep.Output
	e.run(e.estimate, ep.TaskType, map[string]interface{}{
		"category":      "home_cleaning",
		"parameters":    map[string]interface{}{"areaM2": 60, "bathroomCount": 1, "kitchenCount": 1},
		"overridePrice": 2000,
	}, &estimate)
	require.NotNil(t, estimate.Stored)
	require.NotNil(t, estimate.Stored.Price)
	assert.Equal(t, 2000.0, *estimate.Stored.Price)

	e.store.Bookings["b-1"] = models.Booking{
		ID:             "b-1",
		ClientID:       "c-1",
		ServiceType:    models.CategoryHome,
		Address:        "Korunní 12, Praha",
		Status:         models.BookingPending,
		BookingDetails: models.BookingDetails{PriceEstimate: estimate.Stored},
	}

	// 2. Approve, start and complete the booking.
	e.run(e.transition, tb.TaskType, map[string]interface{}{
		"bookingId": "b-1",
		"action":    "approve",
		"options": map[string]interface{}{
			"scheduledDate": "2026-10-21T07:00:00Z",
			"teamMemberIds": []string{"tm-1"},
		},
	}, nil)
	e.run(e.transition, tb.TaskType, map[string]interface{}{"bookingId": "b-1", "action": "start"}, nil)

	var completed tb.Output
	e.run(e.transition, tb.TaskType, map[string]interface{}{"bookingId": "b-1", "action": "complete"}, &completed)
	assert.Equal(t, models.BookingCompleted, completed.Booking.Status)

	// 3. Issue the invoice.
	var issued ibi.Output
	e.run(e.issue, ibi.TaskType, map[string]interface{}{"bookingId": "b-1"}, &issued)
	assert.Equal(t, "2420.00", issued.Total)
	assert.Equal(t, "jana@example.cz", issued.ClientEmail)
	assert.Regexp(t, `^\d{4}001$`, issued.InvoiceNumber)

	var again ibi.Output
	e.run(e.issue, ibi.TaskType, map[string]interface{}{"bookingId": "b-1"}, &again)
	assert.True(t, again.AlreadyExists)
	assert.Equal(t, issued.InvoiceID, again.InvoiceID)

	// 4. Payment arrives; points are credited once.
	var paid uis.Output
	e.run(e.status, uis.TaskType, map[string]interface{}{"invoiceId": issued.InvoiceID, "status": "paid"}, &paid)
	assert.True(t, paid.Changed)
	require.NotNil(t, paid.Accrual)
	assert.Equal(t, int64(653), paid.Accrual.Points)

	var recalculated rl.Output
	e.run(e.recalculate, rl.TaskType, map[string]interface{}{"clientId": "c-1"}, &recalculated)
	assert.False(t, recalculated.Drifted)
	assert.Equal(t, int64(653), recalculated.Credits.CurrentCredits)

	// 5. The client dashboard shows the paid invoice.
	var dashboard lcb.Output
	e.run(e.listBooking, lcb.TaskType, map[string]interface{}{"clientId": "c-1"}, &dashboard)
	views := append(dashboard.Active, dashboard.History...)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].Invoice)
	assert.Equal(t, models.InvoicePaid, views[0].Invoice.Status)

	assert.Contains(t, e.publisher.Keys(), events.InvoiceIssued)
	assert.Contains(t, e.publisher.Keys(), events.InvoiceStatus)
}

func TestInvalidVariablesNeverReachHandlers(t *testing.T) {
	e := newEnv(t)
	e.store.Bookings["b-1"] = models.Booking{ID: "b-1", ClientID: "c-1", Status: models.BookingPending}

	tests := []struct {
		name     string
		handler  worker.JobHandler
		taskType string
		vars     map[string]interface{}
	}{
		{name: "unknown action", handler: e.transition, taskType: tb.TaskType, vars: map[string]interface{}{"bookingId": "b-1", "action": "cancel"}},
		{name: "missing booking id", handler: e.issue, taskType: ibi.TaskType, vars: map[string]interface{}{}},
		{name: "unknown invoice status", handler: e.status, taskType: uis.TaskType, vars: map[string]interface{}{"invoiceId": "inv-1", "status": "void"}},
		{name: "unknown category", handler: e.estimate, taskType: ep.TaskType, vars: map[string]interface{}{"category": "carpet"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := camundatest.NewJobClient()

			tt.handler(client, camundatest.NewJob(99, tt.taskType, tt.vars))

			require.Len(t, client.Thrown(), 1)
			assert.Equal(t, "INVALID_INPUT", client.Thrown()[0].ErrorCode)
		})
	}
	assert.Equal(t, models.BookingPending, e.store.Bookings["b-1"].Status)
}

func TestOutputsAreJSONObjects(t *testing.T) {
	e := newEnv(t)

	var raw map[string]json.RawMessage
	e.run(e.estimate, ep.TaskType, map[string]interface{}{
		"category":   "home_cleaning",
		"parameters": map[string]interface{}{"areaM2": 50, "bathroomCount": 1, "kitchenCount": 1},
	}, &raw)

	assert.Contains(t, raw, "estimate")
	assert.Contains(t, raw, "complete")
}
