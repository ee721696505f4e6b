// internal/workers/booking/transition-booking/handler_test.go
package transitionbooking

import (
	"context"
	"errors"
	"testing"
	"time"

	"drclean-workers/internal/common/camunda/camundatest"
	"drclean-workers/internal/common/database"
	"drclean-workers/internal/common/events/eventstest"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/lifecycle"
	"drclean-workers/internal/models"
	"drclean-workers/internal/repository/repotest"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Implementations
// ==========================

type MockSMS struct {
	mock.Mock
}

func (m *MockSMS) SendSMS(ctx context.Context, phone, message string) (string, error) {
	args := m.Called(ctx, phone, message)
	return args.String(0), args.Error(1)
}

// ==========================
// Test Helper Functions
// ==========================

var fixedNow = time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)

type fixture struct {
	handler   *Handler
	store     *repotest.Memory
	publisher *eventstest.Recorder
	sms       *MockSMS
	redis     *miniredis.Miniredis
}

func setup(t *testing.T) *fixture {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := repotest.New()
	store.Clients["c-1"] = models.Client{ID: "c-1", Name: "Jana Nováková", Phone: "+420777123456"}

	f := &fixture{
		store:     store,
		publisher: &eventstest.Recorder{},
		sms:       &MockSMS{},
		redis:     mr,
	}
	f.handler = NewHandler(LoadConfig(), store, f.publisher, f.sms, rdb, logger.NewTestLogger(t))
	f.handler.now = func() time.Time { return fixedNow }
	return f
}

func addBooking(store *repotest.Memory, id string, status models.BookingStatus) models.Booking {
	b := models.Booking{
		ID:          id,
		ClientID:    "c-1",
		ServiceType: models.CategoryHome,
		Address:     "Korunní 12, Praha",
		Status:      status,
		CreatedAt:   fixedNow.Add(-48 * time.Hour),
		UpdatedAt:   fixedNow.Add(-48 * time.Hour),
	}
	store.Bookings[id] = b
	return b
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Approve(t *testing.T) {
	f := setup(t)
	addBooking(f.store, "b-1", models.BookingPending)
	f.redis.Set(database.ClientBookingsKey("c-1"), "stale")

	scheduled := time.Date(2026, 10, 21, 7, 0, 0, 0, time.UTC)
	f.sms.On("SendSMS", mock.Anything, "+420777123456", "Dr.Clean: Vaše rezervace úklidu byla potvrzena na 21.10.2026 09:00.").
		Return("sms-1", nil)

	out, err := f.handler.Execute(context.Background(), &Input{
		BookingID: "b-1",
		Action:    lifecycle.ActionApprove,
		Options: lifecycle.ApproveOptions{
			ScheduledDate: &scheduled,
			TeamMemberIDs: []string{"t-1", "t-2"},
			AdminNotes:    "klíče u sousedky",
		},
	})

	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, models.BookingPending, out.PreviousStatus)
	assert.Equal(t, models.BookingApproved, out.Booking.Status)
	assert.True(t, out.EventPublished)
	assert.True(t, out.SMSSent)
	assert.Equal(t, lifecycle.PaymentState("approved"), out.Display.State)

	saved := f.store.Bookings["b-1"]
	assert.Equal(t, models.BookingApproved, saved.Status)
	assert.Equal(t, []string{"t-1", "t-2"}, saved.TeamMemberIDs)
	assert.Equal(t, []string{"booking.approved"}, f.publisher.Keys())
	assert.False(t, f.redis.Exists(database.ClientBookingsKey("c-1")))
	f.sms.AssertExpectations(t)
}

func TestHandler_Execute_CompleteShowsInvoicePending(t *testing.T) {
	f := setup(t)
	b := addBooking(f.store, "b-2", models.BookingApproved)
	started := fixedNow.Add(-3 * time.Hour)
	b.StartedAt = &started
	f.store.Bookings["b-2"] = b

	out, err := f.handler.Execute(context.Background(), &Input{BookingID: "b-2", Action: lifecycle.ActionComplete})

	require.NoError(t, err)
	assert.Equal(t, models.BookingCompleted, out.Booking.Status)
	require.NotNil(t, out.Booking.CompletedAt)
	assert.Equal(t, lifecycle.DisplayInvoicePending, out.Display.State)
	assert.False(t, out.SMSSent)
	assert.Equal(t, []string{"booking.completed"}, f.publisher.Keys())
	f.sms.AssertNotCalled(t, "SendSMS", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandler_Execute_RepeatedStartIsNoop(t *testing.T) {
	f := setup(t)
	b := addBooking(f.store, "b-3", models.BookingInProgress)
	started := fixedNow.Add(-time.Hour)
	b.StartedAt = &started
	f.store.Bookings["b-3"] = b

	out, err := f.handler.Execute(context.Background(), &Input{BookingID: "b-3", Action: lifecycle.ActionStart})

	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.Empty(t, f.publisher.Keys())
	assert.Equal(t, lifecycle.DisplayInProgress, out.Display.State)
}

func TestHandler_Execute_ChangeWithinSameInstant(t *testing.T) {
	f := setup(t)
	b := addBooking(f.store, "b-5", models.BookingApproved)
	b.UpdatedAt = fixedNow
	f.store.Bookings["b-5"] = b

	out, err := f.handler.Execute(context.Background(), &Input{BookingID: "b-5", Action: lifecycle.ActionStart})

	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, models.BookingInProgress, f.store.Bookings["b-5"].Status)
	assert.Equal(t, []string{"booking.in_progress"}, f.publisher.Keys())
}

func TestHandler_Execute_SideEffectFailuresDoNotFail(t *testing.T) {
	f := setup(t)
	addBooking(f.store, "b-4", models.BookingPending)
	f.publisher.Err = errors.New("broker down")
	f.sms.On("SendSMS", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("throttled"))

	out, err := f.handler.Execute(context.Background(), &Input{BookingID: "b-4", Action: lifecycle.ActionApprove})

	require.NoError(t, err)
	assert.False(t, out.EventPublished)
	assert.False(t, out.SMSSent)
	assert.Equal(t, models.BookingApproved, f.store.Bookings["b-4"].Status)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(f *fixture)
		input   *Input
		wantErr error
	}{
		{
			name:    "booking missing",
			input:   &Input{BookingID: "nope", Action: lifecycle.ActionApprove},
			wantErr: ErrBookingNotFound,
		},
		{
			name:    "terminal booking",
			prepare: func(f *fixture) { addBooking(f.store, "b-5", models.BookingDeclined) },
			input:   &Input{BookingID: "b-5", Action: lifecycle.ActionApprove},
			wantErr: lifecycle.ErrInvalidTransition,
		},
		{
			name:    "unknown action",
			prepare: func(f *fixture) { addBooking(f.store, "b-6", models.BookingPending) },
			input:   &Input{BookingID: "b-6", Action: "cancel"},
			wantErr: lifecycle.ErrUnknownAction,
		},
		{
			name: "save fails",
			prepare: func(f *fixture) {
				addBooking(f.store, "b-7", models.BookingPending)
				f.store.Errors["SaveBooking"] = errors.New("connection reset")
			},
			input:   &Input{BookingID: "b-7", Action: lifecycle.ActionDecline},
			wantErr: ErrQueryFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			if tt.prepare != nil {
				tt.prepare(f)
			}
			_, err := f.handler.Execute(context.Background(), tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.publisher.Keys())
		})
	}
}

// ==========================
// Job Handling Tests
// ==========================

func TestHandler_Handle_InvalidTransitionIsThrown(t *testing.T) {
	f := setup(t)
	addBooking(f.store, "b-8", models.BookingCompleted)
	client := camundatest.NewJobClient()

	f.handler.Handle(client, camundatest.NewJob(8, TaskType, map[string]interface{}{
		"bookingId": "b-8",
		"action":    "start",
	}))

	require.Len(t, client.Thrown(), 1)
	assert.Equal(t, "INVALID_TRANSITION", client.Thrown()[0].ErrorCode)
}
