package camunda

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"drclean-workers/internal/common/camunda/camundatest"
	"drclean-workers/internal/common/errors"
	"drclean-workers/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type echoInput struct {
	Name  string `json:"name"`
	Times int    `json:"times"`
}

type echoOutput struct {
	Greeting string `json:"greeting"`
}

type recorder struct {
	statuses []string
}

func (r *recorder) RecordJobProcessed(_ context.Context, _ string, status string) {
	r.statuses = append(r.statuses, status)
}

func (r *recorder) RecordJobDuration(context.Context, string, time.Duration, string) {}

// ==========================
// Process Tests
// ==========================

func TestProcess_CompletesWithOutput(t *testing.T) {
	rec := &recorder{}
	runner := NewRunner("echo", time.Second, logger.NewTestLogger(t)).WithRecorder(rec)
	client := camundatest.NewJobClient()
	job := camundatest.NewJob(1, "echo", map[string]interface{}{"name": "Jana", "times": 2})

	Process(runner, client, job, func(_ context.Context, in *echoInput) (*echoOutput, error) {
		return &echoOutput{Greeting: fmt.Sprintf("%s x%d", in.Name, in.Times)}, nil
	})

	require.Len(t, client.Completed(), 1)
	var out echoOutput
	require.NoError(t, client.CompletedVariables(0, &out))
	assert.Equal(t, "Jana x2", out.Greeting)
	assert.Equal(t, []string{"completed"}, rec.statuses)
}

func TestProcess_InvalidJSONThrowsInvalidInput(t *testing.T) {
	client := camundatest.NewJobClient()
	job := camundatest.NewJob(2, "echo", `{"name":`)
	called := false

	Process(NewRunner("echo", time.Second, logger.NewTestLogger(t)), client, job,
		func(context.Context, *echoInput) (*echoOutput, error) {
			called = true
			return &echoOutput{}, nil
		})

	assert.False(t, called)
	require.Len(t, client.Thrown(), 1)
	assert.Equal(t, "INVALID_INPUT", client.Thrown()[0].ErrorCode)
}

func TestProcess_ErrorRouting(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantThrown string
		wantFailed bool
	}{
		{
			name:       "business sentinel is thrown",
			err:        fmt.Errorf("%w: booking b-1", stderrors.New("BOOKING_NOT_FOUND")),
			wantThrown: "BOOKING_NOT_FOUND",
		},
		{
			name:       "technical sentinel is failed for retry",
			err:        fmt.Errorf("%w: connection reset", stderrors.New("QUERY_EXECUTION_FAILED")),
			wantFailed: true,
		},
		{
			name:       "standard error is thrown with its code",
			err:        errors.New(errors.ErrCodePartialPaymentSync, "invoice update failed"),
			wantThrown: "PARTIAL_PAYMENT_SYNC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := camundatest.NewJobClient()
			job := camundatest.NewJob(3, "echo", map[string]interface{}{"name": "x"})

			Process(NewRunner("echo", time.Second, logger.NewTestLogger(t)), client, job,
				func(context.Context, *echoInput) (*echoOutput, error) {
					return nil, tt.err
				})

			assert.Empty(t, client.Completed())
			if tt.wantFailed {
				require.Len(t, client.Failed(), 1)
				assert.Empty(t, client.Thrown())
				return
			}
			require.Len(t, client.Thrown(), 1)
			assert.Equal(t, tt.wantThrown, client.Thrown()[0].ErrorCode)
		})
	}
}

func TestProcess_TimeoutIsFailedForRetry(t *testing.T) {
	client := camundatest.NewJobClient()
	job := camundatest.NewJob(4, "echo", map[string]interface{}{})

	Process(NewRunner("echo", 10*time.Millisecond, logger.NewTestLogger(t)), client, job,
		func(ctx context.Context, _ *echoInput) (*echoOutput, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

	require.Len(t, client.Failed(), 1)
	assert.Equal(t, int32(2), client.Failed()[0].Retries)
}

func TestProcess_RecordsSpanPerJob(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	runner := NewRunner("echo", time.Second, logger.NewTestLogger(t))
	client := camundatest.NewJobClient()

	Process(runner, client, camundatest.NewJob(5, "echo", map[string]interface{}{"name": "Jana"}),
		func(context.Context, *echoInput) (*echoOutput, error) { return &echoOutput{}, nil })
	Process(runner, client, camundatest.NewJob(6, "echo", map[string]interface{}{}),
		func(context.Context, *echoInput) (*echoOutput, error) {
			return nil, errors.NewInvalidInputError("name is required", nil)
		})

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "echo", ended[0].Name())
	assert.Equal(t, codes.Unset, ended[0].Status().Code)
	assert.Equal(t, codes.Error, ended[1].Status().Code)

	attrs := map[string]string{}
	for _, kv := range ended[1].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "6", attrs["job.key"])
	assert.Equal(t, "INVALID_INPUT", attrs["error.code"])
}

// ==========================
// Validation Middleware Tests
// ==========================

type stubValidator struct {
	err error
}

func (v stubValidator) Validate(string, string) error { return v.err }

func TestValidated(t *testing.T) {
	var handled int
	next := func(worker.JobClient, entities.Job) { handled++ }

	t.Run("valid variables reach handler", func(t *testing.T) {
		client := camundatest.NewJobClient()
		h := Validated("echo", stubValidator{}, logger.NewTestLogger(t), next)
		h(client, camundatest.NewJob(5, "echo", map[string]interface{}{}))
		assert.Equal(t, 1, handled)
		assert.Empty(t, client.Thrown())
	})

	t.Run("invalid variables are thrown", func(t *testing.T) {
		client := camundatest.NewJobClient()
		invalid := errors.NewInvalidInputError("schema violation", []string{"bookingId: is required"})
		h := Validated("echo", stubValidator{err: invalid}, logger.NewTestLogger(t), next)
		h(client, camundatest.NewJob(6, "echo", map[string]interface{}{}))
		assert.Equal(t, 1, handled)
		require.Len(t, client.Thrown(), 1)
		assert.Equal(t, "INVALID_INPUT", client.Thrown()[0].ErrorCode)
		assert.Contains(t, client.Thrown()[0].Variables, "bookingId: is required")
	})
}

// ==========================
// Retry Tests
// ==========================

func TestExecuteWithRetry(t *testing.T) {
	fast := &RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}

	t.Run("transient error recovers", func(t *testing.T) {
		attempts := 0
		result, err := ExecuteWithRetry(context.Background(), fast, func(context.Context) (interface{}, error) {
			attempts++
			if attempts < 2 {
				return nil, stderrors.New("rpc error: code = Unavailable")
			}
			return "ok", nil
		}, "complete job")
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 2, attempts)
	})

	t.Run("permanent error is mapped without retry", func(t *testing.T) {
		attempts := 0
		_, err := ExecuteWithRetry(context.Background(), fast, func(context.Context) (interface{}, error) {
			attempts++
			return nil, stderrors.New("job with key 1 not found")
		}, "complete job")
		require.Error(t, err)
		assert.Equal(t, 1, attempts)

		var stdErr *errors.StandardError
		require.ErrorAs(t, err, &stdErr)
		assert.Equal(t, errors.ErrCodeResourceNotFound, stdErr.Code)
	})

	t.Run("retries exhausted", func(t *testing.T) {
		attempts := 0
		_, err := ExecuteWithRetry(context.Background(), fast, func(context.Context) (interface{}, error) {
			attempts++
			return nil, stderrors.New("deadline exceeded")
		}, "complete job")
		assert.Equal(t, 3, attempts)

		var stdErr *errors.StandardError
		require.ErrorAs(t, err, &stdErr)
		assert.Equal(t, errors.ErrCodeTimeout, stdErr.Code)
	})
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "gateway unavailable", err: status.Error(grpccodes.Unavailable, "broker busy"), want: true},
		{name: "deadline", err: status.Error(grpccodes.DeadlineExceeded, "request timed out"), want: true},
		{name: "backpressure", err: status.Error(grpccodes.ResourceExhausted, "too many requests"), want: true},
		{name: "job gone", err: status.Error(grpccodes.NotFound, "job not found"), want: false},
		{name: "plain connection refused", err: stderrors.New("dial tcp: connection refused"), want: true},
		{name: "wrapped status text", err: stderrors.New("rpc error: code = Unavailable desc = broker busy"), want: true},
		{name: "permission denied", err: stderrors.New("permission denied"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(tt.err))
		})
	}
}

func TestMapZeebeError_UsesStatusCode(t *testing.T) {
	err := mapZeebeError(status.Error(grpccodes.PermissionDenied, "no access"), "complete job", 0)

	var stdErr *errors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, errors.ErrCodeAuthentication, stdErr.Code)
}
