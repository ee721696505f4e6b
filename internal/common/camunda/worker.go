// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"encoding/json"
	"time"

	"drclean-workers/internal/common/errors"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "drclean-workers/camunda"

// JobRecorder receives the outcome of every processed job.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

// Runner carries what every handler needs to turn a job into a completion or
// an error command: its task type, timeout, logger and the shared ErrorHandler.
type Runner struct {
	taskType string
	timeout  time.Duration
	logger   logger.Logger
	errors   *errors.ErrorHandler
	recorder JobRecorder
	retry    *RetryConfig
}

func NewRunner(taskType string, timeout time.Duration, log logger.Logger) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{
		taskType: taskType,
		timeout:  timeout,
		logger:   log,
		errors:   errors.NewErrorHandler(log),
		retry:    DefaultRetryConfig,
	}
}

// WithRecorder attaches an additional outcome recorder (e.g. OpenTelemetry).
func (r *Runner) WithRecorder(rec JobRecorder) *Runner {
	r.recorder = rec
	return r
}

func (r *Runner) TaskType() string { return r.taskType }

// Process decodes the job variables into I, runs exec under the runner
// timeout and reports the result to the broker.
func Process[I any, O any](r *Runner, client worker.JobClient, job entities.Job, exec func(context.Context, *I) (*O, error)) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(r.taskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(r.taskType).Dec()

	r.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	ctx, span := otel.Tracer(tracerName).Start(ctx, r.taskType,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.Int64("job.key", job.Key),
			attribute.Int64("job.process_instance_key", job.ProcessInstanceKey),
			attribute.Int("job.retries", int(job.Retries)),
		),
	)
	defer span.End()

	var input I
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		r.fail(ctx, client, job, start, errors.NewInvalidInputError("parse input: "+err.Error(), nil))
		return
	}

	output, err := exec(ctx, &input)
	if err != nil {
		r.fail(ctx, client, job, start, err)
		return
	}

	r.complete(ctx, client, job, start, output)
}

func (r *Runner) complete(ctx context.Context, client worker.JobClient, job entities.Job, start time.Time, output interface{}) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		r.fail(ctx, client, job, start, errors.NewInvalidInputError("encode output: "+err.Error(), nil))
		return
	}

	_, err = ExecuteWithRetry(ctx, r.retry, func(ctx context.Context) (interface{}, error) {
		return cmd.Send(ctx)
	}, "complete job")
	if err != nil {
		r.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err.Error(),
		})
		r.record(ctx, start, "send_failed")
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(r.taskType).Inc()
	r.record(ctx, start, "completed")
	r.logger.Info("job completed", map[string]interface{}{
		"jobKey":   job.Key,
		"duration": time.Since(start).String(),
	})
}

func (r *Runner) fail(ctx context.Context, client worker.JobClient, job entities.Job, start time.Time, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	// the job context may already be spent when exec timed out
	sendCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stdErr := r.errors.HandleJobError(sendCtx, client, job, err)
	span.SetAttributes(attribute.String("error.code", string(stdErr.Code)))
	metrics.WorkerJobsFailed.WithLabelValues(r.taskType, string(stdErr.Code)).Inc()
	r.record(ctx, start, "failed")
}

func (r *Runner) record(ctx context.Context, start time.Time, status string) {
	metrics.WorkerJobDuration.WithLabelValues(r.taskType).Observe(time.Since(start).Seconds())
	if r.recorder != nil {
		r.recorder.RecordJobProcessed(ctx, r.taskType, status)
		r.recorder.RecordJobDuration(ctx, r.taskType, time.Since(start), status)
	}
}

// ==========================
// Input validation
// ==========================

// Validator checks raw job variables for a task type.
type Validator interface {
	Validate(taskType, variables string) error
}

// Validated guards next with v. Jobs whose variables fail validation never
// reach next; they are reported through the ErrorHandler instead.
func Validated(taskType string, v Validator, log logger.Logger, next worker.JobHandler) worker.JobHandler {
	handler := errors.NewErrorHandler(log)
	return func(client worker.JobClient, job entities.Job) {
		if err := v.Validate(taskType, job.Variables); err != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			stdErr := handler.HandleJobError(ctx, client, job, err)
			metrics.WorkerJobsFailed.WithLabelValues(taskType, string(stdErr.Code)).Inc()
			return
		}
		next(client, job)
	}
}

// ==========================
// Worker lifecycle
// ==========================

// WorkerOptions mirrors the per-task worker configuration.
type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
	PollInterval  time.Duration
}

// StartWorker opens a job worker for taskType on client.
func StartWorker(client zbc.Client, taskType string, opts WorkerOptions, handler worker.JobHandler, log logger.Logger) worker.JobWorker {
	step := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		Name("drclean-" + taskType)
	if opts.PollInterval > 0 {
		step = step.PollInterval(opts.PollInterval)
	}
	jobWorker := step.Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})
	return jobWorker
}
