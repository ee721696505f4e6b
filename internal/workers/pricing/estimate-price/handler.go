// internal/workers/pricing/estimate-price/handler.go
package estimateprice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"drclean-workers/internal/common/camunda"
	"drclean-workers/internal/common/logger"
	"drclean-workers/internal/common/metrics"
	"drclean-workers/internal/models"
	"drclean-workers/internal/pricing"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "estimate-price"
)

var (
	ErrEstimateInputInvalid = errors.New("ESTIMATE_INPUT_INVALID")
)

type Handler struct {
	config *Config
	runner *camunda.Runner
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config: config,
		runner: camunda.NewRunner(TaskType, config.Timeout, log),
		logger: log,
	}
}

// WithRecorder forwards job outcomes to rec.
func (h *Handler) WithRecorder(rec camunda.JobRecorder) *Handler {
	h.runner.WithRecorder(rec)
	return h
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(h.runner, client, job, h.Execute)
}

// Execute prices the job. Missing sizing input is not an error: the
// estimate comes back zero with Complete unset.
func (h *Handler) Execute(_ context.Context, input *Input) (*Output, error) {
	params, err := pricing.DecodeParameters(input.Category, input.Parameters)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEstimateInputInvalid, err)
	}

	est := pricing.Estimate(params)

	var override *float64
	if input.OverridePrice != nil && *input.OverridePrice > 0 {
		if *input.OverridePrice < h.config.MinOverridePrice {
			return nil, fmt.Errorf("%w: override %.0f is below %.0f", ErrEstimateInputInvalid,
				*input.OverridePrice, h.config.MinOverridePrice)
		}
		price := math.Round(*input.OverridePrice)
		est = pricing.ApplyOverride(est, int64(price))
		override = &price
	}

	complete := !est.IsZero()
	metrics.PriceEstimates.WithLabelValues(string(input.Category), strconv.FormatBool(complete)).Inc()

	output := &Output{
		Estimate: est,
		Complete: complete,
		Stored:   pricing.ToStored(est, override),
	}

	teamSize := input.TeamSize
	if teamSize <= 0 {
		teamSize = h.config.DefaultTeamSize
	}
	chosen := models.BookingDetails{PriceEstimate: output.Stored}.ChosenPrice()
	if te, ok := pricing.EstimateTime(input.Category, chosen, teamSize); ok {
		output.TimeEstimate = &te
	}

	h.logger.Debug("estimate computed", map[string]interface{}{
		"category": input.Category,
		"priceMin": est.PriceMin,
		"priceMax": est.PriceMax,
		"complete": complete,
	})
	return output, nil
}
