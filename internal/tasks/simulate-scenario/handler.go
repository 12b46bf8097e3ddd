// internal/tasks/simulate-scenario/handler.go
package simulatescenario

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"healthsim-pipeline/internal/common/cache"
	"healthsim-pipeline/internal/common/errors"
	"healthsim-pipeline/internal/common/logger"
	"healthsim-pipeline/internal/common/metrics"
	"healthsim-pipeline/internal/models"
	"healthsim-pipeline/internal/pipeline"
)

const TaskType = "simulate-scenario"

const systemPrompt = `You are a clinical simulation engine for healthcare training.
Advance the scenario by exactly one step in response to the trainee's action and grade that action.
Respond ONLY with a JSON object of this exact shape, no prose before or after:
{
  "current_state": {
    "patient_status": "<short clinical summary>",
    "vital_signs": {"heart_rate": <number>, "respiratory_rate": <number>, "temperature": "<string>", "blood_pressure": "<string>"},
    "current_interventions": ["<string>", ...]
  },
  "next_steps": ["<string>", ...],
  "feedback": {"correct_actions": ["<string>", ...], "suggestions": ["<string>", ...], "protocol_adherence": <number 0-1>}
}`

// Runner is the pipeline surface the handler drives; satisfied by
// *pipeline.Orchestrator and by scripted fakes in tests.
type Runner interface {
	Run(ctx context.Context, req *pipeline.QueryRequest) *pipeline.Outcome
}

type Handler struct {
	config *Config
	runner Runner
	spec   *pipeline.FieldSpec
	cache  *cache.ResultCache
	logger logger.Logger
}

// NewHandler wires the task. spec may be nil, in which case the compiled-in
// ResultSpec is used; resultCache may be nil to disable caching.
func NewHandler(config *Config, runner Runner, spec *pipeline.FieldSpec, resultCache *cache.ResultCache, log logger.Logger) *Handler {
	if spec == nil {
		spec = ResultSpec()
	}
	return &Handler{
		config: config,
		runner: runner,
		spec:   spec,
		cache:  resultCache,
		logger: log.With(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute advances the scenario one step. The returned error is always a
// *errors.StandardError.
func (h *Handler) Execute(ctx context.Context, req *models.SimulationRequest) (*models.SimulationResponse, error) {
	if req.Protocol != "" && !req.Protocol.IsValid() {
		return nil, errors.NewInvalidProtocolTypeError(string(req.Protocol))
	}

	metrics.PipelineActive.WithLabelValues(TaskType).Inc()
	defer metrics.PipelineActive.WithLabelValues(TaskType).Dec()

	start := time.Now()
	defer func() {
		metrics.PipelineDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	cacheKey := cache.Key(TaskType, req)
	if cached := h.fromCache(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	query := pipeline.NewQueryRequest(h.config.Model, h.buildPrompt(req), systemPrompt, pipeline.Options{
		Temperature: h.config.Temperature,
		TopP:        h.config.TopP,
		MaxTokens:   h.config.MaxTokens,
	}, h.spec)

	outcome := h.runner.Run(ctx, query)
	h.recordOutcome(outcome)

	if !outcome.Succeeded() {
		h.logger.Error("simulation run failed", map[string]interface{}{
			"requestId": outcome.RequestID,
			"failure":   string(outcome.Failure),
			"attempts":  len(outcome.Attempts),
		})
		return nil, failureError(outcome)
	}

	response, err := h.buildResponse(req, outcome)
	if err != nil {
		return nil, err
	}

	h.logger.Info("simulation step completed", map[string]interface{}{
		"requestId": outcome.RequestID,
		"status":    string(outcome.Status),
		"attempts":  len(outcome.Attempts),
		"degraded":  len(outcome.DegradedFields()),
	})

	if outcome.Status == pipeline.StatusSuccess {
		h.toCache(ctx, cacheKey, response)
	}
	return response, nil
}

func (h *Handler) buildPrompt(req *models.SimulationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scenario: %s\n", req.Title)
	if req.Protocol != "" {
		fmt.Fprintf(&b, "Protocol: %s\n", req.Protocol)
	}
	if len(req.Actors) > 0 {
		fmt.Fprintf(&b, "Actors: %s\n", strings.Join(req.Actors, ", "))
	}
	if len(req.PatientContext) > 0 {
		if ctxJSON, err := json.Marshal(req.PatientContext); err == nil {
			fmt.Fprintf(&b, "Patient context: %s\n", ctxJSON)
		}
	}
	for _, step := range req.Steps {
		fmt.Fprintf(&b, "Step %d: %s\n", step.StepNumber, step.Description)
		for _, action := range step.Actions {
			fmt.Fprintf(&b, "  - %s\n", action.Action)
		}
	}
	fmt.Fprintf(&b, "Trainee action: %s\n", req.UserAction)
	return b.String()
}

func (h *Handler) buildResponse(req *models.SimulationRequest, outcome *pipeline.Outcome) (*models.SimulationResponse, error) {
	body, err := json.Marshal(outcome.Result.Fields)
	if err != nil {
		return nil, errors.NewScenarioValidationFailedError(fmt.Sprintf("result not serializable: %v", err))
	}
	var structured structuredResult
	if err := json.Unmarshal(body, &structured); err != nil {
		return nil, errors.NewScenarioValidationFailedError(fmt.Sprintf("result shape mismatch: %v", err))
	}

	return &models.SimulationResponse{
		SessionID:      req.SessionID,
		CurrentState:   structured.CurrentState,
		NextSteps:      structured.NextSteps,
		Feedback:       structured.Feedback,
		Degraded:       outcome.Status == pipeline.StatusDegradedSuccess,
		DegradedFields: outcome.DegradedFields(),
		Metadata: map[string]interface{}{
			"request_id": outcome.RequestID,
			"attempts":   len(outcome.Attempts),
			"elapsed_ms": outcome.Elapsed.Milliseconds(),
		},
		GeneratedAt: time.Now().UTC(),
	}, nil
}

func (h *Handler) recordOutcome(outcome *pipeline.Outcome) {
	metrics.PipelineAttempts.WithLabelValues(TaskType).Add(float64(len(outcome.Attempts)))
	metrics.PipelineOutcomes.WithLabelValues(TaskType, string(outcome.Status)).Inc()
	if outcome.Status == pipeline.StatusFailure {
		metrics.PipelineFailures.WithLabelValues(TaskType, string(outcome.Failure)).Inc()
	}
	if n := len(outcome.DegradedFields()); n > 0 {
		metrics.PipelineDegradedFields.WithLabelValues(TaskType).Add(float64(n))
	}
}

func (h *Handler) fromCache(ctx context.Context, key string) *models.SimulationResponse {
	if h.cache == nil || h.config.CacheTTL <= 0 {
		return nil
	}
	var cached models.SimulationResponse
	hit, err := h.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		h.logger.Warn("cache lookup failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	if !hit {
		return nil
	}
	return &cached
}

func (h *Handler) toCache(ctx context.Context, key string, response *models.SimulationResponse) {
	if h.cache == nil || h.config.CacheTTL <= 0 {
		return
	}
	if err := h.cache.SetJSON(ctx, key, response, h.config.CacheTTL); err != nil {
		h.logger.Warn("cache store failed", map[string]interface{}{"error": err.Error()})
	}
}

func failureError(outcome *pipeline.Outcome) *errors.StandardError {
	switch outcome.Failure {
	case pipeline.FailureDeadlineExceeded:
		return errors.NewDeadlineExceededError(outcome.Elapsed)
	case pipeline.FailureCancelled:
		return errors.NewRequestCancelledError()
	case pipeline.FailureBadStatus:
		return errors.NewBackendBadStatusError(outcome.StatusCode, fmt.Sprintf("%v", outcome.LastErr))
	case pipeline.FailureNotJSON:
		return errors.NewResponseNotJSONError(fmt.Sprintf("%v", outcome.LastErr))
	default:
		return errors.NewExhaustedRetriesError(len(outcome.Attempts), outcome.LastErr)
	}
}
