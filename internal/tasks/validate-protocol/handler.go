// internal/tasks/validate-protocol/handler.go
package validateprotocol

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

const TaskType = "validate-protocol"

const systemPrompt = `You are a clinical protocol auditor.
Judge whether the given action sequence follows the named protocol.
Respond ONLY with a JSON object of this exact shape, no prose before or after:
{
  "is_valid": <true|false>,
  "score": <number 0-1>,
  "feedback": ["<string>", ...],
  "references": ["<protocol section>", ...],
  "analysis": "<one-paragraph summary>"
}`

// Runner is the pipeline surface the handler drives.
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

// Execute checks an action sequence against a protocol. The returned error
// is always a *errors.StandardError.
func (h *Handler) Execute(ctx context.Context, req *models.ValidationRequest) (*models.ValidationResponse, error) {
	if !req.Protocol.IsValid() {
		return nil, errors.NewInvalidProtocolTypeError(string(req.Protocol))
	}
	if len(req.Actions) == 0 {
		return nil, errors.NewProtocolValidationFailedError("actions must not be empty")
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
		h.logger.Error("protocol validation failed", map[string]interface{}{
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

	h.logger.Info("protocol validation completed", map[string]interface{}{
		"requestId": outcome.RequestID,
		"status":    string(outcome.Status),
		"isValid":   response.IsValid,
		"score":     response.Score,
	})

	if outcome.Status == pipeline.StatusSuccess {
		h.toCache(ctx, cacheKey, response)
	}
	return response, nil
}

func (h *Handler) buildPrompt(req *models.ValidationRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Protocol: %s\n", req.Protocol)
	if len(req.PatientContext) > 0 {
		if ctxJSON, err := json.Marshal(req.PatientContext); err == nil {
			fmt.Fprintf(&b, "Patient context: %s\n", ctxJSON)
		}
	}
	b.WriteString("Actions taken, in order:\n")
	for i, action := range req.Actions {
		fmt.Fprintf(&b, "%d. %s\n", i+1, action)
	}
	return b.String()
}

func (h *Handler) buildResponse(req *models.ValidationRequest, outcome *pipeline.Outcome) (*models.ValidationResponse, error) {
	body, err := json.Marshal(outcome.Result.Fields)
	if err != nil {
		return nil, errors.NewProtocolValidationFailedError(fmt.Sprintf("result not serializable: %v", err))
	}

	var structured struct {
		IsValid    bool     `json:"is_valid"`
		Score      float64  `json:"score"`
		Feedback   []string `json:"feedback"`
		References []string `json:"references"`
		Analysis   string   `json:"analysis"`
	}
	if err := json.Unmarshal(body, &structured); err != nil {
		return nil, errors.NewProtocolValidationFailedError(fmt.Sprintf("result shape mismatch: %v", err))
	}

	return &models.ValidationResponse{
		Protocol:       req.Protocol,
		IsValid:        structured.IsValid,
		Score:          structured.Score,
		Feedback:       structured.Feedback,
		References:     structured.References,
		Analysis:       structured.Analysis,
		Degraded:       outcome.Status == pipeline.StatusDegradedSuccess,
		DegradedFields: outcome.DegradedFields(),
		GeneratedAt:    time.Now().UTC(),
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

func (h *Handler) fromCache(ctx context.Context, key string) *models.ValidationResponse {
	if h.cache == nil || h.config.CacheTTL <= 0 {
		return nil
	}
	var cached models.ValidationResponse
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

func (h *Handler) toCache(ctx context.Context, key string, response *models.ValidationResponse) {
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
