// cmd/pipeline-server/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"healthsim-pipeline/internal/common/cache"
	"healthsim-pipeline/internal/common/config"
	stderrors "healthsim-pipeline/internal/common/errors"
	"healthsim-pipeline/internal/common/logger"
	"healthsim-pipeline/internal/common/observability"
	"healthsim-pipeline/internal/common/validation"
	"healthsim-pipeline/internal/models"
	"healthsim-pipeline/internal/pipeline"
	"healthsim-pipeline/pkg/registry"

	sim "healthsim-pipeline/internal/tasks/simulate-scenario"
	vp "healthsim-pipeline/internal/tasks/validate-protocol"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logger.New("info", "console")
		fallback.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pipeline server...",
		zap.String("backend", cfg.Backend.BaseURL),
		zap.String("model", cfg.Backend.Model),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	// --- Backend transport, probed before any work is accepted ---
	transport := pipeline.NewTransportClient(cfg.Backend.BaseURL, config.GetDuration(cfg.Backend.Timeout), config.GetDuration(cfg.Backend.ProbeTimeout))

	if cfg.Backend.ProbeEnabled {
		err = retryWithBackoff(func() error {
			return transport.Probe(context.Background())
		}, 10, 2*time.Second, zapLog, "Backend probe")
		if err != nil {
			zapLog.Fatal("backend unreachable", zap.Error(err))
		}
	}

	// --- Field-spec registry ---
	specs := loadSpecs(cfg, zapLog)

	// --- Result cache (optional) ---
	var resultCache *cache.ResultCache
	if cfg.Cache.Enabled {
		resultCache = cache.New(cfg.Cache)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := resultCache.Ping(pingCtx); err != nil {
			zapLog.Warn("result cache unreachable, continuing without caching", zap.Error(err))
			resultCache.Close()
			resultCache = nil
		}
		cancel()
		if resultCache != nil {
			defer resultCache.Close()
		}
	}

	// --- Orchestrator shared by all tasks ---
	orch := pipeline.NewOrchestrator(transport, pipeline.OrchestratorConfig{
		Policy: pipeline.RetryPolicy{
			MaxAttempts:          cfg.Pipeline.MaxAttempts,
			MaxExtractionRetries: cfg.Pipeline.MaxExtractionRetries,
			BackoffBase:          config.GetDuration(cfg.Pipeline.BackoffBase),
			BackoffMax:           config.GetDuration(cfg.Pipeline.BackoffMax),
		},
		RequestDeadline: config.GetDuration(cfg.Pipeline.RequestDeadline),
		ProbeEnabled:    cfg.Backend.ProbeEnabled,
	})

	simHandler := sim.NewHandler(sim.FromAppConfig(cfg), orch, specs[sim.TaskType], resultCache, log)
	vpHandler := vp.NewHandler(vp.FromAppConfig(cfg), orch, specs[vp.TaskType], resultCache, log)

	// --- HTTP surface: thin glue only ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/debug/pprof/", http.DefaultServeMux)

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := transport.Probe(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{"status": "degraded", "backend": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
	})

	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		listing, err := transport.ListModels(r.Context())
		if err != nil {
			writeError(w, log, stderrors.NewBackendUnavailableError(err))
			return
		}
		names := make([]string, 0, len(listing))
		for _, m := range listing {
			names = append(names, m.Name)
		}
		writeJSON(w, http.StatusOK, models.ModelListing{Models: names, CheckedAt: time.Now().UTC()})
	})

	if config.IsTaskEnabled(cfg, sim.TaskType) {
		mux.HandleFunc("/v1/healthcare/simulate", func(w http.ResponseWriter, r *http.Request) {
			var req models.SimulationRequest
			if !decodeAndValidate(w, r, log, sim.GetInputSchema(), &req) {
				return
			}
			start := time.Now()
			resp, err := simHandler.Execute(r.Context(), &req)
			if err != nil {
				obs.RecordRun(r.Context(), sim.TaskType, "error")
				obs.RecordRequestDuration(r.Context(), sim.TaskType, time.Since(start), errorCode(err))
				writeTaskError(w, log, err)
				return
			}
			obs.RecordRun(r.Context(), sim.TaskType, "ok")
			obs.RecordRequestDuration(r.Context(), sim.TaskType, time.Since(start), "")
			writeJSON(w, http.StatusOK, resp)
		})
	}

	if config.IsTaskEnabled(cfg, vp.TaskType) {
		mux.HandleFunc("/v1/healthcare/validate", func(w http.ResponseWriter, r *http.Request) {
			var req models.ValidationRequest
			if !decodeAndValidate(w, r, log, vp.GetInputSchema(), &req) {
				return
			}
			start := time.Now()
			resp, err := vpHandler.Execute(r.Context(), &req)
			if err != nil {
				obs.RecordRun(r.Context(), vp.TaskType, "error")
				obs.RecordRequestDuration(r.Context(), vp.TaskType, time.Since(start), errorCode(err))
				writeTaskError(w, log, err)
				return
			}
			obs.RecordRun(r.Context(), vp.TaskType, "ok")
			obs.RecordRequestDuration(r.Context(), vp.TaskType, time.Since(start), "")
			writeJSON(w, http.StatusOK, resp)
		})
	}

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}
	zapLog.Info("Pipeline server stopped")
}

// loadSpecs compiles field specs from the registry file; a missing registry
// is not fatal because every task carries a compiled-in spec.
func loadSpecs(cfg *config.Config, zapLog *zap.Logger) map[string]*pipeline.FieldSpec {
	specs := map[string]*pipeline.FieldSpec{}

	reg, err := registry.LoadRegistry(cfg.Registry.Path)
	if err != nil {
		zapLog.Warn("task registry not loaded, using compiled-in field specs",
			zap.String("path", cfg.Registry.Path), zap.Error(err))
		return specs
	}

	for _, entry := range reg.Tasks {
		spec, err := entry.Compile()
		if err != nil {
			zapLog.Fatal("task registry entry invalid", zap.String("taskType", entry.TaskType), zap.Error(err))
		}
		specs[entry.TaskType] = spec
		zapLog.Info("field spec loaded from registry",
			zap.String("taskType", entry.TaskType),
			zap.Int("fields", len(entry.Fields)),
		)
	}
	return specs
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, log logger.Logger, schema validation.Schema, out interface{}) bool {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]interface{}{"error": "method not allowed"})
		return false
	}

	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid JSON body"})
		return false
	}

	if result := validation.Validate(payload, schema); !result.Valid {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "request failed validation",
			"fields": result.GetErrorMessages(),
		})
		return false
	}

	// Re-encode through the typed model now that the shape is known good.
	body, err := json.Marshal(payload)
	if err == nil {
		err = json.Unmarshal(body, out)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "request shape mismatch"})
		return false
	}
	return true
}

func errorCode(err error) string {
	if stdErr, ok := err.(*stderrors.StandardError); ok {
		return string(stdErr.Code)
	}
	return "UNKNOWN"
}

func writeTaskError(w http.ResponseWriter, log logger.Logger, err error) {
	if stdErr, ok := err.(*stderrors.StandardError); ok {
		writeError(w, log, stdErr)
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"error": err.Error()})
}

func writeError(w http.ResponseWriter, log logger.Logger, stdErr *stderrors.StandardError) {
	log.Error("request failed", map[string]interface{}{
		"code":      string(stdErr.Code),
		"details":   stdErr.Details,
		"retryable": stdErr.Retryable,
	})
	writeJSON(w, stderrors.HTTPStatus(stdErr.Code), stdErr)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
