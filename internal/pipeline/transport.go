// internal/pipeline/transport.go
package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	commonhttp "healthsim-pipeline/internal/common/http"
)

// ==========================
// TRANSPORT
// ==========================

// Transport is the narrow surface the orchestrator needs from the backend
// client. Declared here so tests can drive the orchestrator with a scripted
// fake instead of a live server.
type Transport interface {
	Send(ctx context.Context, req *QueryRequest) (*RawReply, error)
	Probe(ctx context.Context) error
}

const (
	generateEndpoint = "/api/generate"
	tagsEndpoint     = "/api/tags"
)

// TransportClient speaks the backend's generate protocol over HTTP. Each
// Send applies a per-attempt timeout on top of the caller's context; the
// overall request deadline stays with the orchestrator. Probes carry their
// own, shorter deadline so reachability checks never eat into an attempt's
// timeout budget.
type TransportClient struct {
	baseURL        string
	attemptTimeout time.Duration
	probeTimeout   time.Duration
	client         *commonhttp.Client
}

func NewTransportClient(baseURL string, attemptTimeout, probeTimeout time.Duration) *TransportClient {
	return &TransportClient{
		baseURL:        strings.TrimRight(baseURL, "/"),
		attemptTimeout: attemptTimeout,
		probeTimeout:   probeTimeout,
		client:         commonhttp.NewClient(0),
	}
}

// generatePayload is the wire request. Stream is always false: the pipeline
// consumes complete replies, never token streams.
type generatePayload struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	System  string          `json:"system,omitempty"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	TopK        int      `json:"top_k"`
	MaxTokens   int      `json:"max_tokens"`
	Stop        []string `json:"stop,omitempty"`
}

// Send posts one generation request and returns the raw reply text plus any
// metadata the backend tacked on. Errors are mapped to the transport
// taxonomy except caller cancellation, which passes through untouched.
func (t *TransportClient) Send(ctx context.Context, req *QueryRequest) (*RawReply, error) {
	attemptCtx := ctx
	if t.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, t.attemptTimeout)
		defer cancel()
	}

	payload := generatePayload{
		Model:  req.Model,
		Prompt: req.Prompt,
		System: req.System,
		Stream: false,
		Options: generateOptions{
			Temperature: req.Options.Temperature,
			TopP:        req.Options.TopP,
			TopK:        req.Options.TopK,
			MaxTokens:   req.Options.MaxTokens,
			Stop:        req.Options.Stop,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode generate payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, t.baseURL+generateEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, t.mapSendError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{Kind: TransportBadStatus, StatusCode: resp.StatusCode}
	}

	// A 2xx reply with a body that does not decode is a truncated or
	// garbled exchange, not a status failure; classify it retryable.
	raw := map[string]interface{}{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, &TransportError{Kind: TransportConnectionFailed, Err: fmt.Errorf("undecodable reply body: %w", err)}
	}

	reply := &RawReply{Latency: time.Since(start), Metadata: map[string]interface{}{}}
	for k, v := range raw {
		switch k {
		case "response":
			if s, ok := v.(string); ok {
				reply.Text = s
			}
		case "prompt_eval_count":
			if n, ok := v.(float64); ok {
				reply.PromptTokens = int(n)
			}
		case "eval_count":
			if n, ok := v.(float64); ok {
				reply.OutputTokens = int(n)
			}
		default:
			reply.Metadata[k] = v
		}
	}
	return reply, nil
}

// Probe checks the backend is reachable before real work begins. It runs
// under its own short deadline so a hung backend fails the probe fast
// instead of stalling until the request deadline. Any failure is reported
// as BACKEND_UNAVAILABLE so callers can surface it distinctly from
// mid-flight errors.
func (t *TransportClient) Probe(ctx context.Context) error {
	probeCtx := ctx
	if t.probeTimeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, t.probeTimeout)
		defer cancel()
	}

	httpReq, err := http.NewRequest(http.MethodGet, t.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := t.client.DoWithContext(probeCtx, httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return context.Canceled
		}
		return &TransportError{Kind: TransportBackendUnavailable, Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return &TransportError{Kind: TransportBackendUnavailable, StatusCode: resp.StatusCode}
	}
	return nil
}

// ModelInfo describes one model the backend advertises.
type ModelInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size,omitempty"`
	ModifiedAt time.Time `json:"modified_at,omitempty"`
}

// ListModels fetches the backend's model inventory from the tags endpoint.
func (t *TransportClient) ListModels(ctx context.Context) ([]ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+tagsEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build tags request: %w", err)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, t.mapSendError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{Kind: TransportBadStatus, StatusCode: resp.StatusCode}
	}

	var listing struct {
		Models []ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode model listing: %w", err)
	}
	return listing.Models, nil
}

// mapSendError folds low-level client errors into the transport taxonomy.
// Cancellation by the caller is not a transport fault and passes through as
// context.Canceled so the orchestrator can report it as such.
func (t *TransportClient) mapSendError(ctx context.Context, err error) error {
	if ctx.Err() == context.Canceled {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransportError{Kind: TransportTimeout, Err: err}
	}
	return &TransportError{Kind: TransportConnectionFailed, Err: err}
}
