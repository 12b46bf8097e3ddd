// internal/pipeline/transport_test.go
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTransportClient_SendWireFormat(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response":          `{"status": "ok"}`,
			"model":             "healthcare-llm",
			"total_duration":    123456789,
			"prompt_eval_count": 42,
			"eval_count":        128,
		})
	}))
	defer server.Close()

	client := NewTransportClient(server.URL, 5*time.Second, time.Second)
	req := NewQueryRequest("healthcare-llm", "Simulate the next step.", "You are a clinical simulator.", Options{
		Temperature: 0.7,
		TopP:        0.9,
		TopK:        40,
		MaxTokens:   1024,
		Stop:        []string{"###"},
	}, nil)

	reply, err := client.Send(context.Background(), req)
	assert.NoError(t, err)

	assert.Equal(t, "healthcare-llm", captured["model"])
	assert.Equal(t, "Simulate the next step.", captured["prompt"])
	assert.Equal(t, "You are a clinical simulator.", captured["system"])
	assert.Equal(t, false, captured["stream"])

	opts := captured["options"].(map[string]interface{})
	assert.Equal(t, 0.7, opts["temperature"])
	assert.Equal(t, 0.9, opts["top_p"])
	assert.Equal(t, float64(40), opts["top_k"])
	assert.Equal(t, float64(1024), opts["max_tokens"])
	assert.Equal(t, []interface{}{"###"}, opts["stop"])

	assert.Equal(t, `{"status": "ok"}`, reply.Text)
	assert.Equal(t, 42, reply.PromptTokens)
	assert.Equal(t, 128, reply.OutputTokens)
	assert.Equal(t, "healthcare-llm", reply.Metadata["model"])
	assert.Equal(t, float64(123456789), reply.Metadata["total_duration"])
	assert.NotContains(t, reply.Metadata, "response")
}

func TestTransportClient_SendBadStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantRetryable bool
	}{
		{name: "server error", status: http.StatusInternalServerError, wantRetryable: true},
		{name: "service unavailable", status: http.StatusServiceUnavailable, wantRetryable: true},
		{name: "not found", status: http.StatusNotFound, wantRetryable: false},
		{name: "bad request", status: http.StatusBadRequest, wantRetryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewTransportClient(server.URL, time.Second, time.Second)
			_, err := client.Send(context.Background(), NewQueryRequest("m", "p", "", Options{}, nil))

			var tErr *TransportError
			assert.True(t, errors.As(err, &tErr))
			assert.Equal(t, TransportBadStatus, tErr.Kind)
			assert.Equal(t, tt.status, tErr.StatusCode)
			assert.Equal(t, tt.wantRetryable, tErr.Retryable())
		})
	}
}

func TestTransportClient_SendGarbledBodyIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"response": "truncated`))
	}))
	defer server.Close()

	client := NewTransportClient(server.URL, time.Second, time.Second)
	_, err := client.Send(context.Background(), NewQueryRequest("m", "p", "", Options{}, nil))

	var tErr *TransportError
	assert.True(t, errors.As(err, &tErr))
	assert.Equal(t, TransportConnectionFailed, tErr.Kind)
	assert.True(t, tErr.Retryable())
}

func TestTransportClient_SendTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer server.Close()

	client := NewTransportClient(server.URL, 30*time.Millisecond, time.Second)
	_, err := client.Send(context.Background(), NewQueryRequest("m", "p", "", Options{}, nil))

	var tErr *TransportError
	assert.True(t, errors.As(err, &tErr))
	assert.Equal(t, TransportTimeout, tErr.Kind)
	assert.True(t, tErr.Retryable())
}

func TestTransportClient_SendConnectionFailed(t *testing.T) {
	// Grab a free port by closing a listener before dialing it.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := server.URL
	server.Close()

	client := NewTransportClient(addr, time.Second, time.Second)
	_, err := client.Send(context.Background(), NewQueryRequest("m", "p", "", Options{}, nil))

	var tErr *TransportError
	assert.True(t, errors.As(err, &tErr))
	assert.Equal(t, TransportConnectionFailed, tErr.Kind)
}

func TestTransportClient_SendCancellationPassesThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server's background read can observe the
		// client disconnect; otherwise Close blocks on this handler forever.
		io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	client := NewTransportClient(server.URL, 5*time.Second, time.Second)
	_, err := client.Send(ctx, NewQueryRequest("m", "p", "", Options{}, nil))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransportClient_Probe(t *testing.T) {
	t.Run("healthy backend", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("Ollama is running"))
		}))
		defer server.Close()

		client := NewTransportClient(server.URL, time.Second, time.Second)
		assert.NoError(t, client.Probe(context.Background()))
	})

	t.Run("unreachable backend", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := server.URL
		server.Close()

		client := NewTransportClient(addr, time.Second, time.Second)
		err := client.Probe(context.Background())

		var tErr *TransportError
		assert.True(t, errors.As(err, &tErr))
		assert.Equal(t, TransportBackendUnavailable, tErr.Kind)
	})

	t.Run("hung backend fails within the probe deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer server.Close()

		client := NewTransportClient(server.URL, 5*time.Second, 50*time.Millisecond)

		start := time.Now()
		err := client.Probe(context.Background())
		elapsed := time.Since(start)

		var tErr *TransportError
		assert.True(t, errors.As(err, &tErr))
		assert.Equal(t, TransportBackendUnavailable, tErr.Kind)
		assert.Less(t, elapsed, 500*time.Millisecond)
	})

	t.Run("backend in error state", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		client := NewTransportClient(server.URL, time.Second, time.Second)
		err := client.Probe(context.Background())

		var tErr *TransportError
		assert.True(t, errors.As(err, &tErr))
		assert.Equal(t, TransportBackendUnavailable, tErr.Kind)
	})
}

func TestTransportClient_ListModels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"models": [{"name": "healthcare-llm:latest", "size": 4661224676}, {"name": "llama3:8b"}]}`))
	}))
	defer server.Close()

	client := NewTransportClient(server.URL, time.Second, time.Second)
	models, err := client.ListModels(context.Background())
	assert.NoError(t, err)
	assert.Len(t, models, 2)
	assert.Equal(t, "healthcare-llm:latest", models[0].Name)
	assert.Equal(t, int64(4661224676), models[0].Size)
}
