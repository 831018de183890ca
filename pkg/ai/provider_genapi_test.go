package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenAPIServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func testGenAPIProvider(srv *httptest.Server, maxAttempts int) *GenAPIProvider {
	return NewGenAPIProvider(GenAPIConfig{
		APIKey:          "key",
		BaseURL:         srv.URL,
		Model:           "gpt-5-mini",
		PollInterval:    time.Millisecond,
		MaxPollAttempts: maxAttempts,
		HTTPClient:      srv.Client(),
	})
}

func TestGenAPISuccessAfterPolling(t *testing.T) {
	var polls atomic.Int64
	srv := newGenAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/networks/"):
			assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))

			var payload map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, false, payload["is_sync"])

			fmt.Fprint(w, `{"request_id": 7}`)
		case r.Method == http.MethodGet && r.URL.Path == "/request/get/7":
			if polls.Add(1) < 3 {
				fmt.Fprint(w, `{"status": "processing"}`)
				return
			}
			fmt.Fprint(w, `{"status": "success", "output": "analysis text"}`)
		default:
			http.NotFound(w, r)
		}
	})

	provider := testGenAPIProvider(srv, 10)
	completion, err := provider.Complete(context.Background(), "prompt")
	require.NoError(t, err)

	assert.Equal(t, "analysis text", completion.Content)
	// The gateway reports no usage; nothing is fabricated.
	assert.Zero(t, completion.Usage)
	assert.EqualValues(t, 3, polls.Load())
}

func TestGenAPIJobFailure(t *testing.T) {
	srv := newGenAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"request_id": 9}`)
			return
		}
		fmt.Fprint(w, `{"status": "failed"}`)
	})

	provider := testGenAPIProvider(srv, 10)
	_, err := provider.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, ErrorTypeUnavailable, TypeOf(err))
}

func TestGenAPIPollCeilingIsTimeout(t *testing.T) {
	var polls atomic.Int64
	srv := newGenAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"request_id": 11}`)
			return
		}
		polls.Add(1)
		fmt.Fprint(w, `{"status": "processing"}`)
	})

	provider := testGenAPIProvider(srv, 4)
	_, err := provider.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, ErrorTypeTimeout, TypeOf(err))
	assert.True(t, IsTimeout(err))
	assert.EqualValues(t, 4, polls.Load())
}

func TestGenAPISubmitErrorIsUnavailable(t *testing.T) {
	srv := newGenAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	provider := testGenAPIProvider(srv, 4)
	_, err := provider.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, ErrorTypeUnavailable, TypeOf(err))
}

func TestGenAPIMalformedSubmitResponse(t *testing.T) {
	srv := newGenAPIServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `not json`)
	})

	provider := testGenAPIProvider(srv, 4)
	_, err := provider.Complete(context.Background(), "prompt")
	require.Error(t, err)
	assert.Equal(t, ErrorTypeMalformed, TypeOf(err))
}

func TestGenAPICancellation(t *testing.T) {
	srv := newGenAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			fmt.Fprint(w, `{"request_id": 5}`)
			return
		}
		fmt.Fprint(w, `{"status": "processing"}`)
	})

	provider := NewGenAPIProvider(GenAPIConfig{
		APIKey:          "key",
		BaseURL:         srv.URL,
		PollInterval:    time.Hour,
		MaxPollAttempts: 10,
		HTTPClient:      srv.Client(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := provider.Complete(ctx, "prompt")
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, ErrorTypeTimeout, TypeOf(err))
	case <-time.After(5 * time.Second):
		t.Fatal("Complete did not return after cancellation")
	}
}
