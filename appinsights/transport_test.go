package appinsights_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/russrimm/appinsights-relay/appinsights"
)

func testTransport(url string, maxRetries int) *appinsights.Transport {
	return appinsights.NewTransport(appinsights.TransportConfig{
		EndpointURL:    url,
		MaxRetries:     maxRetries,
		AttemptTimeout: time.Second,
		BackoffBase:    time.Millisecond,
	})
}

func TestSend_TransientThenSuccess(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"itemsReceived":1,"itemsAccepted":1,"errors":[]}`))
	}))
	defer srv.Close()

	result := testTransport(srv.URL, 2).Send(context.Background(), []byte(`{}`))

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, 1, result.ItemsAccepted)
	assert.Empty(t, result.ErrorMessage)
}

func TestSend_ZeroConfigAppliesRetryDefault(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"itemsReceived":1,"itemsAccepted":1}`))
	}))
	defer srv.Close()

	// Only the endpoint set: the retry budget must default on, so a
	// single transient failure still ends in success.
	transport := appinsights.NewTransport(appinsights.TransportConfig{EndpointURL: srv.URL})
	result := transport.Send(context.Background(), []byte(`{}`))

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSend_NegativeMaxRetriesDisablesRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := testTransport(srv.URL, -1).Send(context.Background(), []byte(`{}`))

	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSend_PermanentFailureNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	result := testTransport(srv.URL, 2).Send(context.Background(), []byte(`{}`))

	assert.False(t, result.Success)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSend_RetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	result := testTransport(srv.URL, 1).Send(context.Background(), []byte(`{}`))

	assert.False(t, result.Success)
	// First attempt plus one retry.
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, http.StatusServiceUnavailable, result.StatusCode)
	assert.NotEmpty(t, result.ErrorMessage)
}

func TestSend_IngestionErrorMessageSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"itemsReceived":1,"itemsAccepted":0,"errors":[{"index":0,"statusCode":400,"message":"Invalid instrumentation key"}]}`))
	}))
	defer srv.Close()

	result := testTransport(srv.URL, 2).Send(context.Background(), []byte(`{}`))

	assert.False(t, result.Success)
	assert.Contains(t, result.ErrorMessage, "Invalid instrumentation key")
}

func TestSend_AttemptTimeoutIsTransient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	transport := appinsights.NewTransport(appinsights.TransportConfig{
		EndpointURL:    srv.URL,
		MaxRetries:     1,
		AttemptTimeout: 20 * time.Millisecond,
		BackoffBase:    time.Millisecond,
	})

	result := transport.Send(context.Background(), []byte(`{}`))

	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSend_CancelledContextStopsRetrying(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	transport := appinsights.NewTransport(appinsights.TransportConfig{
		EndpointURL:    srv.URL,
		MaxRetries:     5,
		AttemptTimeout: time.Second,
		BackoffBase:    time.Second,
	})

	start := time.Now()
	result := transport.Send(ctx, []byte(`{}`))

	assert.False(t, result.Success)
	// Cancellation must short-circuit the retry budget, not sleep it out.
	assert.Less(t, time.Since(start), time.Second)
}

func TestSend_NeverReturnsError(t *testing.T) {
	// Unreachable endpoint: the failure comes back as data.
	transport := appinsights.NewTransport(appinsights.TransportConfig{
		EndpointURL:    "http://127.0.0.1:1",
		MaxRetries:     -1,
		AttemptTimeout: 100 * time.Millisecond,
		BackoffBase:    time.Millisecond,
	})

	require.NotPanics(t, func() {
		result := transport.Send(context.Background(), []byte(`{}`))
		assert.False(t, result.Success)
		assert.NotEmpty(t, result.ErrorMessage)
	})
}
