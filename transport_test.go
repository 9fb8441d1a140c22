package sentry_sender

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRetryConfig(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:        &maxRetries,
		InitialBackoff:    time.Millisecond,
		BackoffMultiplier: 2,
		MaxBackoff:        5 * time.Millisecond,
	}
}

func testTransportConfig() *TransportConfig {
	return &TransportConfig{
		ConnectTimeout: time.Second,
		SocketTimeout:  time.Second,
	}
}

func newTestTransport(t *testing.T, config *TransportConfig, retry *RetryConfig) *HTTPTransport {
	t.Helper()
	transport, err := NewHTTPTransport(config, retry, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = transport.Close() })
	return transport
}

func TestHTTPTransport_Send(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/42/store/", r.URL.Path)
		assert.Equal(t, ContentTypeJSON, r.Header.Get("Content-Type"))
		assert.Equal(t, "Sentry sentry_version=4", r.Header.Get(AuthHeader))
		assert.Equal(t, ClientName, r.Header.Get("User-Agent"))
		assert.Empty(t, r.Header.Get("Content-Encoding"))

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, `{"event_id":"abc"}`, string(body))

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	}))
	defer server.Close()

	transport := newTestTransport(t, testTransportConfig(), testRetryConfig(0))

	err := transport.Send(context.Background(), &Request{
		URL:         server.URL + "/api/42/store/",
		Method:      http.MethodPost,
		Headers:     map[string]string{AuthHeader: "Sentry sentry_version=4"},
		Body:        []byte(`{"event_id":"abc"}`),
		ContentType: ContentTypeJSON,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), received.Load())
}

func TestHTTPTransport_Compression(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip", r.Header.Get("Content-Encoding"))

		reader, err := gzip.NewReader(r.Body)
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, err := io.ReadAll(reader)
		assert.NoError(t, err)
		assert.Equal(t, `{"event_id":"abc"}`, string(body))

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := testTransportConfig()
	config.Compression = true
	transport := newTestTransport(t, config, testRetryConfig(0))

	err := transport.Send(context.Background(), &Request{
		URL:         server.URL,
		Method:      http.MethodPost,
		Body:        []byte(`{"event_id":"abc"}`),
		ContentType: ContentTypeJSON,
	})
	require.NoError(t, err)
}

func TestHTTPTransport_ClientErrorIsNotRetried(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid payload"}`))
	}))
	defer server.Close()

	transport := newTestTransport(t, testTransportConfig(), testRetryConfig(3))

	err := transport.Send(context.Background(), &Request{URL: server.URL, Method: http.MethodPost, Body: []byte(`{}`)})
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusBadRequest, transportErr.StatusCode)
	assert.Equal(t, int32(1), received.Load())
}

func TestHTTPTransport_ServerErrorIsRetried(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	transport := newTestTransport(t, testTransportConfig(), testRetryConfig(2))

	err := transport.Send(context.Background(), &Request{URL: server.URL, Method: http.MethodPost, Body: []byte(`{}`)})
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusInternalServerError, transportErr.StatusCode)
	assert.Equal(t, int32(3), received.Load())
}

func TestHTTPTransport_RecoversAfterRetry(t *testing.T) {
	var received atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if received.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.Equal(t, `{"event_id":"abc"}`, string(body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := newTestTransport(t, testTransportConfig(), testRetryConfig(1))

	err := transport.Send(context.Background(), &Request{URL: server.URL, Method: http.MethodPost, Body: []byte(`{"event_id":"abc"}`)})
	require.NoError(t, err)
	assert.Equal(t, int32(2), received.Load())
}

func TestHTTPTransport_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	transport := newTestTransport(t, testTransportConfig(), testRetryConfig(0))

	err := transport.Send(context.Background(), &Request{URL: url, Method: http.MethodPost, Body: []byte(`{}`)})
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Zero(t, transportErr.StatusCode)
	assert.Error(t, transportErr.Err)
}

func TestHTTPTransport_InvalidURL(t *testing.T) {
	transport := newTestTransport(t, testTransportConfig(), testRetryConfig(0))

	err := transport.Send(context.Background(), &Request{URL: "http://bad host/", Method: http.MethodPost})
	require.Error(t, err)

	var dsnErr *DSNError
	require.True(t, errors.As(err, &dsnErr))
	assert.Equal(t, MalformedURL, dsnErr.Kind)
}

func TestHTTPTransport_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	transport := newTestTransport(t, testTransportConfig(), testRetryConfig(3))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := transport.Send(ctx, &Request{URL: server.URL, Method: http.MethodPost, Body: []byte(`{}`)})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPTransport_StalledBodyIsBounded(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":`))
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer server.Close()
	defer close(release)

	config := &TransportConfig{
		ConnectTimeout: 100 * time.Millisecond,
		SocketTimeout:  100 * time.Millisecond,
	}
	transport := newTestTransport(t, config, testRetryConfig(0))
	assert.Equal(t, 200*time.Millisecond, transport.client.HTTPClient.Timeout)

	done := make(chan error, 1)
	go func() {
		done <- transport.Send(context.Background(), &Request{URL: server.URL, Method: http.MethodPost, Body: []byte(`{}`)})
	}()

	select {
	case err := <-done:
		// the status line already arrived
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("send blocked on a stalled response body")
	}
}

type trackedBody struct {
	io.Reader
	closed atomic.Bool
}

func (b *trackedBody) Close() error {
	b.closed.Store(true)
	return nil
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestHTTPTransport_ClosesBodyOnRejectedResponse(t *testing.T) {
	body := &trackedBody{Reader: strings.NewReader("ok")}

	transport := newTestTransport(t, testTransportConfig(), testRetryConfig(0))
	transport.client.HTTPClient.Transport = roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: body, Header: http.Header{}, Request: req}, nil
	})
	transport.client.CheckRetry = func(context.Context, *http.Response, error) (bool, error) {
		return false, errors.New("response rejected")
	}

	err := transport.Send(context.Background(), &Request{URL: "https://sentry.example.com/api/42/store/", Method: http.MethodPost, Body: []byte(`{}`)})
	require.Error(t, err)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.EqualError(t, transportErr.Err, "response rejected")
	assert.True(t, body.closed.Load())
}

func TestNewHTTPTransport_InvalidProxy(t *testing.T) {
	config := testTransportConfig()
	config.Proxy = "://proxy"

	_, err := NewHTTPTransport(config, testRetryConfig(0), nil)
	assert.Error(t, err)
}

func TestRetryPolicy_CalculateBackoff(t *testing.T) {
	policy := NewRetryPolicy(&RetryConfig{
		InitialBackoff:    100 * time.Millisecond,
		BackoffMultiplier: 2,
		MaxBackoff:        time.Second,
	}, zap.NewNop())

	assert.Equal(t, 100*time.Millisecond, policy.CalculateBackoff(0))

	for i := 0; i < 20; i++ {
		backoff := policy.CalculateBackoff(3)
		assert.GreaterOrEqual(t, backoff, 300*time.Millisecond)
		assert.LessOrEqual(t, backoff, 500*time.Millisecond)
	}

	assert.Equal(t, time.Second, policy.CalculateBackoff(10))
}
