package sentry_sender

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

const ContentTypeJSON = "application/json"

// Request is a single HTTP exchange handed to a Transport
type Request struct {
	URL         string
	Method      string
	Headers     map[string]string
	Body        []byte
	ContentType string
}

// Transport performs the HTTP exchange for a store request. Timeouts and
// retries are owned by the implementation.
type Transport interface {
	Send(ctx context.Context, req *Request) error
}

// HTTPTransport handles HTTP communication with Sentry
type HTTPTransport struct {
	config *TransportConfig
	client *retryablehttp.Client
	logger *zap.Logger
}

// NewHTTPTransport creates a new HTTP transport
func NewHTTPTransport(config *TransportConfig, retry *RetryConfig, logger *zap.Logger) (*HTTPTransport, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer := &net.Dialer{
		Timeout:   config.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   config.ConnectTimeout,
		ResponseHeaderTimeout: config.SocketTimeout,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: config.InsecureSkipVerify, //nolint:gosec
		},
	}

	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{
		Transport: transport,
		// bounds each attempt including the response body
		Timeout: config.ConnectTimeout + config.SocketTimeout,
	}
	client.Logger = &leveledLogger{logger: logger.Sugar()}
	client.RetryMax = retry.Retries()
	client.RetryWaitMin = retry.InitialBackoff
	client.RetryWaitMax = retry.MaxBackoff
	client.Backoff = NewRetryPolicy(retry, logger).Backoff()
	// hand back the last response so the status code can be reported
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HTTPTransport{
		config: config,
		client: client,
		logger: logger,
	}, nil
}

// Send performs the request, retrying on connection errors and 5xx responses
func (t *HTTPTransport) Send(ctx context.Context, req *Request) error {
	body := req.Body
	contentEncoding := ""

	if t.config.Compression {
		var buf bytes.Buffer
		gzipWriter := gzip.NewWriter(&buf)
		if _, err := gzipWriter.Write(body); err != nil {
			return &SerializationError{Err: fmt.Errorf("failed to compress payload: %w", err)}
		}
		if err := gzipWriter.Close(); err != nil {
			return &SerializationError{Err: fmt.Errorf("failed to close gzip writer: %w", err)}
		}
		body = buf.Bytes()
		contentEncoding = "gzip"
	}

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return &DSNError{Kind: MalformedURL, Message: "failed to create request", Err: err}
	}

	httpReq.Header.Set("User-Agent", ClientName)
	if req.ContentType != "" {
		httpReq.Header.Set("Content-Type", req.ContentType)
	}
	if contentEncoding != "" {
		httpReq.Header.Set("Content-Encoding", contentEncoding)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
		}
		return &TransportError{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	// the response body carries nothing we use
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.logger.Error("Store request failed",
			zap.String("url", req.URL),
			zap.Int("status_code", resp.StatusCode))
		return &TransportError{URL: req.URL, StatusCode: resp.StatusCode}
	}

	t.logger.Debug("Store request succeeded",
		zap.String("url", req.URL),
		zap.Int("status_code", resp.StatusCode))

	return nil
}

// Close closes the transport
func (t *HTTPTransport) Close() error {
	if t.client != nil && t.client.HTTPClient != nil {
		t.client.HTTPClient.CloseIdleConnections()
	}
	return nil
}

// leveledLogger routes retryablehttp logs to zap
type leveledLogger struct {
	logger *zap.SugaredLogger
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, keysAndValues...)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Infow(msg, keysAndValues...)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Warnw(msg, keysAndValues...)
}
