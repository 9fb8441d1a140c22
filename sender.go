package sentry_sender

import (
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
)

// ReportSender delivers crash reports, other plugins depend on it
type ReportSender interface {
	Send(ctx context.Context, report *CrashReport) error
}

// Sender formats crash reports and posts them to the Sentry store endpoint.
// A sender built without a DSN is unconfigured and drops every report.
// Sender is safe for concurrent use.
type Sender struct {
	dsn       *DSN
	formatter *Formatter
	transport Transport
	logger    *zap.Logger
	metrics   *metricsCollector

	formatterOpts []FormatterOption
}

// SenderOption configures a Sender
type SenderOption func(s *Sender)

// WithFormatterOptions passes options to the payload formatter
func WithFormatterOptions(opts ...FormatterOption) SenderOption {
	return func(s *Sender) {
		s.formatterOpts = append(s.formatterOpts, opts...)
	}
}

// NewSender creates a sender from the configuration. An empty DSN yields an
// unconfigured sender; a malformed DSN is an error. When transport is nil an
// HTTPTransport is built from cfg.
func NewSender(cfg *Config, transport Transport, logger *zap.Logger, opts ...SenderOption) (*Sender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Sender{
		logger:  logger,
		metrics: newMetricsCollector(),
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn, err := ParseDSN(cfg.DSN)
	if errors.Is(err, ErrConfigurationAbsent) {
		logger.Warn("No DSN configured, crash reports will not be sent")
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	customFields, err := cfg.ReportFields()
	if err != nil {
		return nil, err
	}

	if transport == nil {
		httpTransport, err := NewHTTPTransport(&cfg.Transport, &cfg.Retry, logger)
		if err != nil {
			return nil, err
		}
		transport = httpTransport
	}

	s.dsn = dsn
	s.transport = transport
	s.formatter = NewFormatter(dsn, customFields, logger, s.formatterOpts...)

	logger.Info("Sentry sender configured",
		zap.Stringer("dsn", dsn),
		zap.Int("custom_fields", len(customFields)))

	return s, nil
}

// Configured reports whether the sender has a DSN
func (s *Sender) Configured() bool {
	return s.dsn != nil
}

// Formatter returns the payload formatter, nil when unconfigured
func (s *Sender) Formatter() *Formatter {
	return s.formatter
}

// DSN returns the parsed DSN, nil when unconfigured
func (s *Sender) DSN() *DSN {
	return s.dsn
}

// Send posts the report to Sentry. Unconfigured senders return nil without
// doing anything. Failures are returned as *ReportSenderError and are not retried here.
func (s *Sender) Send(ctx context.Context, report *CrashReport) error {
	if s.dsn == nil {
		s.metrics.IncSkippedReports()
		s.logger.Debug("Sentry sender not configured, report dropped")
		return nil
	}

	storeURL, err := s.dsn.StoreURL()
	if err != nil {
		return s.fail(err)
	}

	body, err := s.formatter.Encode(report)
	if err != nil {
		return s.fail(err)
	}

	req := &Request{
		URL:    storeURL,
		Method: "POST",
		Headers: map[string]string{
			AuthHeader: s.formatter.AuthHeader(),
		},
		Body:        body,
		ContentType: ContentTypeJSON,
	}

	if err := s.transport.Send(ctx, req); err != nil {
		return s.fail(err)
	}

	s.metrics.IncSentReports()

	reportID, _ := report.Get(ReportID)
	s.logger.Info("Report sent to Sentry",
		zap.String("report_id", reportID),
		zap.String("url", storeURL))

	return nil
}

func (s *Sender) fail(err error) error {
	reason := failureReason(err)
	s.metrics.IncFailedReports(reason)
	s.logger.Error("Error while sending report to Sentry",
		zap.String("reason", reason),
		zap.Error(err))
	return &ReportSenderError{Err: err}
}

func failureReason(err error) string {
	var dsnErr *DSNError
	var serializationErr *SerializationError
	switch {
	case errors.As(err, &dsnErr):
		return string(dsnErr.Kind)
	case errors.As(err, &serializationErr):
		return "serialization"
	default:
		return "transport"
	}
}

// Close releases idle connections held by the transport
func (s *Sender) Close() error {
	if closer, ok := s.transport.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
