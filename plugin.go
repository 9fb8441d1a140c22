package sentry_sender

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/roadrunner-server/endure/v2/dep"
	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"
)

// Plugin represents the main plugin structure
type Plugin struct {
	config *Config
	logger *zap.Logger
	sender *Sender
}

// Configurer interface for config plugin
type Configurer interface {
	UnmarshalKey(name string, out interface{}) error
	Has(name string) bool
}

// Logger interface for logger plugin
type Logger interface {
	NamedLogger(name string) *zap.Logger
}

// Init initializes the plugin
func (p *Plugin) Init(cfg Configurer, log Logger) error {
	const op = errors.Op("sentry_sender_init")

	if !cfg.Has(PluginName) {
		return errors.E(op, errors.Disabled)
	}

	config := &Config{}
	if err := cfg.UnmarshalKey(PluginName, config); err != nil {
		return errors.E(op, err)
	}

	config.InitDefaults()
	if err := config.Validate(); err != nil {
		return errors.E(op, err)
	}

	if !config.Enabled {
		return errors.E(op, errors.Disabled)
	}

	p.config = config
	p.logger = log.NamedLogger(PluginName)

	// a malformed DSN fails Init, an empty one leaves the sender unconfigured
	sender, err := NewSender(config, nil, p.logger)
	if err != nil {
		return errors.E(op, err)
	}
	p.sender = sender

	p.logger.Info("Sentry sender plugin initialized",
		zap.Bool("dsn_configured", sender.Configured()),
		zap.Duration("connect_timeout", config.Transport.ConnectTimeout),
		zap.Duration("socket_timeout", config.Transport.SocketTimeout),
		zap.Int("max_retries", config.Retry.Retries()))

	return nil
}

// Serve starts the plugin. Reports are sent synchronously, nothing runs in the background.
func (p *Plugin) Serve() chan error {
	errCh := make(chan error, 1)

	if p.sender == nil {
		errCh <- errors.E(errors.Op("sentry_sender_serve"), errors.Str("plugin not initialized"))
	}

	return errCh
}

// Stop stops the plugin
func (p *Plugin) Stop(context.Context) error {
	if p.sender == nil {
		return nil
	}

	if err := p.sender.Close(); err != nil {
		p.logger.Error("Error closing transport", zap.Error(err))
		return err
	}

	p.logger.Info("Sentry sender plugin stopped")
	return nil
}

// Name returns the plugin name
func (p *Plugin) Name() string {
	return PluginName
}

// RPC returns the RPC interface
func (p *Plugin) RPC() interface{} {
	return NewRPC(p, p.logger)
}

// Provides returns the dependencies this plugin provides
func (p *Plugin) Provides() []*dep.Out {
	return []*dep.Out{
		dep.Bind((*ReportSender)(nil), p.ReportSender),
	}
}

// ReportSender returns the sender for other plugins
func (p *Plugin) ReportSender() ReportSender {
	return p.sender
}

// MetricsCollector exposes the sender counters to the metrics plugin
func (p *Plugin) MetricsCollector() []prometheus.Collector {
	if p.sender == nil {
		return nil
	}
	return []prometheus.Collector{p.sender.metrics}
}
