package sentry_sender

import (
	"context"

	"github.com/roadrunner-server/errors"
	"go.uber.org/zap"
)

// RPC exposes the sender to host processes
type RPC struct {
	plugin *Plugin
	logger *zap.Logger
}

// NewRPC creates a new RPC instance
func NewRPC(plugin *Plugin, logger *zap.Logger) *RPC {
	return &RPC{
		plugin: plugin,
		logger: logger,
	}
}

// Send sends a single crash report. Delivery failures are reported in result,
// only a missing sender or report is an RPC error.
func (r *RPC) Send(report *CrashReport, result *SendResult) error {
	const op = errors.Op("sentry_sender_rpc_send")

	if r.plugin.sender == nil {
		return errors.E(op, errors.Str("plugin not initialized"))
	}
	if report == nil {
		return errors.E(op, errors.Str("empty crash report"))
	}

	reportID, _ := report.Get(ReportID)

	r.logger.Debug("Received crash report via RPC",
		zap.String("report_id", reportID),
		zap.Int("fields", len(report.Fields)),
		zap.Int("causes", len(report.Exception)))

	if err := r.plugin.sender.Send(context.Background(), report); err != nil {
		*result = SendResult{
			Success: false,
			EventID: EventID(report),
			Error:   err.Error(),
		}
		return nil
	}

	*result = SendResult{
		Success: true,
		EventID: EventID(report),
		Skipped: !r.plugin.sender.Configured(),
	}

	return nil
}
