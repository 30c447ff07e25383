package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"tradepost/internal/host"
	"tradepost/pkg/core"
	"tradepost/pkg/notify"
)

// Caller is the slice of the host bridge the reporter needs.
type Caller interface {
	Call(ctx context.Context, command string, args interface{}) (json.RawMessage, error)
}

// Notifier shows a desktop alert when the host cannot.
type Notifier interface {
	Show(message string, nType notify.NotificationType) error
}

// Reporter forwards failure descriptors to the host for alerting.
type Reporter struct {
	host     Caller
	fallback Notifier
	log      core.Logger
}

// NewReporter returns a reporter. fallback may be nil.
func NewReporter(h Caller, fallback Notifier, log core.Logger) *Reporter {
	return &Reporter{host: h, fallback: fallback, log: log}
}

// ReportNetworkError sends d to the host when all four fields are numeric.
// It reports whether the host accepted the descriptor; a rejected report
// falls back to a desktop notification and returns false.
func (r *Reporter) ReportNetworkError(ctx context.Context, d Descriptor) bool {
	if !d.Numeric() {
		r.log.Debug("Skipping network error report", "descriptor", d.String())
		return false
	}

	_, err := r.host.Call(ctx, host.CmdReportNetworkError, d)
	if err == nil {
		return true
	}

	r.log.Error("Host did not accept network error report", err, "descriptor", d.String())
	if r.fallback != nil && host.IsRejected(err) {
		msg := fmt.Sprintf("Trading post request failed (%s)", d)
		if nerr := r.fallback.Show(msg, notify.Error); nerr != nil {
			r.log.Warn("Fallback notification failed", "error", nerr)
		}
	}
	return false
}

// Report extracts a descriptor from err and reports it if it has one.
func (r *Reporter) Report(ctx context.Context, err error) bool {
	d, ok := DescriptorOf(err)
	if !ok {
		return false
	}
	return r.ReportNetworkError(ctx, d)
}
