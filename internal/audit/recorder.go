package audit

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mssola/useragent"

	"tagproof/internal/platform/metrics"
)

// Publisher mirrors records to an external sink (Kafka). Optional.
type Publisher interface {
	Publish(ctx context.Context, record Record)
}

// Recorder is the fire-and-forget boundary around audit persistence. Record
// returns nothing: store and publisher failures are logged and counted here,
// one level below the handlers, so a verification response can never be
// overturned or delayed by its own audit write.
type Recorder struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewRecorder builds a Recorder. publisher may be nil.
func NewRecorder(store Store, publisher Publisher, logger *slog.Logger, m *metrics.Metrics) *Recorder {
	return &Recorder{store: store, publisher: publisher, logger: logger, metrics: m}
}

// Record appends one audit record, best-effort.
func (r *Recorder) Record(ctx context.Context, record Record) {
	if record.UA != "" && record.Client == "" {
		record.Client = summarizeUserAgent(record.UA)
	}

	if err := r.store.Append(ctx, record); err != nil {
		r.metrics.IncrementAuditWriteFailures()
		r.logger.WarnContext(ctx, "audit write failed",
			"request_id", record.RequestID,
			"tag_id", record.TagID,
			"error", err.Error(),
		)
	}

	if r.publisher != nil {
		r.publisher.Publish(ctx, record)
	}
}

// summarizeUserAgent renders a raw User-Agent as "Browser Version on OS" for
// human review of the audit trail. The raw string is kept alongside.
func summarizeUserAgent(raw string) string {
	ua := useragent.New(raw)
	name, version := ua.Browser()
	if name == "" {
		name = "Unknown"
	}
	os := ua.OS()
	if os == "" {
		os = "Unknown OS"
	}
	summary := name
	if version != "" {
		summary += " " + strings.SplitN(version, ".", 2)[0]
	}
	return summary + " on " + os
}
