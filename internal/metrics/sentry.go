package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/Conceptual-Machines/chordsheet-api/internal/events"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// SentryMetrics handles custom metrics for Sentry
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics() *SentryMetrics {
	return &SentryMetrics{
		enabled: true, // Always enabled if Sentry is configured
	}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	// Create a span for API request tracking using the request context
	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	// Set span tags
	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))

	// Set span data
	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("endpoint", endpoint)
	span.SetData("status_code", statusCode)

	// Set span status based on response
	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	// Set span description
	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordStage records one conversion pipeline stage as a span
func (m *SentryMetrics) RecordStage(ctx context.Context, ev events.Event) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "conversion."+stageName(ev.Type))
	defer span.Finish()

	span.SetTag("request_id", ev.RequestID)
	for key, value := range ev.Fields {
		span.SetData(key, value)
	}
	span.SetData("duration_ms", ev.Duration.Milliseconds())

	if ev.Type == events.ConversionFailed {
		span.Status = sentry.SpanStatusInternalError
		if stage, ok := ev.Fields["stage"].(string); ok {
			span.SetTag("failed_stage", stage)
		}
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Description = fmt.Sprintf("Conversion %s: %s", stageName(ev.Type), ev.RequestID)
}

// RecordConversion tags the current transaction with the outcome of a
// conversion
func (m *SentryMetrics) RecordConversion(ctx context.Context, ev events.Event) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("conversion.success", fmt.Sprintf("%t", ev.Type == events.ConversionCompleted))
		for _, key := range []string{"source_format", "target_format"} {
			if v, ok := ev.Fields[key].(string); ok && v != "" {
				transaction.SetTag("conversion."+key, v)
			}
		}
		transaction.SetData("conversion.request_id", ev.RequestID)
	}
}

// Subscribe records every conversion event. ctx should carry the request
// transaction when there is one.
func (m *SentryMetrics) Subscribe(ctx context.Context, bus *events.Bus) {
	bus.SubscribeAll(func(ev events.Event) {
		m.RecordStage(ctx, ev)
		if ev.Type == events.ConversionCompleted || ev.Type == events.ConversionFailed {
			m.RecordConversion(ctx, ev)
		}
	})
}

// stageName drops the "conversion." prefix shared by the outer events
func stageName(t events.Type) string {
	return strings.TrimPrefix(string(t), "conversion.")
}
