// Package telemetry wraps Sentry tracing for the import pipeline. Every
// helper is a no-op when Sentry was never initialized.
package telemetry

import (
	"context"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

const (
	serviceName  = "statusdigest"
	flushTimeout = 5 * time.Second
)

type Config struct {
	DSN         string
	Environment string
	// TracesSampleRate of 0 picks the environment default: everything in
	// development, a tenth elsewhere
	TracesSampleRate float64
	Debug            bool
}

// DefaultSampleRate is the trace rate used for environment when none is set
func DefaultSampleRate(environment string) float64 {
	if environment == "" || environment == "development" {
		return 1.0
	}
	return 0.1
}

// Init starts the Sentry client and returns a function that flushes pending
// events. An empty DSN or a failed init leaves tracing off.
func Init(cfg Config, logger *zap.Logger) func() {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DSN == "" {
		return func() {}
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.TracesSampleRate == 0 {
		cfg.TracesSampleRate = DefaultSampleRate(cfg.Environment)
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		EnableTracing:    true,
		TracesSampleRate: cfg.TracesSampleRate,
		Debug:            cfg.Debug,
		ServerName:       serviceName,
		TracesSampler:    sampler(cfg.TracesSampleRate),
	})
	if err != nil {
		logger.Warn("sentry init failed, continuing without tracing", zap.Error(err))
		return func() {}
	}

	logger.Info("sentry tracing enabled",
		zap.String("environment", cfg.Environment),
		zap.Float64("sample_rate", cfg.TracesSampleRate),
	)
	return func() { sentry.Flush(flushTimeout) }
}

// sampler never traces health probes and keeps children with their root
func sampler(rate float64) sentry.TracesSampler {
	return func(ctx sentry.SamplingContext) float64 {
		if strings.HasSuffix(ctx.Span.Name, " /health") {
			return 0
		}
		var root sentry.SpanID
		if ctx.Span.ParentSpanID != root {
			if ctx.Span.Sampled.Bool() {
				return 1
			}
			return 0
		}
		return rate
	}
}

// SpanAttributes tag a span with the report it works on
type SpanAttributes struct {
	UploadID    string
	ProjectCode string
	CWLabel     string
	Category    string
	Operation   string
}

// Span is a nil-safe handle on a sentry span
type Span struct {
	inner *sentry.Span
}

func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

func (s *Span) SetData(key string, value interface{}) {
	if s.inner != nil {
		s.inner.SetData(key, value)
	}
}

// SetError marks the span failed and reports err on the span's hub
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = sentry.SpanStatusInternalError
	CaptureError(s.inner.Context(), err)
}

// StartSpan opens a child of the span in ctx, or a new transaction when
// there is none
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	tags := map[string]string{
		"upload_id":    attrs.UploadID,
		"project_code": attrs.ProjectCode,
		"cw_label":     attrs.CWLabel,
		"category":     attrs.Category,
	}
	for k, v := range tags {
		if v != "" {
			span.SetTag(k, v)
		}
	}
	if attrs.Operation != "" {
		span.SetData("operation", attrs.Operation)
	}
	return span.Context(), &Span{inner: span}
}

// StartTransaction opens a root span for work that does not come from an
// HTTP request, such as one import job
func StartTransaction(ctx context.Context, name, op string) (context.Context, *Span) {
	span := sentry.StartSpan(ctx, op, sentry.WithTransactionName(name), sentry.WithOpName(op))
	return span.Context(), &Span{inner: span}
}

// CaptureError reports err on the hub in ctx, or the global hub
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}
