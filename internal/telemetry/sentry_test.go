package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_NoDSN(t *testing.T) {
	flush := Init(Config{}, nil)
	require.NotNil(t, flush)
	flush()
}

func TestDefaultSampleRate(t *testing.T) {
	assert.Equal(t, 1.0, DefaultSampleRate(""))
	assert.Equal(t, 1.0, DefaultSampleRate("development"))
	assert.Equal(t, 0.1, DefaultSampleRate("production"))
}

func TestSampler(t *testing.T) {
	sample := sampler(0.25)

	health := &sentry.Span{Name: "GET /health"}
	assert.Equal(t, 0.0, sample(sentry.SamplingContext{Span: health}))

	root := &sentry.Span{Name: "POST /reports"}
	assert.Equal(t, 0.25, sample(sentry.SamplingContext{Span: root}))

	child := &sentry.Span{Name: "ImportService.Stage", ParentSpanID: sentry.SpanID{1}, Sampled: sentry.SampledTrue}
	assert.Equal(t, 1.0, sample(sentry.SamplingContext{Span: child}))
}

func TestStartSpan_ChildOfTransaction(t *testing.T) {
	ctx, tx := StartTransaction(context.Background(), "import", "job.import")
	defer tx.End()

	childCtx, child := StartSpan(ctx, "extract.llm", SpanAttributes{
		UploadID:  "u-1",
		CWLabel:   "CW07",
		Operation: "extract",
	})
	defer child.End()

	span := sentry.SpanFromContext(childCtx)
	require.NotNil(t, span)
	assert.Equal(t, "u-1", span.Tags["upload_id"])
	assert.Equal(t, "CW07", span.Tags["cw_label"])
	assert.Equal(t, "extract", span.Data["operation"])
	assert.Equal(t, sentry.SpanFromContext(ctx).SpanID, span.ParentSpanID)
}

func TestSpan_NilSafe(t *testing.T) {
	var s Span
	s.End()
	s.SetData("k", 1)
	s.SetError(errors.New("boom"))
}
