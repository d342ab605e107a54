package infrastructure

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricefill/internal/config"
)

func TestOTelInitialization(t *testing.T) {
	var buf bytes.Buffer
	providers, err := InitializeOTel(nil, NewLogger(&buf, "debug"))
	require.NoError(t, err)
	require.NotNil(t, providers)

	// tracing is off by default
	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)

	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Reader)
	require.NotNil(t, providers.Metrics)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
	assert.Contains(t, buf.String(), "OpenTelemetry shutdown complete")
}

func TestOTelTracingToFile(t *testing.T) {
	traceFile := filepath.Join(t.TempDir(), "traces", "trace.json")
	cfg := NewOTelConfig(config.TelemetryConfig{
		EnableTracing: true,
		TraceFile:     traceFile,
		Environment:   "test",
	})

	providers, err := InitializeOTel(cfg, NewLogger(&bytes.Buffer{}, "error"))
	require.NoError(t, err)
	require.NotNil(t, providers.TracerProvider)

	ctx, span := providers.Tracer.Start(context.Background(), "enrich")
	AddSpanEvent(ctx, "rows.enriched", map[string]interface{}{"rows": 3, "source": "test"})
	SetSpanAttributes(ctx, map[string]interface{}{"matched": int64(2), "ratio": 0.5, "ok": true})
	RecordError(ctx, errors.New("boom"))
	span.End()

	require.NoError(t, providers.Shutdown(context.Background()))

	content, err := os.ReadFile(traceFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"Name": "enrich"`)
	assert.Contains(t, string(content), "rows.enriched")
	assert.Contains(t, string(content), "boom")
}

func TestOTelTracingRequiresFile(t *testing.T) {
	cfg := &OTelConfig{ServiceName: ServiceName, EnableTracing: true, SampleRatio: 1}
	_, err := InitializeOTel(cfg, NewLogger(&bytes.Buffer{}, "error"))
	assert.Error(t, err)
}

func TestCollectCounters(t *testing.T) {
	providers, err := InitializeOTel(nil, NewLogger(&bytes.Buffer{}, "error"))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	ctx := context.Background()
	RecordRowMetrics(ctx, providers.Metrics, 5, 3, 2)
	RecordRowMetrics(ctx, providers.Metrics, 1, 1, 0)
	RecordStepMetrics(ctx, providers.Metrics, "load", 10*time.Millisecond, true)
	RecordStepMetrics(ctx, providers.Metrics, "export", 20*time.Millisecond, false)

	counters, err := providers.CollectCounters(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(6), counters[MetricRowsProcessed])
	assert.Equal(t, int64(4), counters[MetricRowsMatched])
	assert.Equal(t, int64(2), counters[MetricRowsUnmatched])
	assert.Equal(t, int64(2), counters[MetricStepsTotal])
	assert.Equal(t, int64(1), counters[MetricStepErrors])
	// histograms are not counters
	assert.NotContains(t, counters, MetricStepDuration)
}

func TestRecordMetricsNil(t *testing.T) {
	assert.NotPanics(t, func() {
		RecordRowMetrics(context.Background(), nil, 1, 1, 0)
		RecordStepMetrics(context.Background(), nil, "load", time.Second, true)
	})

	var providers *OTelProviders
	counters, err := providers.CollectCounters(context.Background())
	require.NoError(t, err)
	assert.Empty(t, counters)
}
