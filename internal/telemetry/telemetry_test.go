package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestService(t *testing.T) (*Service, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	s, err := NewService(context.Background(), Config{ServiceName: "logicapp-mcp", ServiceVersion: "test", exporter: exporter})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, exporter
}

func TestToolCalledRecordsSpanAndMetrics(t *testing.T) {
	s, exporter := newTestService(t)

	okBefore := testutil.ToFloat64(toolCalls.WithLabelValues("kudu", "get_file", statusOK))
	errBefore := testutil.ToFloat64(toolCalls.WithLabelValues("kudu", "get_file", statusError))

	s.ToolCalled(context.Background(), "kudu", "get_file", 20*time.Millisecond, nil)
	s.ToolCalled(context.Background(), "kudu", "get_file", time.Millisecond, errors.New("status 500"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(toolCalls.WithLabelValues("kudu", "get_file", statusOK)))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(toolCalls.WithLabelValues("kudu", "get_file", statusError)))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "tools/call get_file", spans[0].Name)
	assert.Contains(t, spans[0].Attributes, attribute.String("mcp.family", "kudu"))
	assert.GreaterOrEqual(t, spans[0].EndTime.Sub(spans[0].StartTime), 20*time.Millisecond)
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

func TestStartSpan(t *testing.T) {
	s, exporter := newTestService(t)
	ctx, span := s.StartSpan(context.Background(), "GET /health", attribute.String("http.route", "/health"))
	assert.NotNil(t, ctx)
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /health", spans[0].Name)
}

func TestHTTPRequestCounter(t *testing.T) {
	before := testutil.ToFloat64(httpRequests.WithLabelValues("/health", "200"))
	HTTPRequest("/health", 200)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("/health", "200")))
}

func TestTrackStartupWithoutInsights(t *testing.T) {
	s, _ := newTestService(t)
	assert.NotPanics(t, func() { s.TrackStartup("stdio") })
}
