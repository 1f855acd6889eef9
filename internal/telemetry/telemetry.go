// Package telemetry records tool calls and facade requests as OpenTelemetry
// spans, Prometheus metrics and, when an instrumentation key is set,
// Application Insights events.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/logicapp-mcp/internal/logger"
	"github.com/microsoft/ApplicationInsights-Go/appinsights"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Azure/logicapp-mcp"

// Config selects the telemetry sinks.
type Config struct {
	ServiceName    string
	ServiceVersion string
	// OTLPEndpoint is a host:port gRPC collector. Empty disables export.
	OTLPEndpoint string
	// OTLPInsecure disables TLS to the collector.
	OTLPInsecure bool
	// InstrumentationKey enables Application Insights events.
	InstrumentationKey string

	// exporter replaces the OTLP exporter, for tests.
	exporter sdktrace.SpanExporter
}

// Service owns the tracer provider and the optional Application Insights
// client. It is safe for concurrent use.
type Service struct {
	cfg      Config
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	insights appinsights.TelemetryClient
}

// NewService creates the telemetry sinks described by cfg.
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.ServiceName),
			attribute.String("service.version", cfg.ServiceVersion),
		)),
	}

	switch {
	case cfg.exporter != nil:
		opts = append(opts, sdktrace.WithSyncer(cfg.exporter))
	case cfg.OTLPEndpoint != "":
		exporterOpts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			exporterOpts = append(exporterOpts, otlptracegrpc.WithInsecure())
		}
		exporter, err := otlptracegrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP gRPC exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Infof("Exporting traces to %s", cfg.OTLPEndpoint)
	}

	provider := sdktrace.NewTracerProvider(opts...)
	s := &Service{
		cfg:      cfg,
		provider: provider,
		tracer:   provider.Tracer(instrumentationName, trace.WithInstrumentationVersion(cfg.ServiceVersion)),
	}

	if cfg.InstrumentationKey != "" {
		s.insights = appinsights.NewTelemetryClient(cfg.InstrumentationKey)
		s.insights.Context().Tags.Cloud().SetRole(cfg.ServiceName)
		s.insights.Context().Tags.Application().SetVer(cfg.ServiceVersion)
	}
	return s, nil
}

// StartSpan starts a span named name as a child of any span in ctx.
func (s *Service) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// TrackStartup records that the server started with the given transport.
func (s *Service) TrackStartup(transport string) {
	if s.insights == nil {
		return
	}
	event := appinsights.NewEventTelemetry("ServerStarted")
	event.Properties["transport"] = transport
	event.Properties["version"] = s.cfg.ServiceVersion
	s.insights.Track(event)
}

// ToolCalled records one tool invocation. The span is back-dated to cover
// the call.
func (s *Service) ToolCalled(ctx context.Context, family, tool string, duration time.Duration, err error) {
	status := statusOK
	if err != nil {
		status = statusError
	}
	toolCalls.WithLabelValues(family, tool, status).Inc()
	toolDuration.WithLabelValues(family, tool).Observe(duration.Seconds())

	end := time.Now()
	_, span := s.tracer.Start(ctx, "tools/call "+tool,
		trace.WithTimestamp(end.Add(-duration)),
		trace.WithAttributes(
			attribute.String("mcp.family", family),
			attribute.String("mcp.tool", tool),
		),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End(trace.WithTimestamp(end))

	if s.insights != nil {
		event := appinsights.NewEventTelemetry("ToolInvoked")
		event.Properties["family"] = family
		event.Properties["tool"] = tool
		event.Properties["status"] = status
		event.Measurements["duration_ms"] = float64(duration.Milliseconds())
		s.insights.Track(event)
	}
}

// Shutdown flushes pending spans and events.
func (s *Service) Shutdown(ctx context.Context) error {
	if s.insights != nil {
		select {
		case <-s.insights.Channel().Close(5 * time.Second):
		case <-ctx.Done():
		}
	}
	return s.provider.Shutdown(ctx)
}
