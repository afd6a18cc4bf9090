// Package observability wires the otel meter used across the server.
package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// MetricsCollector tracks the console core's counters and exposes them for
// Prometheus scraping.
type MetricsCollector struct {
	enabled bool
	meter   metric.Meter

	tokensIssued    metric.Int64Counter
	tokenFailures   metric.Int64Counter
	attributeFlush  metric.Int64Counter
	attributeCount  metric.Int64Histogram
	connectAttempts metric.Int64Counter
}

// NewMetricsCollector builds the collector. When disabled, every method is
// a no-op and Handler returns a handler over the default registry.
func NewMetricsCollector(enabled bool) (*MetricsCollector, error) {
	if !enabled {
		return &MetricsCollector{}, nil
	}

	exporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter("aria")

	c := &MetricsCollector{enabled: true, meter: meter}

	if c.tokensIssued, err = meter.Int64Counter(
		"aria.tokens.issued.total",
		metric.WithDescription("Access tokens issued by the token endpoint"),
	); err != nil {
		return nil, err
	}
	if c.tokenFailures, err = meter.Int64Counter(
		"aria.tokens.failures.total",
		metric.WithDescription("Token endpoint requests that failed"),
	); err != nil {
		return nil, err
	}
	if c.attributeFlush, err = meter.Int64Counter(
		"aria.attributes.flushes.total",
		metric.WithDescription("Attribute mappings flushed to the room"),
	); err != nil {
		return nil, err
	}
	if c.attributeCount, err = meter.Int64Histogram(
		"aria.attributes.flush.size",
		metric.WithDescription("Number of keys per flushed attribute mapping"),
	); err != nil {
		return nil, err
	}
	if c.connectAttempts, err = meter.Int64Counter(
		"aria.connection.attempts.total",
		metric.WithDescription("Connection attempts by mode"),
	); err != nil {
		return nil, err
	}
	return c, nil
}

// RecordTokenIssued counts one successful token mint.
func (c *MetricsCollector) RecordTokenIssued(ctx context.Context, agentDispatch bool) {
	if c == nil || !c.enabled {
		return
	}
	c.tokensIssued.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("agent_dispatch", agentDispatch),
	))
}

// RecordTokenFailure counts one failed token request.
func (c *MetricsCollector) RecordTokenFailure(ctx context.Context, reason string) {
	if c == nil || !c.enabled {
		return
	}
	c.tokenFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordAttributeFlush counts one attribute flush of the given size.
func (c *MetricsCollector) RecordAttributeFlush(ctx context.Context, size int) {
	if c == nil || !c.enabled {
		return
	}
	c.attributeFlush.Add(ctx, 1)
	c.attributeCount.Record(ctx, int64(size))
}

// RecordConnectAttempt counts one connection attempt for a mode.
func (c *MetricsCollector) RecordConnectAttempt(ctx context.Context, mode string) {
	if c == nil || !c.enabled {
		return
	}
	c.connectAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
	))
}

// Handler returns the Prometheus scrape handler.
func (c *MetricsCollector) Handler() http.Handler {
	return promhttp.Handler()
}
