package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Fallback kinds recorded when the engine degrades instead of failing.
const (
	FallbackDefaultWaste     = "default_waste"
	FallbackLegacyLabor      = "legacy_labor"
	FallbackNationalLocation = "national_location"
	FallbackNationalCost     = "national_average_cost"
	FallbackUnknownCategory  = "unknown_category"
)

const (
	OutcomeSuccess    = "success"
	OutcomeCached     = "cached"
	OutcomeValidation = "validation_error"
	OutcomeFailed     = "failed"
)

// Metrics exposes estimate pipeline instruments.
type Metrics struct {
	estimates       metric.Int64Counter
	duration        metric.Float64Histogram
	lineItems       metric.Int64Counter
	fallbacks       metric.Int64Counter
	componentsPrice metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New creates the estimate instruments on the given provider.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "contractorlens"
	}
	meter := provider.Meter(name)

	estimates, err := meter.Int64Counter("contractorlens_estimates_total",
		metric.WithDescription("Estimate calculations by outcome."))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("contractorlens_estimate_duration_seconds",
		metric.WithDescription("Wall time of estimate calculations."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	lineItems, err := meter.Int64Counter("contractorlens_estimate_line_items_total")
	if err != nil {
		return nil, err
	}
	fallbacks, err := meter.Int64Counter("contractorlens_pricing_fallbacks_total",
		metric.WithDescription("Soft fallbacks taken instead of failing a calculation."))
	if err != nil {
		return nil, err
	}
	componentsPriced, err := meter.Int64Counter("contractorlens_components_priced_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		estimates:       estimates,
		duration:        duration,
		lineItems:       lineItems,
		fallbacks:       fallbacks,
		componentsPrice: componentsPriced,
	}, nil
}

// RecordEstimate counts one calculation and its latency.
func (m *Metrics) RecordEstimate(ctx context.Context, jobType, outcome string, elapsed time.Duration, lineItems int) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("job_type", strings.TrimSpace(jobType)),
		attribute.String("outcome", outcome),
	)
	m.estimates.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.duration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attrs...))
	if lineItems > 0 {
		m.lineItems.Add(ctx, int64(lineItems), metric.WithAttributes(attrs...))
	}
}

func (m *Metrics) RecordFallback(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("kind", kind))...))
}

func (m *Metrics) RecordComponentPriced(ctx context.Context, itemType string) {
	if m == nil {
		return
	}
	m.componentsPrice.Add(ctx, 1, metric.WithAttributes(FilterAttributes(attribute.String("item_type", itemType))...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

// ZIP codes, item ids and fingerprints never become labels.
var allowedLabelKeys = map[attribute.Key]struct{}{
	"job_type":  {},
	"outcome":   {},
	"kind":      {},
	"item_type": {},
	"tier":      {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
