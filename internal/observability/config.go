package observability

import (
	"os"
	"strconv"
	"strings"

	"github.com/mirzaik-wcc/contractorlens/internal/config"
)

// Config holds observability settings derived from the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "contractorlens"
	}

	protocol := cfg.Otel.ExporterProtocol
	if tracesProtocol := strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL")); tracesProtocol != "" {
		protocol = strings.ToLower(tracesProtocol)
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		OtelEnabled:          cfg.Otel.Enabled,
		OtelExporterEndpoint: cfg.Otel.ExporterEndpoint,
		OtelExporterProtocol: protocol,
		OtelSamplingRatio:    samplingRatio(),
	}
}

func samplingRatio() float64 {
	value := strings.TrimSpace(os.Getenv("OTEL_SAMPLING_RATIO"))
	if value == "" {
		return 1
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 1
	}
	return parsed
}
