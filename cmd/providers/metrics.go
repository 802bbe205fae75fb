package providers

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	otelprom "go.opentelemetry.io/otel/exporters/metric/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"

	"github.com/gantryq/gantry/pkg/batchq"
)

// Metrics config keys.
const (
	ConfMetricsNet    = "metrics.net"
	ConfMetricsListen = "metrics.listen"
)

func init() {
	viper.SetDefault(ConfMetricsNet, "tcp")
	viper.SetDefault(ConfMetricsListen, ":2112")
}

// SetupPrometheus configures the OpenTelemetry Prometheus exporter
// and installs it as the global meter provider.
// Returns the Prometheus scrape HTTP handler.
//
// Call before NewApp: the app meter is resolved at container build time.
func SetupPrometheus() (http.Handler, error) {
	exporter, err := otelprom.NewExportPipeline(otelprom.Config{
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build OpenTelemetry Prometheus exporter: %w", err)
	}
	global.SetMeterProvider(exporter.MeterProvider())
	return exporter, nil
}

// MetricsHandler wraps the scrape handler for injection.
type MetricsHandler struct {
	http.Handler
}

// NewProcessorMetrics registers the pass instruments on the app meter.
// One instance backs the processors of every queue.
func NewProcessorMetrics(m metric.Meter) (*batchq.ProcessorMetrics, error) {
	return batchq.NewProcessorMetrics(m)
}
