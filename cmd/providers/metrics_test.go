package providers

import (
	"context"
	"sort"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/global"
)

func TestSetupPrometheus(t *testing.T) {
	handler, err := SetupPrometheus()
	require.NoError(t, err)
	require.NotNil(t, handler)

	counter, err := global.Meter("meter").NewInt64Counter("otel_counter")
	require.NoError(t, err)
	counter.Add(context.Background(), 2)

	dtos, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	var metricNames []string
	for _, dto := range dtos {
		name := dto.GetName()
		switch {
		case strings.HasPrefix(name, "go_"),
			strings.HasPrefix(name, "process_"):
			continue
		}
		metricNames = append(metricNames, name)
	}
	sort.Strings(metricNames)
	assert.Equal(t, []string{"otel_counter"}, metricNames)
}
