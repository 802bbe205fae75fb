// Package providerstest validates command dependency graphs in tests.
package providerstest

import (
	"context"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/fx"
	"go.uber.org/zap/zaptest"

	"github.com/gantryq/gantry/cmd/providers"
)

// Validate checks that the dependency graph of a command is complete.
// Constructors never execute, so no connections are made.
func Validate(t *testing.T, opts ...fx.Option) {
	base := []fx.Option{
		fx.Provide(providers.Providers...),
		// Stand-ins for the supplies of a real command app.
		fx.Supply(zaptest.NewLogger(t)),
		fx.Supply(context.Background()),
		fx.Supply(metric.Meter{}),
		fx.Supply(new(cobra.Command)),
		fx.Supply([]string{}),
		fx.Logger(fxPrinter{t}),
	}
	assert.NoError(t, fx.ValidateApp(append(base, opts...)...))
}

// fxPrinter forwards fx container logs to the test log.
type fxPrinter struct {
	testing.TB
}

func (p fxPrinter) Printf(format string, args ...interface{}) {
	p.Logf(format, args...)
}
