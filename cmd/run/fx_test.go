package run

import (
	"testing"

	"go.uber.org/fx"

	"github.com/gantryq/gantry/cmd/providers"
	"github.com/gantryq/gantry/cmd/providers/providerstest"
)

func TestApp(t *testing.T) {
	providerstest.Validate(t,
		fx.Supply(new(providers.MetricsHandler)),
		fx.Invoke(
			runSchedulers,
			runMetricsServer,
		))
}
