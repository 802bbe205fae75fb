package status

import (
	"testing"

	"go.uber.org/fx"

	"github.com/gantryq/gantry/cmd/providers/providerstest"
)

func TestApp(t *testing.T) {
	providerstest.Validate(t,
		fx.Invoke(runStatus))
}
