// Package providers wires shared components into the command DI containers.
//
// Constructors read their settings from viper. Every setting has a Conf* key
// constant and a default registered in init(), and can be overridden through
// the environment (GANTRY_ prefix) or the optional config file.
package providers

import (
	"context"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric/global"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gantryq/gantry/pkg/appctx"
)

// Log is the global logger.
var Log *zap.Logger

// Providers holds constructors for shared components.
var Providers = []interface{}{
	// dupwatch.go
	NewDupCache,
	NewDupWatchMetrics,
	// metrics.go
	NewProcessorMetrics,
	// providers.go
	NewContext,
	// redis.go
	NewRedis,
	// store.go
	NewKV,
	// topology.go
	NewTopologyConfig,
}

func baseOptions(cmd *cobra.Command) []fx.Option {
	return []fx.Option{
		fx.Provide(Providers...),
		fx.Supply(cmd),
		fx.Supply(Log),
		fx.Logger(zap.NewStdLog(Log)),
		fx.Supply(global.GetMeterProvider().Meter(cmd.Name())),
	}
}

// NewApp assembles the DI container of a daemon command.
// The caller runs the returned app, which serves until a signal arrives.
func NewApp(cmd *cobra.Command, opts ...fx.Option) *fx.App {
	return fx.New(append(baseOptions(cmd), opts...)...)
}

// NewCmd adapts a one-shot invoke function to a cobra run function.
func NewCmd(invoke interface{}) func(cmd *cobra.Command, args []string) {
	return func(cmd *cobra.Command, args []string) {
		OneShot(cmd, args, fx.Invoke(invoke))
	}
}

// OneShot runs an fx app to completion and tears it down again.
//
// Unlike fx.App.Run it does not wait for signals: the command is over as soon
// as the invoke functions return. The command args are available for
// injection as []string. Any error is fatal after teardown was attempted.
func OneShot(cmd *cobra.Command, args []string, opts ...fx.Option) {
	baseOpts := append(baseOptions(cmd), fx.Supply(args))
	app := fx.New(append(baseOpts, opts...)...)
	startCtx, cancel := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancel()
	runErr := app.Start(startCtx)
	stopCtx, cancel2 := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel2()
	if err := app.Stop(stopCtx); err != nil {
		Log.Error("Failed to tear down", zap.Error(err))
	}
	if runErr != nil {
		Log.Fatal("Command failed", zap.Error(runErr))
	}
}

// NewContext returns the command context.
// It is canceled by shutdown signals and again when the app stops, so
// one-shot commands abort their store calls on Ctrl-C.
func NewContext(lc fx.Lifecycle) context.Context {
	ctx, cancel := context.WithCancel(appctx.Context())
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			cancel()
			return nil
		},
	})
	return ctx
}
