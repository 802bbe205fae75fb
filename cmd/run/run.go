package run

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gantryq/gantry/cmd/providers"
	"github.com/gantryq/gantry/pkg/batchq"
	"github.com/gantryq/gantry/pkg/dupwatch"
	"github.com/gantryq/gantry/pkg/kv"
	"github.com/gantryq/gantry/pkg/topology"
)

// Cmd is the run sub-command.
var Cmd = cobra.Command{
	Use:   "run",
	Short: "Run the queue scheduler daemon",
	Long: "Runs processing passes against every queue of the topology until\n" +
		"interrupted, and serves Prometheus metrics.\n" +
		"It is safe to run any number of schedulers against the same queues.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		handler, err := providers.SetupPrometheus()
		if err != nil {
			providers.Log.Fatal("Failed to set up metrics", zap.Error(err))
		}
		app := providers.NewApp(
			cmd,
			fx.Supply(&providers.MetricsHandler{Handler: handler}),
			fx.Invoke(
				runSchedulers,
				runMetricsServer,
			),
		)
		app.Run()
	},
}

// Scheduler config keys.
const (
	ConfRunMinInterval = "run.min_interval"
	ConfRunMaxInterval = "run.max_interval"
)

func init() {
	viper.SetDefault(ConfRunMinInterval, 250*time.Millisecond)
	viper.SetDefault(ConfRunMaxInterval, 10*time.Second)
}

type schedulersIn struct {
	fx.In

	Lifecycle   fx.Lifecycle
	Shutdown    fx.Shutdowner
	Topology    *topology.Config
	Store       kv.Store
	DupCache    *lru.Cache
	DupMetrics  *dupwatch.WatchMetrics
	PassMetrics *batchq.ProcessorMetrics
}

func runSchedulers(log *zap.Logger, inputs schedulersIn) {
	runners := make([]*batchq.Runner, len(inputs.Topology.Queues))
	for i, q := range inputs.Topology.Queues {
		qlog := log.Named(q.Name)
		watch := &dupwatch.Watch{
			Next:    providers.QueueExecutor(qlog, q),
			Log:     qlog,
			Cache:   inputs.DupCache,
			Metrics: inputs.DupMetrics,
			TTL:     viper.GetDuration(providers.ConfDupWatchTTL),
		}
		runners[i] = &batchq.Runner{
			Processor: &batchq.Processor{
				Store:   inputs.Store,
				Exec:    watch,
				Log:     qlog,
				Keys:    q.Keys(),
				Options: q.QueueOptions(),
				Metrics: inputs.PassMetrics,
			},
			Log:         qlog,
			MinInterval: viper.GetDuration(ConfRunMinInterval),
			MaxInterval: viper.GetDuration(ConfRunMaxInterval),
		}
	}
	innerCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	inputs.Lifecycle.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			for i, runner := range runners {
				name := inputs.Topology.Queues[i].Name
				wg.Add(1)
				go func(name string, runner *batchq.Runner) {
					defer wg.Done()
					err := runner.Run(innerCtx)
					if err != nil && !errors.Is(err, context.Canceled) {
						log.Error("Scheduler failed",
							zap.String("queue", name), zap.Error(err))
						if err := inputs.Shutdown.Shutdown(); err != nil {
							log.Fatal("Failed to shut down", zap.Error(err))
						}
					}
				}(name, runner)
			}
			log.Info("Started schedulers", zap.Int("queues", len(runners)))
			return nil
		},
		OnStop: func(_ context.Context) error {
			cancel()
			wg.Wait()
			return nil
		},
	})
}

func runMetricsServer(lc fx.Lifecycle, log *zap.Logger, handler *providers.MetricsHandler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	hs := &http.Server{Handler: mux}
	network := viper.GetString(providers.ConfMetricsNet)
	addr := viper.GetString(providers.ConfMetricsListen)
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			sock := providers.MustListen(log, network, addr)
			go func() {
				if err := hs.Serve(sock); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("Metrics server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: hs.Shutdown,
	})
}
