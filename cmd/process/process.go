package process

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gantryq/gantry/cmd/providers"
	"github.com/gantryq/gantry/pkg/batchq"
	"github.com/gantryq/gantry/pkg/kv"
	"github.com/gantryq/gantry/pkg/topology"
)

// Cmd is the process sub-command.
var Cmd = cobra.Command{
	Use:   "process",
	Short: "Run a single processing pass",
	Long: "Runs one pass over each selected queue and exits. Made for cron.\n" +
		"Exit status:\n" +
		"  0  batch committed, or nothing to do\n" +
		"  1  infrastructure error\n" +
		"  2  another pass held the lock\n" +
		"  3  batch executed but the commit was lost\n" +
		"  4  batch committed, but jobs failed",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		var code int
		providers.OneShot(cmd, args,
			fx.Provide(newFlags),
			fx.Invoke(invoke(&code)),
		)
		if code != 0 {
			os.Exit(code)
		}
	},
}

func init() {
	flags := Cmd.Flags()
	flags.StringP("queue", "q", "", "Pass over this queue only")
}

type processFlags struct {
	queue string
}

func newFlags(cmd *cobra.Command) *processFlags {
	f := cmd.Flags()
	queue, err := f.GetString("queue")
	if err != nil {
		panic(err)
	}
	return &processFlags{
		queue: queue,
	}
}

type processIn struct {
	fx.In

	Ctx      context.Context
	Flags    *processFlags
	Store    kv.Store
	Topology *topology.Config
	Metrics  *batchq.ProcessorMetrics
}

func invoke(code *int) interface{} {
	return func(log *zap.Logger, inputs processIn) error {
		c, err := runPasses(log, inputs)
		*code = c
		return err
	}
}

func runPasses(log *zap.Logger, inputs processIn) (int, error) {
	queues := inputs.Topology.Queues
	if inputs.Flags.queue != "" {
		q := inputs.Topology.GetQueue(inputs.Flags.queue)
		if q == nil {
			return 0, fmt.Errorf("unknown queue: %s", inputs.Flags.queue)
		}
		queues = []*topology.Queue{q}
	}
	code := 0
	for _, q := range queues {
		qlog := log.Named(q.Name)
		processor := &batchq.Processor{
			Store:   inputs.Store,
			Exec:    providers.QueueExecutor(qlog, q),
			Log:     qlog,
			Keys:    q.Keys(),
			Options: q.QueueOptions(),
			Metrics: inputs.Metrics,
		}
		report, err := processor.RunOnce(inputs.Ctx)
		if err != nil {
			return 0, fmt.Errorf("queue %s: %w", q.Name, err)
		}
		for _, res := range report.Failed() {
			qlog.Warn("Job failed",
				zap.String("job_id", res.Job.ID),
				zap.Error(res.Err))
		}
		qlog.Info("Pass finished",
			zap.Stringer("outcome", report.Outcome),
			zap.Int("executed", report.Executed()),
			zap.Int("failed", len(report.Failed())),
			zap.Uint("conflicts", report.Conflicts))
		code = worseExit(code, exitFor(report))
	}
	return code, nil
}

// exitFor maps a pass report to the documented exit status.
func exitFor(report *batchq.Report) int {
	switch {
	case report.Outcome == batchq.PartialFailure:
		return 3
	case len(report.Failed()) > 0:
		return 4
	case report.Outcome == batchq.NoLockAvailable:
		return 2
	default:
		return 0
	}
}

// worseExit keeps the more severe of two exit codes
// when passing over several queues.
func worseExit(a, b int) int {
	rank := map[int]int{0: 0, 2: 1, 4: 2, 3: 3}
	if rank[b] > rank[a] {
		return b
	}
	return a
}
