package enqueue

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/gantryq/gantry/cmd/providers"
	"github.com/gantryq/gantry/pkg/batchq"
	"github.com/gantryq/gantry/pkg/kv"
	"github.com/gantryq/gantry/pkg/ratelimit"
	"github.com/gantryq/gantry/pkg/topology"
)

// Cmd is the enqueue sub-command.
var Cmd = cobra.Command{
	Use:   "enqueue [payload...]",
	Short: "Add jobs to a queue",
	Long: "Adds one job per payload argument and prints the assigned job IDs.\n" +
		"With --file, payloads are read from a file instead, one per line,\n" +
		"committed in chunks (\"-\" reads standard input).",
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		providers.OneShot(cmd, args,
			fx.Provide(newFlags),
			fx.Invoke(runEnqueue),
		)
	},
}

func init() {
	flags := Cmd.Flags()
	flags.StringP("queue", "q", "", "Target queue (default: the only declared queue)")
	flags.String("file", "", "Read payloads from file, one per line")
	flags.Float32("rate", 0, "Max payloads per second in file mode, 0 = unlimited")
	flags.Uint("chunk", 64, "Payloads per commit in file mode")
}

type enqueueFlags struct {
	queue string
	file  string
	rate  float32
	chunk uint
}

func newFlags(cmd *cobra.Command) *enqueueFlags {
	f := cmd.Flags()
	queue, err := f.GetString("queue")
	if err != nil {
		panic(err)
	}
	file, err := f.GetString("file")
	if err != nil {
		panic(err)
	}
	rate, err := f.GetFloat32("rate")
	if err != nil {
		panic(err)
	}
	chunk, err := f.GetUint("chunk")
	if err != nil {
		panic(err)
	}
	return &enqueueFlags{
		queue: queue,
		file:  file,
		rate:  rate,
		chunk: chunk,
	}
}

type enqueueIn struct {
	fx.In

	Ctx      context.Context
	Args     []string
	Flags    *enqueueFlags
	Store    kv.Store
	Topology *topology.Config
}

func runEnqueue(log *zap.Logger, inputs enqueueIn) error {
	q := inputs.Topology.Single()
	if inputs.Flags.queue != "" {
		q = inputs.Topology.GetQueue(inputs.Flags.queue)
	}
	if q == nil {
		return fmt.Errorf("no target queue, pick one of the topology with --queue")
	}
	producer := &batchq.Producer{
		Store:   inputs.Store,
		Log:     log.Named(q.Name),
		Keys:    q.Keys(),
		Options: q.QueueOptions(),
	}
	if inputs.Flags.file != "" {
		if len(inputs.Args) > 0 {
			return fmt.Errorf("payload arguments and --file are exclusive")
		}
		return enqueueFile(inputs.Ctx, producer, inputs.Flags)
	}
	if len(inputs.Args) == 0 {
		return fmt.Errorf("nothing to enqueue, pass payloads or --file")
	}
	payloads := make([][]byte, len(inputs.Args))
	for i, arg := range inputs.Args {
		payloads[i] = []byte(arg)
	}
	ids, err := producer.PushAll(inputs.Ctx, payloads)
	if err != nil {
		return err
	}
	printIDs(ids)
	return nil
}

// enqueueFile streams payload lines into chunked commits.
// Blank lines are skipped.
func enqueueFile(ctx context.Context, producer *batchq.Producer, flags *enqueueFlags) error {
	in := os.Stdin
	if flags.file != "-" {
		f, err := os.Open(flags.file)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}
	var limiter *ratelimit.Limiter
	if flags.rate > 0 {
		limiter = ratelimit.NewLimiter(flags.rate, 10)
	}
	chunk := flags.chunk
	if chunk == 0 {
		chunk = 1
	}
	batch := make([][]byte, 0, chunk)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if limiter != nil {
			if err := limiter.Take(ctx, int64(len(batch))); err != nil {
				return err
			}
		}
		ids, err := producer.PushAll(ctx, batch)
		if err != nil {
			return err
		}
		printIDs(ids)
		batch = batch[:0]
		return nil
	}
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		batch = append(batch, []byte(line))
		if uint(len(batch)) >= chunk {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

func printIDs(ids []string) {
	for _, id := range ids {
		fmt.Println(id)
	}
}
