package status

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/gantryq/gantry/cmd/providers"
	"github.com/gantryq/gantry/pkg/batchq"
	"github.com/gantryq/gantry/pkg/kv"
	"github.com/gantryq/gantry/pkg/topology"
)

// Cmd is the status sub-command.
var Cmd = cobra.Command{
	Use:   "status [queue...]",
	Short: "Show queue backlog and lock state",
	Long: "Prints the pending jobs, their enqueue time span and the current\n" +
		"lock holder of each queue. Defaults to all queues of the topology.",
	Args: cobra.ArbitraryArgs,
	Run:  providers.NewCmd(runStatus),
}

type statusIn struct {
	fx.In

	Ctx      context.Context
	Args     []string
	Store    kv.Store
	Topology *topology.Config
}

func runStatus(inputs statusIn) error {
	queues := inputs.Topology.Queues
	if len(inputs.Args) > 0 {
		queues = make([]*topology.Queue, len(inputs.Args))
		for i, name := range inputs.Args {
			q := inputs.Topology.GetQueue(name)
			if q == nil {
				return fmt.Errorf("unknown queue: %s", name)
			}
			queues[i] = q
		}
	}
	now := time.Now()
	for _, q := range queues {
		info, err := batchq.Inspect(inputs.Ctx, inputs.Store, q.Keys())
		if err != nil {
			return fmt.Errorf("queue %s: %w", q.Name, err)
		}
		fmt.Println("Queue:", q.Name)
		fmt.Println("\tJobs:", info.Jobs)
		if info.Jobs > 0 {
			fmt.Printf("\tOldest: %s (%s ago)\n",
				info.Oldest.Format(time.RFC3339), now.Sub(info.Oldest).Round(time.Second))
			fmt.Printf("\tNewest: %s (%s ago)\n",
				info.Newest.Format(time.RFC3339), now.Sub(info.Newest).Round(time.Second))
		}
		if info.Version == kv.NoVersion {
			fmt.Println("\tVersion: none (never pushed to)")
		} else {
			fmt.Println("\tVersion:", info.Version)
		}
		if info.LockHolder != "" {
			fmt.Println("\tLock: held by pass", info.LockHolder)
		} else {
			fmt.Println("\tLock: free")
		}
	}
	return nil
}
