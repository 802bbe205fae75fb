package providers

import (
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gantryq/gantry/pkg/runexec"
	"github.com/gantryq/gantry/pkg/topology"
)

// Job handler config keys.
const (
	ConfExecPath    = "exec.path"
	ConfExecArgs    = "exec.args"
	ConfExecTimeout = "exec.timeout"
)

func init() {
	viper.SetDefault(ConfExecPath, "")
	viper.SetDefault(ConfExecArgs, []string{})
	viper.SetDefault(ConfExecTimeout, time.Minute)
}

// QueueExecutor builds the handler command of a queue.
// Queues without their own handler settings fall back to the exec.* variables.
func QueueExecutor(log *zap.Logger, q *topology.Queue) *runexec.Command {
	command := &runexec.Command{
		Log:     log,
		Path:    q.ExecPath,
		Args:    q.ExecArgs,
		Timeout: q.ExecTimeout,
	}
	if command.Path == "" {
		command.Path = viper.GetString(ConfExecPath)
		command.Args = viper.GetStringSlice(ConfExecArgs)
	}
	if command.Timeout == 0 {
		command.Timeout = viper.GetDuration(ConfExecTimeout)
	}
	if command.Path == "" {
		log.Fatal("Empty "+ConfExecPath, zap.String("queue", q.Name))
	}
	return command
}
