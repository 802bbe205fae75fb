package providers

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gantryq/gantry/pkg/topology"
)

// Topology config keys.
const (
	ConfTopologyConfigFile = "topology.config_file"

	ConfQueueName   = "queue.name"
	ConfQueuePrefix = "queue.prefix"
)

func init() {
	viper.SetDefault(ConfTopologyConfigFile, "")
	viper.SetDefault(ConfQueueName, "default")
	viper.SetDefault(ConfQueuePrefix, "")
}

// NewTopologyConfig reads and validates the queue topology.
//
// With topology.config_file set, the TOML file at that path declares the
// queues. Without it the topology is a single queue described by the queue.*
// variables, which is enough for most deployments.
func NewTopologyConfig(log *zap.Logger) (*topology.Config, error) {
	config := new(topology.Config)
	configFilePath := viper.GetString(ConfTopologyConfigFile)
	if configFilePath != "" {
		log.Info("Reading topology config",
			zap.String(ConfTopologyConfigFile, configFilePath))
		f, err := os.Open(configFilePath)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		dec := toml.NewDecoder(f)
		if err := dec.Decode(config); err != nil {
			return nil, err
		}
	} else {
		config.Queues = []*topology.Queue{{
			Name:   viper.GetString(ConfQueueName),
			Prefix: viper.GetString(ConfQueuePrefix),
		}}
		log.Info("No topology config, serving a single queue",
			zap.String(ConfQueueName, config.Queues[0].Name))
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
