package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/gantryq/gantry/cmd/enqueue"
	"github.com/gantryq/gantry/cmd/process"
	"github.com/gantryq/gantry/cmd/providers"
	"github.com/gantryq/gantry/cmd/run"
	"github.com/gantryq/gantry/cmd/status"
)

var rootCmd = cobra.Command{
	Use:   "gantry",
	Short: "Batch job queue on a versioned key-value store",

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var logConfig zap.Config
		if devMode {
			logConfig = zap.NewDevelopmentConfig()
		} else {
			logConfig = zap.NewProductionConfig()
		}
		log, err := logConfig.Build()
		if err != nil {
			panic("failed to build logger: " + err.Error())
		}
		providers.Log = log
		if configFile != "" {
			viper.SetConfigFile(configFile)
			if err := viper.ReadInConfig(); err != nil {
				log.Fatal("Failed to read config file", zap.Error(err))
			}
			log.Info("Read config file", zap.String("path", viper.ConfigFileUsed()))
		}
	},
}

var devMode bool
var configFile string

func init() {
	viper.SetEnvPrefix("gantry")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	persistentFlags := rootCmd.PersistentFlags()
	persistentFlags.BoolVar(&devMode, "dev", false, "Dev mode")
	persistentFlags.StringVar(&configFile, "config", "", "Config file")

	rootCmd.AddCommand(
		&enqueue.Cmd,
		&process.Cmd,
		&run.Cmd,
		&status.Cmd,
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
