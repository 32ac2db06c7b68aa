package tinyllmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/daverage/TinyLLM/daemon"
	"github.com/daverage/TinyLLM/pkg/server"
)

var (
	logLevel     string
	dataDir      string
	modelsDir    string
	serverBinary string
	httpPort     string
	mqttAddress  string
)

var governorCmd = []cobra.Command{
	{
		Use:   "start",
		Short: "Start governor",
		Long:  `Start the runtime governor daemon.`,
		Run: func(cmd *cobra.Command, _ []string) {
			cfg := daemon.Config{
				LogLevel:     logLevel,
				DataDir:      dataDir,
				ModelsDir:    modelsDir,
				ServerBinary: serverBinary,
				MQTTAddress:  mqttAddress,
				Server: server.Config{
					Port: httpPort,
				},
			}
			ctx, cancel := context.WithCancel(cmd.Context())
			if err := daemon.Start(ctx, cancel, cfg); err != nil {
				cmd.PrintErrf("failed to start governor: %s", err.Error())
			}
			cancel()
		},
	},
}

func NewGovernorCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "governor [start]",
		Short: "Governor management",
		Long:  `Run the TinyLLM runtime governor.`,
	}

	for i := range governorCmd {
		cmd.AddCommand(&governorCmd[i])
	}

	cmd.PersistentFlags().StringVarP(
		&logLevel,
		"log-level",
		"l",
		"info",
		"Log level",
	)

	cmd.PersistentFlags().StringVarP(
		&dataDir,
		"data-dir",
		"d",
		"",
		"Data directory for settings, logs and the model index",
	)

	cmd.PersistentFlags().StringVarP(
		&modelsDir,
		"models-dir",
		"m",
		"",
		"Directory scanned for GGUF models",
	)

	cmd.PersistentFlags().StringVarP(
		&serverBinary,
		"server-binary",
		"b",
		"llama-server",
		"Inference server binary",
	)

	cmd.PersistentFlags().StringVarP(
		&httpPort,
		"port",
		"p",
		"9090",
		"HTTP API port",
	)

	cmd.PersistentFlags().StringVarP(
		&mqttAddress,
		"mqtt-address",
		"q",
		"",
		"MQTT broker address, telemetry disabled when empty",
	)

	return &cmd
}
