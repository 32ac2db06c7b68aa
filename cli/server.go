package cli

import (
	"github.com/spf13/cobra"
)

var serverCmd = []cobra.Command{
	{
		Use:   "status",
		Short: "Server status",
		Long:  `Show health, memory pressure and the latest metrics snapshot.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			s, err := gsdk.GetStatus()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	},
	{
		Use:   "start",
		Short: "Start server",
		Long:  `Start the inference server with the selected model.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			s, err := gsdk.StartServer()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	},
	{
		Use:   "stop",
		Short: "Stop server",
		Long:  `Stop the inference server.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			s, err := gsdk.StopServer()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	},
	{
		Use:   "restart",
		Short: "Restart server",
		Long:  `Stop the inference server and start it again with the current configuration.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			s, err := gsdk.RestartServer()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, s)
		},
	},
}

func NewServerCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "server [status|start|stop|restart]",
		Short: "Inference server control",
		Long:  `Check, start, stop and restart the governed inference server.`,
	}

	for i := range serverCmd {
		cmd.AddCommand(&serverCmd[i])
	}

	return &cmd
}
