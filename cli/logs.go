package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var errUnknownLog = errors.New("unknown log name, expected host or server")

var logsCmd = []cobra.Command{
	{
		Use:   "host",
		Short: "Host log",
		Long:  `Print the tail of the governor's own event log.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			tail, err := gsdk.HostLog()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logRawCmd(*cmd, tail)
		},
	},
	{
		Use:   "server",
		Short: "Server log",
		Long:  `Print the tail of the inference server's output.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			tail, err := gsdk.ServerLog()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logRawCmd(*cmd, tail)
		},
	},
	{
		Use:   "clear <host|server>",
		Short: "Clear log",
		Long:  `Truncate the host or server log.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			var err error
			switch args[0] {
			case "host":
				err = gsdk.ClearHostLog()
			case "server":
				err = gsdk.ClearServerLog()
			default:
				err = errUnknownLog
			}
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logOKCmd(*cmd)
		},
	},
}

func NewLogsCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "logs [host|server|clear]",
		Short: "Governed logs",
		Long:  `Read and clear the host and inference server logs.`,
	}

	for i := range logsCmd {
		cmd.AddCommand(&logsCmd[i])
	}

	return &cmd
}
