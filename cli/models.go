package cli

import (
	"github.com/spf13/cobra"
)

var benchMaxTokens int

func NewModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models [list|scan|select|benchmark]",
		Short: "Model catalog",
		Long:  `List, rescan, select and benchmark the models in the catalog.`,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List models",
		Long:  `List the known model records.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := gsdk.ListModels()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan models",
		Long:  `Rescan the models directory and refresh the catalog.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			page, err := gsdk.ScanModels()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, page)
		},
	}

	selectCmd := &cobra.Command{
		Use:   "select <name>",
		Short: "Select model",
		Long:  `Choose the model the next server start will load.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			m, err := gsdk.SelectModel(args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, m)
		},
	}

	benchmarkCmd := &cobra.Command{
		Use:   "benchmark <name>",
		Short: "Benchmark model",
		Long: `Run one timed completion against the running server and record
the measured throughput in the catalog.

Examples:
  # Benchmark with the default budget
  tinyllm-cli models benchmark llama-7b-Q4_0.gguf

  # Benchmark with a longer completion
  tinyllm-cli models benchmark llama-7b-Q4_0.gguf --max-tokens 256`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			result, err := gsdk.BenchmarkModel(args[0], benchMaxTokens)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, result)
		},
	}

	benchmarkCmd.Flags().IntVar(
		&benchMaxTokens,
		"max-tokens",
		0,
		"Completion budget for the benchmark, 0 uses the default",
	)

	cmd.AddCommand(listCmd)
	cmd.AddCommand(scanCmd)
	cmd.AddCommand(selectCmd)
	cmd.AddCommand(benchmarkCmd)

	return cmd
}
