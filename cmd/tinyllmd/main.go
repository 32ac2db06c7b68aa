package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/daverage/TinyLLM/tinyllmd"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tinyllmd",
		Short: "TinyLLM Daemon",
		Long:  `TinyLLM Daemon supervises a local inference server and governs its runtime configuration.`,
	}

	governorCmd := tinyllmd.NewGovernorCmd()

	rootCmd.AddCommand(governorCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
