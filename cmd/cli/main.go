package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/daverage/TinyLLM/cli"
	"github.com/daverage/TinyLLM/pkg/sdk"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "tinyllm-cli",
		Short: "TinyLLM CLI",
		Long:  `TinyLLM CLI is a command line interface for the TinyLLM runtime governor.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			sdkConf := sdk.Config{
				GovernorURL:     cli.DefGovernorURL,
				TLSVerification: cli.DefTLSVerification,
			}
			s := sdk.NewSDK(sdkConf)
			cli.SetSDK(s)
		},
	}

	serverCmd := cli.NewServerCmd()
	configCmd := cli.NewConfigCmd()
	modelsCmd := cli.NewModelsCmd()
	logsCmd := cli.NewLogsCmd()
	initCmd := cli.NewInitCmd()

	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(logsCmd)
	rootCmd.AddCommand(initCmd)

	rootCmd.PersistentFlags().StringVarP(
		&cli.DefGovernorURL,
		"governor-url",
		"g",
		cli.DefGovernorURL,
		"Governor URL",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&cli.DefTLSVerification,
		"tls-verification",
		"v",
		cli.DefTLSVerification,
		"TLS Verification",
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
