package cli

import (
	"github.com/spf13/cobra"

	"github.com/daverage/TinyLLM/pkg/sdk"
)

var (
	contextSize    int
	batchSize      int
	gpuLayers      int
	threads        int
	temperature    float64
	topP           float64
	cacheTypeK     string
	cacheTypeV     string
	flashAttention bool
	aggressiveness string
	ropeFreqScale  float64
	extraArgs      string
	manualOverride bool
	autoApply      bool
	autoReduce     bool
	autoSwitch     bool
	autoThrottle   bool
)

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config [view|set|recommend]",
		Short: "Runtime configuration",
		Long:  `View and change the inference server's runtime configuration.`,
	}

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "View config",
		Long:  `Show the live runtime configuration.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			cfg, err := gsdk.GetConfig()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, cfg)
		},
	}

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Set config",
		Long: `Change runtime configuration fields. Only flags given on the
command line are sent; everything else keeps its current value.

Examples:
  # Raise the context window
  tinyllm-cli config set --context-size 16384

  # Pin the context size against planner clamping
  tinyllm-cli config set --context-size 65536 --manual-context-override

  # Enable every memory safeguard
  tinyllm-cli config set --auto-reduce --auto-switch --auto-throttle`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			cfg, err := gsdk.GetConfig()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			applyConfigFlags(cmd, &cfg)

			cfg, err = gsdk.UpdateConfig(cfg)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, cfg)
		},
	}

	setCmd.Flags().IntVar(&contextSize, "context-size", 0, "Context window in tokens")
	setCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Prompt batch size")
	setCmd.Flags().IntVar(&gpuLayers, "gpu-layers", 0, "Layers offloaded to the accelerator")
	setCmd.Flags().IntVar(&threads, "threads", 0, "CPU threads")
	setCmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	setCmd.Flags().Float64Var(&topP, "top-p", 0, "Nucleus sampling threshold")
	setCmd.Flags().StringVar(&cacheTypeK, "cache-type-k", "", "KV cache key quantization")
	setCmd.Flags().StringVar(&cacheTypeV, "cache-type-v", "", "KV cache value quantization")
	setCmd.Flags().BoolVar(&flashAttention, "flash-attention", false, "Enable flash attention when the binary supports it")
	setCmd.Flags().StringVar(&aggressiveness, "gpu-aggressiveness", "", "GPU offload aggressiveness: low, balanced, high or max")
	setCmd.Flags().Float64Var(&ropeFreqScale, "rope-freq-scale", 0, "RoPE frequency scale")
	setCmd.Flags().StringVar(&extraArgs, "extra-args", "", "Extra flags passed to the server verbatim")
	setCmd.Flags().BoolVar(&manualOverride, "manual-context-override", false, "Keep the configured context size even above the planner ceiling")
	setCmd.Flags().BoolVar(&autoApply, "auto-apply", false, "Fold planner recommendations into the configuration")
	setCmd.Flags().BoolVar(&autoReduce, "auto-reduce", false, "Reduce context and batch under sustained memory pressure")
	setCmd.Flags().BoolVar(&autoSwitch, "auto-switch", false, "Switch to a faster sibling model under sustained memory pressure")
	setCmd.Flags().BoolVar(&autoThrottle, "auto-throttle", false, "Stop the server under sustained memory pressure")

	recommendCmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommend launch plan",
		Long:  `Compute launch parameters for the selected model and host without applying them.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			plan, err := gsdk.Recommend()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			logJSONCmd(*cmd, plan)
		},
	}

	cmd.AddCommand(viewCmd)
	cmd.AddCommand(setCmd)
	cmd.AddCommand(recommendCmd)

	return cmd
}

func applyConfigFlags(cmd *cobra.Command, cfg *sdk.RuntimeConfig) {
	if cmd.Flags().Changed("context-size") {
		cfg.ContextSize = contextSize
	}
	if cmd.Flags().Changed("batch-size") {
		cfg.BatchSize = batchSize
	}
	if cmd.Flags().Changed("gpu-layers") {
		cfg.GPULayers = gpuLayers
	}
	if cmd.Flags().Changed("threads") {
		cfg.Threads = threads
	}
	if cmd.Flags().Changed("temperature") {
		cfg.Temperature = temperature
	}
	if cmd.Flags().Changed("top-p") {
		cfg.TopP = topP
	}
	if cmd.Flags().Changed("cache-type-k") {
		cfg.CacheTypeK = cacheTypeK
	}
	if cmd.Flags().Changed("cache-type-v") {
		cfg.CacheTypeV = cacheTypeV
	}
	if cmd.Flags().Changed("flash-attention") {
		cfg.FlashAttention = flashAttention
	}
	if cmd.Flags().Changed("gpu-aggressiveness") {
		cfg.GPUAggressiveness = aggressiveness
	}
	if cmd.Flags().Changed("rope-freq-scale") {
		cfg.RopeFreqScale = ropeFreqScale
	}
	if cmd.Flags().Changed("extra-args") {
		cfg.ExtraArgs = extraArgs
	}
	if cmd.Flags().Changed("manual-context-override") {
		cfg.ManualContextOverride = manualOverride
	}
	if cmd.Flags().Changed("auto-apply") {
		cfg.AutoApply = autoApply
	}
	if cmd.Flags().Changed("auto-reduce") {
		cfg.AutoReduce = autoReduce
	}
	if cmd.Flags().Changed("auto-switch") {
		cfg.AutoSwitch = autoSwitch
	}
	if cmd.Flags().Changed("auto-throttle") {
		cfg.AutoThrottle = autoThrottle
	}
}
