package cli

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/pelletier/go-toml"
	"github.com/spf13/cobra"

	"github.com/daverage/TinyLLM/governor"
)

const (
	settingsName   = "settings.toml"
	dirPermission  = 0o755
	filePermission = 0o644
)

var (
	initDataDir   string
	initModelsDir string
	initBinary    string
	initAggr      string
	initReduce    bool
)

// NewInitCmd builds the interactive first-run setup. It creates the data
// and models directories and writes an initial settings file the daemon
// will pick up on its next start.
func NewInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize TinyLLM",
		Long:  `Create the data directory and an initial settings file interactively.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 0 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			home, err := os.UserHomeDir()
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			initDataDir = filepath.Join(home, ".tinyllm")
			initModelsDir = filepath.Join(initDataDir, "models")
			initBinary = "llama-server"
			initAggr = string(governor.AggressivenessBalanced)
			initReduce = true

			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Data directory").
						Description("Settings, logs and the model index live here").
						Value(&initDataDir),
					huh.NewInput().
						Title("Models directory").
						Description("Directory scanned for GGUF model files").
						Value(&initModelsDir),
					huh.NewInput().
						Title("Inference server binary").
						Description("Name or absolute path of the llama-server binary").
						Value(&initBinary),
					huh.NewSelect[string]().
						Title("GPU aggressiveness").
						Options(huh.NewOptions(
							string(governor.AggressivenessLow),
							string(governor.AggressivenessBalanced),
							string(governor.AggressivenessHigh),
							string(governor.AggressivenessMax),
						)...).
						Value(&initAggr),
					huh.NewConfirm().
						Title("Reduce context automatically under memory pressure?").
						Value(&initReduce),
				),
			)
			if err := form.Run(); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			settingsPath := filepath.Join(initDataDir, settingsName)
			if _, err := os.Stat(settingsPath); err == nil {
				overwrite := false
				confirm := huh.NewForm(huh.NewGroup(
					huh.NewConfirm().
						Title("Settings file exists, overwrite it?").
						Value(&overwrite),
				))
				if err := confirm.Run(); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
				if !overwrite {
					logSuccessCmd(*cmd, "Kept existing settings")

					return
				}
			}

			for _, dir := range []string{initDataDir, initModelsDir} {
				if err := os.MkdirAll(dir, dirPermission); err != nil {
					logErrorCmd(*cmd, err)

					return
				}
			}

			cfg := governor.DefaultConfig()
			cfg.GPUAggressiveness = governor.Aggressiveness(initAggr)
			cfg.AutoReduce = initReduce

			st := governor.Settings{
				ModelsDir:    initModelsDir,
				ServerBinary: initBinary,
				LogDir:       initDataDir,
				Config:       cfg,
			}

			data, err := toml.Marshal(st)
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}
			if err := os.WriteFile(settingsPath, data, filePermission); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			logSuccessCmd(*cmd, "Wrote "+settingsPath)
			logJSONCmd(*cmd, st)
		},
	}
}
