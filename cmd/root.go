package cmd

import (
	"github.com/bnema/vkshell/internal/config"
	"github.com/bnema/vkshell/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "vkshell",
		Short: "vkshell - Wayland window shell for a Vulkan renderer",
		Long: `vkshell opens an xdg-shell toplevel window on a Wayland compositor and
drives a rendering backend from its presentation loop.

Keys: Escape quits, Up and Down change the spinner speed, Space pauses.
Drag the window with the primary button to move it.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: initConfig,
		RunE:              runShell,
	}
)

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s\n" .Version}}`)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $XDG_CONFIG_HOME/vkshell/vkshell.toml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("display", "", "Wayland display name (default $WAYLAND_DISPLAY)")
	rootCmd.PersistentFlags().String("loader", "", "GPU loader library tried before the system one")

	flags := rootCmd.Flags()
	flags.String("title", "", "Window title")
	flags.String("app-id", "", "Application id (default: the title)")
	flags.Int("width", 0, "Initial window width")
	flags.Int("height", 0, "Initial window height")
	flags.Bool("animate", false, "Present continuously and feed frame time to the game")
	flags.Bool("validate", false, "Request the validation layer")
	flags.Float64("refresh-rate", 0, "Present rate of the null backend in Hz (0 for unpaced)")

	// Bind flags to viper
	viper.BindPFlag("logging.log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("display.name", rootCmd.PersistentFlags().Lookup("display"))
	viper.BindPFlag("loader.path", rootCmd.PersistentFlags().Lookup("loader"))
	viper.BindPFlag("window.title", flags.Lookup("title"))
	viper.BindPFlag("window.app_id", flags.Lookup("app-id"))
	viper.BindPFlag("window.width", flags.Lookup("width"))
	viper.BindPFlag("window.height", flags.Lookup("height"))
	viper.BindPFlag("render.animate", flags.Lookup("animate"))
	viper.BindPFlag("render.validate", flags.Lookup("validate"))
	viper.BindPFlag("render.refresh_rate", flags.Lookup("refresh-rate"))

	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(injectCmd)
	rootCmd.AddCommand(configCmd)
}

// initConfig loads the configuration once flags are parsed and applies the
// configured log level.
func initConfig(cmd *cobra.Command, args []string) error {
	if cfgFile != "" {
		config.SetConfigPath(cfgFile)
	}
	if err := config.Init(); err != nil {
		return err
	}
	logger.SetLevel(config.Get().Logging.LogLevel)
	return nil
}
