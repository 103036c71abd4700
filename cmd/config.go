package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bnema/vkshell/internal/config"
	"github.com/bnema/vkshell/internal/logger"
	"github.com/bnema/vkshell/internal/ui"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage vkshell configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		out := cmd.OutOrStdout()

		fmt.Fprintln(out, ui.FormatHeader("CONFIGURATION", config.GetConfigPath()))
		for _, section := range configSections(cfg) {
			fmt.Fprintln(out, ui.SettingsTable(section.name, section.rows))
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), config.GetConfigPath())
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration file with defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.GetConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			force, _ := cmd.Flags().GetBool("force")
			if !force {
				logger.Infof("Configuration file already exists at: %s", configPath)
				logger.Info("Use --force to overwrite")
				return nil
			}
		}

		if err := config.Save(); err != nil {
			return err
		}

		logger.Infof("Configuration initialized at: %s", configPath)
		return nil
	},
}

type configSection struct {
	name string
	rows [][]string
}

func configSections(cfg *config.Config) []configSection {
	orDefault := func(v, fallback string) string {
		if v == "" {
			return fallback
		}
		return v
	}
	return []configSection{
		{"WINDOW", [][]string{
			{"title", cfg.Window.Title},
			{"app_id", orDefault(cfg.Window.AppID, "(title)")},
			{"width", strconv.Itoa(cfg.Window.Width)},
			{"height", strconv.Itoa(cfg.Window.Height)},
		}},
		{"RENDER", [][]string{
			{"animate", strconv.FormatBool(cfg.Render.Animate)},
			{"validate", strconv.FormatBool(cfg.Render.Validate)},
			{"refresh_rate", strconv.FormatFloat(cfg.Render.RefreshRate, 'g', -1, 64)},
		}},
		{"DISPLAY", [][]string{{"name", orDefault(cfg.Display.Name, "($WAYLAND_DISPLAY)")}}},
		{"LOADER", [][]string{{"path", orDefault(cfg.Loader.Path, "(system)")}}},
		{"LOGGING", [][]string{{"log_level", orDefault(cfg.Logging.LogLevel, "($LOG_LEVEL)")}}},
	}
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().Bool("force", false, "Force overwrite existing configuration")
}
