package cmd

import (
	"github.com/bnema/vkshell/internal/logger"
	"github.com/bnema/vkshell/internal/vulkan"
	"github.com/spf13/cobra"
)

var (
	// Version info set by main package
	Version = "0.1.0-dev"
	Commit  string
	Date    string
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		logger.Infof("vkshell %s", Version)
		logger.Infof("commit: %s", Commit)
		logger.Infof("built: %s", Date)
		if vulkan.UninstalledLoader != "" {
			logger.Infof("uninstalled loader: %s", vulkan.UninstalledLoader)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
