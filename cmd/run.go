package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bnema/vkshell/internal/backend"
	"github.com/bnema/vkshell/internal/config"
	"github.com/bnema/vkshell/internal/game"
	"github.com/bnema/vkshell/internal/logger"
	"github.com/bnema/vkshell/internal/shell"
	"github.com/bnema/vkshell/internal/ui"
	"github.com/spf13/cobra"
)

// settingsFromConfig maps the configuration onto what the shell reads from
// the game.
func settingsFromConfig(cfg *config.Config) shell.Settings {
	return shell.Settings{
		Title:       cfg.Window.Title,
		AppID:       cfg.Window.AppIDOrTitle(),
		Width:       cfg.Window.Width,
		Height:      cfg.Window.Height,
		Animate:     cfg.Render.Animate,
		Validate:    cfg.Render.Validate,
		DisplayName: cfg.Display.Name,
		LoaderPath:  cfg.Loader.Path,
	}
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	settings := settingsFromConfig(cfg)

	spinner := game.NewSpinner(settings, logger.Component("game"))
	null := backend.NewNull(cfg.Render.RefreshRate, logger.Component("backend"))

	sh, err := shell.New(spinner, null, shell.WithWSI(null))
	if err != nil {
		return err
	}
	defer func() {
		if err := sh.Close(); err != nil {
			logger.Warn("Teardown incomplete", "err", err)
		}
	}()
	spinner.Attach(sh)

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("Signal received, quitting", "signal", sig)
			sh.Quit()
		case <-done:
		}
	}()

	fmt.Println(ui.FormatHeader(settings.Title, fmt.Sprintf("%dx%d", settings.Width, settings.Height)))
	fmt.Println(ui.FormatControl("Escape", "Quit"))
	fmt.Println(ui.FormatControl("Up/Down", "Change spinner speed"))
	fmt.Println(ui.FormatControl("Space", "Pause"))

	if err := sh.Run(); err != nil {
		return err
	}
	logger.Info("Spinner stopped", "game_time", spinner.Elapsed(), "angle", spinner.Angle())
	return nil
}
