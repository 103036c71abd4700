package cmd

import (
	"fmt"
	"strings"

	"github.com/bnema/vkshell/internal/config"
	"github.com/bnema/vkshell/internal/ui"
	"github.com/bnema/vkshell/internal/vulkan"
	"github.com/bnema/vkshell/internal/wayland"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Check the compositor and the GPU loader",
	Long: `Connect to the compositor, list the globals it advertises and check that
the ones vkshell needs are present. Then load the GPU loader and report its
instance version.`,
	RunE: runProbe,
}

// shellInterfaces are the globals the shell binds.
var shellInterfaces = map[string]bool{
	wayland.CompositorInterface:        true,
	wayland.WmBaseInterface:            true,
	wayland.DecorationManagerInterface: true,
	wayland.SeatInterface:              true,
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	result, err := wayland.ListGlobals(cfg.Display.Name)
	if err != nil {
		return fmt.Errorf("cannot reach display server: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.FormatHeader("COMPOSITOR", cfg.Display.Name))
	fmt.Fprintln(out, ui.GlobalsTable(result.Globals, func(iface string) bool { return shellInterfaces[iface] }))

	missing := result.Missing()
	for _, iface := range wayland.RequiredInterfaces {
		fmt.Fprintln(out, ui.FormatCheck(result.Has(iface), iface, ""))
	}
	if !result.Has(wayland.SeatInterface) {
		fmt.Fprintln(out, ui.FormatWarning(wayland.SeatInterface, "no input"))
	}
	if !result.Has(wayland.DecorationManagerInterface) {
		fmt.Fprintln(out, ui.FormatWarning(wayland.DecorationManagerInterface, "client-side decorations only"))
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.FormatHeader("GPU LOADER", ""))
	fmt.Fprintln(out, describeLoader(cfg.Loader.Path))

	if len(missing) > 0 {
		return fmt.Errorf("compositor lacks %s", strings.Join(missing, ", "))
	}
	return nil
}

// describeLoader loads and closes the GPU loader, returning one status line.
// A missing loader is reported, not returned: the window can still be
// probed without a driver.
func describeLoader(path string) string {
	lib, err := vulkan.Load(path)
	if err != nil {
		return ui.FormatCheck(false, "loader", err.Error())
	}
	defer lib.Close()

	version, err := lib.InstanceVersion()
	if err != nil {
		return ui.FormatCheck(true, lib.Path(), "instance version unknown: "+err.Error())
	}
	return ui.FormatCheck(true, lib.Path(), "instance version "+vulkan.VersionString(version))
}
