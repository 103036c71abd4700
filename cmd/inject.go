package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/ThomasT75/uinput"
	"github.com/bnema/vkshell/internal/logger"
	"github.com/bnema/vkshell/internal/wayland"
	"github.com/spf13/cobra"
)

var (
	injectDevice string
	injectDelay  time.Duration
	injectSettle time.Duration
)

var injectCmd = &cobra.Command{
	Use:   "inject <key>...",
	Short: "Tap keys through a virtual keyboard",
	Long: `Create a uinput virtual keyboard and tap the given keys, so a running
vkshell window can be driven without a physical keyboard. The window must
have keyboard focus.

Keys: escape, up, down, space. Requires write access to /dev/uinput.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInject,
}

func init() {
	injectCmd.Flags().StringVar(&injectDevice, "device", "/dev/uinput", "uinput device path")
	injectCmd.Flags().DurationVar(&injectDelay, "delay", 50*time.Millisecond, "Pause between taps")
	injectCmd.Flags().DurationVar(&injectSettle, "settle", 500*time.Millisecond, "Wait for the compositor to pick up the new device")
}

// injectKeys maps key names to evdev codes.
var injectKeys = map[string]int{
	"escape": uinput.KeyEsc,
	"esc":    uinput.KeyEsc,
	"up":     uinput.KeyUp,
	"down":   uinput.KeyDown,
	"space":  uinput.KeySpace,
}

func parseKeys(names []string) ([]int, error) {
	codes := make([]int, 0, len(names))
	for _, name := range names {
		code, ok := injectKeys[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown key %q (must be escape, up, down or space)", name)
		}
		codes = append(codes, code)
	}
	return codes, nil
}

func runInject(cmd *cobra.Command, args []string) error {
	codes, err := parseKeys(args)
	if err != nil {
		return err
	}

	injector, err := wayland.NewKeyInjector(injectDevice, injectDelay)
	if err != nil {
		return err
	}
	defer func() {
		if err := injector.Close(); err != nil {
			logger.Warnf("Failed to close virtual keyboard: %v", err)
		}
	}()

	time.Sleep(injectSettle)
	if err := injector.Tap(codes...); err != nil {
		return err
	}
	logger.Infof("Tapped %d key(s)", len(codes))
	return nil
}
