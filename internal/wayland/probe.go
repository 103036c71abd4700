package wayland

import (
	"fmt"
	"sort"

	"github.com/bnema/vkshell/internal/logger"
	"github.com/bnema/vkshell/internal/wire"
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// ProbeResult is what a compositor advertises, as seen by ListGlobals.
type ProbeResult struct {
	Globals []Global
}

// Has reports whether a global with the interface is present.
func (r ProbeResult) Has(iface string) bool {
	for _, g := range r.Globals {
		if g.Interface == iface {
			return true
		}
	}
	return false
}

// RequiredInterfaces are the globals the shell cannot open a window without.
// The seat and the decoration manager are optional.
var RequiredInterfaces = []string{CompositorInterface, WmBaseInterface}

// Missing lists the required globals the compositor lacks.
func (r ProbeResult) Missing() []string {
	var missing []string
	for _, iface := range RequiredInterfaces {
		if !r.Has(iface) {
			missing = append(missing, iface)
		}
	}
	return missing
}

// ListGlobals connects with a blocking go-wayland client, waits for one
// roundtrip and returns the announced globals sorted by name.
func ListGlobals(name string) (ProbeResult, error) {
	// go-wayland resolves only the empty name against XDG_RUNTIME_DIR.
	path, err := wire.SocketPath(name)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to resolve Wayland display: %w", err)
	}
	display, err := client.Connect(path)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to connect to Wayland display: %w", err)
	}
	// Destroy only drops the proxy; the socket belongs to the context.
	defer func() {
		if err := display.Destroy(); err != nil {
			logger.Debugf("Failed to destroy display: %v", err)
		}
		if err := display.Context().Close(); err != nil {
			logger.Debugf("Failed to close display connection: %v", err)
		}
	}()

	registry, err := display.GetRegistry()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to get registry: %w", err)
	}

	var result ProbeResult
	registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		result.Globals = append(result.Globals, Global{Name: e.Name, Interface: e.Interface, Version: e.Version})
	})

	callback, err := display.Sync()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("failed to sync: %w", err)
	}
	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})

	for !done {
		if err := display.Context().Dispatch(); err != nil {
			return ProbeResult{}, fmt.Errorf("failed to dispatch: %w", err)
		}
	}

	sort.Slice(result.Globals, func(i, j int) bool {
		return result.Globals[i].Name < result.Globals[j].Name
	})
	logger.Debugf("Compositor advertised %d globals", len(result.Globals))
	return result, nil
}
