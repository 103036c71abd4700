package shell

import (
	"errors"
	"fmt"

	"github.com/bnema/vkshell/internal/wayland"
	"github.com/charmbracelet/log"
)

// window is the surface with its xdg roles. Each object is pushed on the
// release stack right after it is created, so release tears the window down
// in exactly the reverse order.
type window struct {
	surface    wayland.Surface
	xdgSurface wayland.XdgSurface
	toplevel   wayland.Toplevel
	decoration wayland.ToplevelDecoration

	releases releaseStack
}

// createWindow builds the window. A failed step leaves the objects created
// so far to Close; nothing is retried.
func (s *Shell) createWindow() error {
	if s.win != nil {
		return &InitError{Stage: "create window", Err: errors.New("window already exists")}
	}
	s.win = &window{}
	if err := s.win.build(s.globals, s.settings, s.log); err != nil {
		return &InitError{Stage: "create window", Err: err}
	}
	s.bridge = NewSurfaceBridge(s.wsi, s.display, s.win.surface)
	return nil
}

func (w *window) build(g *binder, settings Settings, l *log.Logger) error {
	if g.compositor == nil || g.wmBase == nil {
		return errors.New("required globals are not bound")
	}

	surface, err := g.compositor.CreateSurface()
	if err != nil {
		return fmt.Errorf("failed to create surface: %w", err)
	}
	w.surface = surface
	w.releases.push("wl_surface", surface.Destroy)

	xdgSurface, err := g.wmBase.GetXdgSurface(surface)
	if err != nil {
		return fmt.Errorf("failed to create xdg_surface: %w", err)
	}
	w.xdgSurface = xdgSurface
	w.releases.push("xdg_surface", xdgSurface.Destroy)

	toplevel, err := xdgSurface.GetToplevel()
	if err != nil {
		return fmt.Errorf("failed to create xdg_toplevel: %w", err)
	}
	w.toplevel = toplevel
	w.releases.push("xdg_toplevel", toplevel.Destroy)

	if g.decorations != nil {
		w.negotiateDecoration(g.decorations, l)
	}

	if err := toplevel.SetTitle(settings.Title); err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	appID := settings.AppID
	if appID == "" {
		appID = settings.Title
	}
	if err := toplevel.SetAppID(appID); err != nil {
		return fmt.Errorf("failed to set app id: %w", err)
	}

	// The first commit makes the compositor send the initial configure.
	if err := surface.Commit(); err != nil {
		return fmt.Errorf("failed to commit surface: %w", err)
	}
	return nil
}

// negotiateDecoration asks for server-side decorations. Failure only costs
// window chrome.
func (w *window) negotiateDecoration(m wayland.DecorationManager, l *log.Logger) {
	decoration, err := m.GetToplevelDecoration(w.toplevel)
	if err != nil {
		l.Warn("Server-side decorations unavailable", "err", err)
		return
	}
	w.decoration = decoration
	w.releases.push("zxdg_toplevel_decoration_v1", decoration.Destroy)

	if err := decoration.SetMode(wayland.DecorationModeServerSide); err != nil {
		l.Warn("Failed to request server-side decorations", "err", err)
	}
}

func (w *window) release() error {
	err := w.releases.release()
	w.decoration = nil
	w.toplevel = nil
	w.xdgSurface = nil
	w.surface = nil
	return err
}
