package shell

import (
	"errors"

	"github.com/bnema/vkshell/internal/wayland"
)

// connectDisplay opens the connection, creates the registry and binds
// everything advertised up front with one blocking roundtrip.
func (s *Shell) connectDisplay() error {
	display, err := s.connect(s.settings.DisplayName, events{s})
	if err != nil {
		return &InitError{Stage: "cannot reach display server", Err: err}
	}
	s.display = display
	s.releases.push("wl_display", display.Disconnect)

	registry, err := display.Registry()
	if err != nil {
		return &InitError{Stage: "failed to get registry", Err: err}
	}
	s.releases.push("wl_registry", registry.Destroy)

	s.globals = newBinder(registry, s.log)
	s.releases.push("globals", s.globals.release)
	s.input = newInputRouter(s.game.OnKey, s.move)

	if err := display.Roundtrip(); err != nil {
		return &InitError{Stage: "initial roundtrip", Err: err}
	}
	if err := s.takeEventErr(); err != nil {
		return &InitError{Stage: "failed to bind globals", Err: err}
	}

	if s.globals.compositor == nil {
		return &InitError{Stage: "failed to bind compositor", Err: errors.New("wl_compositor not advertised")}
	}
	if s.globals.wmBase == nil {
		return &InitError{
			Stage: "failed to bind xdg_wm_base",
			Err:   errors.New("compositor might not support xdg-shell"),
		}
	}
	if s.globals.decorations == nil {
		s.log.Info("No decoration manager, server-side decorations disabled")
	}
	return nil
}

func (s *Shell) takeEventErr() error {
	err := s.eventErr
	s.eventErr = nil
	return err
}

// events routes everything the connection decodes into the shell.
type events struct{ s *Shell }

func (e events) OnGlobalAnnounced(g wayland.Global) {
	e.s.fail(e.s.globals.announce(g))
}

// Hot-unplug is not handled.
func (e events) OnGlobalRemoved(uint32) {}

func (e events) OnPing(serial uint32) {
	if wm := e.s.globals.wmBase; wm != nil {
		e.s.fail(wm.Pong(serial))
	}
}

// Every configure is acknowledged; sizing is left to the game.
func (e events) OnSurfaceConfigure(serial uint32) {
	if w := e.s.win; w != nil && w.xdgSurface != nil {
		e.s.fail(w.xdgSurface.AckConfigure(serial))
	}
}

func (e events) OnToplevelConfigure(c wayland.ToplevelConfigure) {
	e.s.log.Debug("toplevel configure", "width", c.Width, "height", c.Height, "states", c.States)
}

// OnClose only raises the quit flag; the loop stops on its next iteration and
// teardown happens in Close.
func (e events) OnClose() {
	e.s.Quit()
}

func (e events) OnSeatCapabilities(caps wayland.SeatCapability) {
	e.s.fail(e.s.input.setCapabilities(e.s.globals.seat, caps))
}

func (e events) OnPointerEvent(ev wayland.PointerEvent) {
	e.s.fail(e.s.input.pointerEvent(ev))
}

func (e events) OnKeyEvent(ev wayland.KeyEvent) {
	e.s.input.keyEvent(ev)
}
