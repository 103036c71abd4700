package wayland

import (
	"encoding/binary"
	"fmt"

	"github.com/bnema/vkshell/internal/wire"
	"golang.org/x/sys/unix"
)

// Request and event opcodes, in protocol XML order.
const (
	registryBind = 0

	registryEventGlobal       = 0
	registryEventGlobalRemove = 1

	compositorCreateSurface = 0

	surfaceDestroy = 0
	surfaceCommit  = 6

	wmBaseDestroy       = 0
	wmBaseGetXdgSurface = 2
	wmBasePong          = 3
	wmBaseEventPing     = 0

	xdgSurfaceDestroy        = 0
	xdgSurfaceGetToplevel    = 1
	xdgSurfaceAckConfigure   = 4
	xdgSurfaceEventConfigure = 0

	toplevelDestroy        = 0
	toplevelSetTitle       = 2
	toplevelSetAppID       = 3
	toplevelMove           = 5
	toplevelEventConfigure = 0
	toplevelEventClose     = 1

	decorationManagerDestroy               = 0
	decorationManagerGetToplevelDecoration = 1

	decorationDestroy = 0
	decorationSetMode = 1

	seatGetPointer           = 0
	seatGetKeyboard          = 1
	seatRelease              = 3
	seatEventCapabilities    = 0
	seatReleaseSinceVersion  = 5
	inputReleaseSinceVersion = 3

	pointerRelease = 1

	keyboardRelease     = 0
	keyboardEventKeymap = 0
)

type registry struct{ proxy }

func (r *registry) dispatch(m *wire.Message) error {
	switch m.Opcode {
	case registryEventGlobal:
		g := Global{Name: m.Uint(), Interface: m.Str(), Version: m.Uint()}
		if err := m.Err(); err != nil {
			return err
		}
		r.c.sink.OnGlobalAnnounced(g)
	case registryEventGlobalRemove:
		name := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		r.c.sink.OnGlobalRemoved(name)
	}
	return nil
}

func (r *registry) bind(g Global, want string, p proxy, d dispatcher) error {
	if g.Interface != want {
		return fmt.Errorf("global %d is %s, not %s", g.Name, g.Interface, want)
	}
	m := r.request(registryBind)
	m.PutUint(g.Name)
	m.PutString(g.Interface)
	m.PutUint(p.version)
	m.PutNewID(p.id)
	if err := r.c.create(p.id, d, m); err != nil {
		return fmt.Errorf("failed to bind %s: %w", want, err)
	}
	return nil
}

func (r *registry) BindCompositor(g Global) (Compositor, error) {
	o := &compositor{proxy: r.c.newProxy(min(g.Version, CompositorVersion))}
	if err := r.bind(g, CompositorInterface, o.proxy, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *registry) BindWmBase(g Global) (WmBase, error) {
	o := &wmBase{proxy: r.c.newProxy(min(g.Version, WmBaseVersion))}
	if err := r.bind(g, WmBaseInterface, o.proxy, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *registry) BindDecorationManager(g Global) (DecorationManager, error) {
	o := &decorationManager{proxy: r.c.newProxy(min(g.Version, DecorationManagerVersion))}
	if err := r.bind(g, DecorationManagerInterface, o.proxy, o); err != nil {
		return nil, err
	}
	return o, nil
}

func (r *registry) BindSeat(g Global) (Seat, error) {
	o := &seat{proxy: r.c.newProxy(min(g.Version, SeatVersion))}
	if err := r.bind(g, SeatInterface, o.proxy, o); err != nil {
		return nil, err
	}
	return o, nil
}

// Destroy is local only; wl_registry has no destructor request.
func (r *registry) Destroy() error {
	r.c.forget(r.id, nil)
	return nil
}

type compositor struct{ proxy }

func (*compositor) dispatch(*wire.Message) error { return nil }

func (co *compositor) CreateSurface() (Surface, error) {
	s := &surface{proxy: co.c.newProxy(co.version)}
	m := co.request(compositorCreateSurface)
	m.PutNewID(s.id)
	if err := co.c.create(s.id, s, m); err != nil {
		return nil, fmt.Errorf("failed to create surface: %w", err)
	}
	return s, nil
}

// Destroy is local only; wl_compositor has no destructor request.
func (co *compositor) Destroy() error {
	co.c.forget(co.id, nil)
	return nil
}

type surface struct{ proxy }

// enter, leave and the v6 scale hints are not used
func (*surface) dispatch(*wire.Message) error { return nil }

func (s *surface) Commit() error {
	return s.c.send(s.request(surfaceCommit))
}

func (s *surface) Destroy() error {
	return s.destructor(surfaceDestroy, nil)
}

type wmBase struct{ proxy }

func (w *wmBase) dispatch(m *wire.Message) error {
	if m.Opcode == wmBaseEventPing {
		serial := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		w.c.sink.OnPing(serial)
	}
	return nil
}

func (w *wmBase) GetXdgSurface(s Surface) (XdgSurface, error) {
	x := &xdgSurface{proxy: w.c.newProxy(w.version)}
	m := w.request(wmBaseGetXdgSurface)
	m.PutNewID(x.id)
	m.PutObject(s.ID())
	if err := w.c.create(x.id, x, m); err != nil {
		return nil, fmt.Errorf("failed to create xdg surface: %w", err)
	}
	return x, nil
}

func (w *wmBase) Pong(serial uint32) error {
	m := w.request(wmBasePong)
	m.PutUint(serial)
	return w.c.send(m)
}

func (w *wmBase) Destroy() error {
	return w.destructor(wmBaseDestroy, nil)
}

type xdgSurface struct{ proxy }

func (x *xdgSurface) dispatch(m *wire.Message) error {
	if m.Opcode == xdgSurfaceEventConfigure {
		serial := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		x.c.sink.OnSurfaceConfigure(serial)
	}
	return nil
}

func (x *xdgSurface) GetToplevel() (Toplevel, error) {
	t := &toplevel{proxy: x.c.newProxy(x.version)}
	m := x.request(xdgSurfaceGetToplevel)
	m.PutNewID(t.id)
	if err := x.c.create(t.id, t, m); err != nil {
		return nil, fmt.Errorf("failed to create toplevel: %w", err)
	}
	return t, nil
}

func (x *xdgSurface) AckConfigure(serial uint32) error {
	m := x.request(xdgSurfaceAckConfigure)
	m.PutUint(serial)
	return x.c.send(m)
}

func (x *xdgSurface) Destroy() error {
	return x.destructor(xdgSurfaceDestroy, nil)
}

type toplevel struct{ proxy }

func (t *toplevel) dispatch(m *wire.Message) error {
	switch m.Opcode {
	case toplevelEventConfigure:
		c := ToplevelConfigure{Width: m.Int(), Height: m.Int()}
		states := m.Array()
		if err := m.Err(); err != nil {
			return err
		}
		for i := 0; i+4 <= len(states); i += 4 {
			c.States = append(c.States, nativeUint32(states[i:i+4]))
		}
		t.c.sink.OnToplevelConfigure(c)
	case toplevelEventClose:
		t.c.sink.OnClose()
	}
	return nil
}

func (t *toplevel) SetTitle(title string) error {
	m := t.request(toplevelSetTitle)
	m.PutString(title)
	return t.c.send(m)
}

func (t *toplevel) SetAppID(id string) error {
	m := t.request(toplevelSetAppID)
	m.PutString(id)
	return t.c.send(m)
}

func (t *toplevel) Move(s Seat, serial uint32) error {
	m := t.request(toplevelMove)
	m.PutObject(s.ID())
	m.PutUint(serial)
	return t.c.send(m)
}

func (t *toplevel) Destroy() error {
	return t.destructor(toplevelDestroy, nil)
}

type decorationManager struct{ proxy }

func (*decorationManager) dispatch(*wire.Message) error { return nil }

func (d *decorationManager) GetToplevelDecoration(t Toplevel) (ToplevelDecoration, error) {
	td := &toplevelDecoration{proxy: d.c.newProxy(d.version)}
	m := d.request(decorationManagerGetToplevelDecoration)
	m.PutNewID(td.id)
	m.PutObject(t.ID())
	if err := d.c.create(td.id, td, m); err != nil {
		return nil, fmt.Errorf("failed to create toplevel decoration: %w", err)
	}
	return td, nil
}

func (d *decorationManager) Destroy() error {
	return d.destructor(decorationManagerDestroy, nil)
}

type toplevelDecoration struct{ proxy }

// The compositor's chosen mode is not acted upon.
func (*toplevelDecoration) dispatch(*wire.Message) error { return nil }

func (d *toplevelDecoration) SetMode(mode DecorationMode) error {
	m := d.request(decorationSetMode)
	m.PutUint(uint32(mode))
	return d.c.send(m)
}

func (d *toplevelDecoration) Destroy() error {
	return d.destructor(decorationDestroy, nil)
}

type seat struct{ proxy }

func (s *seat) dispatch(m *wire.Message) error {
	if m.Opcode == seatEventCapabilities {
		caps := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		s.c.sink.OnSeatCapabilities(SeatCapability(caps))
	}
	return nil
}

func (s *seat) GetPointer() (Pointer, error) {
	p := &pointer{proxy: s.c.newProxy(s.version)}
	m := s.request(seatGetPointer)
	m.PutNewID(p.id)
	if err := s.c.create(p.id, p, m); err != nil {
		return nil, fmt.Errorf("failed to get pointer: %w", err)
	}
	return p, nil
}

func (s *seat) GetKeyboard() (Keyboard, error) {
	k := &keyboard{proxy: s.c.newProxy(s.version)}
	m := s.request(seatGetKeyboard)
	m.PutNewID(k.id)
	if err := s.c.create(k.id, k, m); err != nil {
		return nil, fmt.Errorf("failed to get keyboard: %w", err)
	}
	return k, nil
}

// Release sends wl_seat.release when the bound version has it and otherwise
// only drops the object locally.
func (s *seat) Release() error {
	if s.version < seatReleaseSinceVersion {
		s.c.forget(s.id, nil)
		return nil
	}
	return s.destructor(seatRelease, nil)
}

type pointer struct{ proxy }

func (p *pointer) dispatch(m *wire.Message) error {
	var e PointerEvent
	switch m.Opcode {
	case 0:
		e = PointerEvent{Kind: PointerEnter, Serial: m.Uint()}
		m.Object()
		e.X, e.Y = m.Fixed(), m.Fixed()
	case 1:
		e = PointerEvent{Kind: PointerLeave, Serial: m.Uint()}
		m.Object()
	case 2:
		e = PointerEvent{Kind: PointerMotion, Time: m.Uint(), X: m.Fixed(), Y: m.Fixed()}
	case 3:
		e = PointerEvent{Kind: PointerButton, Serial: m.Uint(), Time: m.Uint(), Button: m.Uint(), State: ButtonState(m.Uint())}
	case 4:
		e = PointerEvent{Kind: PointerAxis, Time: m.Uint(), Axis: m.Uint(), Value: m.Fixed()}
	case 5:
		e = PointerEvent{Kind: PointerFrame}
	default:
		e = PointerEvent{Kind: PointerOther}
	}
	if err := m.Err(); err != nil {
		return err
	}
	p.c.sink.OnPointerEvent(e)
	return nil
}

func (p *pointer) Release() error {
	if p.version < inputReleaseSinceVersion {
		p.c.forget(p.id, nil)
		return nil
	}
	return p.destructor(pointerRelease, nil)
}

type keyboard struct{ proxy }

func keyboardFDs(opcode uint16) int {
	if opcode == keyboardEventKeymap {
		return 1
	}
	return 0
}

func (k *keyboard) dispatch(m *wire.Message) error {
	var e KeyEvent
	switch m.Opcode {
	case keyboardEventKeymap:
		m.Uint()
		fd := m.FD()
		m.Uint()
		// Keys are mapped from raw scancodes, the keymap itself is unused.
		if fd >= 0 {
			_ = unix.Close(fd)
		}
		e = KeyEvent{Kind: KeyboardKeymap}
	case 1:
		e = KeyEvent{Kind: KeyboardEnter, Serial: m.Uint()}
		m.Object()
		m.Array()
	case 2:
		e = KeyEvent{Kind: KeyboardLeave, Serial: m.Uint()}
		m.Object()
	case 3:
		e = KeyEvent{Kind: KeyboardKey, Serial: m.Uint(), Time: m.Uint(), Key: m.Uint(), State: KeyState(m.Uint())}
	case 4:
		e = KeyEvent{Kind: KeyboardModifiers, Serial: m.Uint()}
	case 5:
		e = KeyEvent{Kind: KeyboardRepeatInfo}
	default:
		e = KeyEvent{Kind: KeyboardOther}
	}
	if err := m.Err(); err != nil {
		return err
	}
	k.c.sink.OnKeyEvent(e)
	return nil
}

func (k *keyboard) Release() error {
	if k.version < inputReleaseSinceVersion {
		k.c.forget(k.id, keyboardFDs)
		return nil
	}
	return k.destructor(keyboardRelease, keyboardFDs)
}

func nativeUint32(b []byte) uint32 {
	return binary.NativeEndian.Uint32(b)
}
