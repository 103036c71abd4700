// Package wltest provides an in-memory compositor that implements the
// wayland proxy interfaces. Tests script globals and events, inject request
// failures and inspect the request log and object lifetimes.
package wltest

import (
	"fmt"

	"github.com/bnema/vkshell/internal/wayland"
)

// Request is one call made on a fake proxy.
type Request struct {
	Interface string
	ID        uint32
	Name      string // "interface.request"
	Args      []any
}

// Compositor is a fake display server. It is not safe for concurrent use.
type Compositor struct {
	// Globals are announced during the first Roundtrip.
	Globals []wayland.Global
	// ConnectErr makes the connector fail.
	ConnectErr error
	// DispatchErr is returned by every DispatchPending once set.
	DispatchErr error
	// AutoConfigure queues an xdg_surface.configure after the first commit
	// of a surface with a role, like a real compositor.
	AutoConfigure bool
	// OnDispatch runs at the start of every DispatchPending with the number
	// of earlier calls.
	OnDispatch func(n int)

	DisplayName string

	sink       wayland.EventSink
	announced  bool
	pending    []func(wayland.EventSink)
	requests   []Request
	failures   map[string]error
	objects    map[uint32]*object
	destroyed  []string
	violations []string
	lastID     uint32
	serial     uint32
	dispatches int
}

type object struct {
	c       *Compositor
	id      uint32
	iface   string
	version uint32
	parents []*object
	dead    bool
	// set on xdg surfaces once configured after a commit
	committed bool
	role      *object
}

// DefaultGlobals is what a typical desktop compositor advertises.
func DefaultGlobals() []wayland.Global {
	return []wayland.Global{
		{Name: 1, Interface: wayland.CompositorInterface, Version: 6},
		{Name: 2, Interface: wayland.WmBaseInterface, Version: 6},
		{Name: 3, Interface: wayland.DecorationManagerInterface, Version: 1},
		{Name: 4, Interface: wayland.SeatInterface, Version: 9},
		{Name: 5, Interface: "wl_output", Version: 4},
	}
}

// New creates a compositor advertising globals.
func New(globals ...wayland.Global) *Compositor {
	return &Compositor{
		Globals:       globals,
		AutoConfigure: true,
		failures:      make(map[string]error),
		objects:       make(map[uint32]*object),
		lastID:        1,
	}
}

// Connector returns a function with the signature of wayland.Connect.
func (c *Compositor) Connector() func(name string, sink wayland.EventSink) (wayland.Display, error) {
	return func(name string, sink wayland.EventSink) (wayland.Display, error) {
		if c.ConnectErr != nil {
			return nil, c.ConnectErr
		}
		c.DisplayName = name
		c.sink = sink
		o := &object{c: c, id: 1, iface: "wl_display", version: 1}
		c.objects[o.id] = o
		return &display{o}, nil
	}
}

// FailOn makes every later request with the name fail with err. A nil err
// clears the failure.
func (c *Compositor) FailOn(name string, err error) {
	if err == nil {
		delete(c.failures, name)
		return
	}
	c.failures[name] = err
}

// Queue adds an event delivered by the next dispatch.
func (c *Compositor) Queue(ev func(wayland.EventSink)) {
	c.pending = append(c.pending, ev)
}

func (c *Compositor) Announce(g wayland.Global) {
	c.Queue(func(s wayland.EventSink) { s.OnGlobalAnnounced(g) })
}

func (c *Compositor) RemoveGlobal(name uint32) {
	c.Queue(func(s wayland.EventSink) { s.OnGlobalRemoved(name) })
}

func (c *Compositor) SendPing(serial uint32) {
	c.Queue(func(s wayland.EventSink) { s.OnPing(serial) })
}

func (c *Compositor) SendConfigure(serial uint32) {
	c.Queue(func(s wayland.EventSink) { s.OnSurfaceConfigure(serial) })
}

func (c *Compositor) SendToplevelConfigure(width, height int32, states ...uint32) {
	c.Queue(func(s wayland.EventSink) {
		s.OnToplevelConfigure(wayland.ToplevelConfigure{Width: width, Height: height, States: states})
	})
}

func (c *Compositor) SendClose() {
	c.Queue(func(s wayland.EventSink) { s.OnClose() })
}

func (c *Compositor) SendCapabilities(caps wayland.SeatCapability) {
	c.Queue(func(s wayland.EventSink) { s.OnSeatCapabilities(caps) })
}

func (c *Compositor) SendPointer(e wayland.PointerEvent) {
	c.Queue(func(s wayland.EventSink) { s.OnPointerEvent(e) })
}

func (c *Compositor) SendButton(serial, button uint32, state wayland.ButtonState) {
	c.SendPointer(wayland.PointerEvent{Kind: wayland.PointerButton, Serial: serial, Button: button, State: state})
}

func (c *Compositor) SendKeyEvent(e wayland.KeyEvent) {
	c.Queue(func(s wayland.EventSink) { s.OnKeyEvent(e) })
}

func (c *Compositor) SendKey(key uint32, state wayland.KeyState) {
	c.SendKeyEvent(wayland.KeyEvent{Kind: wayland.KeyboardKey, Key: key, State: state})
}

// Requests returns the request log.
func (c *Compositor) Requests() []Request {
	return c.requests
}

// Called returns the logged requests with the given name.
func (c *Compositor) Called(name string) []Request {
	var out []Request
	for _, r := range c.requests {
		if r.Name == name {
			out = append(out, r)
		}
	}
	return out
}

// Live counts live objects of an interface.
func (c *Compositor) Live(iface string) int {
	n := 0
	for _, o := range c.objects {
		if o.iface == iface && !o.dead {
			n++
		}
	}
	return n
}

// Destroyed lists interfaces in the order their objects were destroyed.
func (c *Compositor) Destroyed() []string {
	return c.destroyed
}

// Violations lists protocol misuse: objects destroyed before their
// children and requests on destroyed objects.
func (c *Compositor) Violations() []string {
	return c.violations
}

// Dispatches reports how many times DispatchPending ran.
func (c *Compositor) Dispatches() int {
	return c.dispatches
}

func (c *Compositor) track(parents []*object, iface string, version uint32) *object {
	c.lastID++
	o := &object{c: c, id: c.lastID, iface: iface, version: version, parents: parents}
	c.objects[o.id] = o
	return o
}

func (c *Compositor) deliver() {
	for len(c.pending) > 0 {
		ev := c.pending[0]
		c.pending = c.pending[1:]
		ev(c.sink)
	}
}

func (c *Compositor) nextSerial() uint32 {
	c.serial++
	return c.serial
}

func (o *object) ID() uint32 { return o.id }

// request logs a call and returns any injected failure.
func (o *object) request(name string, args ...any) error {
	full := o.iface + "." + name
	o.c.requests = append(o.c.requests, Request{Interface: o.iface, ID: o.id, Name: full, Args: args})
	if o.dead {
		o.c.violations = append(o.c.violations, fmt.Sprintf("%s on destroyed %s#%d", full, o.iface, o.id))
	}
	return o.c.failures[full]
}

func (o *object) destroy(name string) error {
	if err := o.request(name); err != nil {
		return err
	}
	for _, child := range o.c.objects {
		if child.dead {
			continue
		}
		for _, p := range child.parents {
			if p == o {
				o.c.violations = append(o.c.violations,
					fmt.Sprintf("%s#%d destroyed before its %s#%d", o.iface, o.id, child.iface, child.id))
			}
		}
	}
	o.dead = true
	o.c.destroyed = append(o.c.destroyed, o.iface)
	return nil
}

type display struct{ *object }

func (d *display) Registry() (wayland.Registry, error) {
	if err := d.request("get_registry"); err != nil {
		return nil, err
	}
	return &registry{d.c.track([]*object{d.object}, "wl_registry", 1)}, nil
}

func (d *display) Roundtrip() error {
	if err := d.request("sync"); err != nil {
		return err
	}
	if !d.c.announced {
		d.c.announced = true
		for _, g := range d.c.Globals {
			d.c.sink.OnGlobalAnnounced(g)
		}
	}
	d.c.deliver()
	return nil
}

func (d *display) DispatchPending() error {
	if d.c.OnDispatch != nil {
		d.c.OnDispatch(d.c.dispatches)
	}
	d.c.dispatches++
	if d.c.DispatchErr != nil {
		return d.c.DispatchErr
	}
	d.c.deliver()
	return nil
}

func (d *display) Disconnect() error {
	if d.dead {
		d.c.violations = append(d.c.violations, "wl_display disconnected twice")
		return nil
	}
	d.dead = true
	d.c.destroyed = append(d.c.destroyed, d.iface)
	return nil
}

type registry struct{ *object }

func (r *registry) bind(g wayland.Global, iface string, max uint32) (*object, error) {
	if g.Interface != iface {
		return nil, fmt.Errorf("global %d is %s, not %s", g.Name, g.Interface, iface)
	}
	version := min(g.Version, max)
	if err := r.request("bind", g.Name, iface, version); err != nil {
		return nil, err
	}
	return r.c.track(nil, iface, version), nil
}

func (r *registry) BindCompositor(g wayland.Global) (wayland.Compositor, error) {
	o, err := r.bind(g, wayland.CompositorInterface, wayland.CompositorVersion)
	if err != nil {
		return nil, err
	}
	return &compositor{o}, nil
}

func (r *registry) BindWmBase(g wayland.Global) (wayland.WmBase, error) {
	o, err := r.bind(g, wayland.WmBaseInterface, wayland.WmBaseVersion)
	if err != nil {
		return nil, err
	}
	return &wmBase{o}, nil
}

func (r *registry) BindDecorationManager(g wayland.Global) (wayland.DecorationManager, error) {
	o, err := r.bind(g, wayland.DecorationManagerInterface, wayland.DecorationManagerVersion)
	if err != nil {
		return nil, err
	}
	return &decorationManager{o}, nil
}

func (r *registry) BindSeat(g wayland.Global) (wayland.Seat, error) {
	o, err := r.bind(g, wayland.SeatInterface, wayland.SeatVersion)
	if err != nil {
		return nil, err
	}
	return &seat{o}, nil
}

func (r *registry) Destroy() error { return r.destroy("destroy") }

type compositor struct{ *object }

func (co *compositor) CreateSurface() (wayland.Surface, error) {
	if err := co.request("create_surface"); err != nil {
		return nil, err
	}
	return &surface{co.c.track(nil, "wl_surface", co.version)}, nil
}

func (co *compositor) Destroy() error { return co.destroy("destroy") }

type surface struct{ *object }

func (s *surface) Commit() error {
	if err := s.request("commit"); err != nil {
		return err
	}
	if s.role != nil && !s.role.committed && s.c.AutoConfigure {
		s.role.committed = true
		s.c.SendConfigure(s.c.nextSerial())
	}
	return nil
}

func (s *surface) Destroy() error { return s.destroy("destroy") }

type wmBase struct{ *object }

func (w *wmBase) GetXdgSurface(s wayland.Surface) (wayland.XdgSurface, error) {
	if err := w.request("get_xdg_surface", s.ID()); err != nil {
		return nil, err
	}
	parents := []*object{w.object}
	if fs, ok := s.(*surface); ok {
		parents = append(parents, fs.object)
	}
	x := &xdgSurface{w.c.track(parents, "xdg_surface", w.version)}
	if fs, ok := s.(*surface); ok {
		fs.role = x.object
	}
	return x, nil
}

func (w *wmBase) Pong(serial uint32) error { return w.request("pong", serial) }

func (w *wmBase) Destroy() error { return w.destroy("destroy") }

type xdgSurface struct{ *object }

func (x *xdgSurface) GetToplevel() (wayland.Toplevel, error) {
	if err := x.request("get_toplevel"); err != nil {
		return nil, err
	}
	return &toplevel{x.c.track([]*object{x.object}, "xdg_toplevel", x.version)}, nil
}

func (x *xdgSurface) AckConfigure(serial uint32) error {
	return x.request("ack_configure", serial)
}

func (x *xdgSurface) Destroy() error { return x.destroy("destroy") }

type toplevel struct{ *object }

func (t *toplevel) SetTitle(title string) error { return t.request("set_title", title) }

func (t *toplevel) SetAppID(id string) error { return t.request("set_app_id", id) }

func (t *toplevel) Move(s wayland.Seat, serial uint32) error {
	return t.request("move", s.ID(), serial)
}

func (t *toplevel) Destroy() error { return t.destroy("destroy") }

type decorationManager struct{ *object }

func (d *decorationManager) GetToplevelDecoration(t wayland.Toplevel) (wayland.ToplevelDecoration, error) {
	if err := d.request("get_toplevel_decoration", t.ID()); err != nil {
		return nil, err
	}
	parents := []*object{d.object}
	if ft, ok := t.(*toplevel); ok {
		parents = append(parents, ft.object)
	}
	return &toplevelDecoration{d.c.track(parents, "zxdg_toplevel_decoration_v1", d.version)}, nil
}

func (d *decorationManager) Destroy() error { return d.destroy("destroy") }

type toplevelDecoration struct{ *object }

func (d *toplevelDecoration) SetMode(mode wayland.DecorationMode) error {
	return d.request("set_mode", mode)
}

func (d *toplevelDecoration) Destroy() error { return d.destroy("destroy") }

type seat struct{ *object }

func (s *seat) GetPointer() (wayland.Pointer, error) {
	if err := s.request("get_pointer"); err != nil {
		return nil, err
	}
	return &device{s.c.track([]*object{s.object}, "wl_pointer", s.version)}, nil
}

func (s *seat) GetKeyboard() (wayland.Keyboard, error) {
	if err := s.request("get_keyboard"); err != nil {
		return nil, err
	}
	return &device{s.c.track([]*object{s.object}, "wl_keyboard", s.version)}, nil
}

func (s *seat) Release() error { return s.destroy("release") }

type device struct{ *object }

func (d *device) Release() error { return d.destroy("release") }
