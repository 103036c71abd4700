// Package wayland is a small Wayland client covering the core, xdg-shell and
// xdg-decoration objects a single toplevel window needs. Events are decoded
// on the caller's goroutine and forwarded to one EventSink.
package wayland

// Interface names advertised by the registry.
const (
	CompositorInterface        = "wl_compositor"
	WmBaseInterface            = "xdg_wm_base"
	DecorationManagerInterface = "zxdg_decoration_manager_v1"
	SeatInterface              = "wl_seat"
)

// Highest versions this client speaks. Binds use the lower of these and the
// advertised version.
const (
	CompositorVersion        = 4
	WmBaseVersion            = 2
	DecorationManagerVersion = 1
	SeatVersion              = 5
)

// SeatCapability is a bitmask of input devices a seat offers.
type SeatCapability uint32

const (
	SeatCapabilityPointer  SeatCapability = 1
	SeatCapabilityKeyboard SeatCapability = 2
	SeatCapabilityTouch    SeatCapability = 4
)

// Has reports whether every bit of o is set.
func (c SeatCapability) Has(o SeatCapability) bool {
	return c&o == o
}

type ButtonState uint32

const (
	ButtonReleased ButtonState = 0
	ButtonPressed  ButtonState = 1
)

type KeyState uint32

const (
	KeyReleased KeyState = 0
	KeyPressed  KeyState = 1
	KeyRepeated KeyState = 2
)

// DecorationMode of an xdg toplevel decoration.
type DecorationMode uint32

const (
	DecorationModeClientSide DecorationMode = 1
	DecorationModeServerSide DecorationMode = 2
)

// BtnLeft is the evdev code of the primary pointer button.
const BtnLeft = 0x110

// Global is one registry announcement.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

type PointerEventKind int

const (
	PointerEnter PointerEventKind = iota
	PointerLeave
	PointerMotion
	PointerButton
	PointerAxis
	PointerFrame
	PointerOther
)

// PointerEvent carries whichever fields the event kind defines.
type PointerEvent struct {
	Kind   PointerEventKind
	Serial uint32
	Time   uint32
	Button uint32
	State  ButtonState
	X, Y   float64
	Axis   uint32
	Value  float64
}

type KeyboardEventKind int

const (
	KeyboardKeymap KeyboardEventKind = iota
	KeyboardEnter
	KeyboardLeave
	KeyboardKey
	KeyboardModifiers
	KeyboardRepeatInfo
	KeyboardOther
)

// KeyEvent carries whichever fields the event kind defines. Key is an evdev
// scancode.
type KeyEvent struct {
	Kind   KeyboardEventKind
	Serial uint32
	Time   uint32
	Key    uint32
	State  KeyState
}

// ToplevelConfigure is the size and state suggestion of xdg_toplevel.configure.
type ToplevelConfigure struct {
	Width  int32
	Height int32
	States []uint32
}

// EventSink receives every event the client decodes. Handlers run on the
// goroutine that called Roundtrip or DispatchPending.
type EventSink interface {
	OnGlobalAnnounced(g Global)
	OnGlobalRemoved(name uint32)
	OnPing(serial uint32)
	OnSurfaceConfigure(serial uint32)
	OnToplevelConfigure(c ToplevelConfigure)
	OnClose()
	OnSeatCapabilities(caps SeatCapability)
	OnPointerEvent(e PointerEvent)
	OnKeyEvent(e KeyEvent)
}

// Object is any live protocol object.
type Object interface {
	ID() uint32
}

// Display is the connection root.
type Display interface {
	Object
	Registry() (Registry, error)
	// Roundtrip blocks until the server has processed every request sent
	// so far, dispatching events as they arrive.
	Roundtrip() error
	// DispatchPending handles events that are already readable and returns
	// without waiting.
	DispatchPending() error
	Disconnect() error
}

type Registry interface {
	Object
	BindCompositor(g Global) (Compositor, error)
	BindWmBase(g Global) (WmBase, error)
	BindDecorationManager(g Global) (DecorationManager, error)
	BindSeat(g Global) (Seat, error)
	Destroy() error
}

type Compositor interface {
	Object
	CreateSurface() (Surface, error)
	Destroy() error
}

type Surface interface {
	Object
	Commit() error
	Destroy() error
}

type WmBase interface {
	Object
	GetXdgSurface(s Surface) (XdgSurface, error)
	Pong(serial uint32) error
	Destroy() error
}

type XdgSurface interface {
	Object
	GetToplevel() (Toplevel, error)
	AckConfigure(serial uint32) error
	Destroy() error
}

type Toplevel interface {
	Object
	SetTitle(title string) error
	SetAppID(id string) error
	Move(seat Seat, serial uint32) error
	Destroy() error
}

type DecorationManager interface {
	Object
	GetToplevelDecoration(t Toplevel) (ToplevelDecoration, error)
	Destroy() error
}

type ToplevelDecoration interface {
	Object
	SetMode(mode DecorationMode) error
	Destroy() error
}

type Seat interface {
	Object
	GetPointer() (Pointer, error)
	GetKeyboard() (Keyboard, error)
	Release() error
}

type Pointer interface {
	Object
	Release() error
}

type Keyboard interface {
	Object
	Release() error
}
