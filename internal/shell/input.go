package shell

import (
	"fmt"

	"github.com/bnema/vkshell/internal/wayland"
)

// inputDevice is a pointer or keyboard proxy owned by the router.
type inputDevice interface {
	capability() wayland.SeatCapability
	release() error
}

type pointerDevice struct {
	proxy wayland.Pointer
	move  func(serial uint32) error
}

func (p *pointerDevice) capability() wayland.SeatCapability { return wayland.SeatCapabilityPointer }

func (p *pointerDevice) release() error { return p.proxy.Release() }

// handle starts an interactive move on a primary button press and drops
// every other pointer event.
func (p *pointerDevice) handle(e wayland.PointerEvent) error {
	if e.Kind != wayland.PointerButton || e.Button != wayland.BtnLeft || e.State != wayland.ButtonPressed {
		return nil
	}
	return p.move(e.Serial)
}

type keyboardDevice struct {
	proxy wayland.Keyboard
	onKey func(Key)
}

func (k *keyboardDevice) capability() wayland.SeatCapability { return wayland.SeatCapabilityKeyboard }

func (k *keyboardDevice) release() error { return k.proxy.Release() }

// handle forwards key releases only, so a held key never fires twice.
func (k *keyboardDevice) handle(e wayland.KeyEvent) {
	if e.Kind != wayland.KeyboardKey || e.State != wayland.KeyReleased {
		return
	}
	k.onKey(translateKey(e.Key))
}

func deviceName(d inputDevice) string {
	if d.capability() == wayland.SeatCapabilityPointer {
		return "wl_pointer"
	}
	return "wl_keyboard"
}

// deviceKinds is attach order; detach runs backwards.
var deviceKinds = []wayland.SeatCapability{
	wayland.SeatCapabilityPointer,
	wayland.SeatCapabilityKeyboard,
}

// inputRouter keeps one live device per capability bit that is set.
type inputRouter struct {
	devices map[wayland.SeatCapability]inputDevice
	onKey   func(Key)
	move    func(serial uint32) error
}

func newInputRouter(onKey func(Key), move func(serial uint32) error) *inputRouter {
	return &inputRouter{
		devices: make(map[wayland.SeatCapability]inputDevice),
		onKey:   onKey,
		move:    move,
	}
}

func (r *inputRouter) setCapabilities(seat wayland.Seat, caps wayland.SeatCapability) error {
	if seat == nil {
		return nil
	}
	for _, kind := range deviceKinds {
		dev, live := r.devices[kind]
		switch {
		case caps.Has(kind) && !live:
			d, err := r.attach(seat, kind)
			if err != nil {
				return err
			}
			r.devices[kind] = d
		case !caps.Has(kind) && live:
			delete(r.devices, kind)
			if err := dev.release(); err != nil {
				return fmt.Errorf("failed to release %s: %w", deviceName(dev), err)
			}
		}
	}
	return nil
}

func (r *inputRouter) attach(seat wayland.Seat, kind wayland.SeatCapability) (inputDevice, error) {
	if kind == wayland.SeatCapabilityPointer {
		p, err := seat.GetPointer()
		if err != nil {
			return nil, fmt.Errorf("failed to get pointer: %w", err)
		}
		return &pointerDevice{proxy: p, move: r.move}, nil
	}
	k, err := seat.GetKeyboard()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyboard: %w", err)
	}
	return &keyboardDevice{proxy: k, onKey: r.onKey}, nil
}

func (r *inputRouter) live(kind wayland.SeatCapability) bool {
	_, ok := r.devices[kind]
	return ok
}

func (r *inputRouter) pointerEvent(e wayland.PointerEvent) error {
	if p, ok := r.devices[wayland.SeatCapabilityPointer].(*pointerDevice); ok {
		return p.handle(e)
	}
	return nil
}

func (r *inputRouter) keyEvent(e wayland.KeyEvent) {
	if k, ok := r.devices[wayland.SeatCapabilityKeyboard].(*keyboardDevice); ok {
		k.handle(e)
	}
}

// detachAll releases the keyboard, then the pointer.
func (r *inputRouter) detachAll() error {
	var firstErr error
	for i := len(deviceKinds) - 1; i >= 0; i-- {
		dev, ok := r.devices[deviceKinds[i]]
		if !ok {
			continue
		}
		delete(r.devices, deviceKinds[i])
		if err := dev.release(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to release %s: %w", deviceName(dev), err)
		}
	}
	return firstErr
}

// move starts an interactive move of the window for the input event with
// the given serial.
func (s *Shell) move(serial uint32) error {
	if s.win == nil || s.win.toplevel == nil || s.globals.seat == nil {
		return nil
	}
	if err := s.win.toplevel.Move(s.globals.seat, serial); err != nil {
		return fmt.Errorf("failed to start interactive move: %w", err)
	}
	return nil
}
