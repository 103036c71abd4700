package wayland

import (
	"encoding/binary"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/bnema/vkshell/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	globals    []Global
	removed    []uint32
	pings      []uint32
	configures []uint32
	toplevel   []ToplevelConfigure
	closes     int
	caps       []SeatCapability
	pointer    []PointerEvent
	keys       []KeyEvent
}

func (s *recordingSink) OnGlobalAnnounced(g Global) { s.globals = append(s.globals, g) }
func (s *recordingSink) OnGlobalRemoved(name uint32) { s.removed = append(s.removed, name) }
func (s *recordingSink) OnPing(serial uint32) { s.pings = append(s.pings, serial) }
func (s *recordingSink) OnSurfaceConfigure(serial uint32) { s.configures = append(s.configures, serial) }
func (s *recordingSink) OnToplevelConfigure(c ToplevelConfigure) { s.toplevel = append(s.toplevel, c) }
func (s *recordingSink) OnClose() { s.closes++ }
func (s *recordingSink) OnSeatCapabilities(c SeatCapability) { s.caps = append(s.caps, c) }
func (s *recordingSink) OnPointerEvent(e PointerEvent) { s.pointer = append(s.pointer, e) }
func (s *recordingSink) OnKeyEvent(e KeyEvent) { s.keys = append(s.keys, e) }

type harness struct {
	t      *testing.T
	client *Client
	server *wire.Conn
	sink   *recordingSink
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	c, s, err := wire.Socketpair()
	require.NoError(t, err)
	sink := &recordingSink{}
	h := &harness{t: t, client: NewClient(c, sink), server: s, sink: sink}
	t.Cleanup(func() {
		_ = h.client.Disconnect()
		_ = s.Close()
	})
	return h
}

func (h *harness) send(m *wire.Message) {
	h.t.Helper()
	require.NoError(h.t, h.server.WriteMessage(m))
}

func (h *harness) event(id uint32, opcode uint16, args ...uint32) {
	h.t.Helper()
	m := wire.NewMessage(id, opcode)
	for _, a := range args {
		m.PutUint(a)
	}
	h.send(m)
}

func (h *harness) global(registry, name uint32, iface string, version uint32) {
	h.t.Helper()
	m := wire.NewMessage(registry, registryEventGlobal)
	m.PutUint(name)
	m.PutString(iface)
	m.PutUint(version)
	h.send(m)
}

func (h *harness) request() *wire.Message {
	h.t.Helper()
	m, err := h.server.ReadPending()
	require.NoError(h.t, err)
	require.NotNil(h.t, m, "expected a request")
	return m
}

func (h *harness) noRequest() {
	h.t.Helper()
	m, err := h.server.ReadPending()
	require.NoError(h.t, err)
	require.Nil(h.t, m)
}

// registry creates the registry (id 2) and consumes the request.
func (h *harness) registry() Registry {
	h.t.Helper()
	r, err := h.client.Registry()
	require.NoError(h.t, err)
	h.request()
	return r
}

func TestRoundtripAnnouncesGlobals(t *testing.T) {
	h := newHarness(t)

	r, err := h.client.Registry()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), r.ID())

	// The sync callback will be id 3
	h.global(2, 1, CompositorInterface, 6)
	h.global(2, 2, WmBaseInterface, 6)
	h.global(2, 3, SeatInterface, 9)
	h.event(3, 0, 1234)
	h.event(displayID, displayEventDeleteID, 3)

	require.NoError(t, h.client.Roundtrip())

	require.Len(t, h.sink.globals, 3)
	assert.Equal(t, Global{Name: 1, Interface: CompositorInterface, Version: 6}, h.sink.globals[0])
	assert.Equal(t, SeatInterface, h.sink.globals[2].Interface)

	getRegistry := h.request()
	assert.Equal(t, uint32(displayID), getRegistry.Sender)
	assert.Equal(t, uint16(displayGetRegistry), getRegistry.Opcode)
	assert.Equal(t, uint32(2), getRegistry.Uint())

	sync := h.request()
	assert.Equal(t, uint16(displaySync), sync.Opcode)
	assert.Equal(t, uint32(3), sync.Uint())

	// delete_id is consumed by the next dispatch
	require.NoError(t, h.client.DispatchPending())
	_, live := h.client.objects[3]
	assert.False(t, live)
}

func TestBindUsesLowerVersion(t *testing.T) {
	tests := []struct {
		name       string
		advertised uint32
		want       uint32
	}{
		{"newer compositor", 9, SeatVersion},
		{"older compositor", 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			r := h.registry()

			s, err := r.BindSeat(Global{Name: 7, Interface: SeatInterface, Version: tt.advertised})
			require.NoError(t, err)

			bind := h.request()
			assert.Equal(t, r.ID(), bind.Sender)
			assert.Equal(t, uint16(registryBind), bind.Opcode)
			assert.Equal(t, uint32(7), bind.Uint())
			assert.Equal(t, SeatInterface, bind.Str())
			assert.Equal(t, tt.want, bind.Uint())
			assert.Equal(t, s.ID(), bind.Uint())
			assert.NoError(t, bind.Err())
		})
	}
}

func TestBindRejectsWrongInterface(t *testing.T) {
	h := newHarness(t)
	r := h.registry()

	_, err := r.BindCompositor(Global{Name: 1, Interface: SeatInterface, Version: 1})
	assert.Error(t, err)
	h.noRequest()
}

func TestDispatchPendingReturnsWithoutEvents(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.client.DispatchPending())
	assert.Empty(t, h.sink.pings)
}

func TestOversizedTitleIsRefused(t *testing.T) {
	h := newHarness(t)
	r := h.registry()

	comp, err := r.BindCompositor(Global{Name: 1, Interface: CompositorInterface, Version: 4})
	require.NoError(t, err)
	wm, err := r.BindWmBase(Global{Name: 2, Interface: WmBaseInterface, Version: 1})
	require.NoError(t, err)
	surf, err := comp.CreateSurface()
	require.NoError(t, err)
	xs, err := wm.GetXdgSurface(surf)
	require.NoError(t, err)
	top, err := xs.GetToplevel()
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		h.request()
	}

	err = top.SetTitle(strings.Repeat("t", 70000))
	assert.ErrorIs(t, err, wire.ErrMessageTooLarge)
	h.noRequest()

	// The connection is untouched and later requests still go out.
	require.NoError(t, top.SetTitle("cube"))
	assert.Equal(t, "cube", h.request().Str())
}

func TestWindowObjectsAndEvents(t *testing.T) {
	h := newHarness(t)
	r := h.registry()

	comp, err := r.BindCompositor(Global{Name: 1, Interface: CompositorInterface, Version: 4})
	require.NoError(t, err)
	wm, err := r.BindWmBase(Global{Name: 2, Interface: WmBaseInterface, Version: 1})
	require.NoError(t, err)
	surf, err := comp.CreateSurface()
	require.NoError(t, err)
	xs, err := wm.GetXdgSurface(surf)
	require.NoError(t, err)
	top, err := xs.GetToplevel()
	require.NoError(t, err)
	require.NoError(t, top.SetTitle("cube"))
	require.NoError(t, surf.Commit())

	h.request() // bind compositor
	h.request() // bind wm base
	h.request() // create surface
	getXdg := h.request()
	assert.Equal(t, uint16(wmBaseGetXdgSurface), getXdg.Opcode)
	assert.Equal(t, xs.ID(), getXdg.Uint())
	assert.Equal(t, surf.ID(), getXdg.Uint())
	h.request() // get toplevel
	title := h.request()
	assert.Equal(t, top.ID(), title.Sender)
	assert.Equal(t, "cube", title.Str())
	commit := h.request()
	assert.Equal(t, uint16(surfaceCommit), commit.Opcode)

	h.event(wm.ID(), wmBaseEventPing, 77)
	h.event(xs.ID(), xdgSurfaceEventConfigure, 5)
	states := wire.NewMessage(top.ID(), toplevelEventConfigure)
	states.PutInt(800)
	states.PutInt(600)
	states.PutArray(binary.NativeEndian.AppendUint32(binary.NativeEndian.AppendUint32(nil, 1), 4))
	h.send(states)
	h.event(top.ID(), toplevelEventClose)

	require.NoError(t, h.client.DispatchPending())

	assert.Equal(t, []uint32{77}, h.sink.pings)
	assert.Equal(t, []uint32{5}, h.sink.configures)
	require.Len(t, h.sink.toplevel, 1)
	assert.Equal(t, ToplevelConfigure{Width: 800, Height: 600, States: []uint32{1, 4}}, h.sink.toplevel[0])
	assert.Equal(t, 1, h.sink.closes)
}

func TestInputEvents(t *testing.T) {
	h := newHarness(t)
	r := h.registry()

	s, err := r.BindSeat(Global{Name: 3, Interface: SeatInterface, Version: 5})
	require.NoError(t, err)
	h.event(s.ID(), seatEventCapabilities, uint32(SeatCapabilityPointer|SeatCapabilityKeyboard))
	require.NoError(t, h.client.DispatchPending())
	require.Equal(t, []SeatCapability{SeatCapabilityPointer | SeatCapabilityKeyboard}, h.sink.caps)
	assert.True(t, h.sink.caps[0].Has(SeatCapabilityKeyboard))
	assert.False(t, h.sink.caps[0].Has(SeatCapabilityTouch))

	p, err := s.GetPointer()
	require.NoError(t, err)
	k, err := s.GetKeyboard()
	require.NoError(t, err)

	h.event(p.ID(), 3, 42, 1000, BtnLeft, uint32(ButtonPressed))
	h.event(k.ID(), 3, 43, 1001, 1, uint32(KeyReleased))
	require.NoError(t, h.client.DispatchPending())

	require.Len(t, h.sink.pointer, 1)
	assert.Equal(t, PointerEvent{Kind: PointerButton, Serial: 42, Time: 1000, Button: BtnLeft, State: ButtonPressed}, h.sink.pointer[0])
	require.Len(t, h.sink.keys, 1)
	assert.Equal(t, KeyEvent{Kind: KeyboardKey, Serial: 43, Time: 1001, Key: 1, State: KeyReleased}, h.sink.keys[0])
}

func TestKeymapDescriptorIsConsumed(t *testing.T) {
	h := newHarness(t)
	r := h.registry()

	s, err := r.BindSeat(Global{Name: 3, Interface: SeatInterface, Version: 5})
	require.NoError(t, err)
	k, err := s.GetKeyboard()
	require.NoError(t, err)

	f, err := os.CreateTemp(t.TempDir(), "keymap")
	require.NoError(t, err)
	defer f.Close()

	keymap := wire.NewMessage(k.ID(), keyboardEventKeymap)
	keymap.PutUint(1)
	keymap.PutFD(int(f.Fd()))
	keymap.PutUint(0)
	h.send(keymap)

	require.NoError(t, h.client.DispatchPending())
	require.Len(t, h.sink.keys, 1)
	assert.Equal(t, KeyboardKeymap, h.sink.keys[0].Kind)
}

func TestReleasedKeyboardDropsLateDescriptors(t *testing.T) {
	h := newHarness(t)
	r := h.registry()

	s, err := r.BindSeat(Global{Name: 3, Interface: SeatInterface, Version: 5})
	require.NoError(t, err)
	k, err := s.GetKeyboard()
	require.NoError(t, err)
	require.NoError(t, k.Release())

	f, err := os.CreateTemp(t.TempDir(), "keymap")
	require.NoError(t, err)
	defer f.Close()

	late := wire.NewMessage(k.ID(), keyboardEventKeymap)
	late.PutUint(1)
	late.PutFD(int(f.Fd()))
	late.PutUint(0)
	h.send(late)
	h.event(s.ID(), seatEventCapabilities, uint32(SeatCapabilityPointer))

	require.NoError(t, h.client.DispatchPending())
	assert.Empty(t, h.sink.keys)
	assert.Equal(t, []SeatCapability{SeatCapabilityPointer}, h.sink.caps)
	assert.Zero(t, h.client.conn.QueuedFDs())
}

func TestReleaseOnOldSeatIsLocal(t *testing.T) {
	h := newHarness(t)
	r := h.registry()

	s, err := r.BindSeat(Global{Name: 3, Interface: SeatInterface, Version: 4})
	require.NoError(t, err)
	h.request()

	require.NoError(t, s.Release())
	h.noRequest()
}

func TestProtocolErrorIsFatal(t *testing.T) {
	h := newHarness(t)
	r := h.registry()

	m := wire.NewMessage(displayID, displayEventError)
	m.PutObject(r.ID())
	m.PutUint(3)
	m.PutString("invalid bind")
	h.send(m)

	err := h.client.DispatchPending()
	var perr *ProtocolError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, r.ID(), perr.ObjectID)
	assert.Equal(t, uint32(3), perr.Code)
	assert.Contains(t, perr.Error(), "invalid bind")

	// Later requests fail with the same error
	_, err = r.BindSeat(Global{Name: 3, Interface: SeatInterface, Version: 5})
	assert.True(t, errors.As(err, &perr))
}
