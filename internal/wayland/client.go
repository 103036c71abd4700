package wayland

import (
	"fmt"

	"github.com/bnema/vkshell/internal/wire"
)

const displayID = 1

// wl_display
const (
	displaySync        = 0
	displayGetRegistry = 1

	displayEventError    = 0
	displayEventDeleteID = 1
)

type dispatcher interface {
	dispatch(m *wire.Message) error
}

// Client is a connection to a compositor. It implements Display and is not
// safe for concurrent use.
type Client struct {
	conn    *wire.Conn
	sink    EventSink
	objects map[uint32]dispatcher
	// fd-carrying events still addressed to objects released locally
	zombies map[uint32]func(opcode uint16) int
	lastID  uint32
	err     error
}

// Connect opens the named display socket. An empty name follows
// WAYLAND_DISPLAY.
func Connect(name string, sink EventSink) (*Client, error) {
	conn, err := wire.Dial(name)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Wayland display: %w", err)
	}
	return NewClient(conn, sink), nil
}

// NewClient speaks the protocol over an already established connection.
func NewClient(conn *wire.Conn, sink EventSink) *Client {
	c := &Client{
		conn:    conn,
		sink:    sink,
		objects: make(map[uint32]dispatcher),
		zombies: make(map[uint32]func(uint16) int),
		lastID:  displayID,
	}
	c.objects[displayID] = displayEvents{c}
	return c
}

func (c *Client) ID() uint32 { return displayID }

func (c *Client) newProxy(version uint32) proxy {
	c.lastID++
	return proxy{c: c, id: c.lastID, version: version}
}

func (c *Client) register(id uint32, d dispatcher) {
	c.objects[id] = d
}

// forget drops a locally destroyed object. The server may still send events
// to it until delete_id arrives; fds riding on those are closed.
func (c *Client) forget(id uint32, fdsFor func(opcode uint16) int) {
	delete(c.objects, id)
	if fdsFor != nil {
		c.zombies[id] = fdsFor
	}
}

// create registers the object named by id before sending the request
// that creates it.
func (c *Client) create(id uint32, d dispatcher, m *wire.Message) error {
	c.register(id, d)
	if err := c.send(m); err != nil {
		c.forget(id, nil)
		return err
	}
	return nil
}

func (c *Client) send(m *wire.Message) error {
	if c.err != nil {
		return c.err
	}
	return c.conn.WriteMessage(m)
}

// Registry creates the registry. Globals are announced to the sink during
// the next Roundtrip.
func (c *Client) Registry() (Registry, error) {
	r := &registry{proxy: c.newProxy(1)}
	m := wire.NewMessage(displayID, displayGetRegistry)
	m.PutNewID(r.id)
	if err := c.create(r.id, r, m); err != nil {
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	return r, nil
}

func (c *Client) Roundtrip() error {
	cb := &callback{proxy: c.newProxy(1)}
	m := wire.NewMessage(displayID, displaySync)
	m.PutNewID(cb.id)
	if err := c.create(cb.id, cb, m); err != nil {
		return fmt.Errorf("roundtrip failed: %w", err)
	}
	for !cb.done {
		ev, err := c.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("roundtrip failed: %w", err)
		}
		if err := c.dispatch(ev); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) DispatchPending() error {
	if c.err != nil {
		return c.err
	}
	for {
		ev, err := c.conn.ReadPending()
		if err != nil {
			return fmt.Errorf("failed to dispatch events: %w", err)
		}
		if ev == nil {
			return nil
		}
		if err := c.dispatch(ev); err != nil {
			return err
		}
	}
}

func (c *Client) dispatch(m *wire.Message) error {
	obj, ok := c.objects[m.Sender]
	if !ok {
		if fdsFor, zombie := c.zombies[m.Sender]; zombie {
			c.conn.DiscardFDs(fdsFor(m.Opcode))
		}
		return nil
	}
	if err := obj.dispatch(m); err != nil {
		return err
	}
	return c.err
}

// Disconnect closes the socket. Objects are not destroyed on the server
// side; it reclaims them when the client goes away.
func (c *Client) Disconnect() error {
	c.objects = map[uint32]dispatcher{}
	return c.conn.Close()
}

type displayEvents struct{ c *Client }

func (d displayEvents) dispatch(m *wire.Message) error {
	switch m.Opcode {
	case displayEventError:
		perr := &ProtocolError{ObjectID: m.Object(), Code: m.Uint(), Message: m.Str()}
		if err := m.Err(); err != nil {
			return err
		}
		d.c.err = perr
	case displayEventDeleteID:
		id := m.Uint()
		if err := m.Err(); err != nil {
			return err
		}
		delete(d.c.objects, id)
		delete(d.c.zombies, id)
	}
	return nil
}

// proxy is the client side of one protocol object.
type proxy struct {
	c       *Client
	id      uint32
	version uint32
}

func (p *proxy) ID() uint32 { return p.id }

func (p *proxy) request(opcode uint16) *wire.Message {
	return wire.NewMessage(p.id, opcode)
}

// destructor sends a destroying request and forgets the object.
func (p *proxy) destructor(opcode uint16, fdsFor func(uint16) int) error {
	err := p.c.send(p.request(opcode))
	p.c.forget(p.id, fdsFor)
	return err
}

type callback struct {
	proxy
	done bool
}

func (cb *callback) dispatch(m *wire.Message) error {
	if m.Opcode == 0 {
		cb.done = true
	}
	return nil
}
