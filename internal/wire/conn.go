// Package wire implements the Wayland wire protocol transport: message
// framing over a Unix stream socket with file descriptor passing.
package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

const (
	readBufferSize = 4096
	// libwayland never sends more than this many descriptors per chunk
	maxFDsPerRead = 28
)

// Conn is a client or server end of a Wayland socket. It is not safe for
// concurrent use.
type Conn struct {
	sock *net.UnixConn
	raw  syscall.RawConn

	in   []byte
	fds  []int
	rbuf []byte
	oob  []byte
}

// SocketPath resolves a display name the way libwayland does: an empty name
// means $WAYLAND_DISPLAY (or wayland-0) and relative names live in
// $XDG_RUNTIME_DIR.
func SocketPath(name string) (string, error) {
	if name == "" {
		name = os.Getenv("WAYLAND_DISPLAY")
	}
	if name == "" {
		name = "wayland-0"
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(dir, name), nil
}

// Dial connects to the named display socket.
func Dial(name string) (*Conn, error) {
	path, err := SocketPath(name)
	if err != nil {
		return nil, err
	}
	sock, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", path, err)
	}
	c, err := NewConn(sock)
	if err != nil {
		_ = sock.Close()
		return nil, err
	}
	return c, nil
}

// NewConn wraps an established Unix stream socket.
func NewConn(sock *net.UnixConn) (*Conn, error) {
	raw, err := sock.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("failed to access socket: %w", err)
	}
	return &Conn{
		sock: sock,
		raw:  raw,
		rbuf: make([]byte, readBufferSize),
		oob:  make([]byte, unix.CmsgSpace(maxFDsPerRead*4)),
	}, nil
}

// Socketpair returns two connected ends, one for each side of a conversation.
func Socketpair() (*Conn, *Conn, error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("socketpair: %w", err)
	}
	a, err := fileConn(fds[0], "wayland-client")
	if err != nil {
		_ = unix.Close(fds[1])
		return nil, nil, err
	}
	b, err := fileConn(fds[1], "wayland-server")
	if err != nil {
		_ = a.Close()
		return nil, nil, err
	}
	return a, b, nil
}

func fileConn(fd int, name string) (*Conn, error) {
	f := os.NewFile(uintptr(fd), name)
	defer f.Close()
	nc, err := net.FileConn(f)
	if err != nil {
		return nil, fmt.Errorf("failed to wrap %s: %w", name, err)
	}
	uc, ok := nc.(*net.UnixConn)
	if !ok {
		_ = nc.Close()
		return nil, fmt.Errorf("%s is not a unix socket", name)
	}
	return NewConn(uc)
}

// WriteMessage sends m along with any attached descriptors.
func (c *Conn) WriteMessage(m *Message) error {
	b, err := m.Bytes()
	if err != nil {
		return err
	}
	var oob []byte
	if len(m.fds) > 0 {
		oob = unix.UnixRights(m.fds...)
	}
	n, oobn, err := c.sock.WriteMsgUnix(b, oob, nil)
	if err != nil {
		return fmt.Errorf("failed to send message %d/%d: %w", m.Sender, m.Opcode, err)
	}
	if n != len(b) || oobn != len(oob) {
		return io.ErrShortWrite
	}
	return nil
}

// ReadMessage blocks until a whole message has arrived.
func (c *Conn) ReadMessage() (*Message, error) {
	for {
		m, err := c.buffered()
		if err != nil || m != nil {
			return m, err
		}
		if err := c.fill(); err != nil {
			return nil, err
		}
	}
}

// ReadPending returns the next message if it can be read without blocking,
// or nil when none is ready.
func (c *Conn) ReadPending() (*Message, error) {
	for {
		m, err := c.buffered()
		if err != nil || m != nil {
			return m, err
		}
		ready, err := c.Poll(0)
		if err != nil {
			return nil, err
		}
		if !ready {
			return nil, nil
		}
		if err := c.fill(); err != nil {
			return nil, err
		}
	}
}

// Poll waits up to timeout for the socket to become readable. A zero timeout
// only checks.
func (c *Conn) Poll(timeout time.Duration) (bool, error) {
	var (
		n    int
		perr error
	)
	err := c.raw.Control(func(fd uintptr) {
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		for {
			n, perr = unix.Poll(pfd, int(timeout.Milliseconds()))
			if perr != unix.EINTR {
				return
			}
		}
	})
	if err != nil {
		return false, err
	}
	if perr != nil {
		return false, fmt.Errorf("poll: %w", perr)
	}
	return n > 0, nil
}

func (c *Conn) fill() error {
	n, oobn, _, _, err := c.sock.ReadMsgUnix(c.rbuf, c.oob)
	if err != nil {
		return fmt.Errorf("failed to read from display socket: %w", err)
	}
	if oobn > 0 {
		if err := c.collectFDs(c.oob[:oobn]); err != nil {
			return err
		}
	}
	if n == 0 && oobn == 0 {
		return io.EOF
	}
	c.in = append(c.in, c.rbuf[:n]...)
	return nil
}

func (c *Conn) collectFDs(oob []byte) error {
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return fmt.Errorf("bad control message: %w", err)
	}
	for i := range scms {
		fds, err := unix.ParseUnixRights(&scms[i])
		if err != nil {
			continue
		}
		c.fds = append(c.fds, fds...)
	}
	return nil
}

// buffered slices one whole message off the input buffer, if present.
func (c *Conn) buffered() (*Message, error) {
	if len(c.in) < headerSize {
		return nil, nil
	}
	sender := order.Uint32(c.in[0:4])
	word := order.Uint32(c.in[4:8])
	size := int(word >> 16)
	if size < headerSize || size%4 != 0 {
		return nil, fmt.Errorf("invalid message size %d from object %d", size, sender)
	}
	if len(c.in) < size {
		return nil, nil
	}
	m := &Message{
		Sender: sender,
		Opcode: uint16(word & 0xffff),
		data:   append([]byte(nil), c.in[headerSize:size]...),
		src:    c,
	}
	c.in = c.in[size:]
	if len(c.in) == 0 {
		c.in = nil
	}
	return m, nil
}

func (c *Conn) takeFD() (int, error) {
	if len(c.fds) == 0 {
		return -1, errors.New("wire: expected a file descriptor but none was received")
	}
	fd := c.fds[0]
	c.fds = c.fds[1:]
	return fd, nil
}

// QueuedFDs reports how many received descriptors are waiting to be claimed.
func (c *Conn) QueuedFDs() int {
	return len(c.fds)
}

// DiscardFDs closes n queued descriptors that belong to an event nobody
// will decode.
func (c *Conn) DiscardFDs(n int) {
	for ; n > 0 && len(c.fds) > 0; n-- {
		_ = unix.Close(c.fds[0])
		c.fds = c.fds[1:]
	}
}

// Close closes the socket and any descriptors that were never claimed.
func (c *Conn) Close() error {
	c.DiscardFDs(len(c.fds))
	return c.sock.Close()
}
