package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

const (
	headerSize = 8
	// MaxMessageSize is the largest message libwayland accepts.
	MaxMessageSize = 4096
)

var order = binary.NativeEndian

// ErrShortMessage is reported when an event payload ends before all of its
// arguments were decoded.
var ErrShortMessage = errors.New("wire: message payload too short")

// ErrMessageTooLarge is returned for requests that do not fit in
// MaxMessageSize. The header can only carry 16 bits of length.
var ErrMessageTooLarge = errors.New("wire: message too large")

type fdSource interface {
	takeFD() (int, error)
}

// Message is a single request or event. Requests are built with the Put
// methods; events are decoded in argument order with the typed getters,
// which record the first error instead of returning it.
type Message struct {
	Sender uint32
	Opcode uint16

	data []byte
	fds  []int

	off int
	src fdSource
	err error
}

// NewMessage starts a message sent by (or to) the given object.
func NewMessage(sender uint32, opcode uint16) *Message {
	return &Message{Sender: sender, Opcode: opcode}
}

// Size returns the encoded size including the header.
func (m *Message) Size() int {
	return headerSize + len(m.data)
}

// Bytes encodes the header followed by the payload.
func (m *Message) Bytes() ([]byte, error) {
	if m.Size() > MaxMessageSize {
		return nil, fmt.Errorf("%w: object %d opcode %d is %d bytes, limit %d",
			ErrMessageTooLarge, m.Sender, m.Opcode, m.Size(), MaxMessageSize)
	}
	b := make([]byte, headerSize, m.Size())
	order.PutUint32(b[0:4], m.Sender)
	order.PutUint32(b[4:8], uint32(m.Size())<<16|uint32(m.Opcode))
	return append(b, m.data...), nil
}

// FDs returns the file descriptors attached to a request.
func (m *Message) FDs() []int {
	return m.fds
}

func (m *Message) PutUint(v uint32) {
	m.data = order.AppendUint32(m.data, v)
}

func (m *Message) PutInt(v int32) {
	m.PutUint(uint32(v))
}

// PutFixed encodes v as a 24.8 signed fixed point number.
func (m *Message) PutFixed(v float64) {
	m.PutInt(int32(math.Round(v * 256)))
}

func (m *Message) PutObject(id uint32) {
	m.PutUint(id)
}

func (m *Message) PutNewID(id uint32) {
	m.PutUint(id)
}

// PutString encodes s with its NUL terminator, padded to 32 bits.
func (m *Message) PutString(s string) {
	m.PutUint(uint32(len(s) + 1))
	m.data = append(m.data, s...)
	m.data = append(m.data, 0)
	m.pad()
}

func (m *Message) PutArray(a []byte) {
	m.PutUint(uint32(len(a)))
	m.data = append(m.data, a...)
	m.pad()
}

// PutFD attaches fd as ancillary data. It does not take ownership.
func (m *Message) PutFD(fd int) {
	m.fds = append(m.fds, fd)
}

func (m *Message) pad() {
	for len(m.data)%4 != 0 {
		m.data = append(m.data, 0)
	}
}

// Err returns the first decoding error.
func (m *Message) Err() error {
	return m.err
}

func (m *Message) fail(what string) {
	if m.err == nil {
		m.err = fmt.Errorf("%w: object %d opcode %d reading %s", ErrShortMessage, m.Sender, m.Opcode, what)
	}
}

func (m *Message) next(n int, what string) []byte {
	if m.err != nil {
		return nil
	}
	if m.off+n > len(m.data) {
		m.fail(what)
		return nil
	}
	b := m.data[m.off : m.off+n]
	m.off += n
	return b
}

func (m *Message) Uint() uint32 {
	b := m.next(4, "uint")
	if b == nil {
		return 0
	}
	return order.Uint32(b)
}

func (m *Message) Int() int32 {
	return int32(m.Uint())
}

func (m *Message) Fixed() float64 {
	return float64(m.Int()) / 256
}

func (m *Message) Object() uint32 {
	return m.Uint()
}

// Str decodes a string argument.
func (m *Message) Str() string {
	n := int(m.Uint())
	if n == 0 {
		return ""
	}
	b := m.next(padded(n), "string")
	if b == nil {
		return ""
	}
	return string(b[:n-1])
}

func (m *Message) Array() []byte {
	n := int(m.Uint())
	b := m.next(padded(n), "array")
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b[:n])
	return out
}

// FD takes the next descriptor received on the connection. The caller owns it.
func (m *Message) FD() int {
	if m.err != nil {
		return -1
	}
	if m.src == nil {
		m.fail("fd")
		return -1
	}
	fd, err := m.src.takeFD()
	if err != nil {
		m.err = err
		return -1
	}
	return fd
}

func padded(n int) int {
	return (n + 3) &^ 3
}
