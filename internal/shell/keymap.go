package shell

import "github.com/ThomasT75/uinput"

// Key is the abstract key a game receives.
type Key int

const (
	KeyUnknown Key = iota
	KeyEscape
	KeyUp
	KeyDown
	KeySpace
)

func (k Key) String() string {
	switch k {
	case KeyEscape:
		return "escape"
	case KeyUp:
		return "up"
	case KeyDown:
		return "down"
	case KeySpace:
		return "space"
	default:
		return "unknown"
	}
}

// keyTable maps evdev scancodes. Anything else is KeyUnknown.
var keyTable = map[uint32]Key{
	uinput.KeyEsc:   KeyEscape,
	uinput.KeyUp:    KeyUp,
	uinput.KeyDown:  KeyDown,
	uinput.KeySpace: KeySpace,
}

func translateKey(code uint32) Key {
	if k, ok := keyTable[code]; ok {
		return k
	}
	return KeyUnknown
}
