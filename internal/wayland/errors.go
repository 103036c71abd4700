package wayland

import "fmt"

// ProtocolError is a fatal error reported by the compositor through
// wl_display.error. The connection is unusable afterwards.
type ProtocolError struct {
	ObjectID uint32
	Code     uint32
	Message  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on object %d (code %d): %s", e.ObjectID, e.Code, e.Message)
}
