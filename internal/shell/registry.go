package shell

import (
	"fmt"

	"github.com/bnema/vkshell/internal/wayland"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
)

// binder keeps at most one binding per known interface. Matching is by
// name only, so announcement order and duplicates do not matter.
type binder struct {
	registry wayland.Registry
	log      *log.Logger

	compositor  wayland.Compositor
	wmBase      wayland.WmBase
	decorations wayland.DecorationManager
	seat        wayland.Seat
}

func newBinder(registry wayland.Registry, l *log.Logger) *binder {
	return &binder{registry: registry, log: l}
}

func (b *binder) announce(g wayland.Global) error {
	var err error
	switch g.Interface {
	case wayland.CompositorInterface:
		if b.compositor != nil {
			return nil
		}
		b.compositor, err = b.registry.BindCompositor(g)
	case wayland.WmBaseInterface:
		if b.wmBase != nil {
			return nil
		}
		b.wmBase, err = b.registry.BindWmBase(g)
	case wayland.DecorationManagerInterface:
		if b.decorations != nil {
			return nil
		}
		b.decorations, err = b.registry.BindDecorationManager(g)
	case wayland.SeatInterface:
		if b.seat != nil {
			return nil
		}
		b.seat, err = b.registry.BindSeat(g)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", g.Interface, err)
	}
	b.log.Debug("bound global", "interface", g.Interface, "name", g.Name, "version", g.Version)
	return nil
}

// release drops the bindings, seat first. Input devices and the window must
// already be gone.
func (b *binder) release() error {
	var result *multierror.Error
	if b.seat != nil {
		if err := b.seat.Release(); err != nil {
			result = multierror.Append(result, fmt.Errorf("release wl_seat: %w", err))
		}
		b.seat = nil
	}
	if b.decorations != nil {
		if err := b.decorations.Destroy(); err != nil {
			result = multierror.Append(result, fmt.Errorf("destroy decoration manager: %w", err))
		}
		b.decorations = nil
	}
	if b.wmBase != nil {
		if err := b.wmBase.Destroy(); err != nil {
			result = multierror.Append(result, fmt.Errorf("destroy xdg_wm_base: %w", err))
		}
		b.wmBase = nil
	}
	if b.compositor != nil {
		if err := b.compositor.Destroy(); err != nil {
			result = multierror.Append(result, fmt.Errorf("destroy wl_compositor: %w", err))
		}
		b.compositor = nil
	}
	return result.ErrorOrNil()
}
