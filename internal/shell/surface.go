package shell

import (
	"errors"
	"fmt"

	"github.com/bnema/vkshell/internal/vulkan"
	"github.com/bnema/vkshell/internal/wayland"
)

var errNoWSI = errors.New("no window-system integration configured")

// SurfaceBridge lets the backend create a presentable surface for the
// window and ask which queues can present to it.
type SurfaceBridge struct {
	wsi     vulkan.WSI
	display wayland.Object
	surface wayland.Object
}

// NewSurfaceBridge binds wsi to a display connection and one of its surfaces.
func NewSurfaceBridge(wsi vulkan.WSI, display wayland.Object, surface wayland.Object) *SurfaceBridge {
	return &SurfaceBridge{wsi: wsi, display: display, surface: surface}
}

// CreateSurface creates a presentable surface on instance. Failures are
// returned as is and not retried.
func (b *SurfaceBridge) CreateSurface(instance vulkan.Instance) (vulkan.Surface, error) {
	if b.wsi == nil {
		return 0, errNoWSI
	}
	surface, err := b.wsi.CreateWaylandSurface(instance, vulkan.WaylandSurfaceCreateInfo{
		Display: b.display,
		Surface: b.surface,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create presentable surface: %w", err)
	}
	return surface, nil
}

// CanPresent reports whether the queue family of device can present to the
// compositor. It has no side effects.
func (b *SurfaceBridge) CanPresent(device vulkan.PhysicalDevice, queueFamily uint32) bool {
	if b.wsi == nil {
		return false
	}
	return b.wsi.WaylandPresentationSupport(device, queueFamily, b.display)
}
