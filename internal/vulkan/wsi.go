package vulkan

import "github.com/bnema/vkshell/internal/wayland"

// Dispatchable and non-dispatchable handles as the backend sees them.
type (
	Instance       uintptr
	PhysicalDevice uintptr
	Surface        uint64
)

// WaylandSurfaceCreateInfo names the connection and surface a presentable
// surface is created for.
type WaylandSurfaceCreateInfo struct {
	Display wayland.Object
	Surface wayland.Object
}

// WSI is the window-system integration half of a backend: it turns native
// window objects into presentable surfaces and answers presentation support
// queries.
type WSI interface {
	CreateWaylandSurface(instance Instance, info WaylandSurfaceCreateInfo) (Surface, error)
	WaylandPresentationSupport(device PhysicalDevice, queueFamily uint32, display wayland.Object) bool
}

// InstanceLayers returns the layers to enable.
func InstanceLayers(validate bool) []string {
	if validate {
		return []string{ValidationLayer}
	}
	return nil
}

// InstanceExtensions returns the extensions a Wayland presenter needs.
func InstanceExtensions() []string {
	return []string{SurfaceExtension, WaylandSurfaceExtension}
}
