// Package backend provides a renderer backend that owns no GPU resources.
//
// Null walks the same state machine a real swapchain does and paces its
// presents at a fixed refresh rate, so the shell and a game can run on
// machines without a GPU driver.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/vkshell/internal/shell"
	"github.com/bnema/vkshell/internal/vulkan"
	"github.com/bnema/vkshell/internal/wayland"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// queueFamilies is the number of queue families the null device reports.
const queueFamilies = 4

// nullInstance is the handle handed to the surface factory.
const nullInstance vulkan.Instance = 0x1

var (
	ErrNoContext      = errors.New("no rendering context")
	ErrNoSwapchain    = errors.New("swapchain not sized")
	ErrNotAcquired    = errors.New("back buffer not acquired")
	ErrAlreadyCreated = errors.New("rendering context already created")
)

// Null is a paced stand-in for a GPU backend. It also acts as the surface
// factory for the SurfaceBridge it is handed. It is not safe for concurrent
// use.
type Null struct {
	log     *log.Logger
	ctx     context.Context
	limiter *rate.Limiter

	created      bool
	surface      vulkan.Surface
	presentQueue uint32
	width        int
	height       int
	acquired     bool
	frames       uint64
}

// Option configures a Null backend.
type Option func(*Null)

// WithContext bounds the wait for the next present slot. A cancelled
// context makes AcquireBackBuffer fail.
func WithContext(ctx context.Context) Option {
	return func(n *Null) { n.ctx = ctx }
}

// NewNull creates a backend presenting at most refreshHz times per second.
// A rate of zero disables pacing.
func NewNull(refreshHz float64, l *log.Logger, opts ...Option) *Null {
	limit := rate.Inf
	if refreshHz > 0 {
		limit = rate.Limit(refreshHz)
	}
	n := &Null{
		log:     l,
		ctx:     context.Background(),
		limiter: rate.NewLimiter(limit, 1),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// CreateContext creates the presentable surface and picks the first queue
// family that can present to it.
func (n *Null) CreateContext(info shell.ContextInfo) error {
	if n.created {
		return ErrAlreadyCreated
	}
	if info.Surface == nil {
		return errors.New("no surface bridge in context info")
	}
	if info.GetInstanceProcAddr == 0 {
		n.log.Debug("No loader entry point, running without a driver")
	}

	surface, err := info.Surface.CreateSurface(nullInstance)
	if err != nil {
		return err
	}

	queue, ok := uint32(0), false
	for qf := uint32(0); qf < queueFamilies; qf++ {
		if info.Surface.CanPresent(vulkan.PhysicalDevice(1), qf) {
			queue, ok = qf, true
			break
		}
	}
	if !ok {
		return errors.New("no queue family can present to the surface")
	}

	n.created = true
	n.surface = surface
	n.presentQueue = queue
	n.log.Info("Rendering context created",
		"layers", info.Layers,
		"extensions", info.Extensions,
		"present_queue", queue)
	return nil
}

// DestroyContext drops the surface and the swapchain.
func (n *Null) DestroyContext() error {
	if !n.created {
		return ErrNoContext
	}
	n.log.Info("Rendering context destroyed", "frames", n.frames)
	*n = Null{log: n.log, ctx: n.ctx, limiter: n.limiter}
	return nil
}

func (n *Null) ResizeSwapchain(width, height int) error {
	if !n.created {
		return ErrNoContext
	}
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid swapchain size %dx%d", width, height)
	}
	n.width, n.height = width, height
	n.log.Debug("Swapchain sized", "width", width, "height", height)
	return nil
}

// AcquireBackBuffer blocks until the next present slot.
func (n *Null) AcquireBackBuffer() error {
	if n.width == 0 {
		return ErrNoSwapchain
	}
	if n.acquired {
		return errors.New("back buffer already acquired")
	}
	if err := n.limiter.Wait(n.ctx); err != nil {
		return fmt.Errorf("waiting for present slot: %w", err)
	}
	n.acquired = true
	return nil
}

func (n *Null) PresentBackBuffer() error {
	if !n.acquired {
		return ErrNotAcquired
	}
	n.acquired = false
	n.frames++
	return nil
}

// Frames returns the number of presents since the context was created.
func (n *Null) Frames() uint64 {
	return n.frames
}

// Surface returns the presentable surface and the queue family picked to
// present to it.
func (n *Null) Surface() (vulkan.Surface, uint32) {
	return n.surface, n.presentQueue
}

// Size returns the swapchain size.
func (n *Null) Size() (int, int) {
	return n.width, n.height
}

// CreateWaylandSurface returns a handle derived from the display and
// surface object ids.
func (n *Null) CreateWaylandSurface(instance vulkan.Instance, info vulkan.WaylandSurfaceCreateInfo) (vulkan.Surface, error) {
	if instance == 0 {
		return 0, errors.New("null instance")
	}
	if info.Display == nil || info.Surface == nil {
		return 0, errors.New("surface create info needs a display and a surface")
	}
	return vulkan.Surface(uint64(info.Display.ID())<<32 | uint64(info.Surface.ID())), nil
}

// WaylandPresentationSupport reports support on queue family 0 only.
func (n *Null) WaylandPresentationSupport(_ vulkan.PhysicalDevice, queueFamily uint32, display wayland.Object) bool {
	return display != nil && queueFamily == 0
}
