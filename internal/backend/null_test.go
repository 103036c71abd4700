package backend

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/bnema/vkshell/internal/shell"
	"github.com/bnema/vkshell/internal/vulkan"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type object uint32

func (o object) ID() uint32 { return uint32(o) }

func newTestNull(t *testing.T, hz float64, opts ...Option) (*Null, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel, Formatter: log.LogfmtFormatter})
	return NewNull(hz, l, opts...), &buf
}

func contextInfo(n *Null) shell.ContextInfo {
	return shell.ContextInfo{
		GetInstanceProcAddr: 0x1000,
		Layers:              vulkan.InstanceLayers(false),
		Extensions:          vulkan.InstanceExtensions(),
		Surface:             shell.NewSurfaceBridge(n, object(1), object(7)),
	}
}

func TestNullLifecycle(t *testing.T) {
	n, logs := newTestNull(t, 0)

	require.NoError(t, n.CreateContext(contextInfo(n)))
	surface, queue := n.Surface()
	assert.Equal(t, vulkan.Surface(1<<32|7), surface)
	assert.Equal(t, uint32(0), queue)

	require.NoError(t, n.ResizeSwapchain(800, 600))
	w, h := n.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	for i := 0; i < 5; i++ {
		require.NoError(t, n.AcquireBackBuffer())
		require.NoError(t, n.PresentBackBuffer())
	}
	assert.Equal(t, uint64(5), n.Frames())

	require.NoError(t, n.DestroyContext())
	assert.Zero(t, n.Frames())
	assert.Contains(t, logs.String(), "frames=5")

	// The backend can be reused after a destroy.
	require.NoError(t, n.CreateContext(contextInfo(n)))
	require.NoError(t, n.DestroyContext())
}

func TestNullStateMachine(t *testing.T) {
	tests := []struct {
		name string
		run  func(n *Null) error
		want error
	}{
		{"destroy without context", func(n *Null) error { return n.DestroyContext() }, ErrNoContext},
		{"resize without context", func(n *Null) error { return n.ResizeSwapchain(1, 1) }, ErrNoContext},
		{"acquire before resize", func(n *Null) error {
			if err := n.CreateContext(contextInfo(n)); err != nil {
				return err
			}
			return n.AcquireBackBuffer()
		}, ErrNoSwapchain},
		{"present before acquire", func(n *Null) error {
			if err := n.CreateContext(contextInfo(n)); err != nil {
				return err
			}
			if err := n.ResizeSwapchain(4, 4); err != nil {
				return err
			}
			return n.PresentBackBuffer()
		}, ErrNotAcquired},
		{"create twice", func(n *Null) error {
			if err := n.CreateContext(contextInfo(n)); err != nil {
				return err
			}
			return n.CreateContext(contextInfo(n))
		}, ErrAlreadyCreated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, _ := newTestNull(t, 0)
			assert.ErrorIs(t, tt.run(n), tt.want)
		})
	}
}

func TestNullRejectsBadInput(t *testing.T) {
	n, _ := newTestNull(t, 0)
	assert.Error(t, n.CreateContext(shell.ContextInfo{}))

	require.NoError(t, n.CreateContext(contextInfo(n)))
	assert.Error(t, n.ResizeSwapchain(0, 600))
	assert.Error(t, n.ResizeSwapchain(800, -1))

	require.NoError(t, n.ResizeSwapchain(8, 8))
	require.NoError(t, n.AcquireBackBuffer())
	assert.Error(t, n.AcquireBackBuffer())
}

func TestNullWithoutPresentableQueue(t *testing.T) {
	n, _ := newTestNull(t, 0)
	info := contextInfo(n)
	// No WSI behind the bridge: nothing can present.
	info.Surface = shell.NewSurfaceBridge(nil, object(1), object(7))

	assert.Error(t, n.CreateContext(info))
}

func TestNullPacesPresents(t *testing.T) {
	if testing.Short() {
		t.Skip("timing test")
	}
	n, _ := newTestNull(t, 200)
	require.NoError(t, n.CreateContext(contextInfo(n)))
	require.NoError(t, n.ResizeSwapchain(8, 8))

	start := time.Now()
	for i := 0; i < 11; i++ {
		require.NoError(t, n.AcquireBackBuffer())
		require.NoError(t, n.PresentBackBuffer())
	}
	// The first slot is free, the next ten are 5ms apart.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestNullUnpacedNeverWaits(t *testing.T) {
	n, _ := newTestNull(t, 0)
	require.NoError(t, n.CreateContext(contextInfo(n)))
	require.NoError(t, n.ResizeSwapchain(8, 8))

	start := time.Now()
	for i := 0; i < 1000; i++ {
		require.NoError(t, n.AcquireBackBuffer())
		require.NoError(t, n.PresentBackBuffer())
	}
	// Paced at even 1kHz this would take a second.
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, uint64(1000), n.Frames())
}

func TestNullAcquireHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	n, _ := newTestNull(t, 0.001, WithContext(ctx))
	require.NoError(t, n.CreateContext(contextInfo(n)))
	require.NoError(t, n.ResizeSwapchain(8, 8))

	require.NoError(t, n.AcquireBackBuffer())
	require.NoError(t, n.PresentBackBuffer())

	cancel()
	assert.ErrorIs(t, n.AcquireBackBuffer(), context.Canceled)
}

func TestNullWSI(t *testing.T) {
	n, _ := newTestNull(t, 0)

	_, err := n.CreateWaylandSurface(0, vulkan.WaylandSurfaceCreateInfo{Display: object(1), Surface: object(2)})
	assert.Error(t, err)
	_, err = n.CreateWaylandSurface(1, vulkan.WaylandSurfaceCreateInfo{Display: object(1)})
	assert.Error(t, err)

	assert.True(t, n.WaylandPresentationSupport(0, 0, object(1)))
	assert.False(t, n.WaylandPresentationSupport(0, 1, object(1)))
	assert.False(t, n.WaylandPresentationSupport(0, 0, nil))
}
