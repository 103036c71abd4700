package shell

import (
	"errors"
	"testing"

	"github.com/bnema/vkshell/internal/vulkan"
	"github.com/bnema/vkshell/internal/wayland/wltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSurfaceBridge(t *testing.T) {
	fake := wltest.New(wltest.DefaultGlobals()...)
	f := newFixture(t, fake, defaultSettings())
	require.NoError(t, f.shell.createWindow())
	f.wsi.supported[2] = true

	bridge := f.shell.bridge
	require.NotNil(t, bridge)

	surface, err := bridge.CreateSurface(vulkan.Instance(0x10))
	require.NoError(t, err)
	assert.Equal(t, vulkan.Surface(0xbeef), surface)
	assert.Equal(t, vulkan.Instance(0x10), f.wsi.instance)
	assert.Equal(t, uint32(1), f.wsi.info.Display.ID())
	assert.Equal(t, f.shell.win.surface.ID(), f.wsi.info.Surface.ID())

	assert.True(t, bridge.CanPresent(vulkan.PhysicalDevice(1), 2))
	assert.False(t, bridge.CanPresent(vulkan.PhysicalDevice(1), 0))
	assert.Equal(t, 2, f.wsi.queries)
}

func TestSurfaceBridgeFailure(t *testing.T) {
	fake := wltest.New(wltest.DefaultGlobals()...)
	f := newFixture(t, fake, defaultSettings())
	require.NoError(t, f.shell.createWindow())
	f.wsi.err = errInjected

	surface, err := f.shell.bridge.CreateSurface(vulkan.Instance(0x10))
	require.ErrorIs(t, err, errInjected)
	assert.Zero(t, surface)
}

func TestSurfaceBridgeWithoutWSI(t *testing.T) {
	b := NewSurfaceBridge(nil, nil, nil)

	_, err := b.CreateSurface(vulkan.Instance(1))
	assert.ErrorIs(t, err, errNoWSI)
	assert.False(t, b.CanPresent(vulkan.PhysicalDevice(1), 0))
}

func TestReleaseStack(t *testing.T) {
	var order []string
	var r releaseStack
	step := func(name string, err error) func() error {
		return func() error {
			order = append(order, name)
			return err
		}
	}
	r.push("a", step("a", nil))
	r.push("b", step("b", errors.New("busy")))
	r.push("c", step("c", nil))
	r.push("d", step("d", errors.New("gone")))
	require.Equal(t, 4, r.size())

	err := r.release()
	require.Error(t, err)
	assert.Equal(t, []string{"d", "c", "b", "a"}, order)
	assert.Contains(t, err.Error(), "release b: busy")
	assert.Contains(t, err.Error(), "release d: gone")
	assert.Zero(t, r.size())

	// Released steps do not run again.
	require.NoError(t, r.release())
	assert.Len(t, order, 4)
}
