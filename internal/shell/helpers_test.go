package shell

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bnema/vkshell/internal/vulkan"
	"github.com/bnema/vkshell/internal/wayland"
	"github.com/bnema/vkshell/internal/wayland/wltest"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/require"
)

type fakeGame struct {
	settings Settings
	keys     []Key
	elapsed  []float32
}

func (g *fakeGame) Settings() Settings          { return g.settings }
func (g *fakeGame) OnKey(k Key)                 { g.keys = append(g.keys, k) }
func (g *fakeGame) AddGameTime(seconds float32) { g.elapsed = append(g.elapsed, seconds) }

type fakeBackend struct {
	calls     []string
	info      ContextInfo
	width     int
	height    int
	presents  int
	destroyed int
	createErr error
	// onCreate runs inside CreateContext.
	onCreate func()
	// onPresent runs after every present with the running count.
	onPresent func(n int)
}

func (b *fakeBackend) CreateContext(info ContextInfo) error {
	b.calls = append(b.calls, "create_context")
	b.info = info
	if b.onCreate != nil {
		b.onCreate()
	}
	return b.createErr
}

func (b *fakeBackend) DestroyContext() error {
	b.calls = append(b.calls, "destroy_context")
	b.destroyed++
	return nil
}

func (b *fakeBackend) ResizeSwapchain(width, height int) error {
	b.calls = append(b.calls, "resize_swapchain")
	b.width, b.height = width, height
	return nil
}

func (b *fakeBackend) AcquireBackBuffer() error {
	b.calls = append(b.calls, "acquire")
	return nil
}

func (b *fakeBackend) PresentBackBuffer() error {
	b.calls = append(b.calls, "present")
	b.presents++
	if b.onPresent != nil {
		b.onPresent(b.presents)
	}
	return nil
}

type fakeLoader struct {
	loads  int
	closed int
	path   string
	err    error
}

func (l *fakeLoader) load(path string) (Loader, error) {
	l.loads++
	l.path = path
	if l.err != nil {
		return nil, l.err
	}
	return l, nil
}

func (l *fakeLoader) InstanceProcAddr() uintptr { return 0x1234 }

func (l *fakeLoader) Close() error {
	l.closed++
	return nil
}

type fakeWSI struct {
	info      vulkan.WaylandSurfaceCreateInfo
	instance  vulkan.Instance
	err       error
	supported map[uint32]bool
	queries   int
}

func (w *fakeWSI) CreateWaylandSurface(instance vulkan.Instance, info vulkan.WaylandSurfaceCreateInfo) (vulkan.Surface, error) {
	w.instance = instance
	w.info = info
	if w.err != nil {
		return 0, w.err
	}
	return vulkan.Surface(0xbeef), nil
}

func (w *fakeWSI) WaylandPresentationSupport(_ vulkan.PhysicalDevice, queueFamily uint32, _ wayland.Object) bool {
	w.queries++
	return w.supported[queueFamily]
}

type fixture struct {
	shell   *Shell
	fake    *wltest.Compositor
	game    *fakeGame
	backend *fakeBackend
	loader  *fakeLoader
	wsi     *fakeWSI
	logs    *bytes.Buffer
}

func defaultSettings() Settings {
	return Settings{Title: "cube", Width: 640, Height: 480}
}

func testLogger(buf *bytes.Buffer) *log.Logger {
	return log.NewWithOptions(buf, log.Options{Level: log.DebugLevel, Formatter: log.LogfmtFormatter})
}

// newFixture builds a shell against fake. The shell is closed on cleanup.
func newFixture(t *testing.T, fake *wltest.Compositor, settings Settings, opts ...Option) *fixture {
	t.Helper()
	f, err := tryFixture(fake, settings, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.shell.Close() })
	return f
}

func tryFixture(fake *wltest.Compositor, settings Settings, opts ...Option) (*fixture, error) {
	f := &fixture{
		fake:    fake,
		game:    &fakeGame{settings: settings},
		backend: &fakeBackend{},
		loader:  &fakeLoader{},
		wsi:     &fakeWSI{supported: map[uint32]bool{}},
		logs:    &bytes.Buffer{},
	}
	all := append([]Option{
		WithConnector(fake.Connector()),
		WithLoader(f.loader.load),
		WithLogger(testLogger(f.logs)),
		WithWSI(f.wsi),
	}, opts...)
	s, err := New(f.game, f.backend, all...)
	f.shell = s
	return f, err
}

// quitAfter makes the backend request a quit once n frames were presented.
func (f *fixture) quitAfter(n int) {
	f.backend.onPresent = func(presented int) {
		if presented == n {
			f.shell.Quit()
		}
	}
}

func globalsWithout(iface string) []wayland.Global {
	var out []wayland.Global
	for _, g := range wltest.DefaultGlobals() {
		if g.Interface != iface {
			out = append(out, g)
		}
	}
	return out
}

func requestNames(reqs []wltest.Request, keep func(string) bool) []string {
	var out []string
	for _, r := range reqs {
		if keep(r.Name) {
			out = append(out, r.Name)
		}
	}
	return out
}

var errInjected = errors.New("injected failure")
