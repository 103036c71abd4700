// Package shell binds a Wayland toplevel window to a presentation loop
// that drives a rendering backend.
//
// A Shell connects to the compositor and binds the globals it needs in New.
// Run creates the window, hands the backend a ContextInfo, and presents
// until the compositor asks the window to close or the game calls Quit.
// Close releases every protocol object in reverse order of creation.
package shell

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/bnema/vkshell/internal/logger"
	"github.com/bnema/vkshell/internal/vulkan"
	"github.com/bnema/vkshell/internal/wayland"
	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-multierror"
)

// Settings is what the shell needs to know about the game.
type Settings struct {
	Title       string
	AppID       string // empty means Title
	Width       int
	Height      int
	Animate     bool
	Validate    bool
	DisplayName string // empty means WAYLAND_DISPLAY
	LoaderPath  string // tried before the system loader
}

// Game consumes input and time.
type Game interface {
	Settings() Settings
	OnKey(k Key)
	AddGameTime(seconds float32)
}

// ContextInfo is handed to the backend when its rendering context is created.
type ContextInfo struct {
	GetInstanceProcAddr uintptr
	Layers              []string
	Extensions          []string
	Surface             *SurfaceBridge
}

// Backend draws and presents frames.
type Backend interface {
	CreateContext(info ContextInfo) error
	DestroyContext() error
	ResizeSwapchain(width, height int) error
	AcquireBackBuffer() error
	PresentBackBuffer() error
}

// Loader is an opened GPU loader.
type Loader interface {
	InstanceProcAddr() uintptr
	Close() error
}

// Connector opens a display connection whose events go to sink.
type Connector func(name string, sink wayland.EventSink) (wayland.Display, error)

// InitError is an unrecoverable failure while connecting or building the
// window. The process is expected to exit with status -1.
type InitError struct {
	Stage string
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// IsInitError reports whether err is or wraps an *InitError.
func IsInitError(err error) bool {
	var ie *InitError
	return errors.As(err, &ie)
}

// Option configures a Shell.
type Option func(*Shell)

// WithConnector replaces wayland.Connect.
func WithConnector(c Connector) Option {
	return func(s *Shell) { s.connect = c }
}

// WithClock replaces the monotonic clock used for frame timing.
func WithClock(c Clock) Option {
	return func(s *Shell) { s.clock = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Shell) { s.log = l }
}

// WithWSI sets the surface factory behind the SurfaceBridge.
func WithWSI(w vulkan.WSI) Option {
	return func(s *Shell) { s.wsi = w }
}

// WithLoader replaces vulkan.Load.
func WithLoader(load func(path string) (Loader, error)) Option {
	return func(s *Shell) { s.load = load }
}

func connectWayland(name string, sink wayland.EventSink) (wayland.Display, error) {
	c, err := wayland.Connect(name, sink)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func loadVulkan(path string) (Loader, error) {
	lib, err := vulkan.Load(path)
	if err != nil {
		return nil, err
	}
	return lib, nil
}

// Shell owns the display connection, the window and the loop. Except for
// Quit, its methods must be called from one goroutine.
type Shell struct {
	game     Game
	backend  Backend
	settings Settings
	log      *log.Logger
	connect  Connector
	clock    Clock
	wsi      vulkan.WSI
	load     func(path string) (Loader, error)

	display  wayland.Display
	globals  *binder
	input    *inputRouter
	win      *window
	bridge   *SurfaceBridge
	lib      Loader
	pacer    *framePacer
	releases releaseStack
	eventErr error

	// quit is the only field safe to touch from other goroutines.
	quit atomic.Bool
}

// New connects to the compositor, binds the required globals and loads the
// GPU loader. Every failure is an *InitError; resources acquired before it
// are released.
func New(game Game, backend Backend, opts ...Option) (*Shell, error) {
	s := &Shell{
		game:     game,
		backend:  backend,
		settings: game.Settings(),
		log:      logger.Component("shell"),
		connect:  connectWayland,
		clock:    MonotonicClock,
		load:     loadVulkan,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.init(); err != nil {
		if cerr := s.Close(); cerr != nil {
			s.log.Debug("release after failed init", "err", cerr)
		}
		return nil, err
	}
	return s, nil
}

func (s *Shell) init() error {
	if err := s.connectDisplay(); err != nil {
		return err
	}

	lib, err := s.load(s.settings.LoaderPath)
	if err != nil {
		return &InitError{Stage: "load GPU loader", Err: err}
	}
	s.lib = lib
	s.releases.push("loader", lib.Close)
	return nil
}

// Quit asks the loop to stop before its next iteration. It is safe to call
// from any goroutine. A request made before or during Run's setup is kept,
// and the loop then presents nothing.
func (s *Shell) Quit() {
	s.quit.Store(true)
}

// Quitting reports whether a quit has been requested.
func (s *Shell) Quitting() bool {
	return s.quit.Load()
}

// Run creates the window and the backend context, presents until quit and
// destroys the context.
func (s *Shell) Run() error {
	if err := s.createWindow(); err != nil {
		return err
	}

	info := ContextInfo{
		Layers:     vulkan.InstanceLayers(s.settings.Validate),
		Extensions: vulkan.InstanceExtensions(),
		Surface:    s.bridge,
	}
	if s.lib != nil {
		info.GetInstanceProcAddr = s.lib.InstanceProcAddr()
	}
	if err := s.backend.CreateContext(info); err != nil {
		return &InitError{Stage: "create rendering context", Err: err}
	}

	var result *multierror.Error
	if err := s.present(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := s.backend.DestroyContext(); err != nil {
		result = multierror.Append(result, fmt.Errorf("failed to destroy rendering context: %w", err))
	}
	return result.ErrorOrNil()
}

func (s *Shell) present() error {
	if err := s.backend.ResizeSwapchain(s.settings.Width, s.settings.Height); err != nil {
		return fmt.Errorf("failed to size swapchain: %w", err)
	}

	if s.settings.Animate {
		return s.loopPoll()
	}
	return s.loopWait()
}

// Close releases input devices, the window, the globals, the registry, the
// loader and finally the connection. It is safe to call more than once.
func (s *Shell) Close() error {
	var result *multierror.Error
	if s.input != nil {
		if err := s.input.detachAll(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if s.win != nil {
		if err := s.win.release(); err != nil {
			result = multierror.Append(result, err)
		}
		s.win = nil
		s.bridge = nil
	}
	if err := s.releases.release(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// fail records the first error raised inside an event handler. The loop
// returns it after the dispatch that produced it.
func (s *Shell) fail(err error) {
	if err != nil && s.eventErr == nil {
		s.eventErr = err
	}
}
