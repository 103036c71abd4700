// Package vulkan loads the system GPU loader and defines the window-system
// integration types a rendering backend consumes.
package vulkan

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/bnema/vkshell/internal/logger"
	"github.com/ebitengine/purego"
	"github.com/hashicorp/go-multierror"
)

// UninstalledLoader points at a loader from a build tree. It is tried before
// the system loader and is set at link time:
//
//	go build -ldflags "-X github.com/bnema/vkshell/internal/vulkan.UninstalledLoader=/path/to/libvulkan.so.1"
var UninstalledLoader string

const (
	LoaderName                = "libvulkan.so.1"
	GetInstanceProcAddrSymbol = "vkGetInstanceProcAddr"

	ValidationLayer         = "VK_LAYER_LUNARG_standard_validation"
	SurfaceExtension        = "VK_KHR_surface"
	WaylandSurfaceExtension = "VK_KHR_wayland_surface"

	APIVersion10 uint32 = 1 << 22
)

// Library is an opened loader with its one resolved entry point.
type Library struct {
	path                string
	handle              uintptr
	getInstanceProcAddr uintptr
}

// Load opens the loader. Candidates are tried in order: override,
// UninstalledLoader, then LoaderName. A loader that opens but lacks
// vkGetInstanceProcAddr is an error, not a reason to try the next one.
func Load(override string) (*Library, error) {
	return loadFrom(candidates(override))
}

func candidates(override string) []string {
	var paths []string
	for _, p := range []string{override, UninstalledLoader, LoaderName} {
		if p == "" {
			continue
		}
		dup := false
		for _, seen := range paths {
			dup = dup || seen == p
		}
		if !dup {
			paths = append(paths, p)
		}
	}
	return paths
}

func loadFrom(paths []string) (*Library, error) {
	var errs *multierror.Error
	for _, path := range paths {
		handle, err := purego.Dlopen(path, purego.RTLD_LAZY|purego.RTLD_LOCAL)
		if err != nil {
			logger.Debugf("Loader %s unavailable: %v", path, err)
			errs = multierror.Append(errs, err)
			continue
		}
		sym, err := purego.Dlsym(handle, GetInstanceProcAddrSymbol)
		if err != nil {
			_ = purego.Dlclose(handle)
			return nil, fmt.Errorf("failed to load %s: %w", GetInstanceProcAddrSymbol, err)
		}
		logger.Debugf("Loaded %s from %s", GetInstanceProcAddrSymbol, path)
		return &Library{path: path, handle: handle, getInstanceProcAddr: sym}, nil
	}
	if errs == nil {
		return nil, errors.New("failed to load: no loader candidates")
	}
	return nil, fmt.Errorf("failed to load %w", errs.ErrorOrNil())
}

// Path is the candidate that was opened.
func (l *Library) Path() string {
	return l.path
}

// InstanceProcAddr returns the address of vkGetInstanceProcAddr.
func (l *Library) InstanceProcAddr() uintptr {
	return l.getInstanceProcAddr
}

// ProcAddr resolves a command through vkGetInstanceProcAddr. Global commands
// take a zero instance. It returns zero when the command is unknown.
func (l *Library) ProcAddr(instance Instance, name string) uintptr {
	cname := append([]byte(name), 0)
	fn, _, _ := purego.SyscallN(l.getInstanceProcAddr, uintptr(instance), uintptr(unsafe.Pointer(&cname[0])))
	runtime.KeepAlive(cname)
	return fn
}

// InstanceVersion asks the loader which API version it supports. Loaders
// predating vkEnumerateInstanceVersion only support 1.0.
func (l *Library) InstanceVersion() (uint32, error) {
	fn := l.ProcAddr(0, "vkEnumerateInstanceVersion")
	if fn == 0 {
		return APIVersion10, nil
	}
	var version uint32
	r, _, _ := purego.SyscallN(fn, uintptr(unsafe.Pointer(&version)))
	if res := int32(r); res != 0 {
		return 0, fmt.Errorf("vkEnumerateInstanceVersion failed: VkResult %d", res)
	}
	return version, nil
}

// Close unloads the library.
func (l *Library) Close() error {
	if l.handle == 0 {
		return nil
	}
	err := purego.Dlclose(l.handle)
	l.handle = 0
	l.getInstanceProcAddr = 0
	return err
}

// VersionString formats a packed API version as major.minor.patch.
func VersionString(v uint32) string {
	return fmt.Sprintf("%d.%d.%d", v>>22&0x7f, v>>12&0x3ff, v&0xfff)
}
