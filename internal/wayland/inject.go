package wayland

import (
	"fmt"
	"time"

	"github.com/ThomasT75/uinput"
	"github.com/bnema/vkshell/internal/logger"
)

// KeyTapper is the part of a virtual keyboard the injector drives.
type KeyTapper interface {
	KeyPress(key int) error
	Close() error
}

// KeyInjector types evdev keys through a uinput virtual keyboard so the
// focused window receives them from the compositor like real input.
type KeyInjector struct {
	keyboard KeyTapper
	delay    time.Duration
}

// NewKeyInjector creates the virtual keyboard device at path.
func NewKeyInjector(path string, delay time.Duration) (*KeyInjector, error) {
	keyboard, err := uinput.CreateKeyboard(path, []byte("vkshell virtual keyboard"))
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual keyboard: %w", err)
	}
	return &KeyInjector{keyboard: keyboard, delay: delay}, nil
}

// NewKeyInjectorWith wraps an existing tapper.
func NewKeyInjectorWith(k KeyTapper, delay time.Duration) *KeyInjector {
	return &KeyInjector{keyboard: k, delay: delay}
}

// Tap presses and releases each key in order, pausing between them.
func (k *KeyInjector) Tap(keys ...int) error {
	if k.keyboard == nil {
		return fmt.Errorf("input devices not initialized")
	}
	for i, key := range keys {
		if i > 0 && k.delay > 0 {
			time.Sleep(k.delay)
		}
		logger.Debugf("Injecting key %d", key)
		if err := k.keyboard.KeyPress(key); err != nil {
			return fmt.Errorf("failed to inject key %d: %w", key, err)
		}
	}
	return nil
}

func (k *KeyInjector) Close() error {
	if k.keyboard == nil {
		return nil
	}
	err := k.keyboard.Close()
	k.keyboard = nil
	return err
}
