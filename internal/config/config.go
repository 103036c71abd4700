// Package config handles configuration management using Viper
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Window  WindowConfig  `mapstructure:"window"`
	Render  RenderConfig  `mapstructure:"render"`
	Display DisplayConfig `mapstructure:"display"`
	Loader  LoaderConfig  `mapstructure:"loader"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// WindowConfig contains the toplevel window settings
type WindowConfig struct {
	Title  string `mapstructure:"title"`
	AppID  string `mapstructure:"app_id"` // Empty means use the title
	Width  int    `mapstructure:"width"`
	Height int    `mapstructure:"height"`
}

// RenderConfig selects the presentation policy
type RenderConfig struct {
	Animate     bool    `mapstructure:"animate"`      // Free-running loop with frame timing
	Validate    bool    `mapstructure:"validate"`     // Request the validation layer
	RefreshRate float64 `mapstructure:"refresh_rate"` // Present rate of the null backend in Hz, 0 for unpaced
}

// DisplayConfig selects the compositor socket
type DisplayConfig struct {
	Name string `mapstructure:"name"` // Empty means WAYLAND_DISPLAY
}

// LoaderConfig controls the GPU loader lookup
type LoaderConfig struct {
	Path string `mapstructure:"path"` // Tried before the system loader
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	LogLevel string `mapstructure:"log_level"` // Override LOG_LEVEL env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Window: WindowConfig{
			Title:  "vkshell",
			AppID:  "",
			Width:  1280,
			Height: 1024,
		},
		Render: RenderConfig{
			Animate:     true,
			Validate:    false,
			RefreshRate: 60,
		},
		Display: DisplayConfig{
			Name: "",
		},
		Loader: LoaderConfig{
			Path: "",
		},
		Logging: LoggingConfig{
			LogLevel: "", // Empty means use LOG_LEVEL env var
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("vkshell")
	viper.SetConfigType("toml")

	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		for _, dir := range searchPaths() {
			viper.AddConfigPath(dir)
		}
	}

	setDefaults()

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults. An explicit path that does
		// not exist yet is not an error either: config init creates it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	cfg = c

	return nil
}

func setDefaults() {
	viper.SetDefault("window.title", DefaultConfig.Window.Title)
	viper.SetDefault("window.app_id", DefaultConfig.Window.AppID)
	viper.SetDefault("window.width", DefaultConfig.Window.Width)
	viper.SetDefault("window.height", DefaultConfig.Window.Height)

	viper.SetDefault("render.animate", DefaultConfig.Render.Animate)
	viper.SetDefault("render.validate", DefaultConfig.Render.Validate)
	viper.SetDefault("render.refresh_rate", DefaultConfig.Render.RefreshRate)

	viper.SetDefault("display.name", DefaultConfig.Display.Name)
	viper.SetDefault("loader.path", DefaultConfig.Loader.Path)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)
}

// searchPaths lists config directories, highest priority first
func searchPaths() []string {
	var dirs []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		dirs = append(dirs, filepath.Join(xdg, "vkshell"))
	}
	if home := os.Getenv("HOME"); home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", "vkshell"))
	}
	return append(dirs, ".")
}

// Validate rejects settings the shell cannot start with
func (c *Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("invalid window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Render.RefreshRate < 0 {
		return fmt.Errorf("invalid refresh rate %v", c.Render.RefreshRate)
	}
	return nil
}

// AppIDOrTitle returns the configured app id, falling back to the title
func (w WindowConfig) AppIDOrTitle() string {
	if w.AppID != "" {
		return w.AppID
	}
	return w.Title
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		d := DefaultConfig
		return &d
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save writes the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	if err := os.MkdirAll(filepath.Dir(configPath), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "vkshell", "vkshell.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "vkshell.toml"
	}

	return filepath.Join(home, ".config", "vkshell", "vkshell.toml")
}
