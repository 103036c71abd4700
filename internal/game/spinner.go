// Package game holds the demo consumer driven by the shell: a spinner whose
// speed is controlled from the keyboard.
package game

import (
	"math"

	"github.com/bnema/vkshell/internal/shell"
	"github.com/charmbracelet/log"
)

const (
	// DefaultSpeed is the initial rotation speed in degrees per second.
	DefaultSpeed = 90.0
	// SpeedStep is added or removed by the up and down keys.
	SpeedStep = 30.0
	// MaxSpeed caps the rotation speed in either direction.
	MaxSpeed = 720.0
)

// Quitter stops the presentation loop.
type Quitter interface {
	Quit()
}

// Spinner is a shell.Game. Its methods are called from the loop goroutine.
type Spinner struct {
	settings shell.Settings
	log      *log.Logger
	quitter  Quitter

	angle   float64
	speed   float64
	paused  bool
	elapsed float64
}

// NewSpinner creates a spinner that reports settings to the shell.
func NewSpinner(settings shell.Settings, l *log.Logger) *Spinner {
	return &Spinner{settings: settings, log: l, speed: DefaultSpeed}
}

// Attach sets what Escape stops. Without it Escape is ignored.
func (g *Spinner) Attach(q Quitter) {
	g.quitter = q
}

func (g *Spinner) Settings() shell.Settings {
	return g.settings
}

func (g *Spinner) OnKey(k shell.Key) {
	switch k {
	case shell.KeyEscape:
		if g.quitter != nil {
			g.log.Info("Escape pressed, quitting")
			g.quitter.Quit()
		}
	case shell.KeyUp:
		g.speed = math.Min(g.speed+SpeedStep, MaxSpeed)
		g.log.Debug("speed changed", "speed", g.speed)
	case shell.KeyDown:
		g.speed = math.Max(g.speed-SpeedStep, -MaxSpeed)
		g.log.Debug("speed changed", "speed", g.speed)
	case shell.KeySpace:
		g.paused = !g.paused
		g.log.Debug("pause toggled", "paused", g.paused)
	default:
		// Unmapped keys are dropped.
	}
}

// AddGameTime advances the spinner. Time keeps accumulating while paused.
func (g *Spinner) AddGameTime(seconds float32) {
	dt := float64(seconds)
	g.elapsed += dt
	if g.paused {
		return
	}
	g.angle = math.Mod(g.angle+g.speed*dt, 360)
	if g.angle < 0 {
		g.angle += 360
	}
}

// Angle returns the rotation in degrees, in [0, 360).
func (g *Spinner) Angle() float64 { return g.angle }

func (g *Spinner) Speed() float64 { return g.speed }

func (g *Spinner) Paused() bool { return g.paused }

// Elapsed returns the game time received so far in seconds.
func (g *Spinner) Elapsed() float64 { return g.elapsed }
