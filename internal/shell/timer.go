package shell

import (
	"github.com/charmbracelet/log"
	"golang.org/x/sys/unix"
)

const nsPerSecond = 1_000_000_000

// reportInterval is the length of one throughput window in seconds.
const reportInterval = 5.0

// Timespec is a monotonic clock sample.
type Timespec struct {
	Sec  int64
	Nsec int64
}

// Clock returns the current monotonic time.
type Clock func() Timespec

// MonotonicClock reads CLOCK_MONOTONIC, which wall clock changes do not
// affect.
func MonotonicClock() Timespec {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return Timespec{}
	}
	return Timespec{Sec: int64(ts.Sec), Nsec: int64(ts.Nsec)}
}

// Elapsed returns now - start in seconds. When the nanosecond part
// underflows one second is borrowed. The result is never negative.
func Elapsed(start, now Timespec) float64 {
	sec := now.Sec - start.Sec
	nsec := now.Nsec - start.Nsec
	if nsec < 0 {
		sec--
		nsec += nsPerSecond
	}
	d := float64(sec) + float64(nsec)/nsPerSecond
	if d < 0 {
		return 0
	}
	return d
}

// framePacer tracks frame deltas and logs throughput once per window.
type framePacer struct {
	clock Clock
	log   *log.Logger

	last        Timespec
	windowStart Timespec
	presents    int
	reports     int
}

func newFramePacer(clock Clock, l *log.Logger) *framePacer {
	now := clock()
	return &framePacer{clock: clock, log: l, last: now, windowStart: now}
}

// sample reads the clock and returns the seconds since the previous sample.
func (p *framePacer) sample() float32 {
	now := p.clock()
	d := Elapsed(p.last, now)
	p.last = now
	return float32(d)
}

// presented counts a present. Once the window measured at the last sample
// reaches reportInterval it logs the rate and starts a new window.
func (p *framePacer) presented() {
	p.presents++
	secs := Elapsed(p.windowStart, p.last)
	if secs < reportInterval {
		return
	}
	p.log.Info("frame throughput",
		"presents", p.presents,
		"seconds", secs,
		"fps", float64(p.presents)/secs)
	p.reports++
	p.presents = 0
	p.windowStart = p.last
}
