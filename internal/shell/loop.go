package shell

import "fmt"

// loopWait presents without timing. It suits content that only changes on
// input.
func (s *Shell) loopWait() error {
	for !s.quit.Load() {
		if err := s.dispatch(); err != nil {
			return err
		}
		if err := s.backend.AcquireBackBuffer(); err != nil {
			return fmt.Errorf("failed to acquire back buffer: %w", err)
		}
		if err := s.backend.PresentBackBuffer(); err != nil {
			return fmt.Errorf("failed to present back buffer: %w", err)
		}
	}
	return nil
}

// loopPoll presents as fast as the backend allows, feeding frame deltas to
// the game and logging throughput.
func (s *Shell) loopPoll() error {
	s.pacer = newFramePacer(s.clock, s.log)
	for !s.quit.Load() {
		if err := s.dispatch(); err != nil {
			return err
		}
		if err := s.backend.AcquireBackBuffer(); err != nil {
			return fmt.Errorf("failed to acquire back buffer: %w", err)
		}
		s.game.AddGameTime(s.pacer.sample())
		if err := s.backend.PresentBackBuffer(); err != nil {
			return fmt.Errorf("failed to present back buffer: %w", err)
		}
		s.pacer.presented()
	}
	return nil
}

// dispatch handles events that already arrived without waiting for more.
func (s *Shell) dispatch() error {
	if err := s.display.DispatchPending(); err != nil {
		return fmt.Errorf("failed to dispatch display events: %w", err)
	}
	return s.takeEventErr()
}
