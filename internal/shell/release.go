package shell

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

type releaseStep struct {
	name string
	fn   func() error
}

// releaseStack releases what was pushed in reverse order. Every step runs
// even when an earlier one fails.
type releaseStack struct {
	steps []releaseStep
}

func (r *releaseStack) push(name string, fn func() error) {
	r.steps = append(r.steps, releaseStep{name: name, fn: fn})
}

func (r *releaseStack) size() int {
	return len(r.steps)
}

func (r *releaseStack) release() error {
	var result *multierror.Error
	for i := len(r.steps) - 1; i >= 0; i-- {
		step := r.steps[i]
		if err := step.fn(); err != nil {
			result = multierror.Append(result, fmt.Errorf("release %s: %w", step.name, err))
		}
	}
	r.steps = nil
	return result.ErrorOrNil()
}
