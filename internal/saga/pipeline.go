package saga

import (
	"context"
	"fmt"
)

// Step is one stage of a pipeline. Compensate undoes only what Action itself
// wrote and may be nil. Once a Pivot step completes, no earlier compensation
// runs again for that execution.
type Step struct {
	Name       string
	Action     func(ctx context.Context) error
	Compensate func(ctx context.Context) error
	Pivot      bool
}

// StepError reports the first failing step. CompensationErrs holds failed
// compensations keyed by the step they belonged to.
type StepError struct {
	Step             string
	Err              error
	CompensationErrs map[string]error
}

func (e *StepError) Error() string {
	if len(e.CompensationErrs) > 0 {
		return fmt.Sprintf("step %s: %v (%d compensation(s) failed)", e.Step, e.Err, len(e.CompensationErrs))
	}
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type Hooks struct {
	OnStep         func(name string, err error)
	OnCompensation func(name string, err error)
}

type Pipeline struct {
	steps []Step
	hooks Hooks
}

func NewPipeline(hooks Hooks, steps ...Step) *Pipeline {
	return &Pipeline{steps: steps, hooks: hooks}
}

// Run executes steps in order and stops at the first failure. Completed steps
// are then compensated newest first, stopping at the most recent pivot.
func (p *Pipeline) Run(ctx context.Context) error {
	done := make([]Step, 0, len(p.steps))
	for _, step := range p.steps {
		err := step.Action(ctx)
		if p.hooks.OnStep != nil {
			p.hooks.OnStep(step.Name, err)
		}
		if err != nil {
			return &StepError{
				Step:             step.Name,
				Err:              err,
				CompensationErrs: p.compensate(ctx, done),
			}
		}
		if step.Pivot {
			done = done[:0]
			continue
		}
		done = append(done, step)
	}
	return nil
}

func (p *Pipeline) compensate(ctx context.Context, done []Step) map[string]error {
	var errs map[string]error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		err := step.Compensate(ctx)
		if p.hooks.OnCompensation != nil {
			p.hooks.OnCompensation(step.Name, err)
		}
		if err != nil {
			if errs == nil {
				errs = make(map[string]error)
			}
			errs[step.Name] = err
		}
	}
	return errs
}
