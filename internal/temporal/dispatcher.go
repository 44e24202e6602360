package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"professional-onboarding/internal/domain"
)

// Dispatcher starts onboarding workflows on behalf of the API.
type Dispatcher struct {
	client      client.Client
	taskQueue   string
	prefix      string
	gracePeriod time.Duration
}

func NewDispatcher(c client.Client, taskQueue, workflowIDPrefix string, sweepGracePeriod time.Duration) *Dispatcher {
	return &Dispatcher{
		client:      c,
		taskQueue:   taskQueue,
		prefix:      workflowIDPrefix,
		gracePeriod: sweepGracePeriod,
	}
}

func (d *Dispatcher) TransitionWorkflowID(profileID string, target domain.OnboardingStatus) string {
	return fmt.Sprintf("%s-%s-%s", d.prefix, profileID, target)
}

func (d *Dispatcher) SweepWorkflowID(submissionID string) string {
	return fmt.Sprintf("%s-sweep-%s", d.prefix, submissionID)
}

// AdvanceOnboardingStatus runs the transition workflow and waits for it.
func (d *Dispatcher) AdvanceOnboardingStatus(ctx context.Context, profileID string, target domain.OnboardingStatus) error {
	_, err := d.Transition(ctx, profileID, target)
	return err
}

func (d *Dispatcher) Transition(ctx context.Context, profileID string, target domain.OnboardingStatus) (TransitionResult, error) {
	run, err := d.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                    d.TransitionWorkflowID(profileID, target),
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
	}, OnboardingTransitionWorkflowName, TransitionInput{ProfileID: profileID, Target: target})
	if err != nil {
		return TransitionResult{}, fmt.Errorf("start transition workflow: %w", err)
	}

	var result TransitionResult
	if err := run.Get(ctx, &result); err != nil {
		return TransitionResult{}, unwrapTransitionError(err)
	}
	return result, nil
}

// SweepOrphans hands paths to a background sweep workflow and returns once it
// has started.
func (d *Dispatcher) SweepOrphans(ctx context.Context, submissionID, profileID string, paths []string) error {
	_, err := d.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        d.SweepWorkflowID(submissionID),
		TaskQueue: d.taskQueue,
	}, OrphanSweepWorkflowName, SweepInput{
		SubmissionID: submissionID,
		ProfileID:    profileID,
		Paths:        paths,
		GracePeriod:  d.gracePeriod,
	})
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &alreadyStarted) {
			return nil
		}
		return fmt.Errorf("start orphan sweep: %w", err)
	}
	return nil
}

func unwrapTransitionError(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		switch appErr.Type() {
		case ErrTypeTransitionNotAllowed:
			return fmt.Errorf("%s: %w", appErr.Message(), domain.ErrTransitionNotAllowed)
		case ErrTypeProfileNotFound:
			return fmt.Errorf("%s: %w", appErr.Message(), domain.ErrProfileNotFound)
		}
	}
	return err
}
