package temporal

import (
	"time"

	"go.temporal.io/sdk/workflow"

	"professional-onboarding/internal/domain"
)

const (
	OnboardingTransitionWorkflowName = "OnboardingTransitionWorkflow"
	OrphanSweepWorkflowName          = "OrphanSweepWorkflow"
)

type TransitionInput struct {
	ProfileID string
	Target    domain.OnboardingStatus
}

type TransitionResult struct {
	ProfileID string
	Previous  domain.OnboardingStatus
	Status    domain.OnboardingStatus
}

func OnboardingTransitionWorkflow(ctx workflow.Context, input TransitionInput) (TransitionResult, error) {
	actCtx := mustActivityContext(ctx, ActivityPolicyAdvanceOnboarding)

	var out AdvanceOnboardingOutput
	if err := workflow.ExecuteActivity(actCtx, (*Activities).AdvanceOnboardingActivity, AdvanceOnboardingInput{
		ProfileID: input.ProfileID,
		Target:    input.Target,
	}).Get(ctx, &out); err != nil {
		return TransitionResult{}, err
	}

	return TransitionResult{ProfileID: input.ProfileID, Previous: out.Previous, Status: out.Current}, nil
}

type SweepInput struct {
	SubmissionID string
	ProfileID    string
	Paths        []string
	GracePeriod  time.Duration
}

type SweepResult struct {
	Deleted   int
	Expedited bool
}

// OrphanSweepWorkflow deletes objects a failed submission left behind. It
// waits out GracePeriod first unless a sweepNow signal arrives.
func OrphanSweepWorkflow(ctx workflow.Context, input SweepInput) (SweepResult, error) {
	result := SweepResult{}
	if len(input.Paths) == 0 {
		return result, nil
	}

	if input.GracePeriod > 0 {
		timerCtx, cancelTimer := workflow.WithCancel(ctx)
		timer := workflow.NewTimer(timerCtx, input.GracePeriod)
		signalChan := workflow.GetSignalChannel(ctx, SweepNowSignalName)

		selector := workflow.NewSelector(ctx)
		selector.AddFuture(timer, func(workflow.Future) {})
		selector.AddReceive(signalChan, func(c workflow.ReceiveChannel, _ bool) {
			var sig SweepNowSignal
			c.Receive(ctx, &sig)
			result.Expedited = true
			workflow.GetLogger(ctx).Info("orphan sweep expedited", "requested_by", sig.RequestedBy)
		})
		selector.Select(ctx)
		cancelTimer()
	}

	actCtx := mustActivityContext(ctx, ActivityPolicyDeleteObjects)
	if err := workflow.ExecuteActivity(actCtx, (*Activities).DeleteObjectsActivity, DeleteObjectsInput{
		ProfileID: input.ProfileID,
		Paths:     input.Paths,
	}).Get(ctx, nil); err != nil {
		return SweepResult{}, err
	}

	result.Deleted = len(input.Paths)
	return result, nil
}
