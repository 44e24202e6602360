package temporal

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"professional-onboarding/internal/domain"
)

const (
	ErrTypeTransitionNotAllowed = "TransitionNotAllowed"
	ErrTypeProfileNotFound      = "ProfileNotFound"
)

type ProfileStore interface {
	GetOnboardingStatus(ctx context.Context, profileID string) (domain.OnboardingStatus, error)
	AdvanceOnboardingStatus(ctx context.Context, profileID string, target domain.OnboardingStatus) error
}

type ObjectRemover interface {
	DeleteDocuments(ctx context.Context, paths []string) error
}

type Activities struct {
	Profiles ProfileStore
	Objects  ObjectRemover
}

type AdvanceOnboardingInput struct {
	ProfileID string
	Target    domain.OnboardingStatus
}

type AdvanceOnboardingOutput struct {
	Previous domain.OnboardingStatus
	Current  domain.OnboardingStatus
}

type DeleteObjectsInput struct {
	ProfileID string
	Paths     []string
}

// AdvanceOnboardingActivity moves a profile one step forward. Skips and
// unknown profiles fail without retry.
func (a *Activities) AdvanceOnboardingActivity(ctx context.Context, input AdvanceOnboardingInput) (AdvanceOnboardingOutput, error) {
	previous, err := a.Profiles.GetOnboardingStatus(ctx, input.ProfileID)
	if err != nil {
		return AdvanceOnboardingOutput{}, classifyProfileError(err)
	}

	if err := a.Profiles.AdvanceOnboardingStatus(ctx, input.ProfileID, input.Target); err != nil {
		return AdvanceOnboardingOutput{}, classifyProfileError(err)
	}

	current := input.Target
	if domain.Reached(previous, input.Target) {
		current = previous
	}
	activity.GetLogger(ctx).Info("onboarding status advanced",
		"profile_id", input.ProfileID, "previous", previous, "current", current)
	return AdvanceOnboardingOutput{Previous: previous, Current: current}, nil
}

func (a *Activities) DeleteObjectsActivity(ctx context.Context, input DeleteObjectsInput) error {
	if len(input.Paths) == 0 {
		return nil
	}
	if err := a.Objects.DeleteDocuments(ctx, input.Paths); err != nil {
		return err
	}
	activity.GetLogger(ctx).Info("orphaned objects deleted", "profile_id", input.ProfileID, "count", len(input.Paths))
	return nil
}

func classifyProfileError(err error) error {
	switch {
	case errors.Is(err, domain.ErrTransitionNotAllowed):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeTransitionNotAllowed, err)
	case errors.Is(err, domain.ErrProfileNotFound):
		return temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeProfileNotFound, err)
	default:
		return err
	}
}
