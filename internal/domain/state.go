package domain

type OnboardingStatus string

const (
	StatusNone                OnboardingStatus = "none"
	StatusApplicationInReview OnboardingStatus = "application_in_review"
	StatusApproved            OnboardingStatus = "approved"
	StatusActive              OnboardingStatus = "active"
)

type OnboardingStep string

const (
	StepApplication OnboardingStep = "application"
	StepDocuments   OnboardingStep = "documents"
	StepProfile     OnboardingStep = "profile"
)

var onboardingSteps = []OnboardingStep{StepApplication, StepDocuments, StepProfile}

// onboardingPath is the only forward path a status can take.
var onboardingPath = []OnboardingStatus{
	StatusNone,
	StatusApplicationInReview,
	StatusApproved,
	StatusActive,
}

// StepIndex maps a status to the onboarding step to present. Unknown values
// map to 0.
func StepIndex(status OnboardingStatus) int {
	switch status {
	case StatusApplicationInReview:
		return 0
	case StatusApproved:
		return 1
	case StatusActive:
		return 2
	default:
		return 0
	}
}

func StepFor(status OnboardingStatus) OnboardingStep {
	return onboardingSteps[StepIndex(status)]
}

func ParseOnboardingStatus(v string) (OnboardingStatus, bool) {
	for _, s := range onboardingPath {
		if string(s) == v {
			return s, true
		}
	}
	return "", false
}

func pathPosition(status OnboardingStatus) int {
	for i, s := range onboardingPath {
		if s == status {
			return i
		}
	}
	return -1
}

// Reached reports whether current is at or beyond target on the onboarding path.
func Reached(current, target OnboardingStatus) bool {
	c, t := pathPosition(current), pathPosition(target)
	return c >= 0 && t >= 0 && c >= t
}

// CanAdvance reports whether target is exactly one step ahead of current.
func CanAdvance(current, target OnboardingStatus) bool {
	c, t := pathPosition(current), pathPosition(target)
	return c >= 0 && t == c+1
}

// AcceptsDocuments reports whether a profile in this status may submit a
// document set. The application must have been accepted first.
func AcceptsDocuments(status OnboardingStatus) bool {
	return Reached(status, StatusApplicationInReview)
}
