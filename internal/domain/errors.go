package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrObjectExists         = errors.New("object already exists")
	ErrLockHeld             = errors.New("profile lock held by another submission")
	ErrTransitionNotAllowed = errors.New("onboarding transition not allowed")
)

const (
	MessageSubmitted          = "Your documents were submitted successfully."
	MessageValidationFailed   = "Please fix the highlighted documents and try again."
	MessageRetirementFailed   = "Unable to replace existing documents right now."
	MessageUploadFailed       = "We couldn't upload your files. Please try again."
	MessageSubmissionConflict = "Another document submission is already in progress."
	MessageApplicationPending = "Submit your application before uploading documents."
	MessageUnauthenticated    = "You must be signed in to submit documents."
	MessageServiceUnavailable = "Document submission is unavailable right now. Please try again shortly."
)

type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindUnauthenticated  ErrorKind = "unauthenticated"
	KindGating           ErrorKind = "gating"
	KindConflict         ErrorKind = "conflict"
	KindUnavailable      ErrorKind = "unavailable"
	KindRetirement       ErrorKind = "retirement"
	KindUpload           ErrorKind = "upload"
	KindPersistence      ErrorKind = "persistence"
	KindStatusTransition ErrorKind = "status_transition"
)

// Destructive reports whether a failure of this kind may have left the
// profile's stored document set changed.
func (k ErrorKind) Destructive() bool {
	switch k {
	case KindRetirement, KindUpload, KindPersistence, KindStatusTransition:
		return true
	default:
		return false
	}
}

// SubmissionError is the single error a submission reports. Message is safe
// to show to the applicant; Err keeps the underlying cause.
type SubmissionError struct {
	Kind        ErrorKind
	Message     string
	FieldErrors FieldErrors
	Err         error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

func NewSubmissionError(kind ErrorKind, message string, err error) *SubmissionError {
	return &SubmissionError{Kind: kind, Message: message, Err: err}
}

func NewValidationError(fieldErrors FieldErrors) *SubmissionError {
	return &SubmissionError{Kind: KindValidation, Message: MessageValidationFailed, FieldErrors: fieldErrors}
}

// AsSubmissionError extracts a *SubmissionError from err.
func AsSubmissionError(err error) (*SubmissionError, bool) {
	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		return subErr, true
	}
	return nil, false
}

// ResultFromError renders a tagged result. A nil error is a success.
func ResultFromError(err error) SubmissionResult {
	if err == nil {
		return SubmissionResult{Success: true, Message: MessageSubmitted}
	}
	subErr, ok := AsSubmissionError(err)
	if !ok {
		return SubmissionResult{Message: err.Error()}
	}
	res := SubmissionResult{Message: subErr.Message}
	if len(subErr.FieldErrors) > 0 {
		res.FieldErrors = make(map[string]string, len(subErr.FieldErrors))
		for k, v := range subErr.FieldErrors {
			res.FieldErrors[k] = v
		}
	}
	return res
}
