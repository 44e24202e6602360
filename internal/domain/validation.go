package domain

const (
	MessageFileTooLarge        = "File must be 5MB or smaller."
	MessageUnsupportedFileType = "Only PDF, JPG, or PNG files are supported."
)

type FieldErrors map[string]string

func RequiredMessage(label string) string {
	return label + " is required."
}

func IsAllowedMimeType(mimeType string) bool {
	_, ok := allowedMimeTypes[mimeType]
	return ok
}

// Validate checks candidates against specs in order. Accepted candidates keep
// catalog order. At most one message is kept per field key; when both the size
// and the type checks fail the type message is the one recorded.
func Validate(candidates map[string]DocumentCandidate, specs []DocumentTypeSpec) (FieldErrors, []DocumentCandidate) {
	errs := make(FieldErrors)
	accepted := make([]DocumentCandidate, 0, len(candidates))

	for _, spec := range specs {
		field := DocumentFieldKey(spec.Key)
		candidate, ok := candidates[spec.Key]
		if !ok || len(candidate.Content) == 0 {
			if spec.Required {
				errs[field] = RequiredMessage(spec.Label)
			}
			continue
		}

		valid := true
		if candidate.Size() > MaxDocumentBytes {
			errs[field] = MessageFileTooLarge
			valid = false
		}
		if !IsAllowedMimeType(candidate.MimeType) {
			errs[field] = MessageUnsupportedFileType
			valid = false
		}
		if valid {
			accepted = append(accepted, candidate)
		}
	}

	return errs, accepted
}

func ValidationPassed(errs FieldErrors) bool {
	return len(errs) == 0
}
