package domain

import "time"

const (
	MaxDocumentBytes = 5_242_880

	documentFieldPrefix = "document_"
	noteFieldSuffix     = "_note"
)

var allowedMimeTypes = map[string]struct{}{
	"application/pdf": {},
	"image/jpeg":      {},
	"image/png":       {},
	"image/jpg":       {},
}

type DocumentTypeSpec struct {
	Key      string `yaml:"key" json:"key"`
	Label    string `yaml:"label" json:"label"`
	Required bool   `yaml:"required" json:"required"`
}

// DocumentCandidate is one submitted file before validation. It never
// outlives a single submission.
type DocumentCandidate struct {
	DocumentType     string
	Content          []byte
	MimeType         string
	Note             string
	OriginalFilename string
}

func (c DocumentCandidate) Size() int64 {
	return int64(len(c.Content))
}

type DocumentMetadata struct {
	OriginalFilename string `json:"original_filename"`
	Size             int64  `json:"size"`
	MimeType         string `json:"mime_type"`
	Note             string `json:"note,omitempty"`
}

type DocumentRecord struct {
	ProfileID    string           `json:"profile_id"`
	DocumentType string           `json:"document_type"`
	StoragePath  string           `json:"storage_path"`
	Metadata     DocumentMetadata `json:"metadata"`
	CreatedAt    time.Time        `json:"created_at"`
}

// SubmittedFile is a single file part of an inbound field set.
type SubmittedFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

// FieldSet is the submitted form: file parts and text values keyed by field name.
type FieldSet struct {
	Files  map[string]SubmittedFile
	Values map[string]string
}

func DocumentFieldKey(documentType string) string {
	return documentFieldPrefix + documentType
}

func NoteFieldKey(documentType string) string {
	return documentFieldPrefix + documentType + noteFieldSuffix
}

// SubmissionResult is the tagged response of a submission: either a success
// message or an error message with optional field errors.
type SubmissionResult struct {
	Success     bool              `json:"-"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}
