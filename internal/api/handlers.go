package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"professional-onboarding/internal/config"
	"professional-onboarding/internal/domain"
	"professional-onboarding/internal/logging"
)

const multipartMemoryBytes = 8 << 20

type DocumentSubmitter interface {
	Submit(ctx context.Context, profileID string, fields domain.FieldSet) error
}

type ProfileStore interface {
	GetOnboardingStatus(ctx context.Context, profileID string) (domain.OnboardingStatus, error)
	ListDocuments(ctx context.Context, profileID string) ([]domain.DocumentRecord, error)
	Ping(ctx context.Context) error
}

// Pinger is a dependency checked by the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type ProfileCompleter interface {
	AdvanceOnboardingStatus(ctx context.Context, profileID string, target domain.OnboardingStatus) error
}

type Handler struct {
	cfg       config.Config
	submitter DocumentSubmitter
	profiles  ProfileStore
	completer ProfileCompleter
	objects   Pinger
	logger    *slog.Logger
}

type submissionResponse struct {
	Status      string            `json:"status"`
	Message     string            `json:"message"`
	FieldErrors map[string]string `json:"field_errors,omitempty"`
}

type onboardingResponse struct {
	ProfileID string                  `json:"profile_id"`
	Status    domain.OnboardingStatus `json:"status"`
	StepIndex int                     `json:"step_index"`
	Step      domain.OnboardingStep   `json:"step"`
}

func NewHandler(cfg config.Config, submitter DocumentSubmitter, profiles ProfileStore, completer ProfileCompleter, objects Pinger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{cfg: cfg, submitter: submitter, profiles: profiles, completer: completer, objects: objects, logger: logger}
}

func (h *Handler) SubmitDocuments(w http.ResponseWriter, r *http.Request) {
	profileID := ProfileIDFromContext(r.Context())

	if h.cfg.MaxFormBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxFormBytes)
	}
	if err := r.ParseMultipartForm(multipartMemoryBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "The submitted form is too large.", nil)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart payload", nil)
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	fields, err := readFieldSet(r.MultipartForm)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read uploaded files", nil)
		return
	}

	err = h.submitter.Submit(r.Context(), profileID, fields)
	if err != nil {
		h.logger.Warn("document submission rejected", "profile_id", profileID, "error", err)
	}
	result := domain.ResultFromError(err)
	if result.Success {
		writeJSON(w, http.StatusOK, submissionResponse{Status: "success", Message: result.Message})
		return
	}
	writeError(w, statusFor(err), result.Message, result.FieldErrors)
}

func (h *Handler) GetOnboarding(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	profileID := ProfileIDFromContext(ctx)
	status, err := h.profiles.GetOnboardingStatus(ctx, profileID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			writeError(w, http.StatusNotFound, "profile not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch onboarding status", nil)
		return
	}

	writeJSON(w, http.StatusOK, onboardingResponse{
		ProfileID: profileID,
		Status:    status,
		StepIndex: domain.StepIndex(status),
		Step:      domain.StepFor(status),
	})
}

func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	records, err := h.profiles.ListDocuments(ctx, ProfileIDFromContext(ctx))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch documents", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": records})
}

// CompleteProfile performs the final approved -> active step.
func (h *Handler) CompleteProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	profileID := ProfileIDFromContext(ctx)
	if err := h.completer.AdvanceOnboardingStatus(ctx, profileID, domain.StatusActive); err != nil {
		switch {
		case errors.Is(err, domain.ErrProfileNotFound):
			writeError(w, http.StatusNotFound, "profile not found", nil)
		case errors.Is(err, domain.ErrTransitionNotAllowed):
			writeError(w, http.StatusConflict, "Your documents must be approved before completing your profile.", nil)
		default:
			h.logger.Error("complete profile failed", "profile_id", profileID, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to complete profile", nil)
		}
		return
	}

	writeJSON(w, http.StatusOK, onboardingResponse{
		ProfileID: profileID,
		Status:    domain.StatusActive,
		StepIndex: domain.StepIndex(domain.StatusActive),
		Step:      domain.StepFor(domain.StatusActive),
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.profiles.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", "dependency", "postgres", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	if h.objects != nil {
		if err := h.objects.Ping(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", "object_store", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// readFieldSet keeps the first part per field name. File bodies are read up
// to one byte past the document limit so oversize files still fail validation.
func readFieldSet(form *multipart.Form) (domain.FieldSet, error) {
	fields := domain.FieldSet{
		Files:  make(map[string]domain.SubmittedFile, len(form.File)),
		Values: make(map[string]string, len(form.Value)),
	}
	for key, values := range form.Value {
		if len(values) > 0 {
			fields.Values[key] = values[0]
		}
	}
	for key, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		header := headers[0]
		content, err := readPart(header)
		if err != nil {
			return domain.FieldSet{}, fmt.Errorf("read %s: %w", key, err)
		}
		fields.Files[key] = domain.SubmittedFile{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Content:     content,
		}
	}
	return fields, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, domain.MaxDocumentBytes+1))
}

func statusFor(err error) int {
	subErr, ok := domain.AsSubmissionError(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch subErr.Kind {
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindUnauthenticated:
		return http.StatusUnauthorized
	case domain.KindGating, domain.KindConflict:
		return http.StatusConflict
	case domain.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message string, fieldErrors map[string]string) {
	writeJSON(w, status, submissionResponse{Status: "error", Message: message, FieldErrors: fieldErrors})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
