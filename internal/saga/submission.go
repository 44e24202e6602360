package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"professional-onboarding/internal/domain"
	"professional-onboarding/internal/lock"
	"professional-onboarding/internal/logging"
	"professional-onboarding/internal/metrics"
	"professional-onboarding/internal/notify"
)

const (
	StageRetire  = "retire"
	StageUpload  = "upload"
	StagePersist = "persist"
	StageAdvance = "advance"
)

type ObjectStore interface {
	PutDocument(ctx context.Context, path string, content []byte, contentType string) error
	DeleteDocuments(ctx context.Context, paths []string) error
}

type RecordStore interface {
	ListStoragePaths(ctx context.Context, profileID string) ([]string, error)
	DeleteDocuments(ctx context.Context, profileID string) error
	InsertDocuments(ctx context.Context, records []domain.DocumentRecord) error
}

type StatusReader interface {
	GetOnboardingStatus(ctx context.Context, profileID string) (domain.OnboardingStatus, error)
}

type StatusAdvancer interface {
	AdvanceOnboardingStatus(ctx context.Context, profileID string, target domain.OnboardingStatus) error
}

// OrphanSweeper takes over object paths whose compensating delete failed.
type OrphanSweeper interface {
	SweepOrphans(ctx context.Context, submissionID, profileID string, paths []string) error
}

type Dependencies struct {
	Objects  ObjectStore
	Records  RecordStore
	Status   StatusReader
	Advancer StatusAdvancer
	Catalog  domain.Catalog

	Locker    lock.Locker
	Publisher notify.Publisher
	Sweeper   OrphanSweeper
	Metrics   *metrics.SagaMetrics
	Logger    *slog.Logger
	Now       func() time.Time
	Timeout   time.Duration
}

// Submitter runs the document submission saga for one profile at a time.
type Submitter struct {
	objects  ObjectStore
	records  RecordStore
	status   StatusReader
	advancer StatusAdvancer
	catalog  domain.Catalog

	locker    lock.Locker
	publisher notify.Publisher
	sweeper   OrphanSweeper
	metrics   *metrics.SagaMetrics
	logger    *slog.Logger
	now       func() time.Time
	timeout   time.Duration
}

func NewSubmitter(deps Dependencies) *Submitter {
	s := &Submitter{
		objects:   deps.Objects,
		records:   deps.Records,
		status:    deps.Status,
		advancer:  deps.Advancer,
		catalog:   deps.Catalog,
		locker:    deps.Locker,
		publisher: deps.Publisher,
		sweeper:   deps.Sweeper,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		now:       deps.Now,
		timeout:   deps.Timeout,
	}
	if len(s.catalog.All()) == 0 {
		s.catalog = domain.DefaultCatalog()
	}
	if s.locker == nil {
		s.locker = lock.NoopLocker{}
	}
	if s.publisher == nil {
		s.publisher = notify.NoopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = metrics.NewSagaMetrics()
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *Submitter) Catalog() domain.Catalog {
	return s.catalog
}

// Submit validates the field set and, when it is clean, replaces the
// profile's document set. A nil error means the saga committed; any other
// result is a *domain.SubmissionError.
func (s *Submitter) Submit(ctx context.Context, profileID string, fields domain.FieldSet) (err error) {
	started := time.Now()
	s.metrics.StartSubmission()
	defer func() {
		outcome := ""
		if subErr, ok := domain.AsSubmissionError(err); ok {
			outcome = string(subErr.Kind)
		}
		s.metrics.FinishSubmission(outcome, time.Since(started))
	}()

	if profileID == "" {
		return domain.NewSubmissionError(domain.KindUnauthenticated, domain.MessageUnauthenticated, nil)
	}

	specs := s.catalog.All()
	fieldErrs, accepted := domain.Validate(domain.ExtractCandidates(fields, specs), specs)
	if !domain.ValidationPassed(fieldErrs) {
		return domain.NewValidationError(fieldErrs)
	}

	if err := s.checkGate(ctx, profileID); err != nil {
		return err
	}

	release, err := s.locker.Acquire(ctx, profileID)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return domain.NewSubmissionError(domain.KindConflict, domain.MessageSubmissionConflict, err)
		}
		return domain.NewSubmissionError(domain.KindUnavailable, domain.MessageServiceUnavailable, err)
	}

	// Nothing below observes caller cancellation; the saga finishes or fails
	// on its own bounded deadline.
	runCtx := context.WithoutCancel(ctx)
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
		defer cancel()
	}
	defer func() {
		if releaseErr := release(context.WithoutCancel(ctx)); releaseErr != nil {
			s.logger.Warn("release profile lock failed", "profile_id", profileID, "error", releaseErr)
		}
	}()

	run := &submissionRun{
		Submitter: s,
		id:        uuid.NewString(),
		profileID: profileID,
		accepted:  accepted,
		logger:    s.logger.With("profile_id", profileID),
	}
	run.logger = run.logger.With("submission_id", run.id)
	return run.execute(runCtx)
}

func (s *Submitter) checkGate(ctx context.Context, profileID string) error {
	status, err := s.status.GetOnboardingStatus(ctx, profileID)
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return domain.NewSubmissionError(domain.KindGating, domain.MessageApplicationPending, err)
		}
		return domain.NewSubmissionError(domain.KindUnavailable, domain.MessageServiceUnavailable, err)
	}
	if !domain.AcceptsDocuments(status) {
		return domain.NewSubmissionError(domain.KindGating, domain.MessageApplicationPending,
			fmt.Errorf("onboarding status %q", status))
	}
	return nil
}

// submissionRun holds the state one saga execution passes between stages.
type submissionRun struct {
	*Submitter

	id        string
	profileID string
	accepted  []domain.DocumentCandidate
	logger    *slog.Logger

	uploaded []string
	drafts   []domain.DocumentRecord
}

func (r *submissionRun) execute(ctx context.Context) error {
	r.logger.Info("document submission started", "candidates", len(r.accepted))

	pipeline := NewPipeline(Hooks{
		OnStep: func(name string, err error) {
			r.metrics.ObserveStage(name, err)
			if err != nil {
				r.logger.Error("saga stage failed", "stage", name, "error", err)
			}
		},
		OnCompensation: func(name string, err error) {
			r.metrics.ObserveCompensation(name, err)
			if err != nil {
				r.logger.Error("saga compensation failed", "stage", name, "error", err)
				return
			}
			r.logger.Info("saga compensation completed", "stage", name)
		},
	},
		Step{Name: StageRetire, Action: r.retire},
		Step{Name: StageUpload, Action: r.uploadAll, Compensate: r.removeUploaded},
		Step{Name: StagePersist, Action: r.persist, Pivot: true},
		Step{Name: StageAdvance, Action: r.advance},
	)

	if err := pipeline.Run(ctx); err != nil {
		return r.failure(ctx, err)
	}

	r.logger.Info("document submission committed", "documents", len(r.drafts))
	r.announce(ctx)
	return nil
}

func (r *submissionRun) failure(ctx context.Context, err error) error {
	var stepErr *StepError
	if !errors.As(err, &stepErr) {
		return domain.NewSubmissionError(domain.KindUnavailable, domain.MessageServiceUnavailable, err)
	}
	if _, failed := stepErr.CompensationErrs[StageUpload]; failed {
		r.sweep(ctx, r.uploaded)
	}

	switch stepErr.Step {
	case StageRetire:
		return domain.NewSubmissionError(domain.KindRetirement, domain.MessageRetirementFailed, stepErr)
	case StageUpload:
		return domain.NewSubmissionError(domain.KindUpload, domain.MessageUploadFailed, stepErr)
	case StagePersist:
		return domain.NewSubmissionError(domain.KindPersistence, stepErr.Err.Error(), stepErr)
	default:
		return domain.NewSubmissionError(domain.KindStatusTransition, stepErr.Err.Error(), stepErr)
	}
}

// retire removes the profile's previous document set: objects first, then
// rows. A row delete failure after the object delete is reported as is.
func (r *submissionRun) retire(ctx context.Context) error {
	paths, err := r.records.ListStoragePaths(ctx, r.profileID)
	if err != nil {
		return fmt.Errorf("list existing documents: %w", err)
	}
	if len(paths) > 0 {
		if err := r.objects.DeleteDocuments(ctx, paths); err != nil {
			return fmt.Errorf("delete %d existing objects: %w", len(paths), err)
		}
	}
	if err := r.records.DeleteDocuments(ctx, r.profileID); err != nil {
		if len(paths) > 0 {
			r.logger.Error("existing objects deleted but their records remain", "paths", paths, "error", err)
		}
		return fmt.Errorf("delete existing records: %w", err)
	}
	r.logger.Info("previous documents retired", "retired", len(paths))
	return nil
}

// uploadAll writes accepted candidates one by one. When a write fails, the
// siblings already written in this run are deleted before returning.
func (r *submissionRun) uploadAll(ctx context.Context) error {
	r.uploaded = make([]string, 0, len(r.accepted))
	r.drafts = make([]domain.DocumentRecord, 0, len(r.accepted))

	for _, c := range r.accepted {
		now := r.now()
		path := domain.StoragePath(r.profileID, c.DocumentType, now, c.OriginalFilename)
		if err := r.objects.PutDocument(ctx, path, c.Content, c.MimeType); err != nil {
			r.discardSiblings(ctx)
			return fmt.Errorf("upload %s: %w", c.DocumentType, err)
		}
		r.uploaded = append(r.uploaded, path)
		r.drafts = append(r.drafts, domain.DocumentRecord{
			ProfileID:    r.profileID,
			DocumentType: c.DocumentType,
			StoragePath:  path,
			Metadata: domain.DocumentMetadata{
				OriginalFilename: c.OriginalFilename,
				Size:             c.Size(),
				MimeType:         c.MimeType,
				Note:             c.Note,
			},
			CreatedAt: now,
		})
	}
	return nil
}

func (r *submissionRun) discardSiblings(ctx context.Context) {
	if len(r.uploaded) == 0 {
		return
	}
	err := r.objects.DeleteDocuments(ctx, r.uploaded)
	r.metrics.ObserveCompensation(StageUpload, err)
	if err != nil {
		r.logger.Error("delete partial upload failed", "paths", r.uploaded, "error", err)
		r.sweep(ctx, r.uploaded)
	}
	r.uploaded = r.uploaded[:0]
	r.drafts = r.drafts[:0]
}

func (r *submissionRun) removeUploaded(ctx context.Context) error {
	if len(r.uploaded) == 0 {
		return nil
	}
	if err := r.objects.DeleteDocuments(ctx, r.uploaded); err != nil {
		return fmt.Errorf("delete %d uploaded objects: %w", len(r.uploaded), err)
	}
	return nil
}

func (r *submissionRun) persist(ctx context.Context) error {
	if len(r.drafts) == 0 {
		return nil
	}
	return r.records.InsertDocuments(ctx, r.drafts)
}

func (r *submissionRun) advance(ctx context.Context) error {
	return r.advancer.AdvanceOnboardingStatus(ctx, r.profileID, domain.StatusApproved)
}

func (r *submissionRun) sweep(ctx context.Context, paths []string) {
	if r.sweeper == nil || len(paths) == 0 {
		return
	}
	orphans := append([]string(nil), paths...)
	if err := r.sweeper.SweepOrphans(ctx, r.id, r.profileID, orphans); err != nil {
		r.logger.Error("schedule orphan sweep failed", "paths", orphans, "error", err)
	}
}

func (r *submissionRun) announce(ctx context.Context) {
	types := make([]string, 0, len(r.drafts))
	for _, d := range r.drafts {
		types = append(types, d.DocumentType)
	}
	err := r.publisher.PublishDocumentsCommitted(ctx, notify.DocumentsCommitted{
		SubmissionID:  r.id,
		ProfileID:     r.profileID,
		DocumentTypes: types,
		StoragePaths:  append([]string(nil), r.uploaded...),
		CommittedAt:   r.now(),
	})
	if err != nil {
		r.logger.Warn("publish documents committed failed", "error", err)
	}
}
