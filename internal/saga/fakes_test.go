package saga

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"professional-onboarding/internal/domain"
	"professional-onboarding/internal/notify"
)

type fakeObjects struct {
	mu sync.Mutex

	objects     map[string][]byte
	putCalls    int
	deleteCalls [][]string

	failPutOn int
	deleteErr error
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{objects: make(map[string][]byte)}
}

func (f *fakeObjects) PutDocument(ctx context.Context, path string, content []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCalls++
	if f.failPutOn > 0 && f.putCalls == f.failPutOn {
		return errors.New("object store unavailable")
	}
	if _, ok := f.objects[path]; ok {
		return fmt.Errorf("put %s: %w", path, domain.ErrObjectExists)
	}
	f.objects[path] = append([]byte(nil), content...)
	return nil
}

func (f *fakeObjects) DeleteDocuments(_ context.Context, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls = append(f.deleteCalls, append([]string(nil), paths...))
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for _, p := range paths {
		delete(f.objects, p)
	}
	return nil
}

func (f *fakeObjects) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.putCalls + len(f.deleteCalls)
}

func (f *fakeObjects) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.objects))
	for p := range f.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

type fakeRecords struct {
	mu sync.Mutex

	rows        map[string][]domain.DocumentRecord
	listCalls   int
	deleteCalls int
	insertCalls int

	listErr   error
	deleteErr error
	insertErr error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{rows: make(map[string][]domain.DocumentRecord)}
}

func (f *fakeRecords) ListStoragePaths(_ context.Context, profileID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	paths := make([]string, 0, len(f.rows[profileID]))
	for _, rec := range f.rows[profileID] {
		paths = append(paths, rec.StoragePath)
	}
	return paths, nil
}

func (f *fakeRecords) DeleteDocuments(_ context.Context, profileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows, profileID)
	return nil
}

func (f *fakeRecords) InsertDocuments(ctx context.Context, records []domain.DocumentRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertCalls++
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, rec := range records {
		f.rows[rec.ProfileID] = append(f.rows[rec.ProfileID], rec)
	}
	return nil
}

func (f *fakeRecords) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls + f.deleteCalls + f.insertCalls
}

func (f *fakeRecords) forProfile(profileID string) []domain.DocumentRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.DocumentRecord(nil), f.rows[profileID]...)
}

type fakeProfiles struct {
	mu sync.Mutex

	statuses     map[string]domain.OnboardingStatus
	readErr      error
	advanceErr   error
	advanceCalls int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{statuses: make(map[string]domain.OnboardingStatus)}
}

func (f *fakeProfiles) GetOnboardingStatus(_ context.Context, profileID string) (domain.OnboardingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return "", f.readErr
	}
	status, ok := f.statuses[profileID]
	if !ok {
		return "", domain.ErrProfileNotFound
	}
	return status, nil
}

func (f *fakeProfiles) AdvanceOnboardingStatus(_ context.Context, profileID string, target domain.OnboardingStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.advanceCalls++
	if f.advanceErr != nil {
		return f.advanceErr
	}
	current := f.statuses[profileID]
	if domain.Reached(current, target) {
		return nil
	}
	if !domain.CanAdvance(current, target) {
		return domain.ErrTransitionNotAllowed
	}
	f.statuses[profileID] = target
	return nil
}

func (f *fakeProfiles) status(profileID string) domain.OnboardingStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statuses[profileID]
}

type fakeSweeper struct {
	mu    sync.Mutex
	swept [][]string
}

func (f *fakeSweeper) SweepOrphans(_ context.Context, _, _ string, paths []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.swept = append(f.swept, paths)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *recordingPublisher) PublishDocumentsCommitted(_ context.Context, ev notify.DocumentsCommitted) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev.ProfileID)
	return p.err
}

type harness struct {
	objects   *fakeObjects
	records   *fakeRecords
	profiles  *fakeProfiles
	sweeper   *fakeSweeper
	publisher *recordingPublisher
	submitter *Submitter
}

func newHarness() *harness {
	h := &harness{
		objects:   newFakeObjects(),
		records:   newFakeRecords(),
		profiles:  newFakeProfiles(),
		sweeper:   &fakeSweeper{},
		publisher: &recordingPublisher{},
	}
	tick := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	h.submitter = NewSubmitter(Dependencies{
		Objects:   h.objects,
		Records:   h.records,
		Status:    h.profiles,
		Advancer:  h.profiles,
		Catalog:   domain.DefaultCatalog(),
		Publisher: h.publisher,
		Sweeper:   h.sweeper,
		Now: func() time.Time {
			tick = tick.Add(time.Millisecond)
			return tick
		},
		Timeout: 5 * time.Second,
	})
	return h
}

func file(name, contentType string, size int) domain.SubmittedFile {
	return domain.SubmittedFile{Filename: name, ContentType: contentType, Content: make([]byte, size)}
}

func fullFieldSet() domain.FieldSet {
	return domain.FieldSet{
		Files: map[string]domain.SubmittedFile{
			"document_government_id":    file("passport scan.pdf", "application/pdf", 1024),
			"document_proof_of_address": file("bill.png", "image/png", 2048),
			"document_certification":    file("cert.jpg", "image/jpeg", 512),
		},
		Values: map[string]string{
			"document_government_id_note": "front page",
		},
	}
}

func requiredFieldSet() domain.FieldSet {
	fields := fullFieldSet()
	delete(fields.Files, "document_certification")
	return fields
}
