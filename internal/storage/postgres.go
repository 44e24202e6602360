package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"professional-onboarding/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) GetOnboardingStatus(ctx context.Context, profileID string) (domain.OnboardingStatus, error) {
	var status domain.OnboardingStatus
	row := s.db.QueryRowContext(ctx, `SELECT onboarding_status FROM profiles WHERE id = $1`, profileID)
	if err := row.Scan(&status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("profile %s: %w", profileID, domain.ErrProfileNotFound)
		}
		return "", err
	}
	return status, nil
}

// AdvanceOnboardingStatus moves the profile to target under a row lock. A
// profile already at or past target is left untouched; anything other than a
// single forward step is rejected.
func (s *PostgresStore) AdvanceOnboardingStatus(ctx context.Context, profileID string, target domain.OnboardingStatus) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.OnboardingStatus
	row := tx.QueryRowContext(ctx, `SELECT onboarding_status FROM profiles WHERE id = $1 FOR UPDATE`, profileID)
	if err := row.Scan(&current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("profile %s: %w", profileID, domain.ErrProfileNotFound)
		}
		return err
	}

	if domain.Reached(current, target) {
		return tx.Commit()
	}
	if !domain.CanAdvance(current, target) {
		return fmt.Errorf("%s -> %s: %w", current, target, domain.ErrTransitionNotAllowed)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE profiles
		SET onboarding_status = $2, updated_at = NOW()
		WHERE id = $1
	`, profileID, target)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) ListStoragePaths(ctx context.Context, profileID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT storage_path
		FROM professional_documents
		WHERE profile_id = $1
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make([]string, 0)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return paths, nil
}

func (s *PostgresStore) DeleteDocuments(ctx context.Context, profileID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM professional_documents WHERE profile_id = $1`, profileID)
	return err
}

// InsertDocuments writes all records in one statement. Records without a
// created_at are stamped with the insert time.
func (s *PostgresStore) InsertDocuments(ctx context.Context, records []domain.DocumentRecord) error {
	if len(records) == 0 {
		return nil
	}

	n := len(records)
	profileIDs := make([]string, 0, n)
	docTypes := make([]string, 0, n)
	paths := make([]string, 0, n)
	filenames := make([]string, 0, n)
	sizes := make([]int64, 0, n)
	mimeTypes := make([]string, 0, n)
	notes := make([]string, 0, n)
	createdAts := make([]time.Time, 0, n)
	insertedAt := time.Now().UTC()
	for _, rec := range records {
		profileIDs = append(profileIDs, rec.ProfileID)
		docTypes = append(docTypes, rec.DocumentType)
		paths = append(paths, rec.StoragePath)
		filenames = append(filenames, rec.Metadata.OriginalFilename)
		sizes = append(sizes, rec.Metadata.Size)
		mimeTypes = append(mimeTypes, rec.Metadata.MimeType)
		notes = append(notes, rec.Metadata.Note)
		createdAt := rec.CreatedAt
		if createdAt.IsZero() {
			createdAt = insertedAt
		}
		createdAts = append(createdAts, createdAt.UTC())
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO professional_documents (
			profile_id, document_type, storage_path, original_filename, size_bytes, mime_type, note, created_at
		)
		SELECT profile_id, document_type, storage_path, original_filename, size_bytes, mime_type, NULLIF(note, ''), created_at
		FROM UNNEST($1::text[], $2::text[], $3::text[], $4::text[], $5::bigint[], $6::text[], $7::text[], $8::timestamptz[])
			AS t(profile_id, document_type, storage_path, original_filename, size_bytes, mime_type, note, created_at)
	`,
		pq.Array(profileIDs),
		pq.Array(docTypes),
		pq.Array(paths),
		pq.Array(filenames),
		pq.Array(sizes),
		pq.Array(mimeTypes),
		pq.Array(notes),
		pq.Array(timestampArray(createdAts)),
	)
	if err != nil {
		return fmt.Errorf("insert documents: %w", err)
	}
	return nil
}

// timestampArray renders timestamps as RFC 3339 text so pq.Array can send
// them as a timestamptz[] literal.
func timestampArray(ts []time.Time) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Format(time.RFC3339Nano))
	}
	return out
}

func (s *PostgresStore) ListDocuments(ctx context.Context, profileID string) ([]domain.DocumentRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_id, document_type, storage_path, original_filename, size_bytes, mime_type, COALESCE(note, ''), created_at
		FROM professional_documents
		WHERE profile_id = $1
		ORDER BY document_type ASC
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.DocumentRecord, 0)
	for rows.Next() {
		var rec domain.DocumentRecord
		if err := rows.Scan(
			&rec.ProfileID,
			&rec.DocumentType,
			&rec.StoragePath,
			&rec.Metadata.OriginalFilename,
			&rec.Metadata.Size,
			&rec.Metadata.MimeType,
			&rec.Metadata.Note,
			&rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

type StorageEvent struct {
	ObjectKey    string
	EventName    string
	ProfileID    string
	DocumentType string
	OccurredAt   time.Time
}

func (s *PostgresStore) InsertStorageEvent(ctx context.Context, ev StorageEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO storage_events (object_key, event_name, profile_id, document_type, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
	`, ev.ObjectKey, ev.EventName, ev.ProfileID, ev.DocumentType, ev.OccurredAt)
	return err
}
