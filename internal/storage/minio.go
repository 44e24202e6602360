package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"professional-onboarding/internal/domain"
)

type MinioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioClient(endpoint, accessKey, secretKey string, useSSL bool) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
}

func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (*MinioStore, error) {
	client, err := NewMinioClient(endpoint, accessKey, secretKey, useSSL)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	return NewMinioStoreFromClient(client, bucket), nil
}

func NewMinioStoreFromClient(client *minio.Client, bucket string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket}
}

// PutDocument writes content at path. Existing objects are never overwritten:
// the write is conditional on the key being absent and fails with
// domain.ErrObjectExists otherwise.
func (m *MinioStore) PutDocument(ctx context.Context, path string, content []byte, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	opts.SetMatchETagExcept("*")

	_, err := m.client.PutObject(ctx, m.bucket, path, bytes.NewReader(content), int64(len(content)), opts)
	if err != nil {
		if isPreconditionFailed(err) {
			return fmt.Errorf("put %s: %w", path, domain.ErrObjectExists)
		}
		return fmt.Errorf("put %s: %w", path, err)
	}
	return nil
}

// DeleteDocuments removes all paths in one batched request.
func (m *MinioStore) DeleteDocuments(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	objectsCh := make(chan minio.ObjectInfo, len(paths))
	for _, p := range paths {
		objectsCh <- minio.ObjectInfo{Key: p}
	}
	close(objectsCh)

	var errs []error
	for removeErr := range m.client.RemoveObjects(ctx, m.bucket, objectsCh, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("remove %s: %w", removeErr.ObjectName, removeErr.Err))
	}
	return errors.Join(errs...)
}

func (m *MinioStore) Ping(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", m.bucket)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	resp := minio.ToErrorResponse(err)
	return resp.Code == "PreconditionFailed" || resp.StatusCode == http.StatusPreconditionFailed
}
