package events

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/notification"

	"professional-onboarding/internal/domain"
)

const (
	objectCreatedEvent = "s3:ObjectCreated:*"
	objectRemovedEvent = "s3:ObjectRemoved:*"
)

// ObjectEvent is a document object created or removed under the bucket.
type ObjectEvent struct {
	ObjectKey    string
	EventName    string
	ProfileID    string
	DocumentType string
	Filename     string
	OccurredAt   time.Time
}

type ObjectEventSource interface {
	Run(ctx context.Context, handler func(context.Context, ObjectEvent) error) error
}

type MinioObjectEventSource struct {
	client *minio.Client
	bucket string
	prefix string
	suffix string
	skip   func(key string, err error)
}

func NewMinioObjectEventSource(client *minio.Client, bucket string, prefix string, suffix string) *MinioObjectEventSource {
	return &MinioObjectEventSource{
		client: client,
		bucket: bucket,
		prefix: prefix,
		suffix: suffix,
	}
}

// OnSkip registers a callback for keys that do not belong to a document.
func (s *MinioObjectEventSource) OnSkip(fn func(key string, err error)) {
	s.skip = fn
}

func (s *MinioObjectEventSource) Run(ctx context.Context, handler func(context.Context, ObjectEvent) error) error {
	notificationCh := s.client.ListenBucketNotification(ctx, s.bucket, s.prefix, s.suffix, []string{objectCreatedEvent, objectRemovedEvent})
	for {
		select {
		case <-ctx.Done():
			return nil
		case info, ok := <-notificationCh:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream closed")
			}
			if info.Err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("minio notification stream error: %w", info.Err)
			}
			if err := s.dispatch(ctx, info, handler); err != nil {
				return err
			}
		}
	}
}

func (s *MinioObjectEventSource) dispatch(ctx context.Context, info notification.Info, handler func(context.Context, ObjectEvent) error) error {
	for _, record := range info.Records {
		event, err := toObjectEvent(record)
		if err != nil {
			if s.skip != nil {
				s.skip(record.S3.Object.Key, err)
			}
			continue
		}
		if err := handler(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func toObjectEvent(record notification.Event) (ObjectEvent, error) {
	objectKey, err := decodeObjectKey(record.S3.Object.Key)
	if err != nil {
		return ObjectEvent{}, err
	}
	parts, err := domain.ParseStoragePath(objectKey)
	if err != nil {
		return ObjectEvent{}, err
	}
	occurredAt, err := time.Parse(time.RFC3339Nano, record.EventTime)
	if err != nil {
		occurredAt = parts.UploadedAt
	}
	return ObjectEvent{
		ObjectKey:    objectKey,
		EventName:    record.EventName,
		ProfileID:    parts.ProfileID,
		DocumentType: parts.DocumentType,
		Filename:     parts.Filename,
		OccurredAt:   occurredAt.UTC(),
	}, nil
}

func decodeObjectKey(encoded string) (string, error) {
	decoded, err := url.QueryUnescape(encoded)
	if err != nil {
		return "", err
	}
	decoded = strings.TrimSpace(decoded)
	if decoded == "" {
		return "", fmt.Errorf("object key is empty")
	}
	return decoded, nil
}
