package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// DocumentsCommitted is published after a submission fully commits.
type DocumentsCommitted struct {
	SubmissionID  string    `json:"submission_id"`
	ProfileID     string    `json:"profile_id"`
	DocumentTypes []string  `json:"document_types"`
	StoragePaths  []string  `json:"storage_paths"`
	CommittedAt   time.Time `json:"committed_at"`
}

type Publisher interface {
	PublishDocumentsCommitted(ctx context.Context, ev DocumentsCommitted) error
}

type NoopPublisher struct{}

func (NoopPublisher) PublishDocumentsCommitted(context.Context, DocumentsCommitted) error {
	return nil
}

type NATSPublisher struct {
	conn    *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(
		url,
		nats.Name("professional-onboarding"),
		nats.Timeout(2*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(60),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn, subject: subject}, nil
}

func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

func (p *NATSPublisher) PublishDocumentsCommitted(ctx context.Context, ev DocumentsCommitted) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := p.conn.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

func Encode(ev DocumentsCommitted) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal documents committed event: %w", err)
	}
	return payload, nil
}
