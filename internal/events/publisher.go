package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/rajivgeraev/kos-api/internal/lifecycle"
)

// Envelope сообщение о переходе жизненного цикла, публикуемое в NATS
type Envelope struct {
	ID         string              `json:"id"`
	Type       lifecycle.EventType `json:"type"`
	KosID      int64               `json:"kos_id"`
	PostID     int64               `json:"post_id"`
	ActorID    int64               `json:"actor_id"`
	At         time.Time           `json:"at"`
	IsFeatured *bool               `json:"is_featured,omitempty"`
}

// NewEnvelope строит сообщение из события движка
func NewEnvelope(ev lifecycle.Event) Envelope {
	return Envelope{
		ID:         uuid.New().String(),
		Type:       ev.Type,
		KosID:      ev.KosID,
		PostID:     ev.PostID,
		ActorID:    ev.ActorID,
		At:         ev.At,
		IsFeatured: ev.IsFeatured,
	}
}

type conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// Publisher публикует события жизненного цикла в subject, равный типу события
type Publisher struct {
	conn   conn
	logger *zap.Logger
}

// NewPublisher подключается к NATS
func NewPublisher(url string, logger *zap.Logger) (*Publisher, error) {
	nc, err := nats.Connect(url, nats.Name("kos-service"))
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: nc, logger: logger}, nil
}

func (p *Publisher) Publish(ctx context.Context, subject string, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, jsonData)
}

// KosChanged публикует событие; ошибка только логируется
func (p *Publisher) KosChanged(ctx context.Context, ev lifecycle.Event) {
	env := NewEnvelope(ev)
	if err := p.Publish(ctx, string(ev.Type), env); err != nil {
		p.logger.Error("Publisher.KosChanged: failed to publish event",
			zap.String("subject", string(ev.Type)), zap.Int64("kos_id", ev.KosID), zap.Error(err))
	}
}

func (p *Publisher) Close() {
	p.conn.Close()
}
