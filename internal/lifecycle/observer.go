package lifecycle

import (
	"context"
	"time"
)

// EventType тип перехода, о котором уведомляются наблюдатели
type EventType string

const (
	EventArchived EventType = "kos.archived"
	EventRestored EventType = "kos.restored"
	EventDeleted  EventType = "kos.deleted"
	EventFeatured EventType = "kos.featured"
)

// Event описывает зафиксированный переход пары Kos/Post
type Event struct {
	Type       EventType `json:"type"`
	KosID      int64     `json:"kos_id"`
	PostID     int64     `json:"post_id"`
	ActorID    int64     `json:"actor_id"`
	At         time.Time `json:"at"`
	IsFeatured *bool     `json:"is_featured,omitempty"`
}

// Observer получает события после фиксации перехода.
// Ошибки наблюдателя не влияют на результат операции.
type Observer interface {
	KosChanged(ctx context.Context, ev Event)
}

// ObserverFunc адаптер функции к Observer
type ObserverFunc func(ctx context.Context, ev Event)

func (f ObserverFunc) KosChanged(ctx context.Context, ev Event) {
	f(ctx, ev)
}
