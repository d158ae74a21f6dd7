package lifecycle

import (
	"context"
	"time"

	"github.com/rajivgeraev/kos-api/internal/models"
)

// Queries точечные чтения и изменения пары Kos/Post.
// Все изменения возвращают ErrNoRecord, если ни одна строка не затронута.
type Queries interface {
	FindKos(ctx context.Context, id int64) (models.Kos, error)
	SetKosDeleted(ctx context.Context, id int64, at *time.Time, by *int64) error
	SetPostDeleted(ctx context.Context, postID int64, at *time.Time, by *int64) error
	SetPostFeatured(ctx context.Context, postID int64, featured bool) error
	DeletePost(ctx context.Context, postID int64) error
	DeleteKos(ctx context.Context, id int64) error
}

// Store внешнее хранилище записей.
// Atomic сообщает, выполняет ли RunInTx fn как одну транзакцию (с откатом при ошибке).
type Store interface {
	Atomic() bool
	RunInTx(ctx context.Context, fn func(ctx context.Context, q Queries) error) error
	ArchivedKosIDs(ctx context.Context) ([]int64, error)
}
