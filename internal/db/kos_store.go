package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rajivgeraev/kos-api/internal/lifecycle"
	"github.com/rajivgeraev/kos-api/internal/models"
)

// PgxConn подмножество pgxpool.Pool, которое использует KosStore
type PgxConn interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// KosStore транзакционное хранилище пар Kos/Post в PostgreSQL
type KosStore struct {
	conn PgxConn
}

// NewKosStore создает новый экземпляр KosStore
func NewKosStore(conn PgxConn) *KosStore {
	return &KosStore{conn: conn}
}

// Atomic всегда true: каждая операция движка выполняется в одной транзакции
func (s *KosStore) Atomic() bool {
	return true
}

// RunInTx выполняет fn в транзакции; при ошибке fn транзакция откатывается
func (s *KosStore) RunInTx(ctx context.Context, fn func(ctx context.Context, q lifecycle.Queries) error) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}

	if err := fn(ctx, &txQueries{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return nil
}

// ArchivedKosIDs возвращает ID всех объявлений в архиве
func (s *KosStore) ArchivedKosIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id FROM kos
		WHERE deleted_at IS NOT NULL
		ORDER BY deleted_at ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса архива: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения архива: %w", err)
	}
	return ids, nil
}

// ListKos возвращает объявления активного (archived=false) или архивного представления
func (s *KosStore) ListKos(ctx context.Context, archived bool) ([]models.Kos, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT k.id, k.post_id, k.name, k.deleted_at, k.deleted_by, k.created_at,
		       p.user_id, p.title, p.is_featured, p.view_count,
		       p.deleted_at, p.deleted_by, p.created_at
		FROM kos k
		JOIN posts p ON p.id = k.post_id
		WHERE (k.deleted_at IS NOT NULL) = $1
		ORDER BY k.id ASC
	`, archived)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса объявлений: %w", err)
	}
	defer rows.Close()

	list := []models.Kos{}
	for rows.Next() {
		var (
			k             models.Kos
			p             models.Post
			deletedAt     pgtype.Timestamptz
			deletedBy     pgtype.Int8
			postDeletedAt pgtype.Timestamptz
			postDeletedBy pgtype.Int8
		)
		if err := rows.Scan(
			&k.ID, &k.PostID, &k.Name, &deletedAt, &deletedBy, &k.CreatedAt,
			&p.UserID, &p.Title, &p.IsFeatured, &p.ViewCount,
			&postDeletedAt, &postDeletedBy, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		k.DeletedAt, k.DeletedBy = fromNullable(deletedAt, deletedBy)
		p.ID = k.PostID
		// post читается как есть: после частичного сбоя его отметка может расходиться с kos
		p.DeletedAt, p.DeletedBy = fromNullable(postDeletedAt, postDeletedBy)
		k.Post = &p
		list = append(list, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения объявлений: %w", err)
	}
	return list, nil
}

type txQueries struct {
	tx pgx.Tx
}

func (q *txQueries) FindKos(ctx context.Context, id int64) (models.Kos, error) {
	var (
		k         models.Kos
		deletedAt pgtype.Timestamptz
		deletedBy pgtype.Int8
	)
	err := q.tx.QueryRow(ctx, `
		SELECT id, post_id, name, deleted_at, deleted_by, created_at
		FROM kos
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&k.ID, &k.PostID, &k.Name, &deletedAt, &deletedBy, &k.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Kos{}, lifecycle.ErrNoRecord
		}
		return models.Kos{}, fmt.Errorf("ошибка запроса объявления: %w", err)
	}
	k.DeletedAt, k.DeletedBy = fromNullable(deletedAt, deletedBy)
	return k, nil
}

func (q *txQueries) SetKosDeleted(ctx context.Context, id int64, at *time.Time, by *int64) error {
	return q.exec(ctx, "обновления объявления", `
		UPDATE kos SET deleted_at = $2, deleted_by = $3 WHERE id = $1
	`, id, at, by)
}

func (q *txQueries) SetPostDeleted(ctx context.Context, postID int64, at *time.Time, by *int64) error {
	return q.exec(ctx, "обновления публикации", `
		UPDATE posts SET deleted_at = $2, deleted_by = $3 WHERE id = $1
	`, postID, at, by)
}

func (q *txQueries) SetPostFeatured(ctx context.Context, postID int64, featured bool) error {
	return q.exec(ctx, "обновления публикации", `
		UPDATE posts SET is_featured = $2 WHERE id = $1
	`, postID, featured)
}

func (q *txQueries) DeletePost(ctx context.Context, postID int64) error {
	return q.exec(ctx, "удаления публикации", `DELETE FROM posts WHERE id = $1`, postID)
}

func (q *txQueries) DeleteKos(ctx context.Context, id int64) error {
	return q.exec(ctx, "удаления объявления", `DELETE FROM kos WHERE id = $1`, id)
}

func (q *txQueries) exec(ctx context.Context, what, sql string, args ...any) error {
	tag, err := q.tx.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("ошибка %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return lifecycle.ErrNoRecord
	}
	return nil
}

func fromNullable(at pgtype.Timestamptz, by pgtype.Int8) (*time.Time, *int64) {
	var (
		deletedAt *time.Time
		deletedBy *int64
	)
	if at.Valid {
		t := at.Time
		deletedAt = &t
	}
	if by.Valid {
		v := by.Int64
		deletedBy = &v
	}
	return deletedAt, deletedBy
}
