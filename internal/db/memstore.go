package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rajivgeraev/kos-api/internal/lifecycle"
	"github.com/rajivgeraev/kos-api/internal/models"
)

// MemStore хранилище в памяти для драйвера memory и тестов.
// Транзакций нет: изменения применяются сразу, поэтому Atomic() == false.
type MemStore struct {
	mu     sync.Mutex
	kos    map[int64]models.Kos
	posts  map[int64]models.Post
	nextID int64
}

// NewMemStore создает пустое хранилище в памяти
func NewMemStore() *MemStore {
	return &MemStore{
		kos:   make(map[int64]models.Kos),
		posts: make(map[int64]models.Post),
	}
}

// CreatePair вставляет активную пару Kos/Post
func (s *MemStore) CreatePair(name string, userID int64, title string) models.Kos {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := time.Now().UTC()
	p := models.Post{ID: s.nextID, UserID: userID, Title: title, CreatedAt: now}
	k := models.Kos{ID: s.nextID, PostID: p.ID, Name: name, CreatedAt: now}
	s.posts[p.ID] = p
	s.kos[k.ID] = k
	return k
}

// SetViewCount задаёт счетчик просмотров публикации
func (s *MemStore) SetViewCount(postID, views int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.posts[postID]; ok {
		p.ViewCount = views
		s.posts[postID] = p
	}
}

// Kos возвращает копию записи объявления
func (s *MemStore) Kos(id int64) (models.Kos, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.kos[id]
	return copyKos(k), ok
}

// Post возвращает копию записи публикации
func (s *MemStore) Post(id int64) (models.Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.posts[id]
	return copyPost(p), ok
}

func (s *MemStore) Atomic() bool {
	return false
}

func (s *MemStore) RunInTx(ctx context.Context, fn func(ctx context.Context, q lifecycle.Queries) error) error {
	return fn(ctx, memQueries{s: s})
}

func (s *MemStore) ArchivedKosIDs(ctx context.Context) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := []int64{}
	for id, k := range s.kos {
		if k.Archived() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemStore) ListKos(ctx context.Context, archived bool) ([]models.Kos, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := []models.Kos{}
	for _, k := range s.kos {
		if k.Archived() != archived {
			continue
		}
		c := copyKos(k)
		if p, ok := s.posts[k.PostID]; ok {
			cp := copyPost(p)
			c.Post = &cp
		}
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

type memQueries struct {
	s *MemStore
}

func (q memQueries) FindKos(ctx context.Context, id int64) (models.Kos, error) {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	k, ok := q.s.kos[id]
	if !ok {
		return models.Kos{}, lifecycle.ErrNoRecord
	}
	return copyKos(k), nil
}

func (q memQueries) SetKosDeleted(ctx context.Context, id int64, at *time.Time, by *int64) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	k, ok := q.s.kos[id]
	if !ok {
		return lifecycle.ErrNoRecord
	}
	k.DeletedAt, k.DeletedBy = copyTime(at), copyInt(by)
	q.s.kos[id] = k
	return nil
}

func (q memQueries) SetPostDeleted(ctx context.Context, postID int64, at *time.Time, by *int64) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	p, ok := q.s.posts[postID]
	if !ok {
		return lifecycle.ErrNoRecord
	}
	p.DeletedAt, p.DeletedBy = copyTime(at), copyInt(by)
	q.s.posts[postID] = p
	return nil
}

func (q memQueries) SetPostFeatured(ctx context.Context, postID int64, featured bool) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	p, ok := q.s.posts[postID]
	if !ok {
		return lifecycle.ErrNoRecord
	}
	p.IsFeatured = featured
	q.s.posts[postID] = p
	return nil
}

func (q memQueries) DeletePost(ctx context.Context, postID int64) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	if _, ok := q.s.posts[postID]; !ok {
		return lifecycle.ErrNoRecord
	}
	delete(q.s.posts, postID)
	return nil
}

func (q memQueries) DeleteKos(ctx context.Context, id int64) error {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	if _, ok := q.s.kos[id]; !ok {
		return lifecycle.ErrNoRecord
	}
	delete(q.s.kos, id)
	return nil
}

func copyKos(k models.Kos) models.Kos {
	k.DeletedAt, k.DeletedBy = copyTime(k.DeletedAt), copyInt(k.DeletedBy)
	k.Post = nil
	return k
}

func copyPost(p models.Post) models.Post {
	p.DeletedAt, p.DeletedBy = copyTime(p.DeletedAt), copyInt(p.DeletedBy)
	return p
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInt(i *int64) *int64 {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
