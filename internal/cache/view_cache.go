package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rajivgeraev/kos-api/internal/lifecycle"
	"github.com/rajivgeraev/kos-api/internal/models"
)

// generationKey хранит номер поколения представлений; ключи прошлых поколений больше не читаются
const generationKey = "kos:view:gen"

// Lister источник представлений, который оборачивает кеш
type Lister interface {
	ListKos(ctx context.Context, archived bool) ([]models.Kos, error)
}

// ViewCache кеширует в Redis активное и архивное представления списка объявлений.
// Любой зафиксированный переход увеличивает поколение, и оба представления читаются заново.
type ViewCache struct {
	client *redis.Client
	next   Lister
	ttl    time.Duration
	logger *zap.Logger
}

// NewViewCache подключается к Redis по адресу addr
func NewViewCache(addr string, next Lister, ttl time.Duration, logger *zap.Logger) (*ViewCache, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, err
	}
	return &ViewCache{client: client, next: next, ttl: ttl, logger: logger}, nil
}

func viewKey(gen int64, archived bool) string {
	view := "active"
	if archived {
		view = "archived"
	}
	return "kos:view:" + strconv.FormatInt(gen, 10) + ":" + view
}

// generation читает текущее поколение; отсутствующий ключ означает нулевое поколение
func (c *ViewCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// ListKos отдаёт представление из кеша, при промахе читает хранилище и кладёт результат в кеш.
// Поколение читается до обращения к хранилищу, поэтому снимок, прочитанный до перехода,
// записывается под ключ старого поколения и не отдаётся после него.
// Ошибки Redis не ломают чтение: запрос уходит в хранилище.
func (c *ViewCache) ListKos(ctx context.Context, archived bool) ([]models.Kos, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.logger.Warn("ViewCache.ListKos: redis generation read failed", zap.Error(err))
		return c.next.ListKos(ctx, archived)
	}
	key := viewKey(gen, archived)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var list []models.Kos
		if jerr := json.Unmarshal(data, &list); jerr == nil {
			return list, nil
		}
		c.logger.Warn("ViewCache.ListKos: corrupted entry", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("ViewCache.ListKos: redis get failed", zap.String("key", key), zap.Error(err))
	}

	list, err := c.next.ListKos(ctx, archived)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(list); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("ViewCache.ListKos: redis set failed", zap.String("key", key), zap.Error(err))
		}
	}
	return list, nil
}

// KosChanged переводит кеш на следующее поколение, записи прошлого истекают по TTL
func (c *ViewCache) KosChanged(ctx context.Context, ev lifecycle.Event) {
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.logger.Error("ViewCache.KosChanged: failed to invalidate views",
			zap.String("event", string(ev.Type)), zap.Int64("kos_id", ev.KosID), zap.Error(err))
	}
}

func (c *ViewCache) Close() error {
	return c.client.Close()
}
