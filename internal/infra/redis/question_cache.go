package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quizbowl-engine/internal/domain"
)

// QuestionLoader fetches question documents from the backing store.
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, id string) (domain.Question, error)
}

// QuestionCache keeps question documents (keys included) in Redis so the hot
// submit path does not hammer the store. Cached as: SET question:{id} {json}.
// A key correction must call Invalidate before anything is graded under the
// new key.
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
	}
}

func (c *QuestionCache) GetQuestion(ctx context.Context, id string) (domain.Question, error) {
	if q, ok := c.cached(ctx, id); ok {
		return q, nil
	}

	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		// Re-check in case another goroutine filled it.
		if q, ok := c.cached(ctx, id); ok {
			return q, nil
		}

		q, err := c.loader.LoadQuestion(ctx, id)
		if err != nil {
			return domain.Question{}, err
		}

		payload, err := json.Marshal(q)
		if err != nil {
			return domain.Question{}, fmt.Errorf("marshal question: %w", err)
		}
		_ = c.client.Set(ctx, c.key(id), payload, c.ttlWithJitter()).Err()
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

// Invalidate drops the cached copy so the next read sees the corrected key.
func (c *QuestionCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

func (c *QuestionCache) cached(ctx context.Context, id string) (domain.Question, bool) {
	raw, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// Treat an unreachable cache as a miss; the loader is authoritative.
			return domain.Question{}, false
		}
		return domain.Question{}, false
	}
	var q domain.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.Question{}, false
	}
	return q, true
}

func (c *QuestionCache) key(id string) string {
	return "question:" + id
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations; fills for different keys run
	// concurrently, so the jitter source must be the locked top-level one
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
