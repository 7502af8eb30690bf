package quiz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedStore keeps quiz configuration in Redis. Attempts and grade
// overrides change between requests and always go to the wrapped store.
type CachedStore struct {
	Store
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedStore(next Store, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedStore{Store: next, client: client, ttl: ttl, logger: logger}
}

func quizKey(id string) string {
	return fmt.Sprintf("quizaccess:quiz:%s", id)
}

func (c *CachedStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	raw, err := c.client.Get(ctx, quizKey(id)).Bytes()
	switch {
	case err == nil:
		var q Quiz
		if jerr := json.Unmarshal(raw, &q); jerr == nil {
			return q, nil
		}
		c.logger.Warn("dropping undecodable cached quiz", "quiz_id", id)
	case errors.Is(err, redis.Nil):
	default:
		// cache trouble is never fatal
		c.logger.Warn("quiz cache read failed", "quiz_id", id, "error", err)
	}

	q, err := c.Store.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	if buf, jerr := json.Marshal(q); jerr == nil {
		if serr := c.client.Set(ctx, quizKey(id), buf, c.ttl).Err(); serr != nil {
			c.logger.Warn("quiz cache write failed", "quiz_id", id, "error", serr)
		}
	}
	return q, nil
}

func (c *CachedStore) PutQuiz(ctx context.Context, q Quiz) error {
	if err := c.Store.PutQuiz(ctx, q); err != nil {
		return err
	}
	if err := c.client.Del(ctx, quizKey(q.ID)).Err(); err != nil {
		c.logger.Warn("quiz cache invalidate failed", "quiz_id", q.ID, "error", err)
	}
	return nil
}
