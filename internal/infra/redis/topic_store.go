package redis

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/LLIu33/swot/internal/app"
	"github.com/LLIu33/swot/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// TopicStore caches the topic list in Redis in front of another store.
// The list is stored as JSON under topics:all and dropped on every write. Writes also bump
// topics:gen, and a fill only stores its list when the generation it started from is still
// current, so a list read before a write never outlives it.
type TopicStore struct {
	client *redis.Client
	next   app.TopicStore
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewTopicStore(client *redis.Client, next app.TopicStore, ttl time.Duration) *TopicStore {
	return &TopicStore{
		client: client,
		next:   next,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

const (
	topicsKey    = "topics:all"
	topicsGenKey = "topics:gen"
)

func (s *TopicStore) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	if topics, ok := s.cached(ctx); ok {
		return topics, nil
	}

	result, err, _ := s.sf.Do(topicsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if topics, ok := s.cached(ctx); ok {
			return topics, nil
		}

		gen, genErr := s.generation(ctx, s.client)
		topics, err := s.next.ListTopics(ctx)
		if err != nil {
			return nil, err
		}
		if genErr == nil {
			s.fill(ctx, gen, topics)
		}
		return topics, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Topic), nil
}

func (s *TopicStore) GetTopic(ctx context.Context, id string) (domain.Topic, error) {
	topics, err := s.ListTopics(ctx)
	if err != nil {
		return domain.Topic{}, err
	}
	for _, topic := range topics {
		if topic.ID == id {
			return topic, nil
		}
	}
	return domain.Topic{}, domain.ErrTopicNotFound
}

func (s *TopicStore) CreateTopic(ctx context.Context, topic domain.Topic) error {
	defer s.invalidate(ctx)
	return s.next.CreateTopic(ctx, topic)
}

func (s *TopicStore) RenameTopic(ctx context.Context, id, name string) error {
	defer s.invalidate(ctx)
	return s.next.RenameTopic(ctx, id, name)
}

func (s *TopicStore) DeleteTopic(ctx context.Context, id string) ([]string, error) {
	defer s.invalidate(ctx)
	return s.next.DeleteTopic(ctx, id)
}

func (s *TopicStore) cached(ctx context.Context) ([]domain.Topic, bool) {
	data, err := s.client.Get(ctx, topicsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var topics []domain.Topic
	if err := json.Unmarshal(data, &topics); err != nil {
		return nil, false
	}
	return topics, true
}

// fill caches topics unless a write has bumped the generation since gen was read.
func (s *TopicStore) fill(ctx context.Context, gen int64, topics []domain.Topic) {
	data, err := json.Marshal(topics)
	if err != nil {
		return
	}
	_ = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.generation(ctx, tx)
		if err != nil || current != gen {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, topicsKey, data, s.ttlWithJitter())
			return nil
		})
		return err
	}, topicsGenKey)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *TopicStore) generation(ctx context.Context, c getter) (int64, error) {
	gen, err := c.Get(ctx, topicsGenKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// invalidate runs after the write has committed. It is best effort; a stale list expires
// with the TTL.
func (s *TopicStore) invalidate(ctx context.Context) {
	_, _ = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, topicsGenKey)
		pipe.Del(ctx, topicsKey)
		return nil
	})
}

func (s *TopicStore) ttlWithJitter() time.Duration {
	if s.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(s.ttl) / 10
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return s.ttl + time.Duration(s.rnd.Int63n(jitterMax+1))
}
