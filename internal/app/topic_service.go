package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/LLIu33/swot/internal/domain"
	"github.com/google/uuid"
)

// TopicStore persists topics as flat rows linked by parent ID.
type TopicStore interface {
	// ListTopics returns every topic in creation order.
	ListTopics(ctx context.Context) ([]domain.Topic, error)
	GetTopic(ctx context.Context, id string) (domain.Topic, error)
	CreateTopic(ctx context.Context, topic domain.Topic) error
	RenameTopic(ctx context.Context, id, name string) error
	// DeleteTopic removes the topic, its descendants and their quizzes, returning the IDs of
	// all removed topics.
	DeleteTopic(ctx context.Context, id string) ([]string, error)
}

// TopicService contains the topic resource use cases.
type TopicService struct {
	store TopicStore
	feed  *Feed
	newID func() string
	now   func() time.Time

	publishMu sync.Mutex // orders snapshot reads with their broadcasts
}

func NewTopicService(store TopicStore) *TopicService {
	return &TopicService{
		store: store,
		feed:  NewFeed(),
		newID: uuid.NewString,
		now:   time.Now,
	}
}

// NewTopicServiceWithClock is test-only for deterministic IDs and timestamps.
func NewTopicServiceWithClock(store TopicStore, newID func() string, now func() time.Time) *TopicService {
	s := NewTopicService(store)
	s.newID = newID
	s.now = now
	return s
}

// Forest returns all topics nested under their parents.
func (s *TopicService) Forest(ctx context.Context) ([]*domain.Topic, error) {
	rows, err := s.store.ListTopics(ctx)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return BuildForest(rows), nil
}

// Create adds a topic, at root level when parentID is empty.
func (s *TopicService) Create(ctx context.Context, name, parentID string) (domain.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Topic{}, domain.ErrBlankName
	}
	if parentID != "" {
		if _, err := s.store.GetTopic(ctx, parentID); err != nil {
			if errors.Is(err, domain.ErrTopicNotFound) {
				return domain.Topic{}, domain.ErrParentNotFound
			}
			return domain.Topic{}, err
		}
	}

	topic := domain.Topic{
		ID:        s.newID(),
		Name:      name,
		ParentID:  parentID,
		CreatedAt: s.now().UTC(),
		Subtopics: []*domain.Topic{},
	}
	if err := s.store.CreateTopic(ctx, topic); err != nil {
		return domain.Topic{}, fmt.Errorf("create topic: %w", err)
	}
	s.publish(ctx)
	return topic, nil
}

// Rename changes a topic's name.
func (s *TopicService) Rename(ctx context.Context, id, name string) (domain.Topic, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Topic{}, domain.ErrBlankName
	}
	if err := s.store.RenameTopic(ctx, id, name); err != nil {
		return domain.Topic{}, err
	}
	topic, err := s.store.GetTopic(ctx, id)
	if err != nil {
		return domain.Topic{}, err
	}
	s.publish(ctx)
	return topic, nil
}

// Delete removes a topic together with its subtopics and their quizzes.
func (s *TopicService) Delete(ctx context.Context, id string) ([]string, error) {
	removed, err := s.store.DeleteTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx)
	return removed, nil
}

// Subscribe returns a channel of topic forests, starting with the current one.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *TopicService) Subscribe(ctx context.Context) (<-chan []*domain.Topic, func(), error) {
	forest, err := s.Forest(ctx)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feed.subscribe(forest)
	return ch, cancel, nil
}

func (s *TopicService) publish(ctx context.Context) {
	if s.feed.empty() {
		return
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	forest, err := s.Forest(ctx)
	if err != nil {
		return
	}
	s.feed.broadcast(forest)
}

// BuildForest nests flat topic rows under their parents, keeping row order among siblings.
// Rows whose parent is missing are treated as roots.
func BuildForest(rows []domain.Topic) []*domain.Topic {
	byID := make(map[string]*domain.Topic, len(rows))
	ordered := make([]*domain.Topic, 0, len(rows))
	for i := range rows {
		topic := rows[i]
		topic.Subtopics = []*domain.Topic{}
		byID[topic.ID] = &topic
		ordered = append(ordered, &topic)
	}

	roots := make([]*domain.Topic, 0)
	for _, topic := range ordered {
		parent, ok := byID[topic.ParentID]
		if topic.ParentID == "" || !ok || parent == topic {
			roots = append(roots, topic)
			continue
		}
		parent.Subtopics = append(parent.Subtopics, topic)
	}
	return roots
}

// Feed fans topic forest snapshots out to subscribers.
type Feed struct {
	mu          sync.Mutex
	subscribers map[chan []*domain.Topic]struct{}
}

func NewFeed() *Feed {
	return &Feed{subscribers: make(map[chan []*domain.Topic]struct{})}
}

func (f *Feed) subscribe(initial []*domain.Topic) (<-chan []*domain.Topic, func()) {
	ch := make(chan []*domain.Topic, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	ch <- initial

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

func (f *Feed) empty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers) == 0
}

func (f *Feed) broadcast(forest []*domain.Topic) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- forest:
		default:
			// slow subscriber: drop its oldest snapshot, only the latest matters
			select {
			case <-ch:
			default:
			}
			ch <- forest
		}
	}
}
