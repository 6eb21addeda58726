package memory

import (
	"context"
	"sync"

	"github.com/LLIu33/swot/internal/domain"
)

// TopicStore is an in-memory implementation of app.TopicStore. It also keeps quizzes so
// that cascading deletes behave like the database.
type TopicStore struct {
	mu      sync.RWMutex
	order   []string
	topics  map[string]domain.Topic
	quizzes map[string]domain.Quiz
}

func NewTopicStore() *TopicStore {
	return &TopicStore{
		topics:  make(map[string]domain.Topic),
		quizzes: make(map[string]domain.Quiz),
	}
}

func (s *TopicStore) ListTopics(_ context.Context) ([]domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Topic, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.topics[id])
	}
	return out, nil
}

func (s *TopicStore) GetTopic(_ context.Context, id string) (domain.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	topic, ok := s.topics[id]
	if !ok {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	return topic, nil
}

func (s *TopicStore) CreateTopic(_ context.Context, topic domain.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if topic.ParentID != "" {
		if _, ok := s.topics[topic.ParentID]; !ok {
			return domain.ErrParentNotFound
		}
	}
	if _, exists := s.topics[topic.ID]; !exists {
		s.order = append(s.order, topic.ID)
	}
	topic.Subtopics = nil
	s.topics[topic.ID] = topic
	return nil
}

func (s *TopicStore) RenameTopic(_ context.Context, id, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topic, ok := s.topics[id]
	if !ok {
		return domain.ErrTopicNotFound
	}
	topic.Name = name
	s.topics[id] = topic
	return nil
}

func (s *TopicStore) DeleteTopic(_ context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[id]; !ok {
		return nil, domain.ErrTopicNotFound
	}

	doomed := map[string]bool{id: true}
	removed := []string{id}
	// order lists parents before children, so one pass collects every descendant
	for _, tid := range s.order {
		if doomed[tid] {
			continue
		}
		if doomed[s.topics[tid].ParentID] {
			doomed[tid] = true
			removed = append(removed, tid)
		}
	}

	kept := s.order[:0]
	for _, tid := range s.order {
		if doomed[tid] {
			delete(s.topics, tid)
			continue
		}
		kept = append(kept, tid)
	}
	s.order = kept

	for qid, quiz := range s.quizzes {
		if doomed[quiz.TopicID] {
			delete(s.quizzes, qid)
		}
	}
	return removed, nil
}

// PutQuiz stores a quiz under its topic.
func (s *TopicStore) PutQuiz(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.topics[quiz.TopicID]; !ok {
		return domain.ErrTopicNotFound
	}
	s.quizzes[quiz.ID] = quiz
	return nil
}

// QuizCount returns how many quizzes are filed under topicID.
func (s *TopicStore) QuizCount(topicID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, quiz := range s.quizzes {
		if quiz.TopicID == topicID {
			n++
		}
	}
	return n
}
