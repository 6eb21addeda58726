package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/LLIu33/swot/internal/domain"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// TopicStore keeps topics in Postgres. Deletes cascade to subtopics and quizzes through
// foreign keys.
type TopicStore struct {
	pool *pgxpool.Pool
}

func NewTopicStore(pool *pgxpool.Pool) *TopicStore {
	return &TopicStore{pool: pool}
}

func (s *TopicStore) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, COALESCE(parent_id, ''), created_at FROM topics ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []domain.Topic
	for rows.Next() {
		var t domain.Topic
		if err := rows.Scan(&t.ID, &t.Name, &t.ParentID, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (s *TopicStore) GetTopic(ctx context.Context, id string) (domain.Topic, error) {
	var t domain.Topic
	err := s.pool.QueryRow(ctx, `SELECT id, name, COALESCE(parent_id, ''), created_at FROM topics WHERE id=$1`, id).
		Scan(&t.ID, &t.Name, &t.ParentID, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Topic{}, domain.ErrTopicNotFound
	}
	if err != nil {
		return domain.Topic{}, fmt.Errorf("load topic: %w", err)
	}
	return t, nil
}

func (s *TopicStore) CreateTopic(ctx context.Context, topic domain.Topic) error {
	var parent interface{}
	if topic.ParentID != "" {
		parent = topic.ParentID
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO topics (id, name, parent_id, created_at) VALUES ($1, $2, $3, $4)`,
		topic.ID, topic.Name, parent, topic.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23503" {
		return domain.ErrParentNotFound
	}
	if err != nil {
		return fmt.Errorf("insert topic: %w", err)
	}
	return nil
}

func (s *TopicStore) RenameTopic(ctx context.Context, id, name string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE topics SET name=$2 WHERE id=$1`, id, name)
	if err != nil {
		return fmt.Errorf("rename topic: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTopicNotFound
	}
	return nil
}

func (s *TopicStore) DeleteTopic(ctx context.Context, id string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		WITH RECURSIVE subtree AS (
			SELECT id FROM topics WHERE id = $1
			UNION ALL
			SELECT t.id FROM topics t JOIN subtree ON t.parent_id = subtree.id
		)
		DELETE FROM topics WHERE id IN (SELECT id FROM subtree)
		RETURNING id`, id)
	if err != nil {
		return nil, fmt.Errorf("delete topic: %w", err)
	}
	defer rows.Close()

	var removed []string
	for rows.Next() {
		var rid string
		if err := rows.Scan(&rid); err != nil {
			return nil, fmt.Errorf("scan deleted topic: %w", err)
		}
		removed = append(removed, rid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delete topic: %w", err)
	}
	if len(removed) == 0 {
		return nil, domain.ErrTopicNotFound
	}
	return removed, nil
}

// PutQuiz stores a quiz row under its topic.
func (s *TopicStore) PutQuiz(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, topic_id, name, data) VALUES ($1, $2, $3, $4::jsonb)
		 ON CONFLICT (id) DO UPDATE SET topic_id=EXCLUDED.topic_id, name=EXCLUDED.name, data=EXCLUDED.data`,
		quiz.ID, quiz.TopicID, quiz.Name, string(data))
	if err != nil {
		return fmt.Errorf("put quiz: %w", err)
	}
	return nil
}

// QuizCount returns how many quizzes are filed under topicID.
func (s *TopicStore) QuizCount(ctx context.Context, topicID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM quizzes WHERE topic_id=$1`, topicID).Scan(&n)
	return n, err
}
