package domain

import "time"

// Topic is a named category holding quizzes and nested subtopics.
type Topic struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parent,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
	Subtopics []*Topic  `json:"subtopics"`
}

// Question is one question/answer pair of a quiz. Both fields hold editor markup.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Quiz is an ordered collection of questions filed under a topic.
type Quiz struct {
	ID        string     `json:"_id"`
	TopicID   string     `json:"topic"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}
