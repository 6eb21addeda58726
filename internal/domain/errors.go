package domain

import "errors"

var (
	// ErrTopicNotFound is returned when no topic exists for an identifier.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrParentNotFound is returned when a subtopic names a parent that does not exist.
	ErrParentNotFound = errors.New("parent topic not found")
	// ErrBlankName rejects topic names that are empty or whitespace only.
	ErrBlankName = errors.New("topic name is blank")
)
