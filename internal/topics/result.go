package topics

import (
	"errors"
	"fmt"

	"github.com/LLIu33/swot/internal/domain"
	"github.com/LLIu33/swot/internal/topictree"
)

// ErrBlankName is returned by Rename for empty or whitespace-only names.
var ErrBlankName = domain.ErrBlankName

var errEmptyResponse = errors.New("empty response")

// Op names a remote topic operation.
type Op string

const (
	OpList   Op = "list"
	OpAdd    Op = "add"
	OpRename Op = "rename"
	OpDelete Op = "delete"
)

// Result is the outcome of one remote call: either the resource the server returned or the
// reason it failed.
type Result struct {
	Op      Op
	Topic   *domain.Topic
	Name    string
	Updated *domain.Topic
	Branch  *topictree.Node
	Err     error
}

// UserMessager is implemented by errors that carry a message meant for the user.
type UserMessager interface {
	UserMessage() string
}

// Failure is a remote operation failure with the message to show for it.
type Failure struct {
	Op      Op
	Message string
	Err     error
}

func newFailure(op Op, err error) *Failure {
	msg := GenericFailure
	var um UserMessager
	if errors.As(err, &um) && um.UserMessage() != "" {
		msg = um.UserMessage()
	}
	return &Failure{Op: op, Message: msg, Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s topic: %v", f.Op, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}
