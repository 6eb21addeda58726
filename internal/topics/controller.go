// Package topics mediates between the rendered topic tree and the remote topic resource.
package topics

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/LLIu33/swot/internal/domain"
	"github.com/LLIu33/swot/internal/topictree"
)

const (
	// DefaultTopicName names topics added without a name.
	DefaultTopicName = "New Topic"
	// GenericFailure is shown when the server gives no reason for a failure.
	GenericFailure = "Oops, something went wrong! Please try again later."
	// BlankNameMessage is shown when a rename is rejected locally.
	BlankNameMessage = "Please enter a name."

	deleteWarning = "Are you sure you want to delete this topic? All quizzes and subtopics will also be deleted."
	deletedNotice = "The topic has been successfully deleted."
)

// API is the remote topic resource.
type API interface {
	ListTopics(ctx context.Context) ([]*domain.Topic, error)
	CreateTopic(ctx context.Context, name string) (*domain.Topic, error)
	RenameTopic(ctx context.Context, id, name string) (*domain.Topic, error)
	DeleteTopic(ctx context.Context, id string) error
}

// Dialogs shows blocking messages to the user.
type Dialogs interface {
	// Confirm asks a yes/no question. Dismissing the dialog counts as no.
	Confirm(ctx context.Context, message string) bool
	Alert(ctx context.Context, message string)
}

// Scheduler runs a task once, after the current render completes.
type Scheduler interface {
	Defer(task func())
}

// Renamer opens the in-place rename control on a branch.
type Renamer interface {
	BeginRename(branch *topictree.Node)
}

// Controller keeps the tree consistent with the remote topic resource.
type Controller struct {
	api       API
	tree      *topictree.Tree
	dialogs   Dialogs
	scheduler Scheduler
	renamer   Renamer
	logger    *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger; slog.Default is used otherwise.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithRenamer sets the rename control opened on freshly added branches.
func WithRenamer(r Renamer) Option {
	return func(c *Controller) { c.renamer = r }
}

func NewController(api API, dialogs Dialogs, scheduler Scheduler, opts ...Option) *Controller {
	c := &Controller{
		api:       api,
		tree:      topictree.NewTree(nil),
		dialogs:   dialogs,
		scheduler: scheduler,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tree returns the tree the controller maintains.
func (c *Controller) Tree() *topictree.Tree {
	return c.tree
}

// Refresh rebuilds the tree from a topic forest.
func (c *Controller) Refresh(forest []*domain.Topic) {
	c.tree.Reset(topictree.Build(forest))
}

// Load fetches the topic forest and rebuilds the tree from it.
func (c *Controller) Load(ctx context.Context) error {
	forest, err := c.api.ListTopics(ctx)
	if err != nil {
		return newFailure(OpList, err)
	}
	c.Refresh(forest)
	return nil
}

// Rename renames topic. Blank names are rejected with ErrBlankName before any request is
// made. Remote failures come back as *Failure.
func (c *Controller) Rename(ctx context.Context, topic *domain.Topic, name string) error {
	if IsBlank(name) {
		return ErrBlankName
	}
	updated, err := c.api.RenameTopic(ctx, topic.ID, name)
	return c.reconcile(ctx, &Result{Op: OpRename, Topic: topic, Name: name, Updated: updated, Err: err})
}

// Add creates a root topic, named DefaultTopicName when name is empty, and returns its
// branch. The rename control is opened on the branch once it has been rendered. Failures
// are alerted and returned.
func (c *Controller) Add(ctx context.Context, name string) (*topictree.Node, error) {
	if name == "" {
		name = DefaultTopicName
	}
	created, err := c.api.CreateTopic(ctx, name)
	if err == nil && created == nil {
		err = errEmptyResponse
	}
	r := &Result{Op: OpAdd, Name: name, Updated: created, Err: err}
	if err := c.reconcile(ctx, r); err != nil {
		return nil, err
	}
	return r.Branch, nil
}

// Delete removes topic after the user confirms. Declining is not an error and sends
// nothing. On success branch, when given, is removed from the tree.
func (c *Controller) Delete(ctx context.Context, topic *domain.Topic, branch *topictree.Node) error {
	if !c.dialogs.Confirm(ctx, deleteWarning) {
		return nil
	}
	err := c.api.DeleteTopic(ctx, topic.ID)
	return c.reconcile(ctx, &Result{Op: OpDelete, Topic: topic, Branch: branch, Err: err})
}

// reconcile applies the outcome of a remote call to the tree and the dialogs. For adds it
// records the new branch on r.
func (c *Controller) reconcile(ctx context.Context, r *Result) error {
	if r.Err != nil {
		failure := newFailure(r.Op, r.Err)
		c.logger.Warn("topic operation failed", "op", r.Op, "error", r.Err)
		if r.Op != OpRename {
			c.dialogs.Alert(ctx, failure.Message)
		}
		return failure
	}

	switch r.Op {
	case OpRename:
		r.Topic.Name = r.Name
		if r.Updated != nil && r.Updated.Name != "" {
			r.Topic.Name = r.Updated.Name
		}
		c.tree.Relabel(r.Topic)
	case OpAdd:
		branch := c.tree.AddRootBranch(&topictree.Node{Label: r.Updated.Name, Data: r.Updated})
		r.Branch = branch
		if c.renamer != nil {
			c.scheduler.Defer(func() { c.renamer.BeginRename(branch) })
		}
	case OpDelete:
		if r.Branch != nil {
			c.tree.RemoveBranch(r.Branch)
		}
		c.dialogs.Alert(ctx, deletedNotice)
	}
	c.logger.Debug("topic operation applied", "op", r.Op)
	return nil
}

// IsBlank reports whether s is empty or whitespace only.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsBlankPtr is IsBlank for optional strings; nil is blank.
func IsBlankPtr(s *string) bool {
	return s == nil || IsBlank(*s)
}

// Message returns the text to show the user for err.
func Message(err error) string {
	if errors.Is(err, ErrBlankName) {
		return BlankNameMessage
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Message
	}
	return GenericFailure
}
