package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/LLIu33/swot/internal/domain"
	"github.com/LLIu33/swot/internal/topictree"
	"github.com/LLIu33/swot/internal/topics"
	transport "github.com/LLIu33/swot/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewTopicsCmd groups the topic tree commands that talk to a running server.
func NewTopicsCmd(configPath, apiURL *string) *cobra.Command {
	var assumeYes bool

	cmd := &cobra.Command{
		Use:   "topics",
		Short: "Browse and edit the topic tree",
	}
	cmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "answer yes to confirmations")

	session := func(cmd *cobra.Command) (*topicSession, error) {
		return newTopicSession(cmd, *configPath, *apiURL, assumeYes)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Print the topic tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session(cmd)
			if err != nil {
				return err
			}
			return s.printTree()
		},
	})

	var edit bool
	add := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a root topic",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session(cmd)
			if err != nil {
				return err
			}
			s.editAfterAdd = edit
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			if _, err := s.controller.Add(cmd.Context(), name); err != nil {
				return alerted(cmd, err)
			}
			if err := s.printTree(); err != nil {
				return err
			}
			// the rename control opens once the new branch has been shown
			s.scheduler.Flush()
			if edit {
				return s.printTree()
			}
			return nil
		},
	}
	add.Flags().BoolVarP(&edit, "edit", "e", false, "prompt for a name after adding")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Rename a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session(cmd)
			if err != nil {
				return err
			}
			branch, err := s.branch(args[0])
			if err != nil {
				return err
			}
			if err := s.rename(cmd.Context(), branch, args[1]); err != nil {
				return alerted(cmd, err)
			}
			return s.printTree()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a topic with its subtopics and quizzes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session(cmd)
			if err != nil {
				return err
			}
			branch, err := s.branch(args[0])
			if err != nil {
				return err
			}
			if err := s.controller.Delete(cmd.Context(), branch.Data, branch); err != nil {
				return alerted(cmd, err)
			}
			return s.printTree()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "watch",
		Short: "Print the topic tree on every change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := session(cmd)
			if err != nil {
				return err
			}
			return s.client.WatchTopics(cmd.Context(), func(forest []*domain.Topic) {
				s.controller.Refresh(forest)
				fmt.Fprintln(s.out, "---")
				_ = s.controller.Tree().Render(s.out)
			})
		},
	})
	return cmd
}

// alerted returns err, which the user has already been shown, without cobra printing it again.
func alerted(cmd *cobra.Command, err error) error {
	cmd.SilenceErrors = true
	return err
}

type topicSession struct {
	client       *transport.Client
	controller   *topics.Controller
	scheduler    *topics.QueueScheduler
	dialogs      *terminalDialogs
	out          io.Writer
	editAfterAdd bool
}

// newTopicSession connects to the topic API and loads the current tree, except for watch,
// which receives its tree from the feed.
func newTopicSession(cmd *cobra.Command, configPath, apiFlag string, assumeYes bool) (*topicSession, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	baseURL := apiFlag
	if baseURL == "" {
		baseURL = cfg.API.BaseURL
	}
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	s := &topicSession{
		client:    transport.NewClient(baseURL),
		scheduler: &topics.QueueScheduler{},
		dialogs:   newTerminalDialogs(cmd.InOrStdin(), cmd.OutOrStdout(), assumeYes),
		out:       cmd.OutOrStdout(),
	}
	s.controller = topics.NewController(s.client, s.dialogs, s.scheduler,
		topics.WithLogger(newLogger(cmd.ErrOrStderr(), cfg)),
		topics.WithRenamer(topics.RenamerFunc(func(branch *topictree.Node) {
			if s.editAfterAdd {
				s.promptRename(cmd.Context(), branch)
			}
		})),
	)

	if cmd.Name() == "watch" {
		return s, nil
	}
	if err := s.controller.Load(cmd.Context()); err != nil {
		return nil, fmt.Errorf("%s: %w", topics.Message(err), err)
	}
	return s, nil
}

func (s *topicSession) printTree() error {
	return s.controller.Tree().Render(s.out)
}

func (s *topicSession) branch(id string) (*topictree.Node, error) {
	branch, ok := s.controller.Tree().FindTopic(id)
	if !ok {
		return nil, fmt.Errorf("topic %q: %w", id, domain.ErrTopicNotFound)
	}
	return branch, nil
}

// rename shows rename failures inline; the controller leaves them to the caller.
func (s *topicSession) rename(ctx context.Context, branch *topictree.Node, name string) error {
	if err := s.controller.Rename(ctx, branch.Data, name); err != nil {
		s.dialogs.Alert(ctx, topics.Message(err))
		return err
	}
	return nil
}

func (s *topicSession) promptRename(ctx context.Context, branch *topictree.Node) {
	name, ok := s.dialogs.Prompt(ctx, fmt.Sprintf("Name for %q (enter to keep): ", branch.Label))
	if !ok || name == "" {
		return
	}
	_ = s.rename(ctx, branch, name)
}

// terminalDialogs asks and tells through the command's standard streams.
type terminalDialogs struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func newTerminalDialogs(in io.Reader, out io.Writer, assumeYes bool) *terminalDialogs {
	return &terminalDialogs{in: bufio.NewReader(in), out: out, assumeYes: assumeYes}
}

func (d *terminalDialogs) Confirm(ctx context.Context, message string) bool {
	if d.assumeYes {
		fmt.Fprintf(d.out, "%s [y/N]: y\n", message)
		return true
	}
	answer, ok := d.Prompt(ctx, message+" [y/N]: ")
	if !ok {
		return false
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func (d *terminalDialogs) Alert(_ context.Context, message string) {
	fmt.Fprintln(d.out, message)
}

// Prompt reads one trimmed line. ok is false when input ends before a line is read.
func (d *terminalDialogs) Prompt(_ context.Context, message string) (string, bool) {
	fmt.Fprint(d.out, message)
	line, err := d.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(d.out)
		return "", false
	}
	return strings.TrimSpace(line), true
}
