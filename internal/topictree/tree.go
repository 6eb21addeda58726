// Package topictree turns topic forests into branch trees and tracks the branches on screen.
package topictree

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/LLIu33/swot/internal/domain"
)

// Node is a branch of the topic tree. Data points at the source topic, so later changes to
// the topic are visible through the node. Children is nil when the topic has no subtopics.
type Node struct {
	UID      string        `json:"uid,omitempty"`
	Label    string        `json:"label"`
	Data     *domain.Topic `json:"data"`
	Children []*Node       `json:"children,omitempty"`
}

// Build maps topics to nodes, keeping order and recursing into subtopics.
// Cyclic topic graphs are not supported.
func Build(topics []*domain.Topic) []*Node {
	nodes := make([]*Node, 0, len(topics))
	for _, topic := range topics {
		nodes = append(nodes, buildNode(topic))
	}
	return nodes
}

func buildNode(topic *domain.Topic) *Node {
	node := &Node{Label: topic.Name, Data: topic}
	if len(topic.Subtopics) > 0 {
		node.Children = Build(topic.Subtopics)
	}
	return node
}

// Tree holds the branches currently rendered. Every branch gets a UID when it enters the tree.
type Tree struct {
	mu      sync.RWMutex
	roots   []*Node
	nextUID int
}

func NewTree(nodes []*Node) *Tree {
	t := &Tree{}
	t.Reset(nodes)
	return t
}

// Reset replaces every branch in the tree.
func (t *Tree) Reset(nodes []*Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.roots = nodes
	for _, n := range nodes {
		t.assignLocked(n)
	}
}

// AddRootBranch attaches node at root level and returns it with UIDs assigned.
func (t *Tree) AddRootBranch(node *Node) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.assignLocked(node)
	t.roots = append(t.roots, node)
	return node
}

// RemoveBranch detaches branch, and with it its subtree, wherever it sits. It reports
// whether the branch was found.
func (t *Tree) RemoveBranch(branch *Node) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ok bool
	t.roots, ok = removeFrom(t.roots, branch)
	return ok
}

func removeFrom(nodes []*Node, branch *Node) ([]*Node, bool) {
	for i, n := range nodes {
		if n == branch {
			return append(nodes[:i:i], nodes[i+1:]...), true
		}
		if children, ok := removeFrom(n.Children, branch); ok {
			if len(children) == 0 {
				children = nil
			}
			n.Children = children
			return nodes, true
		}
	}
	return nodes, false
}

// Relabel refreshes the label of every branch showing topic.
func (t *Tree) Relabel(topic *domain.Topic) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	walk(t.roots, 0, func(n *Node, _ int) {
		if n.Data == topic {
			n.Label = topic.Name
			count++
		}
	})
	return count
}

// Find returns the branch with the given UID.
func (t *Tree) Find(uid string) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var found *Node
	walk(t.roots, 0, func(n *Node, _ int) {
		if found == nil && n.UID == uid {
			found = n
		}
	})
	return found, found != nil
}

// FindTopic returns the first branch showing the topic with the given ID.
func (t *Tree) FindTopic(id string) (*Node, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var found *Node
	walk(t.roots, 0, func(n *Node, _ int) {
		if found == nil && n.Data != nil && n.Data.ID == id {
			found = n
		}
	})
	return found, found != nil
}

// Roots returns the root branches.
func (t *Tree) Roots() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*Node, len(t.roots))
	copy(out, t.roots)
	return out
}

// Walk visits branches depth first with their depth.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	walk(t.roots, 0, fn)
}

// Render writes an indented outline of the tree.
func (t *Tree) Render(w io.Writer) error {
	var err error
	t.Walk(func(n *Node, depth int) {
		if err != nil {
			return
		}
		id := ""
		if n.Data != nil {
			id = n.Data.ID
		}
		_, err = fmt.Fprintf(w, "%s- %s [%s]\n", strings.Repeat("  ", depth), n.Label, id)
	})
	return err
}

func walk(nodes []*Node, depth int, fn func(*Node, int)) {
	for _, n := range nodes {
		fn(n, depth)
		walk(n.Children, depth+1, fn)
	}
}

func (t *Tree) assignLocked(node *Node) {
	walk([]*Node{node}, 0, func(n *Node, _ int) {
		if n.UID == "" {
			t.nextUID++
			n.UID = "branch-" + strconv.Itoa(t.nextUID)
		}
	})
}
