package topics

import (
	"sync"

	"github.com/LLIu33/swot/internal/topictree"
)

// QueueScheduler holds deferred tasks until Flush runs them. Each task runs once.
type QueueScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

func (q *QueueScheduler) Defer(task func()) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

// Flush runs the queued tasks in order and returns how many ran. Tasks deferred while
// flushing wait for the next Flush.
func (q *QueueScheduler) Flush() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, task := range tasks {
		task()
	}
	return len(tasks)
}

// Pending reports the number of queued tasks.
func (q *QueueScheduler) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// RenamerFunc adapts a function to Renamer.
type RenamerFunc func(branch *topictree.Node)

func (f RenamerFunc) BeginRename(branch *topictree.Node) { f(branch) }
