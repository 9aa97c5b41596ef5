// Package tasklist holds the in-memory task sequence a view renders.
//
// The sequence mirrors the last successful fetch or mutation and is never
// authoritative. Every write is tagged with the Ticket that was current when
// the request started; once the view unmounts, writes carrying an older
// ticket are dropped.
package tasklist

import "tasker/internal/service"

// Ticket identifies one mount of the list.
type Ticket uint64

// List is an ordered task sequence. The zero value is unmounted and empty.
// It is not safe for concurrent use; the owning view serializes access.
type List struct {
	tasks   []service.Task
	gen     Ticket
	mounted bool
}

// New returns an unmounted, empty list.
func New() *List {
	return &List{}
}

// Mount starts a new generation and returns its ticket.
func (l *List) Mount() Ticket {
	l.gen++
	l.mounted = true
	l.tasks = nil
	return l.gen
}

// Unmount discards the tasks and invalidates outstanding tickets.
func (l *List) Unmount() {
	l.gen++
	l.mounted = false
	l.tasks = nil
}

// Mounted reports whether the list is mounted.
func (l *List) Mounted() bool {
	return l.mounted
}

// Current returns the ticket of the current mount.
func (l *List) Current() Ticket {
	return l.gen
}

func (l *List) live(t Ticket) bool {
	return l.mounted && t == l.gen
}

// Load replaces the whole sequence with tasks.
func (l *List) Load(t Ticket, tasks []service.Task) bool {
	if !l.live(t) {
		return false
	}
	l.tasks = append([]service.Task(nil), tasks...)
	return true
}

// Prepend puts a newly created task at the front.
func (l *List) Prepend(t Ticket, task service.Task) bool {
	if !l.live(t) {
		return false
	}
	l.tasks = append([]service.Task{task}, l.tasks...)
	return true
}

// Replace swaps the element with task's ID for task. Other elements are
// left as they are. A task that is not in the list is ignored.
func (l *List) Replace(t Ticket, task service.Task) bool {
	if !l.live(t) {
		return false
	}
	for i := range l.tasks {
		if l.tasks[i].ID == task.ID {
			l.tasks[i] = task
			break
		}
	}
	return true
}

// Tasks returns a copy of the sequence.
func (l *List) Tasks() []service.Task {
	return append([]service.Task(nil), l.tasks...)
}

// Len returns the number of tasks.
func (l *List) Len() int {
	return len(l.tasks)
}

// At returns the task at index i.
func (l *List) At(i int) (service.Task, bool) {
	if i < 0 || i >= len(l.tasks) {
		return service.Task{}, false
	}
	return l.tasks[i], true
}
