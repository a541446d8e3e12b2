package model

import "strings"

// Task is the domain model for a todo entry.
// ID is the creation time in Unix milliseconds and is the only stable identity.
type Task struct {
	ID     int64  `json:"id" yaml:"id"`
	Title  string `json:"title" yaml:"title"`
	IsDone bool   `json:"isDone" yaml:"isDone"`
}

// MaxID is the largest id a stored task may carry. It is the largest integer
// a JSON reader using float64 numbers keeps exact.
const MaxID int64 = 1<<53 - 1

// Clone returns a copy of tasks that never aliases the input. A nil input
// yields an empty, non-nil slice so it encodes as [].
func Clone(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out
}

// Index returns the position of the task with id, or -1.
func Index(tasks []Task, id int64) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// Without returns a new slice with the task id removed. The second result
// reports whether anything was removed.
func Without(tasks []Task, id int64) ([]Task, bool) {
	idx := Index(tasks, id)
	if idx < 0 {
		return Clone(tasks), false
	}
	out := make([]Task, 0, len(tasks)-1)
	out = append(out, tasks[:idx]...)
	return append(out, tasks[idx+1:]...), true
}

// Toggled returns a new slice with IsDone flipped on task id.
func Toggled(tasks []Task, id int64) ([]Task, bool) {
	out := Clone(tasks)
	idx := Index(out, id)
	if idx < 0 {
		return out, false
	}
	out[idx].IsDone = !out[idx].IsDone
	return out, true
}

// Filter keeps tasks whose title contains query, ignoring case.
// A blank query keeps everything; otherwise the query is matched as typed,
// surrounding spaces included.
func Filter(tasks []Task, query string) []Task {
	if strings.TrimSpace(query) == "" {
		return Clone(tasks)
	}
	q := strings.ToLower(query)
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), q) {
			out = append(out, t)
		}
	}
	return out
}

// Reversed returns tasks newest first.
func Reversed(tasks []Task) []Task {
	out := make([]Task, len(tasks))
	for i, t := range tasks {
		out[len(tasks)-1-i] = t
	}
	return out
}

// Stats counts done and pending tasks.
func Stats(tasks []Task) (done, pending int) {
	for _, t := range tasks {
		if t.IsDone {
			done++
		} else {
			pending++
		}
	}
	return
}
