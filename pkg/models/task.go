// Package models defines the data types persisted and served by the task manager.
package models

// Task is the single managed entity.
// ID is assigned by the store and never changes once created.
type Task struct {
	ID          int64  `json:"id" db:"id"`
	Title       string `json:"title" db:"title"`
	Description string `json:"description" db:"description"`
	Completed   bool   `json:"completed" db:"completed"`
}

// TaskUpdate carries the mutable fields of a Task.
// It has no ID field so a request body can never retarget an update.
type TaskUpdate struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// ApplyUpdate returns a copy of existing with the mutable fields taken from update.
// The ID of existing is preserved and existing itself is not modified.
func ApplyUpdate(existing Task, update TaskUpdate) Task {
	existing.Title = update.Title
	existing.Description = update.Description
	existing.Completed = update.Completed
	return existing
}
