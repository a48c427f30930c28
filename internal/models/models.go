package models

import (
	"fmt"
	"strings"
	"time"
)

// Project is a named grouping for tasks.
type Project struct {
	ID        int64     `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Task is a unit of work, optionally owned by a project.
type Task struct {
	ID          int64     `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	ProjectID   *int64    `json:"project_id,omitempty" yaml:"project_id,omitempty"`
	Status      Status    `json:"status" yaml:"status"`
	CreatedAt   time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" yaml:"updated_at"`
}

// TaskView is a task joined with the name of its project, if it resolves.
type TaskView struct {
	Task        `yaml:",inline"`
	ProjectName string `json:"project_name,omitempty" yaml:"project_name,omitempty"`
}

// Status is the lifecycle state of a task.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
)

// Statuses lists every valid status in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

var statusShortcuts = map[string]Status{
	"t":           StatusTodo,
	"i":           StatusInProgress,
	"d":           StatusDone,
	"todo":        StatusTodo,
	"in-progress": StatusInProgress,
	"done":        StatusDone,
}

// StatusUsage lists every status with its shortcut, e.g. "todo/t".
func StatusUsage() string {
	parts := make([]string, 0, len(Statuses))
	for _, s := range Statuses {
		parts = append(parts, string(s)+"/"+string(s)[:1])
	}
	return strings.Join(parts, ", ")
}

// ParseStatus normalizes a full status name or its single-letter shortcut,
// ignoring case and surrounding whitespace.
func ParseStatus(raw string) (Status, error) {
	if s, ok := statusShortcuts[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s, nil
	}
	return "", fmt.Errorf("%w: invalid status %q, use %s", ErrValidation, raw, StatusUsage())
}

// Valid reports whether s is one of the persisted statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
