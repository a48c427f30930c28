package repository

import (
	"strings"

	"pm/internal/models"
)

// TaskUpdate names the task fields to change. Nil fields are left untouched.
// An empty Description clears it.
type TaskUpdate struct {
	Title       *string
	Description *string
	ProjectID   *int64
}

// Empty reports whether the update carries no field at all.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.ProjectID == nil
}

// TaskFilter narrows ListTasks. Both filters are optional and combine with AND.
type TaskFilter struct {
	ProjectID *int64
	Status    *models.Status
}

// assignments collects "column = ?" pairs for an UPDATE statement.
type assignments struct {
	cols []string
	args []any
}

func (a *assignments) set(column string, value any) {
	a.cols = append(a.cols, column+" = ?")
	a.args = append(a.args, value)
}

func (a *assignments) empty() bool {
	return len(a.cols) == 0
}

// statement renders UPDATE <table> SET ... WHERE id = ? with its arguments.
func (a *assignments) statement(table string, id int64) (string, []any) {
	stmt := "UPDATE " + table + " SET " + strings.Join(a.cols, ", ") + " WHERE id = ?"
	args := append(append([]any{}, a.args...), id)
	return stmt, args
}

// conditions collects WHERE clauses joined with AND.
type conditions struct {
	clauses []string
	args    []any
}

func (c *conditions) add(clause string, value any) {
	c.clauses = append(c.clauses, clause)
	c.args = append(c.args, value)
}

func (c *conditions) where() string {
	if len(c.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(c.clauses, " AND ")
}
