package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pm/internal/models"
	"pm/internal/presenter"
	"pm/internal/repository"
	"pm/internal/storage/sqlite"
)

type harness struct {
	t      *testing.T
	dbPath string
	tick   time.Time
	// step is added to the clock on every reading; negative steps run it backwards.
	step time.Duration
}

type result struct {
	code   int
	stdout string
	stderr string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, key := range []string{"PM_DB_PATH", "PM_CONFIG", "PM_LOG_LEVEL", "PM_OUTPUT", "PM_TIME_FORMAT", "PM_COLOR"} {
		t.Setenv(key, "")
	}
	t.Setenv("HOME", t.TempDir())
	return &harness{
		t:      t,
		dbPath: filepath.Join(t.TempDir(), "tasks.db"),
		tick:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		step:   time.Second,
	}
}

// run executes one invocation against the harness database, feeding stdin
// to confirmation prompts.
func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	var out, errOut bytes.Buffer
	app := newApp(strings.NewReader(stdin), &out, &errOut)
	app.width = 120
	app.clock = func() time.Time {
		h.tick = h.tick.Add(h.step)
		return h.tick
	}
	code := app.run(append([]string{"--db", h.dbPath, "--no-color"}, args...))
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func (h *harness) ok(args ...string) string {
	h.t.Helper()
	r := h.run("", args...)
	require.Equal(h.t, ExitOK, r.code, "stderr: %s", r.stderr)
	return r.stdout
}

func (h *harness) tasks(args ...string) []models.TaskView {
	h.t.Helper()
	var tasks []models.TaskView
	require.NoError(h.t, json.Unmarshal([]byte(h.ok(append([]string{"-o", "json"}, args...)...)), &tasks))
	return tasks
}

func ids(tasks []models.TaskView) []int64 {
	out := make([]int64, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestEndToEndScenario(t *testing.T) {
	h := newHarness(t)

	out := h.ok("project", "create", "Acme")
	assert.Equal(t, presenter.SuccessMarker+" Created project 'Acme' (ID: 1)\n", out)

	out = h.ok("task", "create", "Write docs", "-p", "Acme")
	assert.Equal(t, presenter.SuccessMarker+" Created task 'Write docs' (ID: 1)\n", out)
	out = h.ok("add", "Ship v1")
	assert.Equal(t, presenter.SuccessMarker+" Created task 'Ship v1' (ID: 2)\n", out)

	out = h.ok("-o", "plain", "ls")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "2\tShip v1\t-\ttodo\t"))
	assert.True(t, strings.HasPrefix(lines[2], "1\tWrite docs\tAcme\ttodo\t"))

	out = h.ok("done", "1")
	assert.Equal(t, presenter.SuccessMarker+" Updated task 1 status to 'done'\n", out)

	assert.Equal(t, []int64{2}, ids(h.tasks("ls")))
	assert.Equal(t, []int64{2, 1}, ids(h.tasks("ls", "--all")))

	done := h.tasks("task", "list", "-s", "d")
	require.Len(t, done, 1)
	assert.Equal(t, int64(1), done[0].ID)
	assert.Equal(t, "Acme", done[0].ProjectName)
	assert.Equal(t, models.StatusDone, done[0].Status)
}

func TestAliasesMatchCanonicalCommands(t *testing.T) {
	h := newHarness(t)
	h.ok("project", "create", "Acme")
	h.ok("add", "one", "-p", "Acme", "-d", "first")
	h.ok("task", "create", "two")
	h.ok("task", "update", "2", "-s", "i")

	assert.Equal(t, h.tasks("task", "list"), h.tasks("ls"))
	assert.Equal(t, h.tasks("task", "list", "-p", "Acme"), h.tasks("ls", "-p", "Acme"))
	assert.Equal(t, h.tasks("task", "list", "-s", "in-progress", "-a"), h.tasks("ls", "-s", "i", "-a"))

	assert.Equal(t, h.ok("-o", "json", "project", "list"), h.ok("-o", "json", "project", "ls"))
}

func TestListOrdersByIDWhenClockRunsBackwards(t *testing.T) {
	h := newHarness(t)
	h.step = -time.Minute
	h.ok("add", "a")
	h.ok("add", "b")
	h.ok("add", "c")

	store, err := sqlite.Open(h.dbPath, nil)
	require.NoError(t, err)
	stored, err := repository.New(store, nil).ListTasks(context.Background(), repository.TaskFilter{})
	require.NoError(t, store.Close())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids(stored))

	assert.Equal(t, []int64{3, 2, 1}, ids(h.tasks("ls")))
	assert.Equal(t, []int64{3, 2, 1}, ids(h.tasks("ls", "-a")))
	assert.Equal(t, []int64{3, 2, 1}, ids(h.tasks("task", "list", "-s", "todo")))
}

func TestListOrdersByIDWhenTimestampsTie(t *testing.T) {
	h := newHarness(t)
	h.step = 0
	for _, title := range []string{"a", "b", "c", "d"} {
		h.ok("add", title)
	}
	h.ok("done", "2")

	assert.Equal(t, []int64{4, 3, 1}, ids(h.tasks("ls")))
	assert.Equal(t, []int64{4, 3, 2, 1}, ids(h.tasks("ls", "-a")))
}

func TestProjectNamesMatchExactly(t *testing.T) {
	h := newHarness(t)

	out := h.ok("project", "create", " Acme ")
	assert.Equal(t, presenter.SuccessMarker+" Created project ' Acme ' (ID: 1)\n", out)
	h.ok("add", "x", "-p", " Acme ")

	listed := h.tasks("ls", "-p", " Acme ")
	require.Len(t, listed, 1)
	assert.Equal(t, " Acme ", listed[0].ProjectName)

	r := h.run("", "add", "y", "-p", "Acme")
	assert.Equal(t, ExitNotFound, r.code)
	assert.Equal(t, presenter.ErrorMarker+" Project 'Acme' not found.\n", r.stderr)

	r = h.run("", "project", "create", " Acme ")
	assert.Equal(t, ExitConflict, r.code)
	assert.Equal(t, presenter.ErrorMarker+" Project ' Acme ' already exists.\n", r.stderr)
}

func TestTaskShow(t *testing.T) {
	h := newHarness(t)
	h.ok("project", "create", "Acme")
	h.ok("add", "Write docs", "-p", "Acme", "-d", "Cover install")

	out := h.ok("task", "show", "1")
	assert.Contains(t, out, "Task #1")
	assert.Contains(t, out, "Title: Write docs")
	assert.Contains(t, out, "Project: Acme")
	assert.Contains(t, out, "Description: Cover install")
	assert.NotContains(t, out, "Created:")

	out = h.ok("task", "show", "1", "-a")
	assert.Contains(t, out, "Created: ")
	assert.Contains(t, out, "Updated: ")

	r := h.run("", "task", "show", "9")
	assert.Equal(t, ExitNotFound, r.code)
	assert.Equal(t, presenter.ErrorMarker+" Task 9 not found.\n", r.stderr)
	assert.Empty(t, r.stdout)
}

func TestTaskUpdate(t *testing.T) {
	h := newHarness(t)
	h.ok("project", "create", "Acme")
	h.ok("project", "create", "Beta")
	h.ok("add", "Draft", "-p", "Acme", "-d", "notes")
	before := h.tasks("task", "list")[0]

	out := h.ok("task", "update", "1", "-t", "Final", "-p", "Beta", "-s", "i")
	assert.Equal(t,
		presenter.SuccessMarker+" Updated task 1 status to 'in-progress'\n"+
			presenter.SuccessMarker+" Updated task 1\n", out)

	after := h.tasks("task", "list")[0]
	assert.Equal(t, "Final", after.Title)
	assert.Equal(t, "Beta", after.ProjectName)
	assert.Equal(t, "notes", after.Description)
	assert.Equal(t, models.StatusInProgress, after.Status)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))

	h.ok("task", "update", "1", "--description", "")
	assert.Empty(t, h.tasks("task", "list")[0].Description)
}

func TestTaskUpdateRejectsBeforeWriting(t *testing.T) {
	h := newHarness(t)
	h.ok("add", "Draft")
	before := h.tasks("ls")

	cases := []struct {
		name string
		args []string
		code int
		msg  string
	}{
		{"invalid status", []string{"task", "update", "1", "-s", "later", "-t", "New"}, ExitUsage, "Invalid status"},
		{"missing project", []string{"task", "update", "1", "-p", "Nope", "-s", "d"}, ExitNotFound, "Project 'Nope' not found."},
		{"blank title", []string{"task", "update", "1", "-t", "  "}, ExitUsage, "Task title must not be empty."},
		{"nothing to update", []string{"task", "update", "1"}, ExitUsage, "Nothing to update."},
		{"missing task", []string{"task", "update", "7", "-s", "d"}, ExitNotFound, "Task 7 not found."},
		{"bad id", []string{"task", "update", "abc", "-s", "d"}, ExitUsage, "Invalid task id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := h.run("", tc.args...)
			assert.Equal(t, tc.code, r.code)
			assert.Contains(t, r.stderr, tc.msg)
			assert.True(t, strings.HasPrefix(r.stderr, presenter.ErrorMarker))
			assert.Equal(t, before, h.tasks("ls"))
		})
	}
}

func TestInvalidStatusFilter(t *testing.T) {
	h := newHarness(t)
	r := h.run("", "ls", "-s", "later")
	assert.Equal(t, ExitUsage, r.code)
	assert.Contains(t, r.stderr, "Invalid status. Use: todo/t, in-progress/i, done/d")
	assert.NoFileExists(t, h.dbPath)
}

func TestProjectNotFoundLeavesDatabaseUnchanged(t *testing.T) {
	h := newHarness(t)
	h.ok("add", "existing")

	r := h.run("", "add", "orphan", "-p", "Nope")
	assert.Equal(t, ExitNotFound, r.code)
	assert.Equal(t, presenter.ErrorMarker+" Project 'Nope' not found.\n", r.stderr)
	assert.Equal(t, []int64{1}, ids(h.tasks("ls", "-a")))

	r = h.run("", "ls", "-p", "Nope")
	assert.Equal(t, ExitNotFound, r.code)
}

func TestDuplicateProject(t *testing.T) {
	h := newHarness(t)
	h.ok("project", "create", "Acme")

	r := h.run("", "project", "create", "Acme")
	assert.Equal(t, ExitConflict, r.code)
	assert.Equal(t, presenter.ErrorMarker+" Project 'Acme' already exists.\n", r.stderr)

	var projects []models.Project
	require.NoError(t, json.Unmarshal([]byte(h.ok("-o", "json", "project", "list")), &projects))
	assert.Len(t, projects, 1)
}

func TestProjectListNewestFirst(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.ok("project", "list"), "No projects found.")

	h.ok("project", "create", "First")
	h.ok("project", "create", "Second")

	var projects []models.Project
	require.NoError(t, json.Unmarshal([]byte(h.ok("-o", "json", "project", "list")), &projects))
	require.Len(t, projects, 2)
	assert.Equal(t, "Second", projects[0].Name)
	assert.Equal(t, "First", projects[1].Name)
}

func TestDeleteConfirmation(t *testing.T) {
	h := newHarness(t)
	h.ok("add", "keep me")

	r := h.run("n\n", "task", "delete", "1")
	assert.Equal(t, ExitAborted, r.code)
	assert.Contains(t, r.stderr, "Are you sure you want to delete task 1 'keep me'? [y/N]: ")
	assert.Contains(t, r.stdout, "Aborted.")
	assert.Len(t, h.tasks("ls"), 1)

	r = h.run("", "task", "delete", "1")
	assert.Equal(t, ExitAborted, r.code)
	assert.Len(t, h.tasks("ls"), 1)

	r = h.run("yes\n", "task", "delete", "1")
	assert.Equal(t, ExitOK, r.code)
	assert.Equal(t, presenter.SuccessMarker+" Deleted task 1\n", r.stdout)
	assert.Empty(t, h.tasks("ls", "-a"))

	r = h.run("", "task", "delete", "1", "-y")
	assert.Equal(t, ExitNotFound, r.code)
	assert.Equal(t, presenter.ErrorMarker+" Task 1 not found.\n", r.stderr)
}

func TestDeleteWithYesSkipsPrompt(t *testing.T) {
	h := newHarness(t)
	h.ok("add", "gone")

	r := h.run("", "task", "delete", "1", "--yes")
	assert.Equal(t, ExitOK, r.code)
	assert.NotContains(t, r.stderr, "[y/N]")
	assert.Empty(t, h.tasks("ls", "-a"))
}

func TestPurge(t *testing.T) {
	h := newHarness(t)
	h.ok("project", "create", "Acme")
	h.ok("add", "one", "-p", "Acme")
	h.ok("add", "two")

	r := h.run("no\n", "purge")
	assert.Equal(t, ExitAborted, r.code)
	assert.Len(t, h.tasks("ls", "-a"), 2)

	r = h.run("y\n", "purge")
	assert.Equal(t, ExitOK, r.code)
	assert.Contains(t, r.stderr, "delete ALL tasks and projects")
	assert.Equal(t, presenter.SuccessMarker+" Database purged successfully. All tasks and projects have been deleted.\n", r.stdout)
	assert.Empty(t, h.tasks("ls", "-a"))
	assert.Contains(t, h.ok("project", "list"), "No projects found.")

	h.ok("project", "create", "Acme")
	h.ok("purge", "-y")
	assert.Contains(t, h.ok("project", "list"), "No projects found.")
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)

	r := h.run("", "add")
	assert.Equal(t, ExitUsage, r.code)
	assert.Contains(t, r.stderr, "Missing argument TITLE")

	r = h.run("", "ls", "--bogus")
	assert.Equal(t, ExitUsage, r.code)
	assert.True(t, strings.HasPrefix(r.stderr, presenter.ErrorMarker))

	r = h.run("", "frobnicate")
	assert.Equal(t, ExitUsage, r.code)
	assert.Contains(t, r.stderr, "pm --help")

	r = h.run("", "-o", "xml", "ls")
	assert.Equal(t, ExitUsage, r.code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitAborted, ExitCode(models.ErrAborted))
	assert.Equal(t, ExitNotFound, ExitCode(userErrorf(models.ErrNotFound, "x")))
	assert.Equal(t, ExitConflict, ExitCode(models.ErrConstraint))
	assert.Equal(t, ExitInternal, ExitCode(models.ErrStorage))
	assert.Equal(t, ExitUsage, ExitCode(models.ErrValidation))
}

func TestPromptConfirmer(t *testing.T) {
	var prompt bytes.Buffer
	c := NewPromptConfirmer(strings.NewReader("Y\nnope\n"), &prompt)

	ok, err := c.Confirm("Proceed?")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Confirm("Again?")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.Confirm("EOF?")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, strings.HasPrefix(prompt.String(), "Proceed? [y/N]: Again? [y/N]: EOF? [y/N]: "))
}
