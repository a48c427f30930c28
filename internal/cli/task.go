package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"pm/internal/models"
	"pm/internal/repository"
)

var statusHelp = models.StatusUsage()

type createTaskOptions struct {
	project     string
	description string
}

type listTasksOptions struct {
	project string
	status  string
	all     bool
}

// updateTaskOptions records which fields were supplied, so an empty
// --description can clear the field while an absent one leaves it alone.
type updateTaskOptions struct {
	status         string
	title          string
	description    string
	project        string
	statusSet      bool
	titleSet       bool
	descriptionSet bool
	projectSet     bool
}

func (a *App) taskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage tasks",
	}
	cmd.AddCommand(a.createTaskCommand("create", "Create a new task"))
	cmd.AddCommand(a.listTasksCommand("list", "List tasks (done tasks are hidden unless --all or --status)"))
	cmd.AddCommand(a.showTaskCommand())
	cmd.AddCommand(a.updateTaskCommand())
	cmd.AddCommand(a.deleteTaskCommand())
	return cmd
}

// createTaskCommand backs both "task create" and the "add" shortcut.
func (a *App) createTaskCommand(use, short string) *cobra.Command {
	var opts createTaskOptions
	cmd := &cobra.Command{
		Use:   use + " TITLE",
		Short: short,
		Args:  exactArgs("TITLE"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.createTask(cmd.Context(), args[0], opts)
		},
	}
	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Project name")
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "Task description")
	return cmd
}

// listTasksCommand backs both "task list" and the "ls" shortcut.
func (a *App) listTasksCommand(use, short string) *cobra.Command {
	var opts listTasksOptions
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  exactArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listTasks(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Filter by project name")
	cmd.Flags().StringVarP(&opts.status, "status", "s", "", "Filter by status ("+statusHelp+")")
	cmd.Flags().BoolVarP(&opts.all, "all", "a", false, "Show all tasks including done")
	return cmd
}

func (a *App) showTaskCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "show TASK_ID",
		Short: "Show detailed information about a task",
		Args:  exactArgs("TASK_ID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return a.showTask(cmd.Context(), id, all)
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include created and updated timestamps")
	return cmd
}

func (a *App) updateTaskCommand() *cobra.Command {
	var opts updateTaskOptions
	cmd := &cobra.Command{
		Use:   "update TASK_ID",
		Short: "Update a task",
		Args:  exactArgs("TASK_ID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			opts.statusSet = flags.Changed("status")
			opts.titleSet = flags.Changed("title")
			opts.descriptionSet = flags.Changed("description")
			opts.projectSet = flags.Changed("project")
			return a.updateTask(cmd.Context(), id, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.status, "status", "s", "", "Update status ("+statusHelp+")")
	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "Update title")
	cmd.Flags().StringVarP(&opts.description, "description", "d", "", "Update description (empty clears it)")
	cmd.Flags().StringVarP(&opts.project, "project", "p", "", "Move to project")
	return cmd
}

func (a *App) deleteTaskCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete TASK_ID",
		Short: "Delete a task",
		Args:  exactArgs("TASK_ID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return a.deleteTask(cmd.Context(), id, yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func (a *App) doneCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "done TASK_ID",
		Short: "Quick command to mark a task as done",
		Args:  exactArgs("TASK_ID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			return a.updateTask(cmd.Context(), id, updateTaskOptions{
				status:    string(models.StatusDone),
				statusSet: true,
			})
		},
	}
}

func (a *App) purgeCommand() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete all tasks and projects from the database",
		Args:  exactArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.purge(cmd.Context(), yes)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func (a *App) createTask(ctx context.Context, title string, opts createTaskOptions) error {
	if strings.TrimSpace(title) == "" {
		return userErrorf(models.ErrValidation, "Task title must not be empty.")
	}

	repo, err := a.repository()
	if err != nil {
		return err
	}

	var projectID *int64
	if opts.project != "" {
		id, err := a.resolveProject(ctx, repo, opts.project)
		if err != nil {
			return err
		}
		projectID = &id
	}

	id, err := repo.CreateTask(ctx, title, projectID, opts.description)
	if err != nil {
		return err
	}
	a.out.Success("Created task '%s' (ID: %d)", strings.TrimSpace(title), id)
	return nil
}

func (a *App) listTasks(ctx context.Context, opts listTasksOptions) error {
	var filter repository.TaskFilter
	if opts.status != "" {
		status, err := parseStatus(opts.status)
		if err != nil {
			return err
		}
		filter.Status = &status
	}

	repo, err := a.repository()
	if err != nil {
		return err
	}

	if opts.project != "" {
		id, err := a.resolveProject(ctx, repo, opts.project)
		if err != nil {
			return err
		}
		filter.ProjectID = &id
	}

	tasks, err := repo.ListTasks(ctx, filter)
	if err != nil {
		return err
	}
	if filter.Status == nil && !opts.all {
		tasks = withoutDone(tasks)
	}
	sortNewestIDFirst(tasks)
	return a.out.Tasks(tasks)
}

func (a *App) showTask(ctx context.Context, id int64, all bool) error {
	repo, err := a.repository()
	if err != nil {
		return err
	}

	task, err := a.getTask(ctx, repo, id)
	if err != nil {
		return err
	}
	return a.out.Task(task, all)
}

// updateTask validates every input and resolves the project before the
// first write, so a rejected update leaves the task unchanged.
func (a *App) updateTask(ctx context.Context, id int64, opts updateTaskOptions) error {
	var status *models.Status
	if opts.statusSet {
		s, err := parseStatus(opts.status)
		if err != nil {
			return err
		}
		status = &s
	}
	if opts.titleSet && strings.TrimSpace(opts.title) == "" {
		return userErrorf(models.ErrValidation, "Task title must not be empty.")
	}
	if opts.projectSet && strings.TrimSpace(opts.project) == "" {
		return userErrorf(models.ErrValidation, "Project name must not be empty.")
	}

	var update repository.TaskUpdate
	if opts.titleSet {
		update.Title = &opts.title
	}
	if opts.descriptionSet {
		update.Description = &opts.description
	}
	if status == nil && update.Empty() && !opts.projectSet {
		return userErrorf(models.ErrValidation, "Nothing to update. Use --status, --title, --description or --project.")
	}

	repo, err := a.repository()
	if err != nil {
		return err
	}
	if _, err := a.getTask(ctx, repo, id); err != nil {
		return err
	}
	if opts.projectSet {
		pid, err := a.resolveProject(ctx, repo, opts.project)
		if err != nil {
			return err
		}
		update.ProjectID = &pid
	}

	if status != nil {
		changed, err := repo.UpdateTaskStatus(ctx, id, *status)
		if err != nil {
			return err
		}
		if !changed {
			return userErrorf(models.ErrNotFound, "Failed to update task %d.", id)
		}
		a.out.Success("Updated task %d status to '%s'", id, *status)
	}

	if !update.Empty() {
		changed, err := repo.UpdateTask(ctx, id, update)
		if err != nil {
			return err
		}
		if !changed {
			return userErrorf(models.ErrNotFound, "Failed to update task %d.", id)
		}
		a.out.Success("Updated task %d", id)
	}
	return nil
}

func (a *App) deleteTask(ctx context.Context, id int64, yes bool) error {
	repo, err := a.repository()
	if err != nil {
		return err
	}

	task, err := a.getTask(ctx, repo, id)
	if err != nil {
		return err
	}
	if err := a.confirmAction(yes, fmt.Sprintf("Are you sure you want to delete task %d '%s'?", id, task.Title)); err != nil {
		return err
	}

	deleted, err := repo.DeleteTask(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return userErrorf(models.ErrNotFound, "Task %d not found.", id)
	}
	a.out.Success("Deleted task %d", id)
	return nil
}

func (a *App) purge(ctx context.Context, yes bool) error {
	if err := a.confirmAction(yes, "Are you sure you want to delete ALL tasks and projects? This cannot be undone!"); err != nil {
		return err
	}

	repo, err := a.repository()
	if err != nil {
		return err
	}
	if err := repo.PurgeAll(ctx); err != nil {
		return err
	}
	a.out.Success("Database purged successfully. All tasks and projects have been deleted.")
	return nil
}

func (a *App) confirmAction(yes bool, prompt string) error {
	if yes {
		return nil
	}
	ok, err := a.confirm.Confirm(prompt)
	if err != nil {
		return fmt.Errorf("%w: reading confirmation: %w", models.ErrAborted, err)
	}
	if !ok {
		return models.ErrAborted
	}
	return nil
}

func (a *App) getTask(ctx context.Context, repo *repository.Repository, id int64) (models.TaskView, error) {
	task, err := repo.GetTask(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return models.TaskView{}, userErrorf(models.ErrNotFound, "Task %d not found.", id)
	}
	return task, err
}

func parseStatus(raw string) (models.Status, error) {
	status, err := models.ParseStatus(raw)
	if err != nil {
		return "", &userError{msg: "Invalid status. Use: " + statusHelp, err: err}
	}
	return status, nil
}

// withoutDone drops exactly the tasks whose status is done.
func withoutDone(tasks []models.TaskView) []models.TaskView {
	kept := make([]models.TaskView, 0, len(tasks))
	for _, t := range tasks {
		if t.Status != models.StatusDone {
			kept = append(kept, t)
		}
	}
	return kept
}

// sortNewestIDFirst orders tasks by id descending regardless of timestamps.
func sortNewestIDFirst(tasks []models.TaskView) {
	slices.SortStableFunc(tasks, func(x, y models.TaskView) int {
		switch {
		case x.ID > y.ID:
			return -1
		case x.ID < y.ID:
			return 1
		}
		return 0
	})
}
