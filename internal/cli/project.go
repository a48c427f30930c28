package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"pm/internal/models"
	"pm/internal/repository"
)

func (a *App) projectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create NAME",
		Short: "Create a new project",
		Args:  exactArgs("NAME"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.createProject(cmd.Context(), args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all projects, newest first",
		Args:    exactArgs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.listProjects(cmd.Context())
		},
	})

	return cmd
}

func (a *App) createProject(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return userErrorf(models.ErrValidation, "Project name must not be empty.")
	}

	repo, err := a.repository()
	if err != nil {
		return err
	}

	id, err := repo.CreateProject(ctx, name)
	if errors.Is(err, models.ErrConstraint) {
		return userErrorf(models.ErrConstraint, "Project '%s' already exists.", name)
	}
	if err != nil {
		return err
	}

	a.out.Success("Created project '%s' (ID: %d)", name, id)
	return nil
}

func (a *App) listProjects(ctx context.Context) error {
	repo, err := a.repository()
	if err != nil {
		return err
	}

	projects, err := repo.ListProjects(ctx)
	if err != nil {
		return err
	}
	return a.out.Projects(projects)
}

// resolveProject turns a project name into its id by exact lookup. Names are
// stored as given, so no normalization happens on either side.
func (a *App) resolveProject(ctx context.Context, repo *repository.Repository, name string) (int64, error) {
	p, err := repo.GetProject(ctx, name)
	if errors.Is(err, models.ErrNotFound) {
		return 0, userErrorf(models.ErrNotFound, "Project '%s' not found.", name)
	}
	if err != nil {
		return 0, err
	}
	return p.ID, nil
}
