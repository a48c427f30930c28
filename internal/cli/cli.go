package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pm/internal/config"
	"pm/internal/logging"
	"pm/internal/models"
	"pm/internal/presenter"
	"pm/internal/repository"
	"pm/internal/storage/sqlite"
)

// Version is stamped at build time.
var Version = "dev"

// Exit codes
const (
	ExitOK       = 0
	ExitAborted  = 1
	ExitUsage    = 2
	ExitNotFound = 3
	ExitConflict = 4
	ExitInternal = 10
)

type globalFlags struct {
	dbPath     string
	configPath string
	output     string
	timeFormat string
	noColor    bool
	verbose    bool
}

// App carries the per-invocation state: configuration, the lazily opened
// store and the presenter.
type App struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	flags   globalFlags
	cfg     *config.Config
	logger  *slog.Logger
	out     *presenter.Presenter
	confirm Confirmer

	store *sqlite.Store
	repo  *repository.Repository

	// clock feeds repository timestamps; nil uses the wall clock.
	clock func() time.Time
	// width overrides terminal width detection when positive.
	width int
}

// Run executes one pm invocation and returns its exit code.
func Run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	return newApp(stdin, stdout, stderr).run(args)
}

func newApp(stdin io.Reader, stdout, stderr io.Writer) *App {
	a := &App{
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		cfg:    config.Default(),
		logger: logging.New(stderr, config.DefaultLogLevel),
	}
	a.out = presenter.New(presenter.Options{Out: stdout, Err: stderr})
	a.confirm = NewPromptConfirmer(stdin, stderr)
	return a
}

func (a *App) run(args []string) int {
	defer a.close()

	root := a.rootCommand()
	root.SetArgs(args)
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	if err := root.ExecuteContext(context.Background()); err != nil {
		return a.fail(err)
	}
	return ExitOK
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pm",
		Short: "Simple project management tool for tracking tasks",
		Long: `pm keeps projects and tasks in a local SQLite database.

Statuses: todo (t), in-progress (i), done (d).`,
		Version:           Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.dbPath, "db", "", "Path to the sqlite database file (default ~/.pm/tasks.db)")
	pf.StringVar(&a.flags.configPath, "config", "", "Path to the TOML config file (default ~/.pm/config.toml)")
	pf.StringVarP(&a.flags.output, "output", "o", "", "Output format: table, plain, json, yaml")
	pf.StringVar(&a.flags.timeFormat, "time-format", "", "Timestamp display: relative, absolute")
	pf.BoolVar(&a.flags.noColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Enable debug logging")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", models.ErrValidation, err)
	})

	root.AddCommand(a.projectCommand())
	root.AddCommand(a.taskCommand())
	root.AddCommand(a.createTaskCommand("add", "Quick command to add a task (alias for 'task create')"))
	root.AddCommand(a.listTasksCommand("ls", "Quick command to list tasks (alias for 'task list')"))
	root.AddCommand(a.doneCommand())
	root.AddCommand(a.purgeCommand())
	return root
}

// setup resolves configuration (defaults, file, environment, then flags) and
// builds the logger and presenter for this invocation.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.flags.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.DBPath = a.flags.dbPath
	}
	if flags.Changed("output") {
		cfg.Output = a.flags.output
	}
	if flags.Changed("time-format") {
		cfg.TimeFormat = a.flags.timeFormat
	}
	if a.flags.noColor {
		cfg.Color = "never"
	}
	if a.flags.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Finalize(); err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logging.New(a.stderr, cfg.LogLevel)
	a.out = presenter.New(presenter.Options{
		Out:      a.stdout,
		Err:      a.stderr,
		Format:   presenter.Format(cfg.Output),
		TimeMode: presenter.TimeMode(cfg.TimeFormat),
		Color:    cfg.Color,
		Width:    a.width,
	})
	a.logger.Debug("config resolved",
		slog.String("file", cfg.File),
		slog.String("db", cfg.DBPath),
		slog.String("output", cfg.Output))
	return nil
}

// repository opens the store on first use.
func (a *App) repository() (*repository.Repository, error) {
	if a.repo != nil {
		return a.repo, nil
	}
	store, err := sqlite.Open(a.cfg.DBPath, a.logger)
	if err != nil {
		return nil, err
	}
	a.store = store
	a.logger.Debug("store opened", slog.String("path", store.Path()))
	a.repo = repository.New(store, a.logger, repository.WithClock(a.clock))
	return a.repo, nil
}

func (a *App) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing database", slog.String("error", err.Error()))
	}
	a.store, a.repo = nil, nil
}

// userError carries the message shown to the user next to the error kind
// used for the exit code.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func userErrorf(kind error, format string, args ...any) error {
	return &userError{msg: fmt.Sprintf(format, args...), err: kind}
}

// fail reports err as a single marked line and maps it to an exit code.
func (a *App) fail(err error) int {
	var ue *userError
	switch {
	case errors.Is(err, models.ErrAborted):
		a.out.Notice("Aborted.")
	case errors.As(err, &ue):
		a.out.Error("%s", ue.msg)
	case errors.Is(err, models.ErrStorage), errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrConstraint):
		a.out.Error("Error: %v", err)
	default:
		a.out.Error("Error: %v. Run 'pm --help' for usage.", err)
	}
	if errors.Is(err, models.ErrStorage) {
		a.logger.Debug("command failed", slog.String("error", err.Error()))
	}
	return ExitCode(err)
}

// ExitCode maps an error onto the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, models.ErrAborted):
		return ExitAborted
	case errors.Is(err, models.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, models.ErrConstraint):
		return ExitConflict
	case errors.Is(err, models.ErrStorage):
		return ExitInternal
	default:
		// validation failures and command-line parse errors
		return ExitUsage
	}
}

// exactArgs is cobra.ExactArgs with a user-facing message.
func exactArgs(names ...string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		switch {
		case len(args) < len(names):
			return userErrorf(models.ErrValidation, "Missing argument %s. Usage: %s", names[len(args)], cmd.UseLine())
		case len(args) > len(names):
			return userErrorf(models.ErrValidation, "Unexpected argument %q. Usage: %s", args[len(names)], cmd.UseLine())
		}
		return nil
	}
}

func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, userErrorf(models.ErrValidation, "Invalid task id %q.", raw)
	}
	return id, nil
}
