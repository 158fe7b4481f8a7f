package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ldi/stint/internal/db"
	"github.com/ldi/stint/internal/mcp"
	"github.com/ldi/stint/internal/router"
	"github.com/ldi/stint/internal/server"
	"github.com/ldi/stint/internal/timer"
	"github.com/ldi/stint/internal/ui"
	"github.com/ldi/stint/pkg/models"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:  "init",
			Usage: "Create the database and the empty timer state",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "reset",
					Usage: "Drop the stored timer state first",
				},
			},
			Action: runInit,
		},
		{
			Name:  "add",
			Usage: "Start tracking the task behind a page, pausing any running task",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "url",
					Aliases:  []string{"u"},
					Usage:    "Page URL",
					Required: true,
				},
				&cli.StringFlag{
					Name:    "title",
					Aliases: []string{"t"},
					Usage:   "Page title",
				},
			},
			Action: runAdd,
		},
		{
			Name:      "toggle",
			Usage:     "Pause a running task or resume a paused one",
			ArgsUsage: "ID",
			Action:    runToggle,
		},
		{
			Name:      "delete",
			Usage:     "Stop tracking a task",
			ArgsUsage: "ID",
			Action:    runDelete,
		},
		{
			Name:  "status",
			Usage: "List tracked tasks",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "decimal",
					Usage: "Show elapsed time as decimal hours",
				},
			},
			Action: runStatus,
		},
		{
			Name:      "open",
			Usage:     "Open a task's page",
			ArgsUsage: "ID",
			Action:    runOpen,
		},
		{
			Name:  "watch",
			Usage: "Interactive view refreshed while tasks run",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:  "interval",
					Usage: "Refresh interval (overrides STINT_UI_REFRESH_INTERVAL)",
				},
			},
			Action: runWatch,
		},
		{
			Name:  "web",
			Usage: "Serve the JSON API and metrics",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "address",
					Usage: "Listen address (overrides STINT_HTTP_ADDRESS)",
				},
			},
			Action: runWeb,
		},
		{
			Name:   "mcp",
			Usage:  "Serve the MCP tools on stdio",
			Action: runMCP,
		},
		{
			Name:  "snapshot",
			Usage: "Export or import the timer state as JSONL",
			Subcommands: []*cli.Command{
				{
					Name:   "export",
					Usage:  "Write the timer state to the snapshot file",
					Flags:  []cli.Flag{snapshotPathFlag()},
					Action: runSnapshotExport,
				},
				{
					Name:   "import",
					Usage:  "Replace the timer state with the snapshot file",
					Flags:  []cli.Flag{snapshotPathFlag()},
					Action: runSnapshotImport,
				},
			},
		},
	}
}

func snapshotPathFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "path",
		Aliases: []string{"p"},
		Usage:   "Snapshot file (defaults to the configured snapshot path)",
	}
}

func menuActions() map[string]cli.ActionFunc {
	return map[string]cli.ActionFunc{
		"init":   runInit,
		"pause":  runPauseActive,
		"status": runStatus,
		"watch":  runWatch,
		"web":    runWeb,
		"mcp":    runMCP,
		"export": runSnapshotExport,
	}
}

func withRuntime(ctx *cli.Context, fn func(rt *runtime) error) error {
	rt, err := openRuntime(ctx.Context, getConfig(ctx))
	if err != nil {
		return err
	}
	defer rt.Close()

	return fn(rt)
}

func taskArg(ctx *cli.Context) (string, error) {
	id := ctx.Args().First()
	if id == "" {
		return "", errors.New("a task id is required")
	}
	return id, nil
}

// dispatch runs a router command and turns a failed response into an error.
func dispatch(ctx *cli.Context, rt *runtime, req router.Request) (*router.Response, error) {
	res, err := rt.router.Dispatch(ctx.Context, req)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, errors.New(res.Error)
	}
	return res, nil
}

func runInit(ctx *cli.Context) error {
	conf := getConfig(ctx)

	database, err := db.Open(conf.Storage.Database)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.Init(ctx.Context); err != nil {
		return errors.Wrap(err, "could not initialize database")
	}
	fmt.Fprintf(ctx.App.Writer, "✓ Initialized database at %s\n", conf.Storage.Database)

	if ctx.Bool("reset") {
		if err := database.DeleteState(ctx.Context, conf.Storage.StateKey); err != nil {
			return err
		}
		fmt.Fprintf(ctx.App.Writer, "✓ Dropped timer state '%s'\n", conf.Storage.StateKey)
	}

	created, err := database.EnsureState(ctx.Context, conf.Storage.StateKey)
	if err != nil {
		return err
	}

	if !created {
		fmt.Fprintln(ctx.App.Writer, "✓ Timer state already present")
		return nil
	}

	if _, err := os.Stat(conf.Storage.Snapshot); err == nil {
		if err := database.ImportSnapshot(ctx.Context, conf.Storage.StateKey, conf.Storage.Snapshot); err != nil {
			return errors.Wrap(err, "could not import snapshot")
		}
		fmt.Fprintf(ctx.App.Writer, "✓ Imported snapshot from %s\n", conf.Storage.Snapshot)
		return nil
	}

	fmt.Fprintln(ctx.App.Writer, "✓ Created empty timer state")
	return nil
}

func runAdd(ctx *cli.Context) error {
	return withRuntime(ctx, func(rt *runtime) error {
		rt.session.SetPage(router.Page{URL: ctx.String("url"), Title: ctx.String("title")})

		res, err := dispatch(ctx, rt, router.Request{Action: router.ActionAddTask})
		if err != nil {
			return err
		}

		printTask(ctx, res.Task, time.Now())
		return nil
	})
}

func runToggle(ctx *cli.Context) error {
	id, err := taskArg(ctx)
	if err != nil {
		return err
	}

	return withRuntime(ctx, func(rt *runtime) error {
		res, err := dispatch(ctx, rt, router.Request{Action: router.ActionToggleTask, TaskID: id})
		if err != nil {
			return err
		}

		printTask(ctx, res.Task, time.Now())
		return nil
	})
}

// runPauseActive pauses whichever task is running.
func runPauseActive(ctx *cli.Context) error {
	return withRuntime(ctx, func(rt *runtime) error {
		state, err := rt.router.FetchState(ctx.Context)
		if err != nil {
			return err
		}

		active := state.Active()
		if active == nil {
			fmt.Fprintln(ctx.App.Writer, "Nothing running.")
			return nil
		}

		res, err := dispatch(ctx, rt, router.Request{Action: router.ActionToggleTask, TaskID: active.ID})
		if err != nil {
			return err
		}

		printTask(ctx, res.Task, time.Now())
		return nil
	})
}

func runDelete(ctx *cli.Context) error {
	id, err := taskArg(ctx)
	if err != nil {
		return err
	}

	return withRuntime(ctx, func(rt *runtime) error {
		if _, err := dispatch(ctx, rt, router.Request{Action: router.ActionDeleteTask, TaskID: id}); err != nil {
			return err
		}

		fmt.Fprintf(ctx.App.Writer, "✓ Deleted task %s\n", id)
		return nil
	})
}

func runStatus(ctx *cli.Context) error {
	return withRuntime(ctx, func(rt *runtime) error {
		res, err := dispatch(ctx, rt, router.Request{Action: router.ActionGetData})
		if err != nil {
			return err
		}

		return ui.RenderStatus(ctx.App.Writer, res.State, time.Now(), ctx.Bool("decimal"))
	})
}

func runOpen(ctx *cli.Context) error {
	id, err := taskArg(ctx)
	if err != nil {
		return err
	}

	return withRuntime(ctx, func(rt *runtime) error {
		return rt.router.OpenTask(ctx.Context, id)
	})
}

func runWatch(ctx *cli.Context) error {
	return withRuntime(ctx, func(rt *runtime) error {
		interval := rt.conf.UI.RefreshInterval
		if ctx.IsSet("interval") {
			interval = ctx.Duration("interval")
		}
		if interval <= 0 {
			return errors.Errorf("invalid refresh interval '%s'", interval)
		}

		return ui.RunWatch(rt.router, interval)
	})
}

func runWeb(ctx *cli.Context) error {
	return withRuntime(ctx, func(rt *runtime) error {
		addr := rt.conf.HTTP.Address
		if ctx.IsSet("address") {
			addr = ctx.String("address")
		}

		sigCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := server.NewServer(rt.router)

		go func() {
			<-sigCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		slog.InfoContext(ctx.Context, "starting server", slog.String("address", addr))

		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "could not serve http")
		}
		return nil
	})
}

func runMCP(ctx *cli.Context) error {
	return withRuntime(ctx, func(rt *runtime) error {
		return mcp.Serve(mcp.NewServer(rt.router))
	})
}

func snapshotPath(ctx *cli.Context) string {
	if path := ctx.String("path"); path != "" {
		return path
	}
	return getConfig(ctx).Storage.Snapshot
}

func runSnapshotExport(ctx *cli.Context) error {
	return withRuntime(ctx, func(rt *runtime) error {
		path := snapshotPath(ctx)
		if err := rt.db.ExportSnapshot(ctx.Context, rt.conf.Storage.StateKey, path); err != nil {
			return err
		}

		fmt.Fprintf(ctx.App.Writer, "✓ Exported snapshot to %s\n", path)
		return nil
	})
}

func runSnapshotImport(ctx *cli.Context) error {
	return withRuntime(ctx, func(rt *runtime) error {
		path := snapshotPath(ctx)
		if err := rt.db.ImportSnapshot(ctx.Context, rt.conf.Storage.StateKey, path); err != nil {
			return err
		}

		state, err := rt.db.LoadState(ctx.Context, rt.conf.Storage.StateKey)
		if err != nil {
			return err
		}

		fmt.Fprintf(ctx.App.Writer, "✓ Imported %s from %s\n", pluralTasks(len(state.Tasks)), path)
		return nil
	})
}

func printTask(ctx *cli.Context, task *models.Task, now time.Time) {
	icon := "⏸"
	if task.IsRunning() {
		icon = "▶"
	}

	line := fmt.Sprintf("%s %s %s (%s)", icon, task.ID, task.Title, ui.FormatClock(timer.Elapsed(task, now)))
	if started := ui.FormatStarted(task, now); started != "" {
		line += ", " + started
	}
	fmt.Fprintln(ctx.App.Writer, line)
}

func pluralTasks(n int) string {
	if n == 1 {
		return "1 task"
	}
	return humanize.Comma(int64(n)) + " tasks"
}
