package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"time"

	"github.com/bornholm/go-x/slogx"
	"github.com/ldi/stint/internal/config"
	"github.com/ldi/stint/internal/ui"
	"github.com/ldi/stint/pkg/models"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

// runMenu is swapped in tests.
var runMenu = ui.RunMenu

func main() {
	if err := newApp().Run(os.Args); err != nil {
		os.Exit(1)
	}
}

func newApp() *cli.App {
	app := &cli.App{
		Name:     "stint",
		Usage:    "Track time against Basecamp tasks, one running task at a time",
		Commands: commands(),
		Before: func(ctx *cli.Context) error {
			conf, err := config.Parse()
			if err != nil {
				return errors.Wrap(err, "could not parse config")
			}

			if err := applyFlags(ctx, conf); err != nil {
				return err
			}

			logger := slog.New(slogx.ContextHandler{
				Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
					Level:     conf.Logger.Level,
					AddSource: true,
				}),
			})

			slog.SetDefault(logger)

			slog.DebugContext(ctx.Context, "using configuration", slog.Any("config", conf))

			ctx.App.Metadata[configKey] = conf

			return nil
		},
		Action: func(ctx *cli.Context) error {
			if ctx.NArg() > 0 {
				return errors.Errorf("unknown command '%s'", ctx.Args().First())
			}

			var state *models.TimerState
			err := withRuntime(ctx, func(rt *runtime) error {
				var err error
				state, err = rt.router.FetchState(ctx.Context)
				return err
			})
			if err != nil {
				return err
			}

			selected, err := runMenu(state, time.Now())
			if err != nil {
				return errors.Wrap(err, "could not run menu")
			}
			if selected == "" {
				return nil
			}

			action, exists := menuActions()[selected]
			if !exists {
				return errors.Errorf("unknown command '%s'", selected)
			}

			return action(ctx)
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Value:   false,
				EnvVars: []string{"STINT_CLI_DEBUG"},
				Usage:   "Toggle debug mode",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Set logging level (overrides STINT_LOGGER_LEVEL)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to the database file (overrides STINT_STORAGE_DATABASE)",
			},
			&cli.StringFlag{
				Name:  "snapshot",
				Usage: "Path to the snapshot file (overrides STINT_STORAGE_SNAPSHOT)",
			},
			&cli.StringFlag{
				Name:  "policy",
				Usage: "Identifier parsing policy, v1 or v2 (overrides STINT_TRACKER_PARSER_POLICY)",
			},
		},
		Metadata: map[string]any{},
	}

	app.ExitErrHandler = func(ctx *cli.Context, err error) {
		if err == nil {
			return
		}

		debug := ctx.Bool("debug")

		if !debug {
			slog.ErrorContext(ctx.Context, err.Error())
		} else {
			slog.ErrorContext(ctx.Context, fmt.Sprintf("%+v", err))
		}
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	return app
}

func applyFlags(ctx *cli.Context, conf *config.Config) error {
	if ctx.IsSet("log-level") {
		if err := conf.Logger.Level.UnmarshalText([]byte(ctx.String("log-level"))); err != nil {
			return errors.Wrap(err, "invalid log level")
		}
	}
	if ctx.IsSet("db") {
		conf.Storage.Database = ctx.String("db")
	}
	if ctx.IsSet("snapshot") {
		conf.Storage.Snapshot = ctx.String("snapshot")
	}
	if ctx.IsSet("policy") {
		conf.Tracker.ParserPolicy = ctx.String("policy")
	}
	return nil
}

func getConfig(ctx *cli.Context) *config.Config {
	conf, _ := ctx.App.Metadata[configKey].(*config.Config)
	return conf
}
