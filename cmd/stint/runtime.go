package main

import (
	"context"
	"log/slog"

	"github.com/ldi/stint/internal/config"
	"github.com/ldi/stint/internal/db"
	"github.com/ldi/stint/internal/host"
	"github.com/ldi/stint/internal/parser"
	"github.com/ldi/stint/internal/router"
	"github.com/ldi/stint/internal/timer"
	"github.com/ldi/stint/pkg/models"
	"github.com/pkg/errors"
)

// runtime bundles the components a command needs.
type runtime struct {
	conf    *config.Config
	db      *db.DB
	engine  *timer.Engine
	session *host.Session
	router  *router.Router
}

func openRuntime(ctx context.Context, conf *config.Config) (*runtime, error) {
	policy, err := parser.PolicyByVersion(conf.Tracker.ParserPolicy)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	database, err := db.Open(conf.Storage.Database)
	if err != nil {
		return nil, err
	}

	if err := database.Init(ctx); err != nil {
		database.Close()
		return nil, err
	}

	if _, err := database.EnsureState(ctx, conf.Storage.StateKey); err != nil {
		database.Close()
		return nil, err
	}

	if conf.Storage.AutoSnapshot {
		database.EnableAutoSnapshot(conf.Storage.StateKey, conf.Storage.Snapshot)
	}

	engine := timer.NewEngine(
		database.StateStore(conf.Storage.StateKey),
		timer.WithPolicy(policy),
		timer.WithTaskHost(conf.Tracker.Host),
		timer.WithTitleSuffix(conf.Tracker.TitleSuffix),
	)

	engine.SetOnChange(func(ctx context.Context, state *models.TimerState) {
		slog.DebugContext(ctx, "timer state changed", slog.String("badge", timer.BadgeText(state)))
	})

	session := host.NewSession(conf.UI.OpenCommand)

	return &runtime{
		conf:    conf,
		db:      database,
		engine:  engine,
		session: session,
		router:  router.New(engine, session),
	}, nil
}

func (rt *runtime) Close() error {
	return rt.db.Close()
}
