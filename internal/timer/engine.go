// Package timer implements the single-active-task time tracker.
//
// The persisted state is the only source of truth: every operation loads it,
// applies its changes and saves it back while holding the engine lock, so
// two mutations can never interleave their read and write phases.
package timer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bornholm/go-x/slogx"
	"github.com/ldi/stint/internal/metrics"
	"github.com/ldi/stint/internal/parser"
	"github.com/ldi/stint/pkg/models"
	"github.com/pkg/errors"
)

const (
	DefaultTaskHost    = "3.basecamp.com"
	DefaultTitleSuffix = " on Basecamp"
)

type Engine struct {
	store       Store
	policy      parser.Policy
	taskHost    string
	titleSuffix string

	mu sync.Mutex

	onChange   func(ctx context.Context, state *models.TimerState)
	onChangeMu sync.RWMutex
}

type Option func(*Engine)

func WithPolicy(p parser.Policy) Option {
	return func(e *Engine) {
		e.policy = p
	}
}

func WithTaskHost(host string) Option {
	return func(e *Engine) {
		e.taskHost = host
	}
}

func WithTitleSuffix(suffix string) Option {
	return func(e *Engine) {
		e.titleSuffix = suffix
	}
}

func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		policy:      parser.DefaultPolicy,
		taskHost:    DefaultTaskHost,
		titleSuffix: DefaultTitleSuffix,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetOnChange registers a hook called with the new state after every
// successful save.
func (e *Engine) SetOnChange(fn func(ctx context.Context, state *models.TimerState)) {
	e.onChangeMu.Lock()
	defer e.onChangeMu.Unlock()
	e.onChange = fn
}

func (e *Engine) triggerChange(ctx context.Context, state *models.TimerState) {
	e.onChangeMu.RLock()
	fn := e.onChange
	e.onChangeMu.RUnlock()

	if fn != nil {
		fn(ctx, state.Clone())
	}
}

// State returns a snapshot of the persisted state.
func (e *Engine) State(ctx context.Context) (*models.TimerState, error) {
	state, err := e.store.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	return state, nil
}

// AddOrResumeActive starts tracking the task behind url, creating it on first
// sight. Any other running task is paused first.
func (e *Engine) AddOrResumeActive(ctx context.Context, url, title string, now time.Time) (*models.Task, error) {
	var task *models.Task

	err := e.observe(ctx, "add", func() error {
		if !parser.IsTaskPage(url, e.taskHost) {
			return errors.WithStack(ErrNotATaskPage)
		}

		match, ok := e.policy.Extract(url)
		if !ok {
			return errors.WithStack(&NoIdentifierError{URL: url, Supported: e.policy.Types()})
		}

		canonical, err := parser.CanonicalURL(url)
		if err != nil {
			return errors.WithStack(&NoIdentifierError{URL: url, Supported: e.policy.Types()})
		}

		id := match.ID
		cleanTitle := parser.CleanTitle(title, e.titleSuffix)
		ctx := slogx.WithAttrs(ctx, slog.String("task_id", id))

		return e.update(ctx, func(state *models.TimerState) (bool, error) {
			pauseOthers(ctx, state, id, now)

			existing, exists := state.Tasks[id]
			if exists {
				if !existing.IsRunning() {
					start(existing, now)
					slog.DebugContext(ctx, "task resumed")
				}
				if cleanTitle != "" {
					existing.Title = cleanTitle
				}
				task = existing
			} else {
				if cleanTitle == "" {
					cleanTitle = canonical
				}
				task = &models.Task{
					ID:              id,
					Title:           cleanTitle,
					URL:             canonical,
					Status:          models.TaskStatusPaused,
					AccumulatedTime: 0,
				}
				start(task, now)
				state.Tasks[id] = task
				slog.DebugContext(ctx, "task created", slog.String("type", string(match.Type)))
			}

			state.SetActive(id)
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}

	return task.Clone(), nil
}

// Toggle pauses the task if it is running, otherwise starts it and pauses
// whichever task was running before.
func (e *Engine) Toggle(ctx context.Context, id string, now time.Time) (*models.Task, error) {
	var task *models.Task
	ctx = slogx.WithAttrs(ctx, slog.String("task_id", id))

	err := e.observe(ctx, "toggle", func() error {
		return e.update(ctx, func(state *models.TimerState) (bool, error) {
			target, exists := state.Tasks[id]
			if !exists {
				return false, errors.Wrapf(ErrTaskNotFound, "could not toggle task '%s'", id)
			}

			if target.IsRunning() {
				pause(target, now)
				state.ClearActive()
				slog.DebugContext(ctx, "task paused")
			} else {
				pauseOthers(ctx, state, id, now)
				start(target, now)
				state.SetActive(id)
				slog.DebugContext(ctx, "task started")
			}

			task = target
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}

	return task.Clone(), nil
}

// Delete removes the task. Time accrued by a running task is discarded, not
// banked. Deleting an unknown id is a no-op.
func (e *Engine) Delete(ctx context.Context, id string) error {
	ctx = slogx.WithAttrs(ctx, slog.String("task_id", id))

	return e.observe(ctx, "delete", func() error {
		return e.update(ctx, func(state *models.TimerState) (bool, error) {
			changed := false

			if state.ActiveTaskID != nil && *state.ActiveTaskID == id {
				state.ClearActive()
				changed = true
			}

			if _, exists := state.Tasks[id]; exists {
				delete(state.Tasks, id)
				changed = true
				slog.DebugContext(ctx, "task deleted")
			}

			return changed, nil
		})
	})
}

// update runs one locked load-modify-save cycle. fn reports whether it
// changed the state; unchanged states are not written back. Stores that
// implement Updater run the cycle in their own transaction so other
// processes sharing the store are serialized too.
func (e *Engine) update(ctx context.Context, fn func(state *models.TimerState) (bool, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var (
		saved *models.TimerState
		fnErr error
	)

	apply := func(state *models.TimerState) (bool, error) {
		changed, err := fn(state)
		if err != nil {
			fnErr = err
			return false, err
		}
		if changed {
			saved = state
		}
		return changed, nil
	}

	if updater, ok := e.store.(Updater); ok {
		if err := updater.Update(ctx, apply); err != nil {
			if fnErr != nil {
				return fnErr
			}
			return errors.WithStack(&PersistenceError{Op: "update", Err: err})
		}
	} else if err := loadAndSave(ctx, e.store, apply); err != nil {
		return err
	}

	if saved == nil {
		return nil
	}

	recordTasks(saved)
	e.triggerChange(ctx, saved)

	return nil
}

func loadAndSave(ctx context.Context, store Store, fn func(state *models.TimerState) (bool, error)) error {
	state, err := store.Load(ctx)
	if err != nil {
		return errors.WithStack(&PersistenceError{Op: "load", Err: err})
	}

	changed, err := fn(state)
	if err != nil || !changed {
		return err
	}

	if err := store.Save(ctx, state); err != nil {
		return errors.WithStack(&PersistenceError{Op: "save", Err: err})
	}

	return nil
}

func (e *Engine) observe(ctx context.Context, op string, fn func() error) error {
	err := fn()
	metrics.Operations.WithLabelValues(op, resultLabel(err)).Inc()
	if err != nil && errors.Is(err, ErrPersistence) {
		slog.ErrorContext(ctx, "timer operation failed", slog.String("operation", op), slogx.Error(err))
	}
	return err
}

func recordTasks(state *models.TimerState) {
	running := 0
	for _, t := range state.Tasks {
		if t.IsRunning() {
			running++
		}
	}
	metrics.Tasks.WithLabelValues(string(models.TaskStatusRunning)).Set(float64(running))
	metrics.Tasks.WithLabelValues(string(models.TaskStatusPaused)).Set(float64(len(state.Tasks) - running))
}

// pauseOthers closes the open interval of every running task except keep.
func pauseOthers(ctx context.Context, state *models.TimerState, keep string, now time.Time) {
	for id, t := range state.Tasks {
		if id == keep || !t.IsRunning() {
			continue
		}
		pause(t, now)
		slog.InfoContext(ctx, "auto-paused task", slog.String("paused_task_id", id))
	}
	if state.ActiveTaskID != nil && *state.ActiveTaskID != keep {
		state.ClearActive()
	}
}

func start(t *models.Task, now time.Time) {
	ms := now.UnixMilli()
	t.Status = models.TaskStatusRunning
	t.LastStartTime = &ms
}

func pause(t *models.Task, now time.Time) {
	if !t.IsRunning() {
		return
	}
	t.AccumulatedTime += openInterval(t, now)
	t.Status = models.TaskStatusPaused
	t.LastStartTime = nil
}

func openInterval(t *models.Task, now time.Time) int64 {
	if !t.IsRunning() || t.LastStartTime == nil {
		return 0
	}
	d := now.UnixMilli() - *t.LastStartTime
	if d < 0 {
		return 0
	}
	return d
}

// Elapsed is the task's total tracked time as of now, including the open
// interval of a running task. It never mutates the task.
func Elapsed(t *models.Task, now time.Time) time.Duration {
	return time.Duration(t.AccumulatedTime+openInterval(t, now)) * time.Millisecond
}

// BadgeText is the indicator shown while a task is active.
func BadgeText(state *models.TimerState) string {
	if state.ActiveTaskID != nil {
		return "ON"
	}
	return ""
}
