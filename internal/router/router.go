// Package router maps external commands onto timer operations.
package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/bornholm/go-x/slogx"
	"github.com/google/uuid"
	"github.com/ldi/stint/internal/parser"
	"github.com/ldi/stint/internal/timer"
	"github.com/ldi/stint/pkg/models"
	"github.com/pkg/errors"
)

type Action string

const (
	ActionGetData    Action = "GET_DATA"
	ActionAddTask    Action = "ADD_TASK"
	ActionToggleTask Action = "TOGGLE_TASK"
	ActionDeleteTask Action = "DELETE_TASK"
	ActionOpenLink   Action = "OPEN_LINK"
)

var (
	ErrUnknownAction = errors.New("unknown action")
	// ErrNoActivePage is returned by hosts that have no page to offer.
	ErrNoActivePage = errors.New("no active page")
)

// Page is the page currently shown by the host.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Host is the environment the tracker runs in.
type Host interface {
	ActivePage(ctx context.Context) (Page, error)
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
}

type Request struct {
	Action Action `json:"action"`
	TaskID string `json:"taskId,omitempty"`
	URL    string `json:"url,omitempty"`
	Title  string `json:"title,omitempty"`
}

type Response struct {
	Success bool               `json:"success"`
	Error   string             `json:"error,omitempty"`
	State   *models.TimerState `json:"state,omitempty"`
	Task    *models.Task       `json:"task,omitempty"`
}

type Router struct {
	engine *timer.Engine
	host   Host
	clock  func() time.Time
}

func New(engine *timer.Engine, host Host) *Router {
	return &Router{
		engine: engine,
		host:   host,
		clock:  time.Now,
	}
}

// SetClock replaces the time source used to stamp commands.
func (r *Router) SetClock(clock func() time.Time) {
	r.clock = clock
}

func (r *Router) Now() time.Time {
	return r.clock()
}

func (r *Router) Engine() *timer.Engine {
	return r.engine
}

// Dispatch runs one command. Expected domain failures are reported in the
// response; infrastructure failures are returned as errors.
func (r *Router) Dispatch(ctx context.Context, req Request) (*Response, error) {
	ctx = slogx.WithAttrs(ctx,
		slog.String("op_id", uuid.New().String()),
		slog.String("action", string(req.Action)),
	)

	slog.DebugContext(ctx, "dispatching command")

	switch req.Action {
	case ActionGetData:
		state, err := r.FetchState(ctx)
		if err != nil {
			return nil, err
		}
		return &Response{Success: true, State: state}, nil

	case ActionAddTask:
		var (
			task *models.Task
			err  error
		)
		if req.URL != "" {
			task, err = r.Add(ctx, Page{URL: req.URL, Title: req.Title})
		} else {
			task, err = r.AddActive(ctx)
		}
		return respond(task, err)

	case ActionToggleTask:
		task, err := r.Toggle(ctx, req.TaskID)
		return respond(task, err)

	case ActionDeleteTask:
		if err := r.Delete(ctx, req.TaskID); err != nil {
			return nil, err
		}
		return &Response{Success: true}, nil

	case ActionOpenLink:
		if err := r.OpenReference(ctx, req.URL); err != nil {
			return nil, err
		}
		return &Response{Success: true}, nil

	default:
		return nil, errors.Wrapf(ErrUnknownAction, "'%s'", req.Action)
	}
}

func respond(task *models.Task, err error) (*Response, error) {
	if err != nil {
		if IsUserError(err) {
			return &Response{Success: false, Error: UserMessage(err)}, nil
		}
		return nil, err
	}
	return &Response{Success: true, Task: task}, nil
}

func (r *Router) FetchState(ctx context.Context) (*models.TimerState, error) {
	return r.engine.State(ctx)
}

// AddActive starts tracking the page the host currently shows.
func (r *Router) AddActive(ctx context.Context) (*models.Task, error) {
	page, err := r.host.ActivePage(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "could not resolve active page")
	}
	return r.Add(ctx, page)
}

func (r *Router) Add(ctx context.Context, page Page) (*models.Task, error) {
	return r.engine.AddOrResumeActive(ctx, page.URL, page.Title, r.clock())
}

func (r *Router) Toggle(ctx context.Context, id string) (*models.Task, error) {
	return r.engine.Toggle(ctx, id, r.clock())
}

func (r *Router) Delete(ctx context.Context, id string) error {
	return r.engine.Delete(ctx, id)
}

// OpenReference brings the host to url. When the host already shows url the
// page is refreshed instead, so no duplicate history entry is pushed.
func (r *Router) OpenReference(ctx context.Context, url string) error {
	if url == "" {
		return errors.New("no url to open")
	}

	current, err := r.host.ActivePage(ctx)
	if err != nil && !errors.Is(err, ErrNoActivePage) {
		slog.DebugContext(ctx, "could not resolve active page, navigating", slog.String("url", url), slogx.Error(err))
	}
	if err == nil && current.URL != "" && parser.SameLocation(current.URL, url) {
		slog.DebugContext(ctx, "already at reference, reloading", slog.String("url", url))
		return errors.Wrap(r.host.Reload(ctx), "could not reload page")
	}

	return errors.Wrapf(r.host.Navigate(ctx, url), "could not navigate to '%s'", url)
}

// OpenTask opens the reference url of a stored task.
func (r *Router) OpenTask(ctx context.Context, id string) error {
	state, err := r.engine.State(ctx)
	if err != nil {
		return err
	}

	task, exists := state.Tasks[id]
	if !exists {
		return errors.Wrapf(timer.ErrTaskNotFound, "could not open task '%s'", id)
	}

	return r.OpenReference(ctx, task.URL)
}

// IsUserError reports whether err is an expected, user-facing condition.
func IsUserError(err error) bool {
	return errors.Is(err, ErrNoActivePage) ||
		errors.Is(err, timer.ErrNotATaskPage) ||
		errors.Is(err, timer.ErrNoIdentifier) ||
		errors.Is(err, timer.ErrTaskNotFound)
}

// UserMessage returns the text shown to the user for a domain error.
func UserMessage(err error) string {
	var noID *timer.NoIdentifierError
	switch {
	case errors.As(err, &noID):
		return noID.Error()
	case errors.Is(err, timer.ErrNotATaskPage):
		return timer.ErrNotATaskPage.Error()
	case errors.Is(err, timer.ErrTaskNotFound):
		return timer.ErrTaskNotFound.Error()
	case errors.Is(err, ErrNoActivePage):
		return ErrNoActivePage.Error()
	default:
		return err.Error()
	}
}
