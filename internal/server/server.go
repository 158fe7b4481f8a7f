package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/bornholm/go-x/slogx"
	"github.com/ldi/stint/internal/router"
	"github.com/ldi/stint/internal/timer"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	router *router.Router
	server *http.Server
}

func NewServer(r *router.Router) *Server {
	return &Server{router: r}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/dispatch", s.handleDispatch)
	mux.HandleFunc("POST /api/tasks", s.handleAddTask)
	mux.HandleFunc("POST /api/tasks/{id}/toggle", s.handleToggleTask)
	mux.HandleFunc("DELETE /api/tasks/{id}", s.handleDeleteTask)
	mux.HandleFunc("POST /api/tasks/{id}/open", s.handleOpenTask)

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	state, err := s.router.FetchState(r.Context())
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	s.respond(w, r, timer.NewStateView(state, s.router.Now()), nil)
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req router.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	res, err := s.router.Dispatch(r.Context(), req)
	if errors.Is(err, router.ErrUnknownAction) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.respond(w, r, res, err)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var page router.Page
	if err := json.NewDecoder(r.Body).Decode(&page); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	task, err := s.router.Add(r.Context(), page)
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	s.respond(w, r, timer.NewTaskView(task, s.router.Now()), nil)
}

func (s *Server) handleToggleTask(w http.ResponseWriter, r *http.Request) {
	task, err := s.router.Toggle(r.Context(), r.PathValue("id"))
	if err != nil {
		s.respond(w, r, nil, err)
		return
	}
	s.respond(w, r, timer.NewTaskView(task, s.router.Now()), nil)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.router.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.respond(w, r, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleOpenTask(w http.ResponseWriter, r *http.Request) {
	if err := s.router.OpenTask(r.Context(), r.PathValue("id")); err != nil {
		s.respond(w, r, nil, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	if err != nil {
		switch {
		case errors.Is(err, timer.ErrTaskNotFound):
			http.Error(w, router.UserMessage(err), http.StatusNotFound)
		case router.IsUserError(err):
			http.Error(w, router.UserMessage(err), http.StatusUnprocessableEntity)
		default:
			slog.ErrorContext(r.Context(), "request failed", slog.String("path", r.URL.Path), slogx.Error(err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
