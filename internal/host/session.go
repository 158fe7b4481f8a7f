// Package host provides Host implementations for the command router.
package host

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"sync"

	"github.com/bornholm/go-x/slogx"
	"github.com/ldi/stint/internal/router"
	"github.com/pkg/errors"
)

// Session is a host whose active page is supplied by the caller (CLI flags,
// HTTP or MCP arguments). Navigation runs an opener command such as
// xdg-open and moves the active page to the target.
type Session struct {
	mu         sync.RWMutex
	page       router.Page
	opener     []string
	cmdFactory func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewSession creates a session host. An empty opener only records
// navigation.
func NewSession(opener string) *Session {
	return &Session{
		opener:     strings.Fields(opener),
		cmdFactory: exec.CommandContext,
	}
}

func (s *Session) SetPage(p router.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.page = p
}

func (s *Session) ActivePage(ctx context.Context) (router.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.page.URL == "" {
		return router.Page{}, errors.WithStack(router.ErrNoActivePage)
	}
	return s.page, nil
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.open(ctx, url); err != nil {
		return err
	}

	s.SetPage(router.Page{URL: url})
	return nil
}

// Reload leaves the location untouched. An external browser cannot be asked
// to refresh, so this only avoids opening the same page twice.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.RLock()
	url := s.page.URL
	s.mu.RUnlock()

	slog.InfoContext(ctx, "page already open", slog.String("url", url))
	return nil
}

func (s *Session) open(ctx context.Context, url string) error {
	if len(s.opener) == 0 {
		return nil
	}

	args := append(append([]string{}, s.opener[1:]...), url)
	cmd := s.cmdFactory(ctx, s.opener[0], args...)

	if out, err := cmd.CombinedOutput(); err != nil {
		slog.ErrorContext(ctx, "opener failed", slog.String("output", string(out)), slogx.Error(err))
		return errors.Wrapf(err, "could not run '%s'", s.opener[0])
	}

	return nil
}
