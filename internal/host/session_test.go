package host

import (
	"context"
	"os/exec"
	"testing"

	"github.com/ldi/stint/internal/router"
	"github.com/pkg/errors"
)

func TestSession_ActivePage(t *testing.T) {
	s := NewSession("")
	ctx := context.Background()

	if _, err := s.ActivePage(ctx); !errors.Is(err, router.ErrNoActivePage) {
		t.Errorf("expected ErrNoActivePage, got %v", err)
	}

	s.SetPage(router.Page{URL: "https://3.basecamp.com/1/projects/2", Title: "P"})
	page, err := s.ActivePage(ctx)
	if err != nil {
		t.Fatalf("ActivePage failed: %v", err)
	}
	if page.Title != "P" {
		t.Errorf("expected title P, got %s", page.Title)
	}
}

func TestSession_NavigateRunsOpener(t *testing.T) {
	s := NewSession("opener --new-tab")

	var gotName string
	var gotArgs []string
	s.cmdFactory = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		gotName = name
		gotArgs = arg
		return exec.CommandContext(ctx, "true")
	}

	ctx := context.Background()
	if err := s.Navigate(ctx, "https://h/x"); err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	if gotName != "opener" {
		t.Errorf("expected opener, got %s", gotName)
	}
	if len(gotArgs) != 2 || gotArgs[0] != "--new-tab" || gotArgs[1] != "https://h/x" {
		t.Errorf("unexpected args %v", gotArgs)
	}

	page, _ := s.ActivePage(ctx)
	if page.URL != "https://h/x" {
		t.Errorf("expected active page to follow navigation, got %s", page.URL)
	}
}

func TestSession_NavigateFailure(t *testing.T) {
	s := NewSession("opener")
	s.cmdFactory = func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "false")
	}

	s.SetPage(router.Page{URL: "https://h/before"})
	if err := s.Navigate(context.Background(), "https://h/after"); err == nil {
		t.Fatal("expected navigate to fail")
	}

	page, _ := s.ActivePage(context.Background())
	if page.URL != "https://h/before" {
		t.Errorf("expected active page unchanged, got %s", page.URL)
	}
}
