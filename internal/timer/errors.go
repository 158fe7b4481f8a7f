package timer

import (
	"fmt"
	"strings"

	"github.com/ldi/stint/internal/parser"
	"github.com/pkg/errors"
)

var (
	ErrNotATaskPage = errors.New("this is not a Basecamp page")
	ErrNoIdentifier = errors.New("could not find a valid task id in this url")
	ErrTaskNotFound = errors.New("task not found")
	ErrPersistence  = errors.New("could not access timer state")
)

// NoIdentifierError names the page types that would have been accepted.
type NoIdentifierError struct {
	URL       string
	Supported []parser.ResourceType
}

func (e *NoIdentifierError) Error() string {
	types := make([]string, 0, len(e.Supported))
	for _, t := range e.Supported {
		types = append(types, string(t))
	}
	return fmt.Sprintf("%s (supported pages: %s)", ErrNoIdentifier.Error(), strings.Join(types, ", "))
}

func (e *NoIdentifierError) Is(target error) bool {
	return target == ErrNoIdentifier
}

// PersistenceError reports a failed load or save. The operation it belongs
// to must be treated as not having happened.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: could not %s state: %v", ErrPersistence.Error(), e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// resultLabel classifies err for the operations counter.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotATaskPage):
		return "not_a_task_page"
	case errors.Is(err, ErrNoIdentifier):
		return "no_identifier"
	case errors.Is(err, ErrTaskNotFound):
		return "task_not_found"
	case errors.Is(err, ErrPersistence):
		return "persistence_failure"
	default:
		return "error"
	}
}
