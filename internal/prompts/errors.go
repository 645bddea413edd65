package prompts

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JaimeStill/promptvault/pkg/lock"
)

// Domain errors for prompt operations.
var (
	ErrInvalidInput    = errors.New("invalid prompt selector")
	ErrNotFound        = errors.New("prompt not found")
	ErrProtectedLabels = errors.New("prompt has protected labels")
	ErrDependents      = errors.New("prompt has dependents")
	ErrLockUnavailable = errors.New("prompt is locked by another operation")
	ErrStoreFailure    = errors.New("prompt store failure")
)

// ProtectedLabelError lists every protected label present on the deletion candidates.
type ProtectedLabelError struct {
	Mode   Mode
	Labels []string
}

func (e *ProtectedLabelError) Error() string {
	return fmt.Sprintf(
		"Cannot delete %s because it has protected labels: %s. Please remove them first or contact an admin.",
		e.Mode.subject(),
		strings.Join(e.Labels, ", "),
	)
}

func (e *ProtectedLabelError) Unwrap() error { return ErrProtectedLabels }

// DependencyError lists every dependency edge targeting the deletion candidates.
type DependencyError struct {
	Mode      Mode
	Conflicts []Dependency
}

func (e *DependencyError) Error() string {
	lines := make([]string, len(e.Conflicts))
	for i, d := range e.Conflicts {
		lines[i] = d.String()
	}

	return fmt.Sprintf(
		"Other prompts are depending on the %s you are trying to delete:\n\n%s\n\nPlease delete the dependent prompts first.",
		e.Mode.subject(),
		strings.Join(lines, "\n"),
	)
}

func (e *DependencyError) Unwrap() error { return ErrDependents }

func storeFailure(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreFailure, step, err)
}

func lockUnavailable(name string, err error) error {
	return fmt.Errorf("%w: prompt '%s': %w", ErrLockUnavailable, name, err)
}

// isDomainError reports whether err already carries one of the taxonomy sentinels.
func isDomainError(err error) bool {
	for _, target := range []error{
		ErrInvalidInput,
		ErrNotFound,
		ErrProtectedLabels,
		ErrDependents,
		ErrLockUnavailable,
		ErrStoreFailure,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// Outcome names the error kind for logging and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrProtectedLabels):
		return "protected_label"
	case errors.Is(err, ErrDependents):
		return "dependency"
	case errors.Is(err, ErrLockUnavailable), errors.Is(err, lock.ErrConflict):
		return "lock_unavailable"
	default:
		return "store_failure"
	}
}

// MapHTTPStatus maps prompt domain errors to appropriate HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrProtectedLabels):
		return http.StatusForbidden
	case errors.Is(err, ErrDependents):
		return http.StatusConflict
	case errors.Is(err, ErrLockUnavailable):
		return http.StatusLocked
	default:
		return http.StatusInternalServerError
	}
}

func notFound(q FindQuery) error {
	if q.Version != nil {
		return fmt.Errorf("%w: '%s' version %d", ErrNotFound, q.Name, *q.Version)
	}
	return fmt.Errorf("%w: '%s' with label '%s'", ErrNotFound, q.Name, q.Resolve())
}
