package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/service"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrNilParameter = errors.New("parameter cannot be nil")
	ErrInvalidRun   = errors.New("invalid run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun checks the fields every persisted run needs.
func validateRun(run *service.RunRecord) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	if run.FinishedAt.Before(run.StartedAt) {
		return fmt.Errorf("%w: finished before it started", ErrInvalidRun)
	}

	seen := make(map[model.AccountClass]bool, len(run.Classes))
	for _, c := range run.Classes {
		if !c.Class.Known() {
			return fmt.Errorf("%w: unknown class %q", ErrInvalidRun, c.Class)
		}
		if seen[c.Class] {
			return fmt.Errorf("%w: class %s recorded twice", ErrInvalidRun, c.Class)
		}
		seen[c.Class] = true
	}
	return nil
}
