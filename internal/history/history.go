// Package history keeps the list of past analyses, newest first.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/secondlook/secondlook/internal/domain"
)

// StorageKey names the stored history list.
const StorageKey = "mpesaAnalysisHistory"

// ClearPrompt is asked before the whole history is removed.
const ClearPrompt = "Are you sure you want to clear all history?"

// ErrConfirmationRequired is returned when a clear was attempted without the
// user agreeing to it.
var ErrConfirmationRequired = errors.New("history: clear requires confirmation")

// Repository is the history store. Load returns records newest first;
// Append adds a record in front; Clear removes everything.
type Repository interface {
	Load(ctx context.Context) ([]domain.HistoryRecord, error)
	Append(ctx context.Context, record domain.HistoryRecord) error
	Clear(ctx context.Context) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(prompt string) bool {
	return f(prompt)
}

// ClearWithConfirmation clears repo only if c agrees. It reports whether the
// history was cleared.
func ClearWithConfirmation(ctx context.Context, repo Repository, c Confirmer) (bool, error) {
	if c == nil || !c.Confirm(ClearPrompt) {
		return false, nil
	}
	if err := repo.Clear(ctx); err != nil {
		return false, fmt.Errorf("ClearWithConfirmation: %w", err)
	}
	return true, nil
}
