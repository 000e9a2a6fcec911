// Path: internal/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by the services wraps exactly one of these,
// so callers classify failures with errors.Is.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrDependency = errors.New("dependency failure")
	ErrTransient  = errors.New("transient infrastructure error")
)

var (
	ErrInvalidPlayers   = fmt.Errorf("%w: a session needs two distinct valid players", ErrValidation)
	ErrInvalidUsername  = fmt.Errorf("%w: invalid username", ErrValidation)
	ErrInvalidCell      = fmt.Errorf("%w: cell index must be between 0 and 8", ErrValidation)
	ErrInvalidDecision  = fmt.Errorf("%w: response must be accepted or rejected", ErrValidation)
	ErrSelfRequest      = fmt.Errorf("%w: a player cannot invite themselves", ErrValidation)
	ErrIllegalMove      = fmt.Errorf("%w: illegal move", ErrConflict)
	ErrGameFinished     = fmt.Errorf("%w: game is already finished", ErrConflict)
	ErrDuplicateRequest = fmt.Errorf("%w: a pending request already exists for this pair", ErrConflict)
	ErrPlayerExists     = fmt.Errorf("%w: player already exists", ErrConflict)
	ErrStaleWrite       = fmt.Errorf("%w: record was modified concurrently", ErrConflict)
	ErrPlayerNotFound   = fmt.Errorf("%w: player", ErrNotFound)
	ErrGameNotFound     = fmt.Errorf("%w: game", ErrNotFound)
	ErrRequestNotFound  = fmt.Errorf("%w: game request", ErrNotFound)
)

// Kind returns the error kind sentinel err wraps, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrDependency, ErrTransient} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
