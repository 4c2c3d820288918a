package selection

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation matches every ValidationError.
	ErrValidation = errors.New("selection: validation failed")
	// ErrGroupLimit matches every LimitError.
	ErrGroupLimit = errors.New("selection: group limit reached")
	// ErrUnknownVariant is returned for a variant id the product does not offer.
	ErrUnknownVariant = errors.New("selection: unknown variant")
	// ErrUnknownOption is returned for an option or group the product does not offer.
	ErrUnknownOption = errors.New("selection: unknown option")
	// ErrUnknownIngredient is returned when excluding an ingredient the product does not list.
	ErrUnknownIngredient = errors.New("selection: unknown ingredient")
	// ErrOptionUnavailable is returned when choosing an item flagged unavailable.
	ErrOptionUnavailable = errors.New("selection: option unavailable")
)

// LimitError reports that a multi-choice group already holds its maximum
// number of selections. The selection is left unchanged.
type LimitError struct {
	GroupID string
	Group   string
	Max     int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("selection: group %q allows at most %d selection(s)", e.Group, e.Max)
}

// Is makes errors.Is(err, ErrGroupLimit) match.
func (e *LimitError) Is(target error) bool { return target == ErrGroupLimit }

// ValidationError reports a group whose selection count is outside its bounds.
type ValidationError struct {
	GroupID  string
	Group    string
	Required int
	Max      int
	Count    int
}

func (e *ValidationError) Error() string {
	if e.Count < e.Required {
		return fmt.Sprintf("selection: group %q requires at least %d selection(s), got %d", e.Group, e.Required, e.Count)
	}
	return fmt.Sprintf("selection: group %q allows at most %d selection(s), got %d", e.Group, e.Max, e.Count)
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
