package domain

import "errors"

var (
	ErrInvalidReference       = errors.New("invalid reference")
	ErrItemUnavailable        = errors.New("item unavailable")
	ErrTableUnavailable       = errors.New("table unavailable")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInvalidState           = errors.New("invalid state")
	ErrForbidden              = errors.New("forbidden")
	ErrValidation             = errors.New("validation error")
	ErrNotFound               = errors.New("not found")
)

// Kind returns the sentinel an error wraps, or nil for unclassified errors.
func Kind(err error) error {
	for _, k := range []error{
		ErrInvalidReference, ErrItemUnavailable, ErrTableUnavailable, ErrInvalidStateTransition,
		ErrInvalidState, ErrForbidden, ErrValidation, ErrNotFound,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
