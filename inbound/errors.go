package inbound

import (
	"errors"
	"fmt"
	"strings"

	"wmsinbound/repository"
)

var (
	ErrNotFound          = repository.ErrNotFound
	ErrAlreadyProcessed  = errors.New("already processed, cannot modify")
	ErrMissingPhotos     = errors.New("missing required photos")
	ErrValidation        = errors.New("validation failed")
	ErrUnknownSlot       = errors.New("unknown photo slot")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPartialBatch      = errors.New("receipt lines partially saved")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// MissingPhotosError lists the titles of required slots that are short of photos.
type MissingPhotosError struct {
	Slots []string
}

func (e *MissingPhotosError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingPhotos, strings.Join(e.Slots, ", "))
}

func (e *MissingPhotosError) Unwrap() error {
	return ErrMissingPhotos
}

// LineBatchError reports the lines of a batch that failed to persist. Lines
// that were written stay written.
type LineBatchError struct {
	Saved  int
	Failed int
	Err    error
}

func (e *LineBatchError) Error() string {
	return fmt.Sprintf("%d of %d receipt lines failed: %v", e.Failed, e.Saved+e.Failed, e.Err)
}

func (e *LineBatchError) Unwrap() []error {
	return []error{ErrPartialBatch, e.Err}
}
