// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// Validation errors, rejected before any side effect.
var (
	ErrEmptyContactList     = errors.New("contact list is empty")
	ErrOutsideBusinessHours = errors.New("send time must be between 07:00 and 21:00")
	ErrInsufficientLeadTime = errors.New("same-day campaigns need at least 10 minutes of lead time")
)

// Lifecycle-transition violations. Reported explicitly, never silently ignored.
var (
	ErrAlreadyPaused     = errors.New("campaign is already paused")
	ErrPauseCompleted    = errors.New("cannot pause a completed campaign")
	ErrContinueNotPaused = errors.New("only a paused campaign can be continued")
	ErrDeleteCompleted   = errors.New("completed campaigns are kept as history and cannot be deleted")
)

// ErrCampaignNotFound is a sentinel error
type ErrCampaignNotFound struct {
	CampaignID int
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %d not found", e.CampaignID)
}

// Helper constructor
func NewCampaignNotFound(id int) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrQuotaExceeded carries the exact remaining count so callers can tell the
// user how many contacts still fit in the day.
type ErrQuotaExceeded struct {
	Requested int
	Available int
	Date      string
}

func (e *ErrQuotaExceeded) Error() string {
	return fmt.Sprintf("daily quota exceeded for %s: requested %d, only %d available", e.Date, e.Requested, e.Available)
}

func NewQuotaExceeded(date string, requested, available int) error {
	return &ErrQuotaExceeded{Requested: requested, Available: available, Date: date}
}

// ErrProvider wraps a non-2xx response from the dispatch provider.
type ErrProvider struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *ErrProvider) Error() string {
	return fmt.Sprintf("dispatch provider %s failed with status %d: %s", e.Operation, e.StatusCode, e.Body)
}

// IsValidation reports whether err is a synchronous pre-dispatch rejection.
func IsValidation(err error) bool {
	var quota *ErrQuotaExceeded
	return errors.Is(err, ErrEmptyContactList) ||
		errors.Is(err, ErrOutsideBusinessHours) ||
		errors.Is(err, ErrInsufficientLeadTime) ||
		errors.As(err, &quota)
}

// IsLifecycle reports whether err is an illegal state-machine transition.
func IsLifecycle(err error) bool {
	return errors.Is(err, ErrAlreadyPaused) ||
		errors.Is(err, ErrPauseCompleted) ||
		errors.Is(err, ErrContinueNotPaused) ||
		errors.Is(err, ErrDeleteCompleted)
}
