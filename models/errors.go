package models

import (
	"errors"
	"fmt"
)

var (
	ErrAuthentication   = errors.New("authentication failed")
	ErrChallengeTimeout = errors.New("2-step verification not completed in time")
	ErrSelectorTimeout  = errors.New("selector never appeared")
	ErrDataIntegrity    = errors.New("data integrity violation")
)

// AuthenticationError is fatal for the run.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed: %s", e.Reason)
}

func (e *AuthenticationError) Unwrap() error { return ErrAuthentication }

// SelectorTimeout reports a DOM anchor that never appeared. Fatal marks
// session-establishing selectors.
type SelectorTimeout struct {
	Selector string
	Fatal    bool
}

func (e *SelectorTimeout) Error() string {
	return fmt.Sprintf("selector %q never appeared", e.Selector)
}

func (e *SelectorTimeout) Unwrap() error { return ErrSelectorTimeout }

type DataIntegrityError struct {
	Property string
	Report   ReportIdentifier
	Detail   string
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Property, e.Report, e.Detail)
}

func (e *DataIntegrityError) Unwrap() error { return ErrDataIntegrity }

// ExtractionError aborts a single report; the pipeline moves on.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsFatal reports whether err must terminate the run.
func IsFatal(err error) bool {
	if errors.Is(err, ErrAuthentication) {
		return true
	}
	var st *SelectorTimeout
	return errors.As(err, &st) && st.Fatal
}
