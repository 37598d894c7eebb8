// Package businessflow contains the core business logic and use cases for the shortener
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Link-related errors
	ErrLinkNotFound         = errors.New("link not found")
	ErrLinkInactive         = errors.New("link is inactive")
	ErrTargetURLRequired    = errors.New("target URL is required")
	ErrTargetURLInvalid     = errors.New("target URL must be a valid http or https URL")
	ErrCodeGenerationFailed = errors.New("could not generate a unique short code")

	// Analytics errors
	ErrAggregateNotFound = errors.New("link aggregate not found")
	ErrAggregateConflict = errors.New("aggregate update conflict")

	// Admin-related errors
	ErrAdminNotFound      = errors.New("admin not found")
	ErrAdminInactive      = errors.New("admin account is inactive")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrInvalidCaptcha     = errors.New("invalid captcha")
	ErrCaptchaUnavailable = errors.New("captcha service unavailable")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
	ErrInvalidDate           = errors.New("date must be RFC3339 or YYYY-MM-DD")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func IsLinkNotFound(err error) bool {
	return errors.Is(err, ErrLinkNotFound)
}

func IsLinkInactive(err error) bool {
	return errors.Is(err, ErrLinkInactive)
}

func IsTargetURLInvalid(err error) bool {
	return errors.Is(err, ErrTargetURLInvalid)
}

func IsCodeGenerationFailed(err error) bool {
	return errors.Is(err, ErrCodeGenerationFailed)
}

func IsAggregateConflict(err error) bool {
	return errors.Is(err, ErrAggregateConflict)
}

func IsAdminNotFound(err error) bool {
	return errors.Is(err, ErrAdminNotFound)
}

func IsAdminInactive(err error) bool {
	return errors.Is(err, ErrAdminInactive)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsInvalidCaptcha(err error) bool {
	return errors.Is(err, ErrInvalidCaptcha)
}

func IsStartDateAfterEndDate(err error) bool {
	return errors.Is(err, ErrStartDateAfterEndDate)
}

func IsInvalidDate(err error) bool {
	return errors.Is(err, ErrInvalidDate)
}
