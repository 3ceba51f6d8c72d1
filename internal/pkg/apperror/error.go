package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies the category of error
type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindNotFound        Kind = "not_found"
	KindExpired         Kind = "expired"
	KindExhausted       Kind = "exhausted"
	KindMismatch        Kind = "mismatch"
	KindAlreadyResolved Kind = "already_resolved"
	KindForbidden       Kind = "forbidden"
	KindDeliveryFailed  Kind = "delivery_failed"
	KindStorageConflict Kind = "storage_conflict"
	KindRateLimited     Kind = "rate_limited"
	KindInternal        Kind = "internal_error"
)

// AppError represents RFC 7807 Problem Details
type AppError struct {
	Kind      Kind              `json:"-"`
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Detail    string            `json:"detail"`
	Instance  string            `json:"instance,omitempty"`
	Action    string            `json:"action,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
	err       error             // internal error for logging
}

func (e *AppError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Title, e.err)
	}
	return e.Title
}

func (e *AppError) Unwrap() error {
	return e.err
}

func (e *AppError) WithError(err error) *AppError {
	e.err = err
	return e
}

func (e *AppError) WithRequestID(id string) *AppError {
	e.RequestID = id
	return e
}

func (e *AppError) WithInstance(instance string) *AppError {
	e.Instance = instance
	return e
}

func (e *AppError) WithErrors(errs map[string]string) *AppError {
	e.Errors = errs
	return e
}

// KindOf extracts the Kind from an error chain, or "" if the error
// is not an AppError.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func ValidationError(detail, action string) *AppError {
	return &AppError{
		Kind:   KindValidation,
		Type:   "https://jiralite.app/errors/validation",
		Title:  "Invalid input",
		Status: http.StatusBadRequest,
		Detail: detail,
		Action: action,
	}
}

func NotFoundError(resource string) *AppError {
	return &AppError{
		Kind:   KindNotFound,
		Type:   "https://jiralite.app/errors/not-found",
		Title:  "Not found",
		Status: http.StatusNotFound,
		Detail: fmt.Sprintf("No %s was found", resource),
		Action: "Check the identifier and try again",
	}
}

// ExpiredError signals that a code or invitation is past its validity window.
// Terminal: the caller must request a fresh one.
func ExpiredError(detail, action string) *AppError {
	return &AppError{
		Kind:   KindExpired,
		Type:   "https://jiralite.app/errors/expired",
		Title:  "Expired",
		Status: http.StatusGone,
		Detail: detail,
		Action: action,
	}
}

// ExhaustedError signals that the guess budget for a code is spent.
func ExhaustedError(detail, action string) *AppError {
	return &AppError{
		Kind:   KindExhausted,
		Type:   "https://jiralite.app/errors/exhausted",
		Title:  "Attempt limit reached",
		Status: http.StatusLocked,
		Detail: detail,
		Action: action,
	}
}

// MismatchError signals an incorrect candidate secret.
func MismatchError(detail, action string) *AppError {
	return &AppError{
		Kind:   KindMismatch,
		Type:   "https://jiralite.app/errors/mismatch",
		Title:  "Verification failed",
		Status: http.StatusUnauthorized,
		Detail: detail,
		Action: action,
	}
}

// AlreadyResolvedError signals that an invitation reached a terminal
// status before this request.
func AlreadyResolvedError(detail string) *AppError {
	return &AppError{
		Kind:   KindAlreadyResolved,
		Type:   "https://jiralite.app/errors/already-resolved",
		Title:  "Already resolved",
		Status: http.StatusConflict,
		Detail: detail,
		Action: "Ask the project owner for a new invitation if needed",
	}
}

func ForbiddenError(detail string) *AppError {
	return &AppError{
		Kind:   KindForbidden,
		Type:   "https://jiralite.app/errors/forbidden",
		Title:  "Forbidden",
		Status: http.StatusForbidden,
		Detail: detail,
		Action: "Contact the project owner for access",
	}
}

// DeliveryFailedError signals that the outbound email could not be sent.
// The issued secret stays valid; callers may offer a resend path.
func DeliveryFailedError(detail string) *AppError {
	return &AppError{
		Kind:   KindDeliveryFailed,
		Type:   "https://jiralite.app/errors/delivery-failed",
		Title:  "Email delivery failed",
		Status: http.StatusBadGateway,
		Detail: detail,
		Action: "Use the resend option to request a new email",
	}
}

// StorageConflictError signals a lost concurrent-update race. The caller
// should retry the whole operation once, not just the comparison.
func StorageConflictError(detail string) *AppError {
	return &AppError{
		Kind:   KindStorageConflict,
		Type:   "https://jiralite.app/errors/storage-conflict",
		Title:  "Concurrent update conflict",
		Status: http.StatusConflict,
		Detail: detail,
		Action: "Retry the request",
	}
}

func RateLimitError(detail, action string) *AppError {
	return &AppError{
		Kind:   KindRateLimited,
		Type:   "https://jiralite.app/errors/rate-limit",
		Title:  "Too many requests",
		Status: http.StatusTooManyRequests,
		Detail: detail,
		Action: action,
	}
}

func InternalError(detail, action string) *AppError {
	return &AppError{
		Kind:   KindInternal,
		Type:   "https://jiralite.app/errors/internal",
		Title:  "Internal error",
		Status: http.StatusInternalServerError,
		Detail: detail,
		Action: action,
	}
}
