// Package apperr defines the machine-readable error taxonomy shared by every
// storefront component. Business rule violations are *Error values; anything
// else reaching the HTTP boundary is reported as Internal.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/go-faster/errors"
)

// Code is a stable, machine-readable error code returned to API clients.
type Code string

const (
	Validation            Code = "VALIDATION_ERROR"
	NotFound              Code = "NOT_FOUND"
	AccessDenied          Code = "ACCESS_DENIED"
	Unauthenticated       Code = "UNAUTHENTICATED"
	InvalidStatus         Code = "INVALID_STATUS"
	PaymentMethodNotFound Code = "PAYMENT_METHOD_NOT_FOUND"
	PaymentExists         Code = "PAYMENT_EXISTS"
	CouponInvalid         Code = "COUPON_INVALID"
	AlreadyUsed           Code = "ALREADY_USED"
	RateLimited           Code = "RATE_LIMITED"
	Internal              Code = "INTERNAL_ERROR"
)

// HTTPStatus returns the response status used for the code.
func (c Code) HTTPStatus() int {
	switch c {
	case Validation, InvalidStatus, PaymentMethodNotFound, PaymentExists, CouponInvalid, AlreadyUsed:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case AccessDenied:
		return http.StatusForbidden
	case Unauthenticated:
		return http.StatusUnauthorized
	case RateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a business error carrying a code and a message that is safe to
// show to the caller.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New returns an *Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf is like New but formats the message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// From extracts the first *Error in err's chain.
func From(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or Internal.
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code
	}
	return Internal
}
