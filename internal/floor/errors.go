package floor

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidRole       = errors.New("invalid role")
	ErrDuplicateName     = errors.New("duplicate name")
	ErrInvalidStatus     = errors.New("invalid status")
)

// Code is the stable identifier the request layer renders for an error.
type Code string

const (
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeInvalidRole       Code = "INVALID_ROLE"
	CodeDuplicateName     Code = "DUPLICATE_NAME"
	CodeInvalidStatus     Code = "INVALID_STATUS"
	CodeInternal          Code = "INTERNAL"
)

var codes = []struct {
	err    error
	code   Code
	status int
}{
	{ErrNotFound, CodeNotFound, http.StatusNotFound},
	{ErrInvalidAmount, CodeInvalidAmount, http.StatusBadRequest},
	{ErrInsufficientFunds, CodeInsufficientFunds, http.StatusPaymentRequired},
	{ErrInvalidRole, CodeInvalidRole, http.StatusUnprocessableEntity},
	{ErrDuplicateName, CodeDuplicateName, http.StatusConflict},
	{ErrInvalidStatus, CodeInvalidStatus, http.StatusBadRequest},
}

// CodeOf classifies err. Anything outside the taxonomy is CodeInternal.
func CodeOf(err error) Code {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternal
}

// HTTPStatus is the response status for err.
func HTTPStatus(err error) int {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.status
		}
	}
	return http.StatusInternalServerError
}
