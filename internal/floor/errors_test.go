package floor

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err    error
		code   Code
		status int
	}{
		{fmt.Errorf("%w: admin 1", ErrNotFound), CodeNotFound, http.StatusNotFound},
		{ErrInvalidAmount, CodeInvalidAmount, http.StatusBadRequest},
		{fmt.Errorf("wrapped: %w", ErrInsufficientFunds), CodeInsufficientFunds, http.StatusPaymentRequired},
		{ErrInvalidRole, CodeInvalidRole, http.StatusUnprocessableEntity},
		{ErrDuplicateName, CodeDuplicateName, http.StatusConflict},
		{ErrInvalidStatus, CodeInvalidStatus, http.StatusBadRequest},
		{errors.New("connection reset"), CodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.code, CodeOf(tt.err), tt.err.Error())
		assert.Equal(t, tt.status, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestCodesAreDistinct(t *testing.T) {
	seen := map[Code]bool{}
	for _, c := range codes {
		assert.False(t, seen[c.code], c.code)
		seen[c.code] = true
	}
}
