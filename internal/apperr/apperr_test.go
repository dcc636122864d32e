package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindAndStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		status int
	}{
		{NotFound, http.StatusNotFound},
		{Expired, http.StatusBadRequest},
		{Validation, http.StatusBadRequest},
		{AlreadyMarked, http.StatusConflict},
		{AlreadyAttempted, http.StatusConflict},
		{Unauthorized, http.StatusForbidden},
	}
	for _, tt := range tests {
		err := New(tt.kind, "boom")
		assert.True(t, Is(err, tt.kind))
		assert.Equal(t, tt.status, HTTPStatus(err))
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("redeem: %w", New(AlreadyMarked, "attendance already marked for today"))
	assert.Equal(t, AlreadyMarked, KindOf(err))
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
}

func TestPlainErrorsAreInternal(t *testing.T) {
	err := errors.New("connection refused")
	assert.Equal(t, Kind(0), KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(err))
}
