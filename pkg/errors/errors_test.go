package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", ErrDocumentNotFound, http.StatusNotFound},
		{"wrapped invalid input", fmt.Errorf("parsing limit: %w", ErrInvalidInput), http.StatusBadRequest},
		{"unsupported format", ErrUnsupportedFormat, http.StatusUnsupportedMediaType},
		{"extraction failed", ErrExtractionFailed, http.StatusUnprocessableEntity},
		{"empty document", ErrEmptyDocument, http.StatusUnprocessableEntity},
		{"rate limited", ErrRateLimited, http.StatusTooManyRequests},
		{"timeout", ErrTimeout, http.StatusServiceUnavailable},
		{"index inconsistent", ErrIndexInconsistent, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"app error wins", New(ErrDocumentNotFound, http.StatusGone, "gone"), http.StatusGone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "limit %d out of range", -1)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "invalid input: limit -1 out of range", err.Error())
}
