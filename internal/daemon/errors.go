package daemon

import (
	"errors"
	"net/http"

	"revoice/internal/fileutil"
	"revoice/internal/services"
	"revoice/internal/workflow"
)

// statusForError maps workflow and service errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrTaskNotFound), errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrForbidden), errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrTaskBusy), errors.Is(err, workflow.ErrInvalidState), errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, fileutil.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, workflow.ErrUnsupportedFormat),
		errors.Is(err, workflow.ErrNoVoiceSelected),
		errors.Is(err, workflow.ErrSegmentsMissing),
		errors.Is(err, workflow.ErrNotCompleted),
		errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrRecognitionUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
