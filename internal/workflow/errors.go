package workflow

import (
	"errors"

	"revoice/internal/synthesis"
)

var (
	// ErrUnsupportedFormat rejects uploads whose extension is not an accepted container.
	ErrUnsupportedFormat = errors.New("unsupported video format")
	// ErrRecognitionUnavailable reports that speech recognition could not be reached or is not configured.
	ErrRecognitionUnavailable = errors.New("speech recognition unavailable")
	// ErrExtractionFailed reports that the audio track could not be extracted.
	ErrExtractionFailed = errors.New("audio extraction failed")
	// ErrNoVoiceSelected reports an empty voice identifier.
	ErrNoVoiceSelected = synthesis.ErrNoVoiceSelected
	// ErrSegmentsMissing rejects synthesis when analysis produced no segments.
	ErrSegmentsMissing = errors.New("no recognized segments")
	// ErrSynthesisPipelineFailed wraps any failure after synthesis started.
	ErrSynthesisPipelineFailed = errors.New("synthesis pipeline failed")
	// ErrTaskNotFound reports an unknown task id.
	ErrTaskNotFound = errors.New("task not found")
	// ErrForbidden reports that the caller neither owns the task nor is an administrator.
	ErrForbidden = errors.New("task belongs to another user")
	// ErrTaskBusy rejects a stage request while another stage is running.
	ErrTaskBusy = errors.New("task stage already running")
	// ErrInvalidState rejects a stage request the current status does not allow.
	ErrInvalidState = errors.New("task is not in a valid state for this operation")
	// ErrNotCompleted rejects downloads before the task completes.
	ErrNotCompleted = errors.New("task has not completed")
)
