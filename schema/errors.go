package schema

import "errors"

var (
	// ErrInvalidRequest indicates a malformed request payload.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmptyCommand indicates the command string was empty.
	ErrEmptyCommand = errors.New("empty command")
	// ErrEmptyFeedback indicates the submitted feedback text was empty.
	ErrEmptyFeedback = errors.New("empty feedback")
	// ErrAlreadySubmitted indicates feedback was already accepted for this session.
	ErrAlreadySubmitted = errors.New("feedback already submitted")
	// ErrPathOutsideProject indicates a browse path escaping the project directory.
	ErrPathOutsideProject = errors.New("path outside project directory")
	// ErrNotADirectory indicates a browse path pointing at a regular file.
	ErrNotADirectory = errors.New("not a directory")
	// ErrSpeechDisabled indicates no transcription credential is configured.
	ErrSpeechDisabled = errors.New("speech transcription not configured")
)
