package domain

import "errors"

// Sentinel errors used across layers.
var (
	ErrNotFound             = errors.New("not found")
	ErrSessionNotActive     = errors.New("session is not active")
	ErrNoQuestions          = errors.New("no questions available")
	ErrSubmitting           = errors.New("answer submission in progress")
	ErrInvalidRole          = errors.New("role must be A or B")
	ErrTopicLocked          = errors.New("topic is locked")
	ErrNoTopic              = errors.New("no topic selected")
	ErrRecordingUnavailable = errors.New("recording not available")
	ErrNotImplemented       = errors.New("not implemented")
	ErrNoPrompt             = errors.New("no practice prompt available")
)
