package domain

import "errors"

var (
	// ErrNotFound signals a missing credential. This is a normal outcome on
	// webhook paths, distinct from transient backend failures.
	ErrNotFound = errors.New("stravalink: credential not found")
	// ErrInvalidState covers every state-token failure, parse or signature
	// alike, so callers cannot tell which check rejected it.
	ErrInvalidState = errors.New("stravalink: invalid state")
	// ErrInvalidRequest indicates missing or malformed caller input.
	ErrInvalidRequest = errors.New("stravalink: invalid request")
	// ErrInvalidEvent indicates an empty or structurally malformed webhook payload.
	ErrInvalidEvent = errors.New("stravalink: invalid event payload")
	// ErrConfigMissing indicates a required secret or endpoint is not configured.
	ErrConfigMissing = errors.New("stravalink: missing configuration")
)
