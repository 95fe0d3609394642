package sentinel

import "errors"

// Sentinel dependency errors. Stores return these (optionally wrapped) so
// services translate them into domain errors exactly once.
var (
	ErrNotFound    = errors.New("not found")
	ErrExpired     = errors.New("expired")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
)
