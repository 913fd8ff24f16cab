package models

import "errors"

// Sampler errors
var (
	ErrPositionUnavailable = errors.New("position unavailable")
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrTimeout             = errors.New("location request timed out")
	ErrUnsupported         = errors.New("geolocation is not supported")
)

// Evaluator and storage errors
var (
	ErrInvalidLocation    = errors.New("invalid location")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// Service errors
var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrChatLocked   = errors.New("chat is locked for this pair")
	ErrInvalidInput = errors.New("invalid input")
)
