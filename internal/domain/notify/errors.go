package notify

import "errors"

// Sentinel kinds for notification lifecycle errors.
var (
	ErrNotFound       = errors.New("notification not found")
	ErrAlreadyDecided = errors.New("notification already decided")
	ErrInvalidStatus  = errors.New("invalid notification status transition")
)
