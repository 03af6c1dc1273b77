package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrClosed         = errors.New("store closed")
	ErrEmptyEntitySet = errors.New("empty entity id set")
	ErrDuplicateID    = errors.New("duplicate id")
)
