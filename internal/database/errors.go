package database

import "errors"

var (
	// ErrNotConnected is returned when an accessor is used after Close or
	// before a successful Open.
	ErrNotConnected = errors.New("database is not connected")

	// ErrNotFound is returned when a referenced item, collection, tag or
	// attachment does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidReference is returned when a mutation names a parent row
	// that does not exist, e.g. adding a note under a missing item.
	ErrInvalidReference = errors.New("referenced record does not exist")

	// ErrIntegrity is returned when the integrity probe fails. Callers
	// must treat this as fatal and never retry without intervention.
	ErrIntegrity = errors.New("database integrity check failed")

	// ErrAttachmentUnresolvable is returned when an attachment path cannot
	// be resolved to an absolute filesystem path.
	ErrAttachmentUnresolvable = errors.New("attachment path cannot be resolved")
)
