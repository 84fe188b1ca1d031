// Package repo defines the error taxonomy shared by all entity repositories.
package repo

import "errors"

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned when a create or update violates a uniqueness
	// constraint. The underlying unique index makes the check atomic: of two
	// concurrent duplicate creates exactly one receives this error.
	ErrConflict = errors.New("entity already exists")

	// ErrGalleryNotEmpty is returned when deleting a gallery that still
	// contains images.
	ErrGalleryNotEmpty = errors.New("gallery is not empty")
)
