package store

import "errors"

var (
	// ErrNotFound is returned for keys or records that do not exist.
	ErrNotFound = errors.New("not found")

	// ErrTitleTooShort is returned when a title has fewer than MinTitleLength characters.
	ErrTitleTooShort = errors.New("please enter a title of at least 4 characters")

	// ErrTitleExists is returned when saving under a taken title without overwrite.
	ErrTitleExists = errors.New("title already exists")
)
