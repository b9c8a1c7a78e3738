package memberrepo

import "errors"

var (
	// ErrNotFound indicates the requested member does not exist.
	ErrNotFound = errors.New("member not found")

	// ErrAlreadyExists indicates a member already exists with the provided name.
	ErrAlreadyExists = errors.New("member already exists")
)
