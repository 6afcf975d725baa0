package session

import "errors"

var (
	ErrContactNotFound  = errors.New("contact not found")
	ErrDuplicateContact = errors.New("contact name already in use")
	ErrInvalidContact   = errors.New("contact name is required")
	ErrInvalidGroup     = errors.New("group needs a name and at least one member")
)
