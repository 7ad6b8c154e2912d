package actions

import "errors"

var (
	ErrUnknownKind     = errors.New("unknown action kind")
	ErrUnknownAction   = errors.New("unknown action")
	ErrUnknownResource = errors.New("unknown resource")
	ErrUnknownOutput   = errors.New("unknown output")
	ErrCycle           = errors.New("action contains itself")
	ErrInvalidParams   = errors.New("invalid action params")
)
