package reactionroles

import (
	"errors"
	"fmt"
)

var (
	//ErrActive is returned when an operation needs an inactive reaction role
	ErrActive = errors.New("reaction role is active")
	//ErrInactive is returned when an operation needs an active reaction role
	ErrInactive = errors.New("reaction role is not active")
	//ErrInvalidRole is wrapped by every ValidationError about a role
	ErrInvalidRole = errors.New("invalid role")
	//ErrInvalidEmoji is wrapped by every ValidationError about an emoji
	ErrInvalidEmoji = errors.New("invalid emoji")
	//ErrInvalidMessage is wrapped by every ValidationError about a target message or channel
	ErrInvalidMessage = errors.New("invalid message")
)

//ValidationError is a user-facing rejection of some input
type ValidationError struct {
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(kind error, format string, args ...interface{}) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...), Err: kind}
}

//IsValidation returns the reason of a ValidationError anywhere in the chain
func IsValidation(err error) (string, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Reason, true
	}
	return "", false
}
