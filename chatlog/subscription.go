package chatlog

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

//ErrInvalidSubscription is wrapped by every rejection of chat log input
var ErrInvalidSubscription = errors.New("invalid chat log")

//ValidateName trims a chat log name and rejects blank or overly long ones
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return "", fmt.Errorf("%w: the name must not be empty", ErrInvalidSubscription)
	case len(name) > 100:
		return "", fmt.Errorf("%w: the name must be at most 100 characters long", ErrInvalidSubscription)
	}
	return name, nil
}

//ValidateChannelKey checks a game chat channel key such as `public-en` or a fleet key
func ValidateChannelKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%w: the channel key must not be empty", ErrInvalidSubscription)
	}
	if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
		return "", fmt.Errorf("%w: the channel key must not contain spaces", ErrInvalidSubscription)
	}
	return key, nil
}
