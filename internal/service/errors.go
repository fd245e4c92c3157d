package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrChildNotFound      = fmt.Errorf("child %w", ErrNotFound)
	ErrAccountNotFound    = fmt.Errorf("account %w", ErrNotFound)
	ErrTemplateNotFound   = fmt.Errorf("task template %w", ErrNotFound)
	ErrUsernameTaken      = errors.New("username already taken")
	ErrAlreadyLinked      = errors.New("child is already linked to this parent")
	ErrInvitationExpired  = errors.New("invitation expired")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
