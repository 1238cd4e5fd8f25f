package domain

import "errors"

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrAlreadyMember  = errors.New("user already a member of the group")
	ErrNotMember      = errors.New("user is not a member of the group")
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrMessageTooLong = errors.New("message is too long")
	ErrMessageIDTaken = errors.New("message id belongs to another group or sender")
)
