package entity

import "errors"

var (
	// MessageEvent errors
	ErrInvalidUserID  = errors.New("invalid user id")
	ErrInvalidChatID  = errors.New("invalid chat id")
	ErrInvalidEventID = errors.New("invalid message event id")
	ErrAlreadyStored  = errors.New("message event already stored")
)
