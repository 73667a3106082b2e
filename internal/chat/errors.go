package chat

import "errors"

var (
	ErrOutOfTurn        = errors.New("turn is out of order")
	ErrNotAssistant     = errors.New("last turn is not from the assistant")
	ErrAborted          = errors.New("chat is aborted, reset required")
	ErrBusy             = errors.New("response is already in progress")
	ErrEmptyContent     = errors.New("content is required")
	ErrEmptyMessage     = errors.New("abort message is required")
	ErrInvalidParameter = errors.New("parameter out of range")
	ErrPromptTooLong    = errors.New("prompt exceeds token limit")
)
