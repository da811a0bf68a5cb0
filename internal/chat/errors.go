package chat

import "errors"

var (
	ErrEmptyMessage    = errors.New("message text and files are both empty")
	ErrNoAgentSelected = errors.New("no agent selected")
	ErrMessageNotFound = errors.New("message not found")
	ErrMessageFrozen   = errors.New("message is in a terminal state")
	ErrPendingExists   = errors.New("a message is already pending")
)
