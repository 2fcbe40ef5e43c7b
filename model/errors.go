package model

import "errors"

var (
	// ErrNotFound is returned by stores when a lookup matches no row.
	ErrNotFound = errors.New("record not found")

	ErrSelfConversation = errors.New("conversation participants must differ")
)
