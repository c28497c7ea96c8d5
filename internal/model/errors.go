package model

import "errors"

var (
	// ErrMalformedMessage is returned when an inbound frame is not a valid protocol message.
	ErrMalformedMessage = errors.New("malformed message")

	// ErrInvalidJoin is returned when a join message lacks a workspace or user ID.
	ErrInvalidJoin = errors.New("join requires workspaceId and userId")

	// ErrWorkspaceNotFound is returned when a workspace is not active in the registry.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrViewOnly is returned when a view-only member attempts a mutating action.
	ErrViewOnly = errors.New("view-only access")

	// ErrNotConnected is returned when a transport write is attempted without a live connection.
	ErrNotConnected = errors.New("not connected")

	// ErrReconnectExhausted is returned once the client has used up its reconnect attempts.
	ErrReconnectExhausted = errors.New("maximum reconnection attempts reached")
)
