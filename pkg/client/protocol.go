package client

import (
	"github.com/emmetthe/interactive-db/internal/model"
)

// Re-export protocol types from internal/model for external use
type (
	Message        = model.Message
	MessageType    = model.MessageType
	AccessLevel    = model.AccessLevel
	Entity         = model.Entity
	WorkspaceState = model.WorkspaceState
	User           = model.User
)

const (
	AccessLevelView = model.AccessLevelView
	AccessLevelEdit = model.AccessLevelEdit

	MessageTypeJoin          = model.MessageTypeJoin
	MessageTypePing          = model.MessageTypePing
	MessageTypePong          = model.MessageTypePong
	MessageTypeSyncRequest   = model.MessageTypeSyncRequest
	MessageTypeSyncState     = model.MessageTypeSyncState
	MessageTypeTableCreate   = model.MessageTypeTableCreate
	MessageTypeTableUpdate   = model.MessageTypeTableUpdate
	MessageTypeTableDelete   = model.MessageTypeTableDelete
	MessageTypeGroupCreate   = model.MessageTypeGroupCreate
	MessageTypeGroupUpdate   = model.MessageTypeGroupUpdate
	MessageTypeGroupDelete   = model.MessageTypeGroupDelete
	MessageTypeWorkspaceName = model.MessageTypeWorkspaceName
	MessageTypeCursorMove    = model.MessageTypeCursorMove
	MessageTypeUserJoined    = model.MessageTypeUserJoined
	MessageTypeUserLeft      = model.MessageTypeUserLeft
	MessageTypeUsersList     = model.MessageTypeUsersList
	MessageTypeAccessDenied  = model.MessageTypeAccessDenied
)

var (
	// ErrViewOnly is returned by Send for mutating messages under view access.
	ErrViewOnly = model.ErrViewOnly

	// ErrReconnectExhausted is passed to OnGiveUp once reconnecting stops.
	ErrReconnectExhausted = model.ErrReconnectExhausted
)

// Decode parses one inbound frame.
func Decode(data []byte) (*Message, error) {
	return model.Decode(data)
}
