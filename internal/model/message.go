package model

import (
	"encoding/json"
	"fmt"
)

// MessageType is the discriminant carried in every message's "type" field.
type MessageType string

const (
	// Client -> Server message types
	MessageTypeJoin        MessageType = "join"
	MessageTypePing        MessageType = "ping"
	MessageTypeSyncRequest MessageType = "sync:request"

	// Edit message types, relayed in both directions
	MessageTypeTableCreate   MessageType = "table:create"
	MessageTypeTableUpdate   MessageType = "table:update"
	MessageTypeTableDelete   MessageType = "table:delete"
	MessageTypeGroupCreate   MessageType = "group:create"
	MessageTypeGroupUpdate   MessageType = "group:update"
	MessageTypeGroupDelete   MessageType = "group:delete"
	MessageTypeWorkspaceName MessageType = "workspace:name"
	MessageTypeCursorMove    MessageType = "cursor:move"

	// Server -> Client message types
	MessageTypePong         MessageType = "pong"
	MessageTypeSyncState    MessageType = "sync:state"
	MessageTypeUserJoined   MessageType = "user:joined"
	MessageTypeUserLeft     MessageType = "user:left"
	MessageTypeUsersList    MessageType = "users:list"
	MessageTypeAccessDenied MessageType = "access:denied"
)

// MutatingTypes lists the message types that change workspace state.
var MutatingTypes = []MessageType{
	MessageTypeTableCreate,
	MessageTypeTableUpdate,
	MessageTypeTableDelete,
	MessageTypeGroupCreate,
	MessageTypeGroupUpdate,
	MessageTypeGroupDelete,
	MessageTypeWorkspaceName,
}

// IsMutating reports whether messages of this type change workspace state
// and therefore require edit access.
func (t MessageType) IsMutating() bool {
	switch t {
	case MessageTypeTableCreate, MessageTypeTableUpdate, MessageTypeTableDelete,
		MessageTypeGroupCreate, MessageTypeGroupUpdate, MessageTypeGroupDelete,
		MessageTypeWorkspaceName:
		return true
	}
	return false
}

// AccessDeniedReason is the reason sent to view-only members attempting an edit.
const AccessDeniedReason = "You do not have edit access to this workspace"

// Message is one protocol message. Only the fields belonging to Type are set.
type Message struct {
	Type MessageType `json:"type"`

	// join, user:joined, cursor:move
	WorkspaceID string      `json:"workspaceId,omitempty"`
	UserID      string      `json:"userId,omitempty"`
	UserName    string      `json:"userName,omitempty"`
	AccessLevel AccessLevel `json:"accessLevel,omitempty"`

	// table:*, group:*
	Table   Entity `json:"table,omitempty"`
	TableID string `json:"tableId,omitempty"`
	Group   Entity `json:"group,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	Updates Entity `json:"updates,omitempty"`

	// workspace:name
	Name string `json:"name,omitempty"`

	// cursor:move
	X *float64 `json:"x,omitempty"`
	Y *float64 `json:"y,omitempty"`

	// sync:state
	State *WorkspaceState `json:"state,omitempty"`

	// users:list
	Users []User `json:"users,omitempty"`

	// access:denied
	Reason string `json:"reason,omitempty"`
}

// Decode parses a single JSON frame into a Message.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return &msg, nil
}

// Encode serializes a Message into a single JSON frame.
func Encode(msg *Message) ([]byte, error) {
	return json.Marshal(msg)
}

// NewJoin builds the session bootstrap message.
func NewJoin(workspaceID, userID, userName string, level AccessLevel) *Message {
	return &Message{
		Type:        MessageTypeJoin,
		WorkspaceID: workspaceID,
		UserID:      userID,
		UserName:    userName,
		AccessLevel: level,
	}
}

// NewSyncState builds a snapshot message.
func NewSyncState(state WorkspaceState) *Message {
	return &Message{Type: MessageTypeSyncState, State: &state}
}

// NewUsersList builds a roster refresh message.
func NewUsersList(users []User) *Message {
	if users == nil {
		users = []User{}
	}
	return &Message{Type: MessageTypeUsersList, Users: users}
}

// NewAccessDenied builds the private rejection sent to view-only members.
func NewAccessDenied() *Message {
	return &Message{Type: MessageTypeAccessDenied, Reason: AccessDeniedReason}
}
