package model

import (
	"encoding/json"
	"time"
)

// DefaultWorkspaceName is the name given to a freshly created workspace.
const DefaultWorkspaceName = "Untitled Workspace"

// AccessLevel is a member's authorization tier within a workspace.
type AccessLevel string

const (
	AccessLevelView AccessLevel = "view"
	AccessLevelEdit AccessLevel = "edit"
)

// ParseAccessLevel normalizes a self-declared access level. An empty value
// means edit; anything unrecognized is treated as view.
func ParseAccessLevel(s string) AccessLevel {
	switch AccessLevel(s) {
	case "", AccessLevelEdit:
		return AccessLevelEdit
	default:
		return AccessLevelView
	}
}

// CanEdit reports whether the level permits mutating actions.
func (l AccessLevel) CanEdit() bool {
	return l == AccessLevelEdit
}

// User is one roster entry in a users:list message.
type User struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	AccessLevel AccessLevel `json:"accessLevel"`
}

// Entity is an opaque table, group or relationship record. The relay only
// ever looks at its "id" field.
type Entity map[string]json.RawMessage

// ID returns the entity's string id, or "" when absent or not a string.
func (e Entity) ID() string {
	raw, ok := e["id"]
	if !ok {
		return ""
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		return ""
	}
	return id
}

// Merge returns a new entity holding e's fields overlaid with updates.
// Neither input is modified.
func (e Entity) Merge(updates Entity) Entity {
	merged := make(Entity, len(e)+len(updates))
	for k, v := range e {
		merged[k] = v
	}
	for k, v := range updates {
		merged[k] = v
	}
	return merged
}

// WorkspaceState is the authoritative content of a workspace.
type WorkspaceState struct {
	WorkspaceName string   `json:"workspaceName"`
	Tables        []Entity `json:"tables"`
	Groups        []Entity `json:"groups"`
	Relationships []Entity `json:"relationships"`
}

// NewWorkspaceState returns the empty state of a new workspace.
func NewWorkspaceState() WorkspaceState {
	return WorkspaceState{
		WorkspaceName: DefaultWorkspaceName,
		Tables:        []Entity{},
		Groups:        []Entity{},
		Relationships: []Entity{},
	}
}

// Clone returns a copy whose slices can be mutated independently of s.
// Entities are shared; the reducer never modifies an entity in place.
func (s WorkspaceState) Clone() WorkspaceState {
	return WorkspaceState{
		WorkspaceName: s.WorkspaceName,
		Tables:        cloneEntities(s.Tables),
		Groups:        cloneEntities(s.Groups),
		Relationships: cloneEntities(s.Relationships),
	}
}

func cloneEntities(in []Entity) []Entity {
	out := make([]Entity, len(in))
	copy(out, in)
	return out
}

// ActivityKind classifies an activity record.
type ActivityKind string

const (
	ActivityJoined ActivityKind = "joined"
	ActivityLeft   ActivityKind = "left"
	ActivityDenied ActivityKind = "denied"
)

// Activity is an audit record of a presence or authorization event.
type Activity struct {
	ID          string       `json:"id"`
	WorkspaceID string       `json:"workspaceId"`
	UserID      string       `json:"userId"`
	UserName    string       `json:"userName"`
	AccessLevel AccessLevel  `json:"accessLevel"`
	Kind        ActivityKind `json:"kind"`
	Detail      string       `json:"detail,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}
