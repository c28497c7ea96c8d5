package client

import (
	"sync"

	"github.com/emmetthe/interactive-db/internal/model"
	"github.com/emmetthe/interactive-db/internal/workspace"
)

// Replica is a local copy of a workspace kept up to date from relay
// messages. It folds edits with the same reducer the relay uses.
type Replica struct {
	mu     sync.RWMutex
	state  WorkspaceState
	users  []User
	synced bool
}

// NewReplica returns a replica holding the default empty workspace.
func NewReplica() *Replica {
	return &Replica{state: model.NewWorkspaceState()}
}

// Apply folds msg into the replica and reports whether anything changed.
// sync:state replaces the whole state; presence messages update the roster.
func (r *Replica) Apply(msg *Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch msg.Type {
	case MessageTypeSyncState:
		if msg.State == nil {
			return false
		}
		r.state = msg.State.Clone()
		r.synced = true
		return true
	case MessageTypeUsersList:
		r.users = append([]User(nil), msg.Users...)
		return true
	case MessageTypeUserJoined:
		for _, u := range r.users {
			if u.ID == msg.UserID {
				return false
			}
		}
		r.users = append(r.users, User{ID: msg.UserID, Name: msg.UserName, AccessLevel: msg.AccessLevel})
		return true
	case MessageTypeUserLeft:
		for i, u := range r.users {
			if u.ID == msg.UserID {
				r.users = append(r.users[:i:i], r.users[i+1:]...)
				return true
			}
		}
		return false
	}
	return workspace.Apply(&r.state, msg)
}

// Attach registers the replica with m for every message type that affects
// it. then, if non-nil, runs after each applied message.
func (r *Replica) Attach(m *Manager, then HandlerFunc) {
	types := append([]MessageType{
		MessageTypeSyncState,
		MessageTypeUsersList,
		MessageTypeUserJoined,
		MessageTypeUserLeft,
	}, model.MutatingTypes...)

	for _, t := range types {
		m.Handle(t, func(msg *Message) {
			r.Apply(msg)
			if then != nil {
				then(msg)
			}
		})
	}
}

// State returns a copy of the local workspace state.
func (r *Replica) State() WorkspaceState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Clone()
}

// Users returns the last known roster.
func (r *Replica) Users() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]User(nil), r.users...)
}

// Synced reports whether a snapshot has been received.
func (r *Replica) Synced() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.synced
}
