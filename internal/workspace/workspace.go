// Package workspace holds the in-memory authoritative state of every active
// workspace together with its connected members.
package workspace

import (
	"log/slog"
	"sync"

	"github.com/emmetthe/interactive-db/internal/model"
)

// Peer is the outbound side of a member's connection. Send must not block.
type Peer interface {
	Send(data []byte)
}

// Member is one user's live participation in a workspace.
type Member struct {
	UserID      string
	UserName    string
	AccessLevel model.AccessLevel
	Peer        Peer
}

// User returns the roster entry for the member.
func (m *Member) User() model.User {
	return model.User{ID: m.UserID, Name: m.UserName, AccessLevel: m.AccessLevel}
}

// Workspace is a shared diagram and the members editing it. All state
// changes and the broadcasts describing them happen under one lock, so every
// member observes edits in the order they were applied.
type Workspace struct {
	id      string
	state   model.WorkspaceState
	members map[string]*Member
	order   []string
	mu      sync.Mutex
}

func newWorkspace(id string) *Workspace {
	return &Workspace{
		id:      id,
		state:   model.NewWorkspaceState(),
		members: make(map[string]*Member),
	}
}

// ID returns the workspace key.
func (w *Workspace) ID() string {
	return w.id
}

// Snapshot returns a copy of the current authoritative state.
func (w *Workspace) Snapshot() model.WorkspaceState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.Clone()
}

// Users returns the roster in join order.
func (w *Workspace) Users() []model.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.usersLocked()
}

// MemberCount returns the number of connected members.
func (w *Workspace) MemberCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.members)
}

// Member returns the member registered under userID.
func (w *Workspace) Member(userID string) (*Member, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	m, ok := w.members[userID]
	return m, ok
}

// Publish applies an edit to the authoritative state and then relays raw,
// the message exactly as received, to every member except sender.
func (w *Workspace) Publish(msg *model.Message, raw []byte, sender *Member) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	changed := Apply(&w.state, msg)
	w.broadcastLocked(raw, sender)
	return changed
}

// SendSnapshot sends m a private sync:state message.
func (w *Workspace) SendSnapshot(m *Member) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sendLocked(m, model.NewSyncState(w.state.Clone()))
}

// Broadcast encodes msg and sends it to every member except the excluded one.
func (w *Workspace) Broadcast(msg *model.Message, except *Member) {
	data, err := model.Encode(msg)
	if err != nil {
		slog.Error("failed to encode broadcast", "workspace_id", w.id, "type", msg.Type, "error", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.broadcastLocked(data, except)
}

// admit registers m, replacing any member with the same user ID, sends it
// the current snapshot and announces it to everyone.
func (w *Workspace) admit(m *Member) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, exists := w.members[m.UserID]; !exists {
		w.order = append(w.order, m.UserID)
	}
	w.members[m.UserID] = m

	w.sendLocked(m, model.NewSyncState(w.state.Clone()))
	w.broadcastMessageLocked(&model.Message{
		Type:        model.MessageTypeUserJoined,
		UserID:      m.UserID,
		UserName:    m.UserName,
		AccessLevel: m.AccessLevel,
	}, m)
	w.broadcastMessageLocked(model.NewUsersList(w.usersLocked()), nil)
}

// remove deletes the member registered under userID. When m is non-nil the
// entry is only removed if it is still m, so a stale connection closing
// cannot evict a newer one for the same user. Remaining members are told
// about the departure. It returns whether a member was removed and how many
// members remain.
func (w *Workspace) remove(userID string, m *Member) (bool, int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	current, ok := w.members[userID]
	if !ok || (m != nil && current != m) {
		return false, len(w.members)
	}
	delete(w.members, userID)
	for i, id := range w.order {
		if id == userID {
			w.order = append(w.order[:i], w.order[i+1:]...)
			break
		}
	}

	if len(w.members) > 0 {
		w.broadcastMessageLocked(&model.Message{Type: model.MessageTypeUserLeft, UserID: userID}, nil)
		w.broadcastMessageLocked(model.NewUsersList(w.usersLocked()), nil)
	}
	return true, len(w.members)
}

func (w *Workspace) usersLocked() []model.User {
	users := make([]model.User, 0, len(w.order))
	for _, id := range w.order {
		users = append(users, w.members[id].User())
	}
	return users
}

func (w *Workspace) sendLocked(m *Member, msg *model.Message) {
	data, err := model.Encode(msg)
	if err != nil {
		slog.Error("failed to encode message", "workspace_id", w.id, "type", msg.Type, "error", err)
		return
	}
	m.Peer.Send(data)
}

func (w *Workspace) broadcastMessageLocked(msg *model.Message, except *Member) {
	data, err := model.Encode(msg)
	if err != nil {
		slog.Error("failed to encode broadcast", "workspace_id", w.id, "type", msg.Type, "error", err)
		return
	}
	w.broadcastLocked(data, except)
}

func (w *Workspace) broadcastLocked(data []byte, except *Member) {
	for _, id := range w.order {
		m := w.members[id]
		if m == except {
			continue
		}
		m.Peer.Send(data)
	}
}
