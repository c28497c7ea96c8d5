package workspace

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/emmetthe/interactive-db/internal/model"
)

// Summary describes an active workspace for introspection.
type Summary struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Members       int    `json:"members"`
	Tables        int    `json:"tables"`
	Groups        int    `json:"groups"`
	Relationships int    `json:"relationships"`
}

// Registry maps workspace IDs to live workspaces. A workspace exists from
// the first join naming it until its last member leaves.
type Registry struct {
	workspaces map[string]*Workspace
	mu         sync.Mutex
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		workspaces: make(map[string]*Workspace),
	}
}

// GetOrCreate returns the workspace for id, creating an empty one if needed.
func (r *Registry) GetOrCreate(id string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(id)
}

func (r *Registry) getOrCreateLocked(id string) *Workspace {
	if ws, ok := r.workspaces[id]; ok {
		return ws
	}
	ws := newWorkspace(id)
	r.workspaces[id] = ws
	slog.Info("workspace created", "workspace_id", id)
	return ws
}

// Get returns the workspace for id, or nil if it is not active.
func (r *Registry) Get(id string) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.workspaces[id]
}

// Lookup returns the active workspace for id, or an error wrapping
// model.ErrWorkspaceNotFound.
func (r *Registry) Lookup(id string) (*Workspace, error) {
	if ws := r.Get(id); ws != nil {
		return ws, nil
	}
	return nil, fmt.Errorf("workspace %s: %w", id, model.ErrWorkspaceNotFound)
}

// Join adds m to the workspace for id, creating the workspace if needed.
// The new member receives a snapshot and the others are notified.
func (r *Registry) Join(id string, m *Member) *Workspace {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws := r.getOrCreateLocked(id)
	ws.admit(m)
	return ws
}

// Leave removes m from the workspace for id if it is still the registered
// member for its user, notifies the remaining members and destroys the
// workspace once it is empty.
func (r *Registry) Leave(id string, m *Member) bool {
	return r.removeMember(id, m.UserID, m)
}

// RemoveMember removes whichever member is registered under userID and
// destroys the workspace once it is empty.
func (r *Registry) RemoveMember(id, userID string) bool {
	return r.removeMember(id, userID, nil)
}

func (r *Registry) removeMember(id, userID string, m *Member) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ws, ok := r.workspaces[id]
	if !ok {
		return false
	}
	removed, remaining := ws.remove(userID, m)
	if remaining == 0 {
		delete(r.workspaces, id)
		slog.Info("workspace deleted (no active users)", "workspace_id", id)
	}
	return removed
}

// List returns summaries of all active workspaces ordered by ID.
func (r *Registry) List() []Summary {
	r.mu.Lock()
	workspaces := make([]*Workspace, 0, len(r.workspaces))
	for _, ws := range r.workspaces {
		workspaces = append(workspaces, ws)
	}
	r.mu.Unlock()

	summaries := make([]Summary, 0, len(workspaces))
	for _, ws := range workspaces {
		ws.mu.Lock()
		summaries = append(summaries, Summary{
			ID:            ws.id,
			Name:          ws.state.WorkspaceName,
			Members:       len(ws.members),
			Tables:        len(ws.state.Tables),
			Groups:        len(ws.state.Groups),
			Relationships: len(ws.state.Relationships),
		})
		ws.mu.Unlock()
	}
	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })
	return summaries
}

// Len returns the number of active workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workspaces)
}
