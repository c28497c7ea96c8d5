package workspace

import "github.com/emmetthe/interactive-db/internal/model"

// Apply folds one message into state and reports whether anything changed.
// Types outside the seven mutating actions leave state untouched. Entities
// are replaced, never modified in place, so earlier snapshots stay valid.
func Apply(state *model.WorkspaceState, msg *model.Message) bool {
	switch msg.Type {
	case model.MessageTypeTableCreate:
		state.Tables = append(state.Tables, msg.Table)
		return true
	case model.MessageTypeTableUpdate:
		return mergeByID(state.Tables, msg.TableID, msg.Updates)
	case model.MessageTypeTableDelete:
		var removed bool
		state.Tables, removed = removeByID(state.Tables, msg.TableID)
		return removed
	case model.MessageTypeGroupCreate:
		state.Groups = append(state.Groups, msg.Group)
		return true
	case model.MessageTypeGroupUpdate:
		return mergeByID(state.Groups, msg.GroupID, msg.Updates)
	case model.MessageTypeGroupDelete:
		var removed bool
		state.Groups, removed = removeByID(state.Groups, msg.GroupID)
		return removed
	case model.MessageTypeWorkspaceName:
		state.WorkspaceName = msg.Name
		return true
	}
	return false
}

// mergeByID shallow-merges updates onto the first entity whose id matches.
func mergeByID(entities []model.Entity, id string, updates model.Entity) bool {
	for i, e := range entities {
		if e.ID() == id {
			entities[i] = e.Merge(updates)
			return true
		}
	}
	return false
}

// removeByID drops every entity whose id matches. The returned slice never
// aliases the input so snapshots sharing the old backing array are unaffected.
func removeByID(entities []model.Entity, id string) ([]model.Entity, bool) {
	kept := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		if e.ID() != id {
			kept = append(kept, e)
		}
	}
	return kept, len(kept) != len(entities)
}
