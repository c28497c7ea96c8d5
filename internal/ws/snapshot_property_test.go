package ws

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/emmetthe/interactive-db/internal/model"
	"github.com/emmetthe/interactive-db/internal/workspace"
)

// editFrame maps n onto one client frame over a small id space, so updates
// and deletes often hit entities created earlier in the sequence.
func editFrame(n int) []byte {
	id := fmt.Sprintf("e%d", (n/8)%4)
	value := fmt.Sprintf("v%d", n/32)

	var msg map[string]any
	switch n % 8 {
	case 0:
		msg = map[string]any{"type": "table:create", "table": map[string]any{"id": id, "v": value}}
	case 1:
		msg = map[string]any{"type": "table:update", "tableId": id, "updates": map[string]any{"v": value}}
	case 2:
		msg = map[string]any{"type": "table:delete", "tableId": id}
	case 3:
		msg = map[string]any{"type": "group:create", "group": map[string]any{"id": id, "v": value}}
	case 4:
		msg = map[string]any{"type": "group:update", "groupId": id, "updates": map[string]any{"v": value}}
	case 5:
		msg = map[string]any{"type": "group:delete", "groupId": id}
	case 6:
		msg = map[string]any{"type": "workspace:name", "name": value}
	default:
		msg = map[string]any{"type": "cursor:move", "x": n % 100, "y": n % 50}
	}
	data, _ := json.Marshal(msg)
	return data
}

func TestJoinSnapshotFidelityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("a late joiner's snapshot equals the fold of accepted edits", prop.ForAll(
		func(ops []int) bool {
			registry := workspace.NewRegistry()
			editor, editorClient := newTestSession(registry, nil)
			viewer, viewerClient := newTestSession(registry, nil)
			editor.handle(joinFrame("w", "editor", "edit"))
			viewer.handle(joinFrame("w", "viewer", "view"))

			want := model.NewWorkspaceState()
			for _, n := range ops {
				frame := editFrame(n)
				if (n/128)%5 == 0 {
					// View members are refused and must not contribute.
					viewer.handle(frame)
				} else {
					editor.handle(frame)
					msg, err := model.Decode(frame)
					if err != nil {
						return false
					}
					workspace.Apply(&want, msg)
				}
				drain(editorClient)
				drain(viewerClient)
			}

			late, lateClient := newTestSession(registry, nil)
			late.handle(joinFrame("w", "late", "view"))
			snapshot := receiveMessage(t, lateClient)
			if snapshot.Type != model.MessageTypeSyncState || snapshot.State == nil {
				return false
			}

			got, _ := json.Marshal(snapshot.State)
			expected, _ := json.Marshal(want)
			if string(got) != string(expected) {
				t.Logf("snapshot %s, want %s", got, expected)
				return false
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 100000)),
	))

	properties.TestingRun(t)
}
