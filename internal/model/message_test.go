package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestIsMutating(t *testing.T) {
	for _, typ := range MutatingTypes {
		if !typ.IsMutating() {
			t.Errorf("%s should be mutating", typ)
		}
	}

	for _, typ := range []MessageType{
		MessageTypeJoin, MessageTypePing, MessageTypePong, MessageTypeSyncRequest,
		MessageTypeSyncState, MessageTypeCursorMove, MessageTypeUserJoined,
		MessageTypeUserLeft, MessageTypeUsersList, MessageTypeAccessDenied, "bogus",
	} {
		if typ.IsMutating() {
			t.Errorf("%s should not be mutating", typ)
		}
	}

	if len(MutatingTypes) != 7 {
		t.Errorf("expected 7 mutating types, got %d", len(MutatingTypes))
	}
}

func TestDecode(t *testing.T) {
	t.Run("join", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"join","workspaceId":"w1","userId":"u1","userName":"Ann","accessLevel":"edit"}`))
		if err != nil {
			t.Fatalf("failed to decode join: %v", err)
		}
		if msg.Type != MessageTypeJoin || msg.WorkspaceID != "w1" || msg.UserID != "u1" || msg.UserName != "Ann" || msg.AccessLevel != AccessLevelEdit {
			t.Errorf("join mismatch: %+v", msg)
		}
	})

	t.Run("table update keeps opaque fields", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"table:update","tableId":"t1","updates":{"position":{"x":1,"y":2},"name":"Users"}}`))
		if err != nil {
			t.Fatalf("failed to decode update: %v", err)
		}
		if msg.TableID != "t1" {
			t.Errorf("expected tableId t1, got %q", msg.TableID)
		}
		if string(msg.Updates["position"]) != `{"x":1,"y":2}` {
			t.Errorf("position not preserved: %s", msg.Updates["position"])
		}
	})

	t.Run("malformed", func(t *testing.T) {
		for _, raw := range []string{`not json`, `{"type":`, `{"type":"table:create","table":"Users"}`} {
			_, err := Decode([]byte(raw))
			if !errors.Is(err, ErrMalformedMessage) {
				t.Errorf("Decode(%q) error = %v, want ErrMalformedMessage", raw, err)
			}
		}
	})

	t.Run("unknown type decodes", func(t *testing.T) {
		msg, err := Decode([]byte(`{"type":"future:thing","extra":1}`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if msg.Type != "future:thing" {
			t.Errorf("unexpected type %q", msg.Type)
		}
	})
}

func TestEncodeShapes(t *testing.T) {
	tests := []struct {
		name string
		msg  *Message
		want string
	}{
		{"pong", &Message{Type: MessageTypePong}, `{"type":"pong"}`},
		{"access denied", NewAccessDenied(), `{"type":"access:denied","reason":"You do not have edit access to this workspace"}`},
		{"user left", &Message{Type: MessageTypeUserLeft, UserID: "u1"}, `{"type":"user:left","userId":"u1"}`},
		{"empty snapshot", NewSyncState(NewWorkspaceState()), `{"type":"sync:state","state":{"workspaceName":"Untitled Workspace","tables":[],"groups":[],"relationships":[]}}`},
		{"users list", NewUsersList([]User{{ID: "u1", Name: "Ann", AccessLevel: AccessLevelView}}), `{"type":"users:list","users":[{"id":"u1","name":"Ann","accessLevel":"view"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Encode(tt.msg)
			if err != nil {
				t.Fatalf("failed to encode: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("got %s, want %s", data, tt.want)
			}
		})
	}
}

func TestParseAccessLevel(t *testing.T) {
	tests := map[string]AccessLevel{
		"":      AccessLevelEdit,
		"edit":  AccessLevelEdit,
		"view":  AccessLevelView,
		"admin": AccessLevelView,
		"EDIT":  AccessLevelView,
	}
	for in, want := range tests {
		if got := ParseAccessLevel(in); got != want {
			t.Errorf("ParseAccessLevel(%q) = %s, want %s", in, got, want)
		}
	}
	if AccessLevelView.CanEdit() || !AccessLevelEdit.CanEdit() {
		t.Error("CanEdit mismatch")
	}
}

func TestEntity(t *testing.T) {
	var e Entity
	if err := json.Unmarshal([]byte(`{"id":"t1","name":"Users","color":"#fff"}`), &e); err != nil {
		t.Fatalf("failed to unmarshal entity: %v", err)
	}
	if e.ID() != "t1" {
		t.Errorf("expected id t1, got %q", e.ID())
	}

	merged := e.Merge(Entity{"name": json.RawMessage(`"Accounts"`)})
	if string(merged["name"]) != `"Accounts"` || string(merged["color"]) != `"#fff"` {
		t.Errorf("unexpected merge result: %v", merged)
	}
	if string(e["name"]) != `"Users"` {
		t.Error("merge must not modify the original entity")
	}

	numeric := Entity{"id": json.RawMessage(`42`)}
	if numeric.ID() != "" {
		t.Errorf("non-string id should not match, got %q", numeric.ID())
	}
	if (Entity{}).ID() != "" {
		t.Error("missing id should be empty")
	}
}

func TestWorkspaceStateClone(t *testing.T) {
	s := NewWorkspaceState()
	s.Tables = append(s.Tables, Entity{"id": json.RawMessage(`"t1"`)})

	c := s.Clone()
	c.Tables = append(c.Tables[:0], Entity{"id": json.RawMessage(`"t2"`)})
	c.WorkspaceName = "Other"

	if s.Tables[0].ID() != "t1" || s.WorkspaceName != DefaultWorkspaceName {
		t.Error("clone shares state with the original")
	}

	data, _ := json.Marshal(NewWorkspaceState().Clone())
	if strings.Contains(string(data), "null") {
		t.Errorf("cloned empty state must encode empty arrays, got %s", data)
	}
}
