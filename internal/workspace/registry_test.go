package workspace

import (
	"errors"
	"sync"
	"testing"

	"github.com/emmetthe/interactive-db/internal/model"
)

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry()

	ws := r.GetOrCreate("w1")
	snap := ws.Snapshot()
	if snap.WorkspaceName != model.DefaultWorkspaceName {
		t.Errorf("expected default name, got %q", snap.WorkspaceName)
	}
	if len(snap.Tables) != 0 || len(snap.Groups) != 0 || len(snap.Relationships) != 0 {
		t.Errorf("expected empty state, got %+v", snap)
	}
	if r.GetOrCreate("w1") != ws {
		t.Error("expected the same workspace on second lookup")
	}
	if r.Get("missing") != nil {
		t.Error("Get must not create workspaces")
	}
	if _, err := r.Lookup("missing"); !errors.Is(err, model.ErrWorkspaceNotFound) {
		t.Errorf("expected ErrWorkspaceNotFound, got %v", err)
	}
	if found, err := r.Lookup("w1"); err != nil || found != ws {
		t.Errorf("expected w1 from Lookup, got %v, %v", found, err)
	}
	if r.Len() != 1 {
		t.Errorf("Lookup must not create workspaces, got %d", r.Len())
	}
}

func TestRegistryGetOrCreateConcurrent(t *testing.T) {
	r := NewRegistry()

	const n = 32
	results := make([]*Workspace, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if results[i] != results[0] {
			t.Fatal("concurrent callers received different workspaces")
		}
	}
	if r.Len() != 1 {
		t.Errorf("expected one workspace, got %d", r.Len())
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	alice, _ := newMember("alice", model.AccessLevelEdit)
	bob, _ := newMember("bob", model.AccessLevelEdit)

	ws := r.Join("w1", alice)
	r.Join("w1", bob)
	ws.Publish(&model.Message{Type: model.MessageTypeWorkspaceName, Name: "Shop"}, []byte(`{}`), alice)

	if !r.Leave("w1", alice) {
		t.Error("expected alice to be removed")
	}
	if r.Get("w1") == nil {
		t.Fatal("workspace with a remaining member must survive")
	}
	if !r.RemoveMember("w1", "bob") {
		t.Error("expected bob to be removed")
	}
	if r.Get("w1") != nil {
		t.Fatal("empty workspace must be destroyed")
	}

	fresh := r.GetOrCreate("w1")
	if fresh == ws {
		t.Fatal("expected a new workspace after destruction")
	}
	if name := fresh.Snapshot().WorkspaceName; name != model.DefaultWorkspaceName {
		t.Errorf("recreated workspace kept old state: %q", name)
	}
}

func TestRegistryLeaveStaleMember(t *testing.T) {
	r := NewRegistry()
	old, _ := newMember("alice", model.AccessLevelEdit)
	replacement, _ := newMember("alice", model.AccessLevelEdit)

	r.Join("w1", old)
	r.Join("w1", replacement)

	if r.Leave("w1", old) {
		t.Error("stale member must not be removed")
	}
	if r.Get("w1") == nil {
		t.Fatal("workspace must survive a stale leave")
	}
	if r.Leave("w2", old) {
		t.Error("leaving an unknown workspace should report false")
	}
}

func TestRegistryList(t *testing.T) {
	r := NewRegistry()
	a, _ := newMember("a", model.AccessLevelEdit)
	b, _ := newMember("b", model.AccessLevelEdit)
	c, _ := newMember("c", model.AccessLevelView)

	r.Join("zeta", a)
	ws := r.Join("alpha", b)
	r.Join("alpha", c)
	ws.Publish(&model.Message{Type: model.MessageTypeTableCreate, Table: model.Entity{"id": []byte(`"t1"`)}}, []byte(`{}`), b)

	list := r.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(list))
	}
	if list[0].ID != "alpha" || list[1].ID != "zeta" {
		t.Errorf("expected sorted ids, got %s, %s", list[0].ID, list[1].ID)
	}
	if list[0].Members != 2 || list[0].Tables != 1 || list[0].Name != model.DefaultWorkspaceName {
		t.Errorf("unexpected summary %+v", list[0])
	}
}
