package ws

import (
	"context"
	"log/slog"

	"github.com/emmetthe/interactive-db/internal/logger"
	"github.com/emmetthe/interactive-db/internal/model"
	"github.com/emmetthe/interactive-db/internal/workspace"
)

const anonymousUserName = "Anonymous"

type sessionState int

const (
	stateUnjoined sessionState = iota
	stateJoined
	stateTerminated
)

func (s sessionState) String() string {
	switch s {
	case stateUnjoined:
		return "unjoined"
	case stateJoined:
		return "joined"
	case stateTerminated:
		return "terminated"
	}
	return "unknown"
}

// session is the protocol state of one connection. It is driven only from
// the connection's read loop, so its fields need no locking.
type session struct {
	registry *workspace.Registry
	recorder ActivityRecorder
	client   *Client
	ctx      context.Context

	state       sessionState
	workspaceID string
	workspace   *workspace.Workspace
	member      *workspace.Member
}

func newSession(registry *workspace.Registry, recorder ActivityRecorder, client *Client) *session {
	ctx := logger.WithLogFields(context.Background(), logger.LogFields{
		ConnID:    client.ID(),
		Component: "relay.ws",
	})
	return &session{
		registry: registry,
		recorder: recorder,
		client:   client,
		ctx:      ctx,
		state:    stateUnjoined,
	}
}

// handle processes one inbound frame.
func (s *session) handle(raw []byte) {
	if s.state == stateTerminated {
		return
	}

	msg, err := model.Decode(raw)
	if err != nil {
		slog.WarnContext(s.ctx, "dropping malformed message", "error", err)
		return
	}

	if s.state == stateJoined && s.displaced() {
		slog.InfoContext(s.ctx, "connection displaced by a newer join for the same user")
		s.state = stateUnjoined
		s.workspace = nil
		s.member = nil
	}

	switch msg.Type {
	case model.MessageTypePing:
		s.reply(&model.Message{Type: model.MessageTypePong})
		return
	case model.MessageTypeJoin:
		s.join(msg)
		return
	}

	if s.state != stateJoined {
		slog.DebugContext(s.ctx, "ignoring message before join", "type", msg.Type, "state", s.state)
		return
	}

	switch {
	case msg.Type == model.MessageTypeSyncRequest:
		s.workspace.SendSnapshot(s.member)
	case msg.Type.IsMutating():
		s.edit(msg, raw)
	case msg.Type == model.MessageTypeCursorMove:
		s.workspace.Publish(msg, raw, s.member)
	default:
		slog.DebugContext(s.ctx, "ignoring unknown message type", "type", msg.Type)
	}
}

func (s *session) join(msg *model.Message) {
	if msg.WorkspaceID == "" || msg.UserID == "" {
		slog.WarnContext(s.ctx, "ignoring join", "error", model.ErrInvalidJoin)
		return
	}

	if s.state == stateJoined {
		s.leave()
	}

	name := msg.UserName
	if name == "" {
		name = anonymousUserName
	}
	level := model.ParseAccessLevel(string(msg.AccessLevel))

	s.member = &workspace.Member{
		UserID:      msg.UserID,
		UserName:    name,
		AccessLevel: level,
		Peer:        s.client,
	}
	s.workspaceID = msg.WorkspaceID
	s.ctx = logger.WithLogFields(s.ctx, logger.LogFields{
		WorkspaceID: msg.WorkspaceID,
		UserID:      msg.UserID,
	})

	s.workspace = s.registry.Join(msg.WorkspaceID, s.member)
	s.state = stateJoined

	slog.InfoContext(s.ctx, "user joined workspace", "user_name", name, "access_level", level)
	s.record(model.ActivityJoined, "")
}

func (s *session) edit(msg *model.Message, raw []byte) {
	if !s.member.AccessLevel.CanEdit() {
		slog.InfoContext(s.ctx, "denied edit from view-only member", "type", msg.Type)
		s.reply(model.NewAccessDenied())
		s.record(model.ActivityDenied, string(msg.Type))
		return
	}

	if !s.workspace.Publish(msg, raw, s.member) {
		slog.DebugContext(s.ctx, "edit did not change state", "type", msg.Type)
	}
}

// terminate runs when the connection closes.
func (s *session) terminate() {
	if s.state == stateJoined {
		s.leave()
	}
	s.state = stateTerminated
}

func (s *session) leave() {
	if s.registry.Leave(s.workspaceID, s.member) {
		slog.InfoContext(s.ctx, "user left workspace")
		s.record(model.ActivityLeft, "")
	}
	s.state = stateUnjoined
	s.workspace = nil
}

// displaced reports whether another connection has since joined the same
// workspace with this session's user ID.
func (s *session) displaced() bool {
	current, ok := s.workspace.Member(s.member.UserID)
	return !ok || current != s.member
}

func (s *session) reply(msg *model.Message) {
	data, err := model.Encode(msg)
	if err != nil {
		slog.ErrorContext(s.ctx, "failed to encode reply", "type", msg.Type, "error", err)
		return
	}
	s.client.Send(data)
}

func (s *session) record(kind model.ActivityKind, detail string) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.Record(s.ctx, &model.Activity{
		WorkspaceID: s.workspaceID,
		UserID:      s.member.UserID,
		UserName:    s.member.UserName,
		AccessLevel: s.member.AccessLevel,
		Kind:        kind,
		Detail:      detail,
	})
	if err != nil {
		slog.WarnContext(s.ctx, "failed to record activity", "kind", kind, "error", err)
	}
}
