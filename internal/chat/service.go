// Package chat runs one conversation turn: it records the user message,
// asks the responder for a reply against the current knowledge blob and
// records the reply.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gipl/gipl-assistant/internal"
	"github.com/gipl/gipl-assistant/internal/knowledge"
	"github.com/gipl/gipl-assistant/internal/responder"
	"github.com/gipl/gipl-assistant/internal/store"
)

var ErrEmptyMessage = errors.New("message content is required")

type Service struct {
	base      *knowledge.Base
	responder *responder.Responder
	sessions  *store.MemoryStore
}

// Result is the outcome of one turn.
type Result struct {
	SessionID string
	Reply     internal.Message
	Kind      responder.Kind
	Override  string
}

func NewService(base *knowledge.Base, r *responder.Responder, sessions *store.MemoryStore) *Service {
	return &Service{base: base, responder: r, sessions: sessions}
}

func (s *Service) AssistantName() string { return s.responder.Name() }

func (s *Service) Model() string { return s.responder.Model() }

func (s *Service) Knowledge() *knowledge.Base { return s.base }

// Session returns the session for id, creating a fresh one when id is empty
// or unknown.
func (s *Service) Session(id string) *store.Conversation {
	return s.sessions.GetOrCreate(id)
}

// Lookup returns an existing session; it never creates one.
func (s *Service) Lookup(id string) (*store.Conversation, bool) {
	if id == "" {
		return nil, false
	}
	return s.sessions.Get(id)
}

// Reset forgets the session and returns a new, empty one.
func (s *Service) Reset(id string) *store.Conversation {
	if id != "" {
		s.sessions.Drop(id)
	}
	return s.sessions.Create()
}

// Validate rejects content that would not make a turn.
func Validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	return nil
}

// Send appends content as a user entry and, when the responder succeeds,
// the reply as an assistant entry. A failed turn leaves only the user entry.
func (s *Service) Send(ctx context.Context, sessionID, content string) (Result, error) {
	if err := Validate(content); err != nil {
		return Result{}, err
	}
	conv := s.sessions.GetOrCreate(sessionID)
	conv.Append(internal.Message{Role: internal.RoleUser, Content: content, CreatedAt: time.Now()})

	reply, err := s.responder.Respond(ctx, s.base.Text(), content)
	if err != nil {
		return Result{SessionID: conv.ID()}, err
	}

	msg := internal.Message{Role: internal.RoleAssistant, Content: reply.Text, CreatedAt: time.Now()}
	conv.Append(msg)
	return Result{
		SessionID: conv.ID(),
		Reply:     msg,
		Kind:      reply.Kind,
		Override:  reply.Override,
	}, nil
}
