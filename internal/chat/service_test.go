package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gipl/gipl-assistant/internal"
	"github.com/gipl/gipl-assistant/internal/knowledge"
	"github.com/gipl/gipl-assistant/internal/responder"
	"github.com/gipl/gipl-assistant/internal/store"
)

type stubProvider struct {
	calls int
	kb    string
	err   error
}

func (p *stubProvider) Model() string { return "stub" }

func (p *stubProvider) Complete(ctx context.Context, messages []internal.Message) (string, error) {
	p.calls++
	p.kb = messages[1].Content
	if p.err != nil {
		return "", p.err
	}
	return "GIPL builds ports.", nil
}

type noDocs struct{}

func (noDocs) ExtractDocument(ctx context.Context, path string) (string, error) {
	return "", errors.New("unexpected extraction")
}

func newService(p *stubProvider) (*Service, *store.MemoryStore) {
	base := knowledge.NewBase(knowledge.NewBlob([]knowledge.Extraction{
		{Source: internal.LocalSource("board.pdf"), Text: "Board of Directors"},
	}))
	sessions := store.NewMemoryStore()
	r := responder.New("GIPL Assistant", p, noDocs{})
	return NewService(base, r, sessions), sessions
}

func TestSend_Greeting(t *testing.T) {
	p := &stubProvider{}
	svc, sessions := newService(p)

	res, err := svc.Send(context.Background(), "", "Hello")
	require.NoError(t, err)
	assert.Equal(t, "Hello! I am GIPL Assistant. How can I assist you today?", res.Reply.Content)
	assert.Equal(t, responder.KindGreeting, res.Kind)
	assert.Zero(t, p.calls)

	conv, ok := sessions.Get(res.SessionID)
	require.True(t, ok)
	msgs := conv.All()
	require.Len(t, msgs, 2)
	assert.Equal(t, internal.RoleUser, msgs[0].Role)
	assert.Equal(t, "Hello", msgs[0].Content)
	assert.Equal(t, internal.RoleAssistant, msgs[1].Role)
}

func TestSend_CompletionUsesCurrentBlob(t *testing.T) {
	p := &stubProvider{}
	svc, _ := newService(p)

	res, err := svc.Send(context.Background(), "", "What does GIPL do?")
	require.NoError(t, err)
	assert.Equal(t, "GIPL builds ports.", res.Reply.Content)
	assert.Equal(t, "Knowledge Base: Board of Directors", p.kb)

	svc.Knowledge().Replace(knowledge.NewBlob([]knowledge.Extraction{
		{Source: internal.LocalSource("board.pdf"), Text: "Reloaded"},
	}))
	_, err = svc.Send(context.Background(), res.SessionID, "again?")
	require.NoError(t, err)
	assert.Equal(t, "Knowledge Base: Reloaded", p.kb)
	assert.Equal(t, 4, svc.Session(res.SessionID).Len())
}

func TestSend_FailedCompletionKeepsUserEntry(t *testing.T) {
	boom := errors.New("rate limited")
	svc, sessions := newService(&stubProvider{err: boom})

	res, err := svc.Send(context.Background(), "", "What does GIPL do?")
	require.ErrorIs(t, err, boom)

	conv, ok := sessions.Get(res.SessionID)
	require.True(t, ok)
	msgs := conv.All()
	require.Len(t, msgs, 1)
	assert.Equal(t, internal.RoleUser, msgs[0].Role)
}

func TestSend_EmptyMessage(t *testing.T) {
	svc, sessions := newService(&stubProvider{})

	for _, in := range []string{"", "   "} {
		_, err := svc.Send(context.Background(), "", in)
		assert.ErrorIs(t, err, ErrEmptyMessage)
	}
	assert.Zero(t, sessions.Len())
}

func TestReset(t *testing.T) {
	svc, sessions := newService(&stubProvider{})

	res, err := svc.Send(context.Background(), "", "hi")
	require.NoError(t, err)

	fresh := svc.Reset(res.SessionID)
	assert.NotEqual(t, res.SessionID, fresh.ID())
	assert.Zero(t, fresh.Len())
	_, ok := sessions.Get(res.SessionID)
	assert.False(t, ok)
}
