// Package responder turns one user message and the knowledge blob into a
// reply: a canned greeting, or a completion grounded on the blob.
package responder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gipl/gipl-assistant/internal"
	"github.com/gipl/gipl-assistant/internal/metrics"
	"github.com/gipl/gipl-assistant/internal/provider"
)

const greetingTemplate = "Hello! I am %s. How can I assist you today?"

// DefaultGreetings are matched exactly against the lowercased message.
var DefaultGreetings = []string{"hi", "hi!", "hello", "hello!", "hey", "hi there!", "greetings"}

type Kind string

const (
	KindGreeting   Kind = "greeting"
	KindCompletion Kind = "completion"
)

// Override replaces the blob for one turn with the text of Document when
// the lowercased message contains any of Keywords.
type Override struct {
	Keywords []string
	Document string
}

// DocumentExtractor reads the text of one local document.
type DocumentExtractor interface {
	ExtractDocument(ctx context.Context, path string) (string, error)
}

type Reply struct {
	Text string
	Kind Kind
	// Override is the document used instead of the blob, if any.
	Override string
}

type Responder struct {
	name      string
	greetings map[string]struct{}
	overrides []Override
	docs      DocumentExtractor
	chat      provider.ChatProvider
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Responder)

func WithGreetings(greetings []string) Option {
	return func(r *Responder) {
		r.greetings = make(map[string]struct{}, len(greetings))
		for _, g := range greetings {
			r.greetings[strings.ToLower(g)] = struct{}{}
		}
	}
}

func WithOverrides(overrides []Override) Option {
	return func(r *Responder) { r.overrides = overrides }
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Responder) { r.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Responder) { r.metrics = m }
}

func New(name string, chat provider.ChatProvider, docs DocumentExtractor, opts ...Option) *Responder {
	r := &Responder{
		name: name,
		docs: docs,
		chat: chat,
		log:  zerolog.Nop(),
	}
	WithGreetings(DefaultGreetings)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Responder) Name() string { return r.name }

func (r *Responder) Model() string { return r.chat.Model() }

// Greeting is the fixed reply to a greeting message.
func (r *Responder) Greeting() string { return fmt.Sprintf(greetingTemplate, r.name) }

// IsGreeting reports whether message, lowercased, is one of the greetings.
func (r *Responder) IsGreeting(message string) bool {
	_, ok := r.greetings[strings.ToLower(message)]
	return ok
}

// Respond answers one message. kb is the blob to ground the answer on; it
// is never modified, an override only changes what this turn sends.
// Errors from document extraction or the completion service abort the turn.
func (r *Responder) Respond(ctx context.Context, kb, message string) (Reply, error) {
	if r.IsGreeting(message) {
		r.metrics.Turn(string(KindGreeting))
		return Reply{Text: r.Greeting(), Kind: KindGreeting}, nil
	}

	reply := Reply{Kind: KindCompletion}
	if doc, ok := r.match(message); ok {
		text, err := r.docs.ExtractDocument(ctx, doc)
		if err != nil {
			r.metrics.Turn("error")
			return Reply{}, fmt.Errorf("extracting override document %s: %w", doc, err)
		}
		r.log.Debug().Str("document", doc).Int("bytes", len(text)).Msg("knowledge override")
		kb = text
		reply.Override = doc
	}

	start := time.Now()
	text, err := r.chat.Complete(ctx, BuildPrompt(r.name, kb, message))
	r.metrics.ObserveCompletion(time.Since(start))
	if err != nil {
		r.metrics.Turn("error")
		return Reply{}, err
	}
	r.metrics.Turn(string(KindCompletion))
	r.log.Debug().Dur("took", time.Since(start)).Str("model", r.chat.Model()).Msg("completion")

	reply.Text = text
	return reply, nil
}

func (r *Responder) match(message string) (string, bool) {
	lower := strings.ToLower(message)
	for _, o := range r.overrides {
		for _, kw := range o.Keywords {
			if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
				return o.Document, true
			}
		}
	}
	return "", false
}

// BuildPrompt returns the three messages sent to the completion service.
func BuildPrompt(name, kb, message string) []internal.Message {
	return []internal.Message{
		{Role: internal.RoleSystem, Content: fmt.Sprintf("You are an assistant named %s knowledgeable about multiple documents and websites.", name)},
		{Role: internal.RoleSystem, Content: "Knowledge Base: " + kb},
		{Role: internal.RoleUser, Content: message},
	}
}
