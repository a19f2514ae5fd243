package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gipl/gipl-assistant/internal"
)

// Conversation is the append-only message log of one session. Entries are
// never edited or removed once appended.
type Conversation struct {
	mu        sync.Mutex
	id        string
	createdAt time.Time
	lastUsed  time.Time
	messages  []internal.Message
}

func NewConversation(id string) *Conversation {
	now := time.Now()
	return &Conversation{
		id:        id,
		createdAt: now,
		lastUsed:  now,
		messages:  make([]internal.Message, 0, 16),
	}
}

func (c *Conversation) ID() string { return c.id }

func (c *Conversation) All() []internal.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]internal.Message, len(c.messages))
	copy(cp, c.messages)
	return cp
}

func (c *Conversation) Append(msg internal.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if msg.CreatedAt.After(c.lastUsed) {
		c.lastUsed = msg.CreatedAt
	}
	c.messages = append(c.messages, msg)
}

func (c *Conversation) touch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if now.After(c.lastUsed) {
		c.lastUsed = now
	}
}

func (c *Conversation) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastUsed
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// MemoryStore keeps every live session in memory. Nothing outlives the
// process. Sessions idle for longer than the TTL are evicted, and when the
// store is full the least recently used session makes room for a new one.
type MemoryStore struct {
	mu          sync.Mutex
	sessions    map[string]*Conversation
	maxSessions int
	idleTTL     time.Duration
	now         func() time.Time
}

type Option func(*MemoryStore)

// WithMaxSessions caps the number of live sessions. Zero means no cap.
func WithMaxSessions(n int) Option {
	return func(s *MemoryStore) { s.maxSessions = n }
}

// WithIdleTTL evicts sessions not used for d. Zero disables eviction.
func WithIdleTTL(d time.Duration) Option {
	return func(s *MemoryStore) { s.idleTTL = d }
}

func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*Conversation),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create starts a new session with a random id.
func (s *MemoryStore) Create() *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictLocked()
	c := NewConversation(uuid.NewString())
	c.touch(s.now())
	s.sessions[c.id] = c
	return c
}

// Get returns a live session without creating one.
func (s *MemoryStore) Get(id string) (*Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	now := s.now()
	if s.expired(c, now) {
		delete(s.sessions, id)
		return nil, false
	}
	c.touch(now)
	return c, true
}

// GetOrCreate returns the session with id, or a new session when id is
// empty or unknown.
func (s *MemoryStore) GetOrCreate(id string) *Conversation {
	if id != "" {
		if c, ok := s.Get(id); ok {
			return c
		}
	}
	return s.Create()
}

// Drop forgets a session and its log as a whole.
func (s *MemoryStore) Drop(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *MemoryStore) expired(c *Conversation, now time.Time) bool {
	return s.idleTTL > 0 && now.Sub(c.idleSince()) > s.idleTTL
}

// evictLocked drops idle sessions, then the least recently used ones until
// there is room for one more.
func (s *MemoryStore) evictLocked() {
	now := s.now()
	for id, c := range s.sessions {
		if s.expired(c, now) {
			delete(s.sessions, id)
		}
	}
	if s.maxSessions <= 0 {
		return
	}
	for len(s.sessions) >= s.maxSessions {
		var (
			oldestID string
			oldest   time.Time
		)
		for id, c := range s.sessions {
			if at := c.idleSince(); oldestID == "" || at.Before(oldest) {
				oldestID, oldest = id, at
			}
		}
		delete(s.sessions, oldestID)
	}
}
