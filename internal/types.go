package internal

import "time"

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ChatHistory struct {
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

type SendMessageResponse struct {
	SessionID string  `json:"session_id"`
	Reply     Message `json:"reply"`
	Model     string  `json:"model"`
	Kind      string  `json:"kind"`
	Override  string  `json:"override,omitempty"`
}

// --- Knowledge base (document sources) ---

// SourceKind tags a document source as a local file or a remote page.
type SourceKind string

const (
	SourceLocal  SourceKind = "local"
	SourceRemote SourceKind = "remote"
)

type Source struct {
	Kind     SourceKind `json:"kind"`
	Location string     `json:"location"`
}

func LocalSource(path string) Source { return Source{Kind: SourceLocal, Location: path} }

func RemoteSource(url string) Source { return Source{Kind: SourceRemote, Location: url} }

// SourceStatus reports how one source fared during the last blob build.
type SourceStatus struct {
	Source
	Bytes    int    `json:"bytes"`
	Degraded bool   `json:"degraded"`
	Error    string `json:"error,omitempty"`
}

type SourcesResponse struct {
	Sources []SourceStatus `json:"sources"`
	Total   int            `json:"total"`
	BuiltAt time.Time      `json:"built_at"`
}
