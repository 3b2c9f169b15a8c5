package store

import (
	"fmt"
	"sync"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	// Transient progressive-rendering flags
	Streaming bool `json:"streaming,omitempty"`
	Complete  bool `json:"complete,omitempty"`
}

// MemoryStore keeps per-session chat state for the process lifetime:
// transcripts keyed by (session, persona), conversation identifiers keyed
// by (persona, user), and in-flight loading flags.
type MemoryStore struct {
	mu          sync.RWMutex
	transcripts map[string][]Message
	maxMessages int
	// Conversation id per (persona, user), generated lazily elsewhere
	conversations map[string]string
	// True while a send is in flight for (session, persona)
	loading map[string]bool
}

func NewMemoryStore(maxMessages int) *MemoryStore {
	return &MemoryStore{
		transcripts:   make(map[string][]Message),
		maxMessages:   maxMessages,
		conversations: make(map[string]string),
		loading:       make(map[string]bool),
	}
}

// TranscriptKey builds the history bucket key. Replies from in-flight sends
// land against this key even if the UI has moved to another persona.
func TranscriptKey(sessionID string, personaID int) string {
	return fmt.Sprintf("%s/%d", sessionID, personaID)
}

func ConversationKey(personaID int, userID string) string {
	return fmt.Sprintf("%d/%s", personaID, userID)
}

func (m *MemoryStore) Append(key string, msg Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts[key] = append(m.transcripts[key], msg)
	m.trimLocked(key)
}

func (m *MemoryStore) Get(key string) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.transcripts[key]
	copyMsgs := make([]Message, len(msgs))
	copy(copyMsgs, msgs)
	return copyMsgs
}

func (m *MemoryStore) Set(key string, msgs []Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transcripts[key] = append([]Message(nil), msgs...)
	m.trimLocked(key)
}

func (m *MemoryStore) Clear(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.transcripts, key)
}

func (m *MemoryStore) trimLocked(key string) {
	if m.maxMessages <= 0 {
		return
	}
	msgs := m.transcripts[key]
	if len(msgs) > m.maxMessages {
		m.transcripts[key] = msgs[len(msgs)-m.maxMessages:]
	}
}

// Conversation identifiers

func (m *MemoryStore) ConversationID(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.conversations[key]
	return id, ok
}

// EnsureConversationID stores the generated id unless another call won the
// race; the stored id is returned either way.
func (m *MemoryStore) EnsureConversationID(key, generated string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.conversations[key]; ok {
		return id
	}
	m.conversations[key] = generated
	return generated
}

func (m *MemoryStore) ClearConversationID(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.conversations, key)
}

// Loading flags

func (m *MemoryStore) SetLoading(key string, v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v {
		m.loading[key] = true
		return
	}
	delete(m.loading, key)
}

func (m *MemoryStore) Loading(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loading[key]
}
