package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/insightloop/insightloop-backend/internal/completions"
	"github.com/insightloop/insightloop-backend/internal/extract"
	"github.com/insightloop/insightloop-backend/internal/persona"
	"github.com/insightloop/insightloop-backend/internal/store"
)

// Fixed user-facing strings for request failures. These come back as the
// assistant reply; no error reaches the caller for runtime conditions.
const (
	AuthErrorReply   = "There's a configuration problem with this assistant's credentials. Please contact support."
	RateLimitReply   = "I'm receiving a lot of requests right now. Please wait a moment and try again."
	ServerErrorReply = "The assistant service is temporarily unavailable. Please try again shortly."
	GenericFailReply = "Sorry, I encountered an error. Please try again."
)

// Controller owns per-persona chat state and turns one user message into
// exactly one display-ready reply. Each turn appends one user message and
// one assistant message to the persona's history bucket, success or
// failure. A reply from an in-flight send lands against the bucket it was
// sent from even if the client has switched personas meanwhile.
type Controller struct {
	registry *persona.Registry
	provider completions.Provider
	openai   completions.Provider
	store    *store.MemoryStore
	archive  *store.DatabaseStore
	timeout  time.Duration
	now      func() time.Time
}

type Options struct {
	// OpenAI serves personas configured with provider: openai; may be nil.
	OpenAI completions.Provider
	// Archive persists turns to Postgres; may be nil.
	Archive *store.DatabaseStore
	// Timeout is the per-send ceiling; defaults to 30s.
	Timeout time.Duration
}

func NewController(registry *persona.Registry, provider completions.Provider, st *store.MemoryStore, opts Options) *Controller {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Controller{
		registry: registry,
		provider: provider,
		openai:   opts.OpenAI,
		store:    st,
		archive:  opts.Archive,
		timeout:  timeout,
		now:      time.Now,
	}
}

// SendOptions carries the optional completion-request fields. Empty values
// are omitted from the outbound payload.
type SendOptions struct {
	UserID    string
	ImageURLs []string
	Stream    bool
}

// SendMessage sends one user message to a persona's backend. The returned
// string is always non-empty for a known persona: the real reply, raw
// response text, a classified failure string, or the persona's canned
// fallback. An error is returned only for an unrecognized persona id,
// which is caller misuse rather than a runtime condition.
func (c *Controller) SendMessage(ctx context.Context, sessionID string, personaID int, text string, opts SendOptions) (string, error) {
	p, ok := c.registry.Get(personaID)
	if !ok {
		return "", fmt.Errorf("unknown persona %d", personaID)
	}
	key := store.TranscriptKey(sessionID, personaID)
	c.store.SetLoading(key, true)
	defer c.store.SetLoading(key, false)

	userMsg := c.newMessage(store.RoleUser, text)
	c.store.Append(key, userMsg)
	c.archiveMessage(sessionID, personaID, userMsg)

	reply := c.complete(ctx, sessionID, p, text, opts)

	assistantMsg := c.newMessage(store.RoleAssistant, reply)
	c.store.Append(key, assistantMsg)
	c.archiveMessage(sessionID, personaID, assistantMsg)
	return reply, nil
}

// complete performs the vendor call and normalizes whatever comes back
// into display text. It never fails; every error path maps to a string.
func (c *Controller) complete(ctx context.Context, sessionID string, p persona.Config, text string, opts SendOptions) string {
	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		userID = sessionID
	}
	req := completions.Request{
		Message:        text,
		UserID:         userID,
		ConversationID: c.ConversationID(p.ID, userID),
		ImageURLs:      opts.ImageURLs,
		Stream:         opts.Stream,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	body, err := c.providerFor(p).Complete(ctx, p.Token, req)
	if err != nil {
		switch {
		case errors.Is(err, completions.ErrUnauthorized):
			log.Printf("[chat] auth failure for persona %d: %v", p.ID, err)
			return AuthErrorReply
		case errors.Is(err, completions.ErrRateLimited):
			return RateLimitReply
		case errors.Is(err, completions.ErrServer):
			return ServerErrorReply
		}
		log.Printf("[chat] completion failed for persona %d: %v", p.ID, err)
		return GenericFailReply
	}

	var decoded any
	if jsonErr := json.Unmarshal([]byte(body), &decoded); jsonErr != nil {
		// Not JSON; the raw text is the reply.
		if raw := strings.TrimSpace(body); raw != "" {
			return raw
		}
		return c.registry.Fallback(p.ID)
	}
	if reply, ok := extract.Reply(decoded); ok && reply != "" {
		return reply
	}
	return c.registry.Fallback(p.ID)
}

func (c *Controller) providerFor(p persona.Config) completions.Provider {
	if p.Provider == "openai" && c.openai != nil {
		return c.openai
	}
	return c.provider
}

func (c *Controller) newMessage(role, content string) store.Message {
	return store.Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: c.now(),
		Complete:  true,
	}
}

func (c *Controller) archiveMessage(sessionID string, personaID int, msg store.Message) {
	if c.archive == nil {
		return
	}
	if err := c.archive.SaveMessage(sessionID, personaID, msg); err != nil {
		log.Printf("[chat] failed to archive message: %v", err)
	}
}

// ConversationID returns the stable conversation identifier for a
// (persona, user) pair, generating one on first access.
func (c *Controller) ConversationID(personaID int, userID string) string {
	key := store.ConversationKey(personaID, userID)
	if id, ok := c.store.ConversationID(key); ok {
		return id
	}
	return c.store.EnsureConversationID(key, uuid.NewString())
}

// ClearConversation drops the mapping so the next send starts a fresh
// conversation with the vendor.
func (c *Controller) ClearConversation(personaID int, userID string) {
	c.store.ClearConversationID(store.ConversationKey(personaID, userID))
}

// History returns the stored transcript for one persona bucket, falling
// back to the archive when memory has nothing for this session.
func (c *Controller) History(sessionID string, personaID int) []store.Message {
	key := store.TranscriptKey(sessionID, personaID)
	if msgs := c.store.Get(key); len(msgs) > 0 {
		return msgs
	}
	if c.archive != nil {
		if msgs, err := c.archive.History(sessionID, personaID, 0); err == nil && len(msgs) > 0 {
			c.store.Set(key, msgs)
			return c.store.Get(key)
		}
	}
	return nil
}

func (c *Controller) SaveHistory(sessionID string, personaID int, msgs []store.Message) {
	c.store.Set(store.TranscriptKey(sessionID, personaID), msgs)
}

// StartNewChat clears the transcript and conversation identifier for one
// persona only; other personas' state is untouched.
func (c *Controller) StartNewChat(sessionID string, personaID int, userID string) {
	if strings.TrimSpace(userID) == "" {
		userID = sessionID
	}
	c.store.Clear(store.TranscriptKey(sessionID, personaID))
	c.ClearConversation(personaID, userID)
	if c.archive != nil {
		if err := c.archive.ClearChat(sessionID, personaID); err != nil {
			log.Printf("[chat] failed to clear archived chat: %v", err)
		}
	}
}

func (c *Controller) Loading(sessionID string, personaID int) bool {
	return c.store.Loading(store.TranscriptKey(sessionID, personaID))
}

func (c *Controller) WelcomeMessage(personaID int) string {
	return c.registry.Welcome(personaID)
}
