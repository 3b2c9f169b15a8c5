package types

import "github.com/insightloop/insightloop-backend/internal/store"

// ChatRequest addresses a persona by canonical id or by slug; exactly one
// is required. Slugs are converted at the boundary.
type ChatRequest struct {
	PersonaID   int      `json:"personaId,omitempty"`
	PersonaSlug string   `json:"personaSlug,omitempty"`
	Message     string   `json:"message"`
	UserID      string   `json:"userId,omitempty"`
	ImageURLs   []string `json:"imageUrls,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
}

type ChatResponse struct {
	SessionID      string `json:"sessionId"`
	PersonaID      int    `json:"personaId"`
	Reply          string `json:"reply"`
	ConversationID string `json:"conversationId"`
}

type HistoryResponse struct {
	SessionID string          `json:"sessionId"`
	PersonaID int             `json:"personaId"`
	Welcome   string          `json:"welcome"`
	Messages  []store.Message `json:"messages"`
}

type NewChatRequest struct {
	PersonaID   int    `json:"personaId,omitempty"`
	PersonaSlug string `json:"personaSlug,omitempty"`
	UserID      string `json:"userId,omitempty"`
}

// PersonaView is the public persona shape; tokens never leave the process.
type PersonaView struct {
	ID          int      `json:"id"`
	Slug        string   `json:"slug"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Welcome     string   `json:"welcome"`
	Color       string   `json:"color,omitempty"`
	EmbedURL    string   `json:"embedUrl,omitempty"`
	Features    []string `json:"features,omitempty"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
