package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/insightloop/insightloop-backend/internal/chat"
	"github.com/insightloop/insightloop-backend/internal/completions"
	"github.com/insightloop/insightloop-backend/internal/config"
	"github.com/insightloop/insightloop-backend/internal/db"
	"github.com/insightloop/insightloop-backend/internal/flow"
	"github.com/insightloop/insightloop-backend/internal/persona"
	"github.com/insightloop/insightloop-backend/internal/store"
	"github.com/insightloop/insightloop-backend/internal/types"
)

type Server struct {
	router     *chi.Mux
	cfg        config.Config
	registry   *persona.Registry
	controller *chat.Controller
	flows      *flow.Tracker
	database   *db.DB
}

func NewServer(cfg config.Config) (*Server, error) {
	overrides := map[int]string{}
	secrets := store.NewFileSecretStore(cfg.SecretsFile)
	if fromFile, err := secrets.Read(); err != nil {
		log.Printf("warning: could not read persona token overrides: %v", err)
	} else {
		for id, tok := range fromFile {
			overrides[id] = tok
		}
	}
	registry, err := persona.Load(cfg.PersonasFile, overrides)
	if err != nil {
		return nil, fmt.Errorf("failed to load personas: %w", err)
	}
	// Env overrides beat the secrets file; apply them on top.
	if env := config.PersonaTokenOverrides(registry.IDs()); len(env) > 0 {
		for id, tok := range env {
			overrides[id] = tok
		}
		registry, err = persona.Load(cfg.PersonasFile, overrides)
		if err != nil {
			return nil, fmt.Errorf("failed to load personas: %w", err)
		}
	}

	// Initialize database if DB_URL is provided
	var database *db.DB
	var archive *store.DatabaseStore
	if cfg.DatabaseURL != "" {
		database, err = db.New(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		log.Println("database connection established")
		if err := database.RunMigrations("./migrations"); err != nil {
			database.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		archive = store.NewDatabaseStore(database)
	}

	var openaiProvider completions.Provider
	if cfg.OpenAIAPIKey != "" {
		openaiProvider = completions.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}
	controller := chat.NewController(
		registry,
		completions.NewHTTPClient(cfg.CompletionsURL),
		store.NewMemoryStore(cfg.HistoryLimit),
		chat.Options{OpenAI: openaiProvider, Archive: archive, Timeout: cfg.RequestTimeout},
	)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:     r,
		cfg:        cfg,
		registry:   registry,
		controller: controller,
		flows:      flow.NewTracker(registry),
		database:   database,
	}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.Get("/api/health", s.handleHealth)
	s.router.Get("/api/personas", s.handlePersonas)
	s.router.Get("/api/personas/{ref}", s.handlePersona)
	s.router.Post("/api/chat", s.handleChat)
	s.router.Get("/api/chat/history", s.handleHistory)
	s.router.Post("/api/chat/new", s.handleNewChat)
	// Guided flow
	s.router.Get("/api/flow", s.handleFlowProgress)
	s.router.Post("/api/flow/start", s.handleFlowStart)
	s.router.Post("/api/flow/complete", s.handleFlowComplete)
	s.router.Post("/api/flow/restart", s.handleFlowRestart)
}

func (s *Server) Router() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}
	if s.database != nil {
		if err := s.database.HealthCheck(); err != nil {
			status["database"] = "unavailable"
		} else {
			status["database"] = "ok"
		}
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handlePersonas(w http.ResponseWriter, r *http.Request) {
	personas := s.registry.List()
	out := make([]types.PersonaView, 0, len(personas))
	for _, p := range personas {
		out = append(out, personaView(p))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePersona(w http.ResponseWriter, r *http.Request) {
	id, ok := s.registry.Resolve(chi.URLParam(r, "ref"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "persona not found")
		return
	}
	p, _ := s.registry.Get(id)
	s.writeJSON(w, http.StatusOK, personaView(p))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := getOrCreateSessionID(r, w)
	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	personaID, ok := s.resolvePersona(req.PersonaID, req.PersonaSlug)
	if !ok {
		s.writeError(w, http.StatusNotFound, "persona not found")
		return
	}
	if s.controller.Loading(sid, personaID) {
		s.writeError(w, http.StatusConflict, "a message is already in flight for this persona")
		return
	}

	reply, err := s.controller.SendMessage(r.Context(), sid, personaID, req.Message, chat.SendOptions{
		UserID:    req.UserID,
		ImageURLs: req.ImageURLs,
		Stream:    req.Stream,
	})
	if err != nil {
		// Unreachable for resolved personas; kept for controller misuse.
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = sid
	}
	w.Header().Set("X-Session-Id", sid)
	s.writeJSON(w, http.StatusOK, types.ChatResponse{
		SessionID:      sid,
		PersonaID:      personaID,
		Reply:          reply,
		ConversationID: s.controller.ConversationID(personaID, userID),
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sid := getOrCreateSessionID(r, w)
	personaID, ok := s.registry.Resolve(r.URL.Query().Get("persona"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "persona not found")
		return
	}
	msgs := s.controller.History(sid, personaID)
	if msgs == nil {
		msgs = []store.Message{}
	}
	s.writeJSON(w, http.StatusOK, types.HistoryResponse{
		SessionID: sid,
		PersonaID: personaID,
		Welcome:   s.controller.WelcomeMessage(personaID),
		Messages:  msgs,
	})
}

func (s *Server) handleNewChat(w http.ResponseWriter, r *http.Request) {
	var req types.NewChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := getOrCreateSessionID(r, w)
	personaID, ok := s.resolvePersona(req.PersonaID, req.PersonaSlug)
	if !ok {
		s.writeError(w, http.StatusNotFound, "persona not found")
		return
	}
	s.controller.StartNewChat(sid, personaID, req.UserID)
	s.writeJSON(w, http.StatusOK, types.HistoryResponse{
		SessionID: sid,
		PersonaID: personaID,
		Welcome:   s.controller.WelcomeMessage(personaID),
		Messages:  []store.Message{},
	})
}

func (s *Server) handleFlowProgress(w http.ResponseWriter, r *http.Request) {
	sid := getOrCreateSessionID(r, w)
	s.writeJSON(w, http.StatusOK, s.flows.Progress(sid))
}

func (s *Server) handleFlowStart(w http.ResponseWriter, r *http.Request) {
	sid := getOrCreateSessionID(r, w)
	s.writeJSON(w, http.StatusOK, s.flows.Start(sid))
}

func (s *Server) handleFlowComplete(w http.ResponseWriter, r *http.Request) {
	sid := getOrCreateSessionID(r, w)
	progress, err := s.flows.CompleteCurrent(sid)
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, progress)
}

func (s *Server) handleFlowRestart(w http.ResponseWriter, r *http.Request) {
	sid := getOrCreateSessionID(r, w)
	s.writeJSON(w, http.StatusOK, s.flows.Restart(sid))
}

// resolvePersona accepts either an integer id or a slug from the request
// body and returns the canonical id.
func (s *Server) resolvePersona(id int, slug string) (int, bool) {
	if id > 0 {
		_, ok := s.registry.Get(id)
		return id, ok
	}
	if strings.TrimSpace(slug) != "" {
		return s.registry.Resolve(slug)
	}
	return 0, false
}

func personaView(p persona.Config) types.PersonaView {
	return types.PersonaView{
		ID:          p.ID,
		Slug:        p.Slug,
		Name:        p.Name,
		Description: p.Description,
		Welcome:     p.Welcome,
		Color:       p.Color,
		EmbedURL:    p.EmbedURL,
		Features:    p.Features,
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

func newSessionID() string {
	return fmt.Sprintf("s_%d", time.Now().UnixNano())
}

// getSessionID retrieves the session ID from cookie, header, or query
func getSessionID(r *http.Request) string {
	if cookie, err := GetSessionCookie(r); err == nil && cookie != "" {
		return cookie
	}
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	if sid := r.URL.Query().Get("sessionId"); sid != "" {
		return sid
	}
	return ""
}

// getOrCreateSessionID gets the existing session ID or creates a new one, setting the cookie
func getOrCreateSessionID(r *http.Request, w http.ResponseWriter) string {
	sid := getSessionID(r)
	if sid == "" {
		sid = newSessionID()
		log.Printf("[session] creating new session: %s for endpoint: %s", sid, r.URL.Path)
		SetSessionCookie(w, sid)
	}
	return sid
}
