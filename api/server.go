package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/mcp-training/pairsgame/assets"
	"github.com/wricardo/mcp-training/pairsgame/game/config"
	"github.com/wricardo/mcp-training/pairsgame/game/engine"
	"github.com/wricardo/mcp-training/pairsgame/game/service"
	"github.com/wricardo/mcp-training/pairsgame/game/settings"
	"github.com/wricardo/mcp-training/pairsgame/transport/websocket"
)

// maxMultipartMemory bounds the in-memory part of a multipart upload
const maxMultipartMemory = 32 << 20

// Server represents the REST API server
type Server struct {
	service service.GameService
	hub     *websocket.Hub
	admin   *AdminAuth
	router  *mux.Router
}

// NewServer creates a new API server. A nil admin leaves the settings
// endpoints open.
func NewServer(gameService service.GameService, hub *websocket.Hub, admin *AdminAuth) *Server {
	s := &Server{
		service: gameService,
		hub:     hub,
		admin:   admin,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(chimw.Recoverer)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("", s.handleIndex).Methods("GET")

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Game operations
	api.HandleFunc("/sessions/{id}/state", s.handleGetGameState).Methods("GET")
	api.HandleFunc("/sessions/{id}/flip", s.handleFlip).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/fullscreen", s.handleFullscreen).Methods("POST")

	// Settings
	api.HandleFunc("/sessions/{id}/settings", s.handleGetSettings).Methods("GET")
	api.HandleFunc("/sessions/{id}/images/{ref}", s.handleImage).Methods("GET")

	admin := api.PathPrefix("/sessions/{id}/settings").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/edit", s.handleBeginEdit).Methods("POST")
	admin.HandleFunc("/staged", s.handleUpdateSettings).Methods("PATCH")
	admin.HandleFunc("/images", s.handleUploadImages).Methods("POST")
	admin.HandleFunc("/images/{ref}", s.handleRemoveImage).Methods("DELETE")
	admin.HandleFunc("/commit", s.handleCommitSettings).Methods("POST")
	admin.HandleFunc("/discard", s.handleDiscardSettings).Methods("POST")

	// Presets
	api.HandleFunc("/presets", s.handleListPresets).Methods("GET")
	api.HandleFunc("/presets/{name}", s.handleGetPreset).Methods("GET")

	api.HandleFunc("/admin/login", s.handleAdminLogin).Methods("POST")

	// WebSocket
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Built-in images
	s.router.PathPrefix(assets.URLPrefix).Handler(
		http.StripPrefix(assets.URLPrefix, http.FileServer(http.FS(assets.FS))))
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError picks the status code for an error returned by the
// game service
func respondServiceError(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, config.ErrPresetNotFound),
		errors.Is(err, settings.ErrUnknownImage),
		errors.Is(err, service.ErrImageNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrEngineClosed),
		errors.Is(err, settings.ErrStoreClosed):
		return http.StatusGone
	case errors.Is(err, engine.ErrUnknownCard),
		errors.Is(err, settings.ErrNotImage),
		errors.Is(err, settings.ErrEmptyBlob),
		errors.Is(err, settings.ErrInvalidKind),
		errors.Is(err, settings.ErrInvalidPreset):
		return http.StatusBadRequest
	case errors.Is(err, settings.ErrBlobTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, settings.ErrCommitRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger logs one line per request with its request id
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Debug().
			Str("request_id", chimw.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"service":      "pairs",
		"admin_auth":   s.admin != nil,
		"instructions": service.InstructionsText,
		"endpoints": []string{
			"POST /api/sessions", "GET /api/sessions", "GET|DELETE /api/sessions/{id}",
			"GET /api/sessions/{id}/state", "POST /api/sessions/{id}/flip", "POST /api/sessions/{id}/reset",
			"POST /api/sessions/{id}/fullscreen", "GET /api/sessions/{id}/settings",
			"POST /api/sessions/{id}/settings/edit", "PATCH /api/sessions/{id}/settings/staged",
			"POST /api/sessions/{id}/settings/images", "DELETE /api/sessions/{id}/settings/images/{ref}",
			"POST /api/sessions/{id}/settings/commit", "POST /api/sessions/{id}/settings/discard",
			"GET /api/sessions/{id}/images/{ref}", "GET /api/presets", "GET /api/presets/{name}",
			"POST /api/admin/login", "GET /ws?session={id}",
		},
	})
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PresetID string `json:"preset_id,omitempty"`
	}

	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	sess, err := s.service.CreateSession(r.Context(), req.PresetID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	total := len(sessions)

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default)
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}

	sort.Slice(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Game Operation Handlers

func (s *Server) handleGetGameState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetGameState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		CardID *int `json:"card_id"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CardID == nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: card_id is required")
		return
	}

	result, err := s.service.Flip(r.Context(), sessionID, *req.CardID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.Reset(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Game reset successfully",
		"state":   state,
	})
}

func (s *Server) handleFullscreen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Fullscreen bool   `json:"fullscreen"`
		Error      string `json:"error,omitempty"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.SetFullscreen(r.Context(), mux.Vars(r)["id"], req.Fullscreen, req.Error)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// Settings Handlers

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSettings(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.BeginEdit(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch settings.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	info, err := s.service.UpdateSettings(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// handleUploadImages accepts either a multipart form with one or more
// "file" parts or a raw image body
func (s *Server) handleUploadImages(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	kind, err := settings.ParseImageKind(r.URL.Query().Get("kind"))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	type upload struct {
		data        []byte
		contentType string
	}
	var uploads []upload

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid multipart form")
			return
		}
		for _, fh := range r.MultipartForm.File["file"] {
			if fh.Size > settings.MaxBlobSize {
				respondServiceError(w, fmt.Errorf("%s: %w", fh.Filename, settings.ErrBlobTooLarge))
				return
			}
			f, err := fh.Open()
			if err != nil {
				respondError(w, http.StatusBadRequest, "Failed to read upload")
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				respondError(w, http.StatusBadRequest, "Failed to read upload")
				return
			}
			uploads = append(uploads, upload{data: data, contentType: fh.Header.Get("Content-Type")})
		}
		if len(uploads) == 0 {
			respondError(w, http.StatusBadRequest, "No file parts in form")
			return
		}
	} else {
		data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, settings.MaxBlobSize+1))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				respondServiceError(w, settings.ErrBlobTooLarge)
				return
			}
			respondError(w, http.StatusBadRequest, "Failed to read upload")
			return
		}
		uploads = append(uploads, upload{data: data, contentType: r.Header.Get("Content-Type")})
	}

	// Reject the whole request before anything is staged.
	for i, u := range uploads {
		if _, err := settings.CheckImage(u.data, u.contentType); err != nil {
			respondServiceError(w, fmt.Errorf("file %d: %w", i+1, err))
			return
		}
	}

	var results []*service.UploadResult
	for _, u := range uploads {
		res, err := s.service.UploadImage(r.Context(), sessionID, kind, u.data, u.contentType)
		if err != nil {
			s.rollbackUploads(r, sessionID, results)
			respondServiceError(w, err)
			return
		}
		results = append(results, res)
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"uploads":  results,
		"settings": results[len(results)-1].Settings,
	})
}

// rollbackUploads unstages card images added earlier in a failed request
func (s *Server) rollbackUploads(r *http.Request, sessionID string, added []*service.UploadResult) {
	for _, res := range added {
		if res.Kind != settings.KindCard {
			continue
		}
		if _, err := s.service.RemoveImage(r.Context(), sessionID, res.Ref); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Str("ref", res.Ref).Msg("failed to roll back upload")
		}
	}
}

func (s *Server) handleRemoveImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	info, err := s.service.RemoveImage(r.Context(), vars["id"], vars["ref"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleCommitSettings(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.CommitSettings(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleDiscardSettings(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.DiscardSettings(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, info)
}

// handleImage serves an uploaded image. References that cannot be resolved
// get the placeholder image instead of an error.
func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	blob, err := s.service.ImageBlob(r.Context(), vars["id"], vars["ref"])
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			respondServiceError(w, err)
			return
		}
		log.Debug().Str("session", vars["id"]).Str("ref", vars["ref"]).Err(err).Msg("serving placeholder image")
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Image-Placeholder", "true")
		w.WriteHeader(http.StatusOK)
		w.Write(assets.Placeholder())
		return
	}

	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(blob.Data)
}

// Preset Handlers

func (s *Server) handleListPresets(w http.ResponseWriter, r *http.Request) {
	presets, err := s.service.ListPresets(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, presets)
}

func (s *Server) handleGetPreset(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	name = strings.TrimSuffix(strings.TrimSuffix(name, ".json"), ".toml")

	preset, err := s.service.LoadPreset(r.Context(), name)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, preset)
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "session parameter required")
		return
	}

	sess, err := s.service.GetSession(r.Context(), sessionID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if s.hub == nil {
		respondError(w, http.StatusServiceUnavailable, "websocket hub not available")
		return
	}

	// The snapshot is taken once the client is registered, so no event
	// published after it can be missed.
	ctx := context.WithoutCancel(r.Context())
	s.hub.ServeWS(w, r, sess.ID, func() *service.GameEvent {
		current, err := s.service.GetSession(ctx, sess.ID)
		if err != nil {
			current = sess
		}
		return snapshotEvent(current)
	})
}

func snapshotEvent(sess *service.SessionInfo) *service.GameEvent {
	committed := sess.Settings
	fullscreen := sess.Fullscreen
	return &service.GameEvent{
		Type:       "snapshot",
		SessionID:  sess.ID,
		Seq:        sess.Seq,
		BoardID:    sess.GameState.BoardID,
		GameState:  sess.GameState,
		Settings:   &committed,
		Fullscreen: &fullscreen,
		Timestamp:  time.Now(),
	}
}
