package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mwhitton/agentdash/internal/api"
	"github.com/mwhitton/agentdash/internal/session"
	"github.com/mwhitton/agentdash/pkg/logger"
)

func (s *Server) registerRoutes(router chi.Router) {
	router.Get("/healthz", s.handleHealth)

	router.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Get("/session", s.handleSession)
		r.Post("/session/refresh", s.handleRefresh)

		r.Get("/stores", s.handleListStores)
		r.Post("/stores", s.handleConnectStore)
		r.Delete("/stores/{storeID}", s.handleDeleteStore)
		r.Post("/stores/{storeID}/sync", s.handleSyncStore)

		r.Get("/agents", s.handleListAgents)
		r.Get("/agents/{agentID}", s.handleGetAgent)
		r.Put("/agents/{agentID}", s.handleUpdateAgent)
		r.Post("/agents/{agentID}/embeddings", s.handleBuildEmbeddings)
		r.Get("/agents/{agentID}/embeddings", s.handleEmbeddingsStatus)
		r.Get("/agents/{agentID}/conversations", s.handleConversations)

		r.Get("/analytics", s.handleAnalytics)
	})
}

// sessionView is what the dashboard sees about the local session.
type sessionView struct {
	Authenticated bool              `json:"authenticated"`
	ExpiringSoon  bool              `json:"expiring_soon"`
	Snapshot      *session.Snapshot `json:"snapshot,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, err := s.checker.Run(r.Context())
	code := http.StatusOK
	if err != nil {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, status)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := s.client.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	if err := s.manager.Login(resp); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.currentSession())
}

func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	s.manager.Logout("user requested")
	s.writeJSON(w, http.StatusOK, s.currentSession())
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.currentSession())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := s.manager.Refresh(r.Context()); err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.currentSession())
}

func (s *Server) currentSession() sessionView {
	view := sessionView{
		Authenticated: s.manager.HasValidAccessToken(),
		ExpiringSoon:  s.manager.IsExpiringSoon(),
	}
	if snapshot, ok := s.manager.CurrentSnapshot(); ok {
		snapshot.Tokens = api.TokenPair{} // never hand tokens to the browser
		view.Snapshot = &snapshot
	}
	return view
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	stores, err := s.client.ListStores(r.Context())
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"stores": stores})
}

func (s *Server) handleConnectStore(w http.ResponseWriter, r *http.Request) {
	var req api.ConnectStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	store, err := s.client.ConnectStore(r.Context(), req)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, store)
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	if err := s.client.DeleteStore(r.Context(), chi.URLParam(r, "storeID")); err != nil {
		s.writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSyncStore(w http.ResponseWriter, r *http.Request) {
	store, err := s.client.SyncStore(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, store)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.client.ListAgents(r.Context())
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := s.client.GetAgent(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	var update api.AgentUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	agent, err := s.client.UpdateAgent(r.Context(), chi.URLParam(r, "agentID"), update)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleBuildEmbeddings(w http.ResponseWriter, r *http.Request) {
	status, err := s.client.BuildEmbeddings(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, status)
}

func (s *Server) handleEmbeddingsStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.client.GetEmbeddingsStatus(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := s.client.ListConversations(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		days = parsed
	}
	summary, err := s.client.GetAnalytics(r.Context(), r.URL.Query().Get("store_id"), days)
	if err != nil {
		s.writeAPIError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, summary)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error("failed to write response", logger.ErrorField(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}

// writeAPIError maps backend errors onto bridge responses: credential
// rejections become 401, other backend failures become 502.
func (s *Server) writeAPIError(w http.ResponseWriter, err error) {
	if api.IsAuthError(err) {
		s.writeError(w, http.StatusUnauthorized, err)
		return
	}
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err)
}
