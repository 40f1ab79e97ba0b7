package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitton/agentdash/pkg/logger"
)

type staticTokens string

func (s staticTokens) Token(context.Context) (string, error) {
	return string(s), nil
}

func testLogger() logger.Logger {
	return logger.NewLogger(logger.Config{Level: logger.ErrorLevel, Format: "text"})
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(Config{
		BaseURL: server.URL,
		Logger:  testLogger(),
		Tokens:  staticTokens("access-token"),
	})
	require.NoError(t, err)
	return client, server
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{Logger: testLogger()})
	assert.Error(t, err)

	_, err = NewClient(Config{BaseURL: "http://localhost:8000"})
	assert.Error(t, err)
}

func TestLoginSkipsAuthHeader(t *testing.T) {
	var gotAuth string
	var gotBody loginRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/login/", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(LoginResponse{
			TokenPair: TokenPair{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 900},
			User:      User{ID: "user-1", Email: "owner@example.com"},
		})
	}))

	resp, err := client.Login(context.Background(), "owner@example.com", "hunter2")
	require.NoError(t, err)
	assert.Empty(t, gotAuth, "login must not carry a bearer token")
	assert.Equal(t, "owner@example.com", gotBody.Email)
	assert.Equal(t, "new-access", resp.AccessToken)
	assert.Equal(t, "user-1", resp.User.ID)
}

func TestRefreshTokenUsesRefreshCredential(t *testing.T) {
	var gotAuth string
	var gotBody refreshRequest
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/refresh-token/", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		_ = json.NewEncoder(w).Encode(TokenPair{AccessToken: "rotated-access", RefreshToken: "rotated-refresh", ExpiresIn: 900})
	}))

	pair, err := client.RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
	assert.Equal(t, "old-refresh", gotBody.RefreshToken)
	assert.Equal(t, "rotated-access", pair.AccessToken)
	assert.Equal(t, "rotated-refresh", pair.RefreshToken)
}

func TestAuthenticatedRequestCarriesBearer(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(storeListResponse{Stores: []Store{{ID: "store-1", Name: "Main"}}})
	}))

	stores, err := client.ListStores(context.Background())
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, "store-1", stores[0].ID)
}

func TestErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantAuth   bool
		wantDetail string
	}{
		{name: "401 is an auth error", status: http.StatusUnauthorized, wantAuth: true, wantDetail: "token expired"},
		{name: "403 is an auth error", status: http.StatusForbidden, wantAuth: true, wantDetail: "token expired"},
		{name: "500 is transient", status: http.StatusInternalServerError, wantAuth: false, wantDetail: "token expired"},
		{name: "502 is transient", status: http.StatusBadGateway, wantAuth: false, wantDetail: "token expired"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_ = json.NewEncoder(w).Encode(map[string]string{"detail": tt.wantDetail})
			}))

			_, err := client.ListAgents(context.Background())
			require.Error(t, err)
			assert.Equal(t, tt.wantAuth, IsAuthError(err))
			assert.Contains(t, err.Error(), tt.wantDetail)
		})
	}
}

func TestStoreLifecycleEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/stores/", func(w http.ResponseWriter, r *http.Request) {
		var req ConnectStoreRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(Store{ID: "store-9", Name: req.Name, Domain: req.Domain, SyncStatus: "pending"})
	})
	mux.HandleFunc("POST /api/stores/store-9/sync/", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(Store{ID: "store-9", SyncStatus: "syncing"})
	})
	mux.HandleFunc("DELETE /api/stores/store-9/", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	client, _ := newTestClient(t, mux)

	ctx := context.Background()
	created, err := client.ConnectStore(ctx, ConnectStoreRequest{Name: "Main", Domain: "main.myshopify.com", AccessToken: "shpat_x"})
	require.NoError(t, err)
	assert.Equal(t, "pending", created.SyncStatus)

	synced, err := client.SyncStore(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "syncing", synced.SyncStatus)

	assert.NoError(t, client.DeleteStore(ctx, created.ID))
}

func TestAgentEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PUT /api/agents/agent-1/", func(w http.ResponseWriter, r *http.Request) {
		var update AgentUpdate
		require.NoError(t, json.NewDecoder(r.Body).Decode(&update))
		require.NotNil(t, update.Tone)
		_ = json.NewEncoder(w).Encode(Agent{ID: "agent-1", Tone: *update.Tone})
	})
	mux.HandleFunc("GET /api/agents/conversations/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "agent-1", r.URL.Query().Get("agent_id"))
		_ = json.NewEncoder(w).Encode(conversationListResponse{Conversations: []Conversation{{ID: "conv-1", AgentID: "agent-1"}}})
	})
	mux.HandleFunc("GET /api/agents/embeddings/status/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "agent-1", r.URL.Query().Get("agent_id"))
		_ = json.NewEncoder(w).Encode(EmbeddingsStatus{AgentID: "agent-1", Status: "building", Progress: 0.4})
	})
	client, _ := newTestClient(t, mux)

	ctx := context.Background()
	tone := "friendly"
	agent, err := client.UpdateAgent(ctx, "agent-1", AgentUpdate{Tone: &tone})
	require.NoError(t, err)
	assert.Equal(t, "friendly", agent.Tone)

	conversations, err := client.ListConversations(ctx, "agent-1")
	require.NoError(t, err)
	require.Len(t, conversations, 1)

	status, err := client.GetEmbeddingsStatus(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "building", status.Status)
}

func TestGetAnalyticsQuery(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/core/analytics/", r.URL.Path)
		assert.Equal(t, "store-1", r.URL.Query().Get("store_id"))
		assert.Equal(t, "30", r.URL.Query().Get("days"))
		_ = json.NewEncoder(w).Encode(AnalyticsSummary{TotalConversations: 12})
	}))

	summary, err := client.GetAnalytics(context.Background(), "store-1", 30)
	require.NoError(t, err)
	assert.Equal(t, 12, summary.TotalConversations)
}
