package api

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Agent is an AI sales agent attached to a store.
type Agent struct {
	ID           string    `json:"id"`
	StoreID      string    `json:"store_id"`
	Name         string    `json:"name"`
	Tone         string    `json:"tone"`
	Greeting     string    `json:"greeting"`
	Instructions string    `json:"instructions"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
}

// AgentUpdate carries the editable agent fields. Nil fields are left
// unchanged by the backend.
type AgentUpdate struct {
	Name         *string `json:"name,omitempty"`
	Tone         *string `json:"tone,omitempty"`
	Greeting     *string `json:"greeting,omitempty"`
	Instructions *string `json:"instructions,omitempty"`
	Active       *bool   `json:"active,omitempty"`
}

// EmbeddingsStatus reports the progress of a product embedding build.
type EmbeddingsStatus struct {
	AgentID    string     `json:"agent_id"`
	Status     string     `json:"status"`
	Progress   float64    `json:"progress"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Conversation is one customer chat thread handled by an agent.
type Conversation struct {
	ID           string    `json:"id"`
	AgentID      string    `json:"agent_id"`
	CustomerID   string    `json:"customer_id"`
	MessageCount int       `json:"message_count"`
	StartedAt    time.Time `json:"started_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

type agentListResponse struct {
	Agents []Agent `json:"agents"`
}

type conversationListResponse struct {
	Conversations []Conversation `json:"conversations"`
}

type buildEmbeddingsRequest struct {
	AgentID string `json:"agent_id"`
}

// ListAgents returns every agent across the account's stores.
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var resp agentListResponse
	if err := c.get(ctx, "/api/agents/", &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

// GetAgent fetches a single agent.
func (c *Client) GetAgent(ctx context.Context, agentID string) (Agent, error) {
	var agent Agent
	err := c.get(ctx, fmt.Sprintf("/api/agents/%s/", agentID), &agent)
	return agent, err
}

// UpdateAgent applies the given field updates to an agent.
func (c *Client) UpdateAgent(ctx context.Context, agentID string, update AgentUpdate) (Agent, error) {
	var agent Agent
	err := c.put(ctx, fmt.Sprintf("/api/agents/%s/", agentID), update, &agent)
	return agent, err
}

// BuildEmbeddings starts a product embedding build for the agent's store.
func (c *Client) BuildEmbeddings(ctx context.Context, agentID string) (EmbeddingsStatus, error) {
	var status EmbeddingsStatus
	err := c.post(ctx, "/api/agents/embeddings/", buildEmbeddingsRequest{AgentID: agentID}, &status)
	return status, err
}

// GetEmbeddingsStatus reports embedding build progress for the agent.
func (c *Client) GetEmbeddingsStatus(ctx context.Context, agentID string) (EmbeddingsStatus, error) {
	var status EmbeddingsStatus
	err := c.get(ctx, "/api/agents/embeddings/status/?"+url.Values{"agent_id": {agentID}}.Encode(), &status)
	return status, err
}

// ListConversations returns the chat threads handled by an agent.
func (c *Client) ListConversations(ctx context.Context, agentID string) ([]Conversation, error) {
	var resp conversationListResponse
	err := c.get(ctx, "/api/agents/conversations/?"+url.Values{"agent_id": {agentID}}.Encode(), &resp)
	if err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}
