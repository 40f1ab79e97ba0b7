package realtime

import (
	"encoding/json"
	"fmt"
)

// Outbound frame type understood by the chat backend.
const outboundChatType = "comprehensive_chat"

// OutboundMessage is one chat message sent over the socket.
type OutboundMessage struct {
	Type             string `json:"type"`
	Message          string `json:"message"`
	AgentID          string `json:"agent_id"`
	StoreID          string `json:"store_id"`
	CustomerID       string `json:"customer_id"`
	NewConversation  bool   `json:"new_convo"`
	IncludeTimestamp bool   `json:"include_timestamp"`
}

// Event is an inbound frame from the chat backend. The concrete types are
// ChatResponse, ComprehensiveChatResponse, CustomerIDUpdate and ErrorEvent;
// a handler switching on Event covers every frame the backend can send.
type Event interface {
	isEvent()
}

// ChatResponse carries the agent's reply text.
type ChatResponse struct {
	Response string
}

// ComprehensiveChatResponse carries the agent's reply along with the
// customer identity the backend resolved for this conversation.
type ComprehensiveChatResponse struct {
	Response   string
	CustomerID string
}

// CustomerIDUpdate tells the client which customer the conversation is
// attributed to; subsequent outbound messages carry this ID.
type CustomerIDUpdate struct {
	CustomerID string
}

// ErrorEvent is a backend-reported error for the current conversation.
type ErrorEvent struct {
	Message string
}

func (ChatResponse) isEvent()              {}
func (ComprehensiveChatResponse) isEvent() {}
func (CustomerIDUpdate) isEvent()          {}
func (ErrorEvent) isEvent()                {}

// envelope is the wire shape shared by all inbound frames.
type envelope struct {
	Type       string `json:"type"`
	Response   string `json:"response"`
	CustomerID string `json:"customer_id"`
	Message    string `json:"message"`
}

// decodeEvent parses one inbound frame into its typed event. Unknown tags
// and malformed JSON are errors; the caller logs and drops them without
// touching the connection.
func decodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}

	switch env.Type {
	case "chat_response":
		return ChatResponse{Response: env.Response}, nil
	case "comprehensive_chat_response":
		return ComprehensiveChatResponse{Response: env.Response, CustomerID: env.CustomerID}, nil
	case "customer_id":
		return CustomerIDUpdate{CustomerID: env.CustomerID}, nil
	case "error":
		return ErrorEvent{Message: env.Message}, nil
	default:
		return nil, fmt.Errorf("unknown frame type %q", env.Type)
	}
}
