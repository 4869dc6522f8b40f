package models

import "encoding/json"

// Event is the envelope for every frame on the chat socket, both directions.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client -> server event types.
const (
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
	EventTyping            = "typing"
)

// Server -> client event types.
const (
	EventNewMessage = "new-message"
	EventUserTyping = "user-typing"
	EventError      = "error"
)

// RoomPayload carries join-conversation and leave-conversation requests.
type RoomPayload struct {
	ConversationID string `json:"conversationId"`
}

// TypingPayload is sent by a client toggling its typing state.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

// UserTypingPayload is the relayed form delivered to other room members.
type UserTypingPayload struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversationId"`
	IsTyping       bool   `json:"isTyping"`
}

// ErrorPayload reports a rejected socket event without closing the session.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent marshals payload into an Event envelope.
func NewEvent(eventType string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw}, nil
}
