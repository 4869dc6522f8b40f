package models

import "time"

// Conversation is a two-party chat bound to one listing. The participant
// pair never changes after creation and a pair+listing combination maps to
// at most one conversation.
type Conversation struct {
	ID            string    `json:"id"`
	Participants  [2]string `json:"participants"` // Always 2, never the same user twice
	ListingID     string    `json:"listingId"`
	LastMessageID string    `json:"lastMessageId,omitempty"`
	LastActivity  time.Time `json:"lastActivity"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return c.Participants[0] == userID || c.Participants[1] == userID
}

// Other returns the participant that is not userID. It assumes userID has
// already passed HasParticipant.
func (c *Conversation) Other(userID string) string {
	if c.Participants[0] == userID {
		return c.Participants[1]
	}
	return c.Participants[0]
}

// ConversationView is the API shape of a conversation: the raw record
// annotated with the other party's public profile, the listing summary and
// the last message, the way clients render a chat list entry.
type ConversationView struct {
	ID               string          `json:"id"`
	Participants     [2]string       `json:"participants"`
	OtherParticipant PublicProfile   `json:"otherParticipant"`
	Listing          *ListingSummary `json:"listing,omitempty"`
	LastMessage      *Message        `json:"lastMessage,omitempty"`
	OtherOnline      bool            `json:"otherOnline"`
	LastActivity     time.Time       `json:"lastActivity"`
	CreatedAt        time.Time       `json:"createdAt"`
}
