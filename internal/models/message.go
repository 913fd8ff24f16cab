package models

import "time"

// Message is a messages/{id} document. Participants is the pair id of sender and recipient.
type Message struct {
	ID           string    `json:"id"`
	Participants string    `json:"participants"`
	SenderID     string    `json:"senderId"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Conversation is the latest message of one pair, as seen by one user
type Conversation struct {
	OtherUserID string  `json:"otherUserId"`
	LastMessage Message `json:"lastMessage"`
}

// SendMessageRequest is the body of POST /api/v1/messages/:userId
type SendMessageRequest struct {
	Text string `json:"text" binding:"required,max=2000"`
}
