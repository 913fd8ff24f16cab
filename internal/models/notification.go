package models

import "time"

// Notification types
const (
	NotificationMessage       = "message"
	NotificationMatchRequest  = "match_request"
	NotificationMatchResponse = "match_response"
	NotificationChatUnlocked  = "chat_unlocked"
)

// Notification is a users/{uid}/notifications/{id} document
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	FromUser  string    `json:"fromUserId,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// PushPayload is what gets delivered to a device token
type PushPayload struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// DeviceTokenRequest is the body of PUT /api/v1/devices/token
type DeviceTokenRequest struct {
	Token string `json:"token" binding:"required,max=4096"`
}
