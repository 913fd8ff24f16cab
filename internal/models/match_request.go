package models

import "time"

// MatchRequestStatus is the lifecycle of a match request
type MatchRequestStatus string

const (
	MatchPending  MatchRequestStatus = "pending"
	MatchAccepted MatchRequestStatus = "accepted"
	MatchRejected MatchRequestStatus = "rejected"
)

// MatchRequest is a matchRequests/{id} document
type MatchRequest struct {
	ID         string             `json:"id"`
	FromUserID string             `json:"fromUserId"`
	ToUserID   string             `json:"toUserId"`
	Status     MatchRequestStatus `json:"status"`
	Message    string             `json:"message,omitempty"`
	CreatedAt  time.Time          `json:"createdAt"`
}

// CreateMatchRequest is the body of POST /api/v1/match-requests
type CreateMatchRequest struct {
	ToUserID string `json:"toUserId" binding:"required"`
	Message  string `json:"message" binding:"max=500"`
}
