package models

import "time"

// User is the users/{uid} document
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Program     string    `json:"program"`
	Email       string    `json:"email"`
	Location    *Location `json:"location,omitempty"`
	// LastSample is the latest accepted sample. Location only follows it
	// after a large enough move.
	LastSample *Location `json:"-"`
	LastActive time.Time `json:"lastActive"`
	IsActive   bool      `json:"isActive"`
	GhostMode  bool      `json:"ghostMode"`
}

// NearbyUser is derived on every sampling cycle and never stored
type NearbyUser struct {
	UserID         string   `json:"userId"`
	DisplayName    string   `json:"displayName"`
	Program        string   `json:"program"`
	DistanceMeters float64  `json:"distanceMeters"`
	Location       Location `json:"location"`

	lastSample Location
}

// NewNearbyUser builds a nearby entry for u at distance. u must have a location.
func NewNearbyUser(u User, displayName, program string, distance float64) NearbyUser {
	n := NearbyUser{
		UserID:         u.ID,
		DisplayName:    displayName,
		Program:        program,
		DistanceMeters: distance,
		Location:       *u.Location,
		lastSample:     *u.Location,
	}
	if u.LastSample != nil {
		n.lastSample = *u.LastSample
	}
	return n
}

// LastSample is where the user last reported being
func (n NearbyUser) LastSample() Location {
	return n.lastSample
}

// ProfileRequest is the body of PUT /api/v1/me
type ProfileRequest struct {
	DisplayName string `json:"displayName" binding:"required,max=100"`
	Program     string `json:"program" binding:"max=100"`
	Email       string `json:"email" binding:"omitempty,email"`
}

// GhostModeRequest is the body of PUT /api/v1/me/ghost-mode
type GhostModeRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// CheckinResult is returned for every accepted location sample
type CheckinResult struct {
	Accepted  bool         `json:"accepted"`
	Location  *Location    `json:"location,omitempty"`
	Nearby    []NearbyUser `json:"nearby"`
	Crossings []PairStatus `json:"crossings"`
}
