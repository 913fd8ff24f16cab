package models

// CrossingEvent records that SubjectUserID was observed within crossing distance
// of the counterparty at Timestamp
type CrossingEvent struct {
	SubjectUserID string   `json:"subjectUserId"`
	Timestamp     int64    `json:"timestampMs"`
	Location      Location `json:"location"`
}

// CrossingState is the per-pair event log shared by both participants
type CrossingState struct {
	Events          []CrossingEvent `json:"events"`
	LastProcessedMs int64           `json:"lastProcessedTimestampMs"`
}

// CrossingRecord is a CrossingState as persisted under pathCrossings/{pairId}
type CrossingRecord struct {
	PairID     string        `json:"pairId"`
	State      CrossingState `json:"state"`
	UnlockedAt *int64        `json:"unlockedAt,omitempty"` // Unix ms of the first unlock, sticky
	UpdatedAt  int64         `json:"updatedAt"`
}

// CrossingPhase is the state machine position of a pair from one user's side
type CrossingPhase string

const (
	PhaseNoHistory      CrossingPhase = "NO_HISTORY"
	PhaseBelowThreshold CrossingPhase = "BELOW_THRESHOLD"
	PhaseUnlocked       CrossingPhase = "UNLOCKED"
)

// PairStatus summarizes a pair for API responses
type PairStatus struct {
	PairID            string        `json:"pairId"`
	UserID            string        `json:"userId"`
	OtherUserID       string        `json:"otherUserId"`
	Crossings         int           `json:"crossings"`
	OtherCrossings    int           `json:"otherCrossings"`
	RequiredCrossings int           `json:"requiredCrossings"`
	Phase             CrossingPhase `json:"phase"`
	ChatUnlocked      bool          `json:"chatUnlocked"`
	NewlyUnlocked     bool          `json:"-"`
}
