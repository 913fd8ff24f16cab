package models

// Location represents one geodetic sample reported by a device
type Location struct {
	Latitude  float64  `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64  `json:"longitude" binding:"min=-180,max=180"`
	Accuracy  *float64 `json:"accuracy,omitempty"` // Meters, nil when the source did not report one
	Timestamp int64    `json:"timestamp"`          // Unix milliseconds
}

// AccuracyOr returns the reported accuracy, or def when none was reported
func (l Location) AccuracyOr(def float64) float64 {
	if l.Accuracy == nil {
		return def
	}
	return *l.Accuracy
}

// Meters is a convenience for building optional accuracy values
func Meters(v float64) *float64 {
	return &v
}

// LocationSampleRequest is the body of POST /api/v1/location/samples and /checkin
type LocationSampleRequest struct {
	Latitude  float64  `json:"latitude" binding:"min=-90,max=90"`
	Longitude float64  `json:"longitude" binding:"min=-180,max=180"`
	Accuracy  *float64 `json:"accuracy"`
	Timestamp int64    `json:"timestamp"`
}

// ToLocation converts the request body into a Location
func (r LocationSampleRequest) ToLocation() Location {
	return Location{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		Accuracy:  r.Accuracy,
		Timestamp: r.Timestamp,
	}
}
