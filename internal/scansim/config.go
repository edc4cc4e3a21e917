// Package scansim replays noisy camera captures against a running station and
// checks that every person was recorded at most once.
package scansim

import "time"

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL  string        // Base URL of the station
	Token    string        // Bearer token for POST /scans, empty when auth is off
	Prefix   string        // Structured code prefix, e.g. PERSON_
	FirstID  int64         // First person id of the simulated crowd
	People   int           // Number of people walking past the camera
	Visits   int           // Times each person shows a badge
	Frames   int           // Decoded frames per visit
	FrameGap time.Duration // Capture spacing between frames of one visit
	VisitGap time.Duration // Capture spacing between visits
	Noise    float64       // Fraction of frames replaced with unreadable payloads
	Lanes    int           // Concurrent cameras feeding the station
	Settle   time.Duration // Wait for debounce and commits before reading the roster
	Timeout  time.Duration // HTTP request timeout
	Verbose  bool          // Log every rejected scan
}

// Frame is one decoded payload with its capture time.
type Frame struct {
	PersonID   int64
	Payload    string
	CapturedAt time.Time
}

// Visit is one person holding a badge up to the camera.
type Visit struct {
	PersonID int64
	Frames   []Frame
}

// Stats holds run statistics.
type Stats struct {
	FramesGenerated int
	FramesNoisy     int
	ScansSubmitted  int
	ScansAccepted   int
	ScansRejected   int
	ScansFailed     int
	RosterRecords   int
	PeopleCheckedIn int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}
