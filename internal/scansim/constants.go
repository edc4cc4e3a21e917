package scansim

import "time"

// Defaults applied by Normalize.
const (
	DefaultPrefix   = "PERSON_"
	DefaultPeople   = 20
	DefaultVisits   = 2
	DefaultFrames   = 12
	DefaultFrameGap = 66 * time.Millisecond
	DefaultVisitGap = time.Second
	DefaultLanes    = 1
	DefaultSettle   = 3 * time.Second
	DefaultTimeout  = 10 * time.Second
)

// Result labels for a single submission.
const (
	resultAccepted = "accepted"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

// Normalize fills zero fields with defaults.
func (c *Config) Normalize() {
	if c.Prefix == "" {
		c.Prefix = DefaultPrefix
	}
	if c.FirstID <= 0 {
		c.FirstID = 1
	}
	if c.People <= 0 {
		c.People = DefaultPeople
	}
	if c.Visits <= 0 {
		c.Visits = DefaultVisits
	}
	if c.Frames <= 0 {
		c.Frames = DefaultFrames
	}
	if c.FrameGap <= 0 {
		c.FrameGap = DefaultFrameGap
	}
	if c.VisitGap <= 0 {
		c.VisitGap = DefaultVisitGap
	}
	if c.Lanes <= 0 {
		c.Lanes = DefaultLanes
	}
	if c.Settle <= 0 {
		c.Settle = DefaultSettle
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Noise < 0 {
		c.Noise = 0
	}
	if c.Noise > 1 {
		c.Noise = 1
	}
}
