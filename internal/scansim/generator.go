package scansim

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"time"
)

const randomFloatDivisor = 1000000

// Unreadable payloads a camera produces from a partial or blurred code.
var noisePayloads = []string{"PERSON_", "PERSON_x", "PERS", "PERSON_-1", "?"}

// getRandomFloat returns a random float64 in [0, 1).
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomIndex(n int) int {
	v, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(v.Int64())
}

// Plan lays out every visit on a capture timeline starting at start. Visits
// are ordered round by round: each person once, then each person again.
func Plan(cfg Config, start time.Time) []Visit {
	visits := make([]Visit, 0, cfg.People*cfg.Visits)
	at := start
	for round := 0; round < cfg.Visits; round++ {
		for i := 0; i < cfg.People; i++ {
			id := cfg.FirstID + int64(i)
			visits = append(visits, planVisit(cfg, id, at))
			at = at.Add(cfg.VisitGap)
		}
	}
	return visits
}

func planVisit(cfg Config, personID int64, at time.Time) Visit {
	code := cfg.Prefix + strconv.FormatInt(personID, 10)
	v := Visit{PersonID: personID, Frames: make([]Frame, cfg.Frames)}
	for f := 0; f < cfg.Frames; f++ {
		payload := code
		if cfg.Noise > 0 && getRandomFloat() < cfg.Noise {
			payload = noisePayloads[randomIndex(len(noisePayloads))]
		}
		v.Frames[f] = Frame{
			PersonID:   personID,
			Payload:    payload,
			CapturedAt: at.Add(time.Duration(f) * cfg.FrameGap),
		}
	}
	return v
}

// IsNoise reports whether f carries an unreadable payload.
func (f Frame) IsNoise(prefix string) bool {
	return f.Payload != prefix+strconv.FormatInt(f.PersonID, 10)
}
