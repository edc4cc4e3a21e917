package scansim

import (
	"errors"
	"fmt"

	"github.com/okian/rollcall/internal/domain/model"
)

// ErrDuplicateRecords means the station recorded someone twice.
var ErrDuplicateRecords = errors.New("person recorded more than once")

// Report summarizes a roster.
type Report struct {
	Records    int
	People     int
	Duplicates map[int64]int
	Strangers  []int64
}

type recordKey struct {
	personID int64
	context  string
}

// Verify checks that no person holds two records for the same context and
// that every record belongs to the simulated crowd.
func Verify(cfg Config, records []model.AttendanceRecord) (Report, error) {
	r := Report{Records: len(records), Duplicates: map[int64]int{}}
	seen := make(map[recordKey]int, len(records))
	people := make(map[int64]struct{}, len(records))
	last := cfg.FirstID + int64(cfg.People) - 1

	for _, rec := range records {
		k := recordKey{personID: rec.PersonID, context: rec.Context().Key()}
		seen[k]++
		if seen[k] > 1 {
			r.Duplicates[rec.PersonID] = seen[k]
		}
		if _, ok := people[rec.PersonID]; !ok {
			people[rec.PersonID] = struct{}{}
			if rec.PersonID < cfg.FirstID || rec.PersonID > last {
				r.Strangers = append(r.Strangers, rec.PersonID)
			}
		}
	}
	r.People = len(people)

	switch {
	case len(r.Duplicates) > 0:
		return r, fmt.Errorf("%w: %v", ErrDuplicateRecords, r.Duplicates)
	case len(r.Strangers) > 0:
		return r, fmt.Errorf("records for people outside the crowd: %v", r.Strangers)
	}
	return r, nil
}
