// Package memory is an in-process store for development and tests. It emulates
// the unique index on (person, context, day) under a single lock.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/okian/rollcall/internal/domain/model"
)

// Store implements the repository store in memory.
type Store struct {
	loc  *time.Location
	seed *Seed

	mu         sync.RWMutex
	people     map[int64]model.Person
	tokens     map[string]int64 // code or badge -> person id
	sessions   []model.ClassSession
	events     []model.Event
	records    []model.AttendanceRecord // insertion order
	keys       map[string]string        // uniqueness key -> record id
	nextID     int64
	seedErrors []error
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		loc:    time.Local,
		people: make(map[int64]model.Person),
		tokens: make(map[string]int64),
		keys:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.seed != nil {
		s.apply(*s.seed)
		s.seed = nil
	}
	return s
}

func (s *Store) apply(seed Seed) {
	for _, p := range seed.People {
		s.AddPerson(p)
	}
	for _, ss := range seed.Sessions {
		session, err := ss.session()
		if err != nil {
			s.seedErrors = append(s.seedErrors, err)
			continue
		}
		s.AddSession(session)
	}
	for _, se := range seed.Events {
		ev, err := se.event()
		if err != nil {
			s.seedErrors = append(s.seedErrors, err)
			continue
		}
		s.AddEvent(ev)
	}
}

// SeedErrors returns seed entries that could not be loaded.
func (s *Store) SeedErrors() []error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]error(nil), s.seedErrors...)
}

// AddPerson inserts or replaces a person. A zero id is assigned the next free one.
func (s *Store) AddPerson(p model.Person) model.Person {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		s.nextID++
		for s.people[s.nextID].ID != 0 {
			s.nextID++
		}
		p.ID = s.nextID
	}
	if p.ID > s.nextID {
		s.nextID = p.ID
	}
	if old, ok := s.people[p.ID]; ok {
		delete(s.tokens, old.Code)
		delete(s.tokens, old.Badge)
	}
	s.people[p.ID] = p
	if p.Code != "" {
		s.tokens[p.Code] = p.ID
	}
	if p.Badge != "" {
		s.tokens[p.Badge] = p.ID
	}
	return p
}

// AddSession adds a weekly class session.
func (s *Store) AddSession(session model.ClassSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
}

// AddEvent adds an event.
func (s *Store) AddEvent(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *Store) ByID(_ context.Context, id int64) (model.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.people[id]
	if !ok {
		return model.Person{}, model.ErrNotFound
	}
	return p, nil
}

func (s *Store) ByCodeOrBadge(_ context.Context, token string) (model.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok {
		return model.Person{}, model.ErrNotFound
	}
	return s.people[id], nil
}

// Search ranks exact identifier matches first, then name prefix, then name substring.
func (s *Store) Search(_ context.Context, term string, limit int) ([]model.Person, error) {
	term = strings.TrimSpace(term)
	lower := strings.ToLower(term)
	id, idErr := strconv.ParseInt(term, 10, 64)

	type hit struct {
		p    model.Person
		rank int
	}
	var hits []hit

	s.mu.RLock()
	for _, p := range s.people {
		if !p.Active {
			continue
		}
		name := strings.ToLower(p.Name)
		switch {
		case idErr == nil && p.ID == id,
			p.Code != "" && p.Code == term,
			p.Badge != "" && p.Badge == term,
			p.NationalID != "" && p.NationalID == term:
			hits = append(hits, hit{p, 0})
		case strings.HasPrefix(name, lower):
			hits = append(hits, hit{p, 1})
		case strings.Contains(name, lower):
			hits = append(hits, hit{p, 2})
		}
	}
	s.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		if hits[i].p.Name != hits[j].p.Name {
			return hits[i].p.Name < hits[j].p.Name
		}
		return hits[i].p.ID < hits[j].p.ID
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]model.Person, len(hits))
	for i, h := range hits {
		out[i] = h.p
	}
	return out, nil
}

func (s *Store) SessionsOn(_ context.Context, weekday time.Weekday) ([]model.ClassSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.ClassSession
	for _, session := range s.sessions {
		if session.Weekday == weekday {
			out = append(out, session)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartsAt < out[j].StartsAt })
	return out, nil
}

func (s *Store) EventsOn(_ context.Context, day model.Day) ([]model.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Event
	for _, ev := range s.events {
		if ev.CoversDay(day) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// FindExisting returns the most recent record matching q.
func (s *Store) FindExisting(_ context.Context, q model.ExistingQuery) (model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := len(s.records) - 1; i >= 0; i-- {
		if q.Matches(s.records[i]) {
			return s.records[i], nil
		}
	}
	return model.AttendanceRecord{}, model.ErrNotFound
}

// Insert stores rec unless its uniqueness key is taken.
func (s *Store) Insert(_ context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	if err := rec.Context().Validate(); err != nil {
		return model.AttendanceRecord{}, err
	}
	key := s.uniqueKey(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.keys[key]; taken {
		return model.AttendanceRecord{}, model.ErrUniqueViolation
	}
	s.keys[key] = rec.ID
	s.records = append(s.records, rec)
	return rec, nil
}

// ListBetween returns records with from <= CheckInAt < to, newest first.
func (s *Store) ListBetween(_ context.Context, from, to time.Time, limit int) ([]model.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.AttendanceRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		r := s.records[i]
		if r.CheckInAt.Before(from) || !r.CheckInAt.Before(to) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CheckInAt.After(out[j].CheckInAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Len returns the number of attendance records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

func (s *Store) uniqueKey(rec model.AttendanceRecord) string {
	return strconv.FormatInt(rec.PersonID, 10) + "|" + rec.Context().Key() + "|" + model.DayOf(rec.CheckInAt, s.loc).String()
}
