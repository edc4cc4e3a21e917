package memory

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/rollcall/internal/domain/model"
)

// Seed is the initial content of a memory store, usually loaded from YAML:
//
//	people:
//	  - {id: 1, name: Ana Costa, badge: B-1, role: student, active: true}
//	sessions:
//	  - {class_id: 7, weekday: monday, subject: Algebra, class_name: Group A}
//	events:
//	  - {id: 3, title: Open Day, starts_on: "2024-05-10", ends_on: "2024-05-12"}
//
// Dates must be quoted.
type Seed struct {
	People   []model.Person `koanf:"people"`
	Sessions []SeedSession  `koanf:"sessions"`
	Events   []SeedEvent    `koanf:"events"`
}

// SeedSession is a class session as written in a seed file.
type SeedSession struct {
	ClassID   int64  `koanf:"class_id"`
	Weekday   string `koanf:"weekday"`
	Subject   string `koanf:"subject"`
	ClassName string `koanf:"class_name"`
	Professor string `koanf:"professor"`
	StartsAt  string `koanf:"starts_at"`
}

// SeedEvent is an event as written in a seed file.
type SeedEvent struct {
	ID          int64  `koanf:"id"`
	Title       string `koanf:"title"`
	Description string `koanf:"description"`
	StartsOn    string `koanf:"starts_on"`
	EndsOn      string `koanf:"ends_on"`
}

// LoadSeed reads a YAML seed file.
func LoadSeed(path string) (Seed, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Seed{}, fmt.Errorf("%w: %s: %v", ErrInvalidSeed, path, err)
	}
	var seed Seed
	if err := k.Unmarshal("", &seed); err != nil {
		return Seed{}, fmt.Errorf("%w: %s: %v", ErrInvalidSeed, path, err)
	}
	return seed, nil
}

func (s SeedSession) session() (model.ClassSession, error) {
	wd, err := ParseWeekday(s.Weekday)
	if err != nil {
		return model.ClassSession{}, err
	}
	return model.ClassSession{
		ClassID:   s.ClassID,
		Weekday:   wd,
		Subject:   s.Subject,
		ClassName: s.ClassName,
		Professor: s.Professor,
		StartsAt:  s.StartsAt,
	}, nil
}

func (e SeedEvent) event() (model.Event, error) {
	start, err := time.Parse(time.DateOnly, e.StartsOn)
	if err != nil {
		return model.Event{}, fmt.Errorf("%w: event %d starts_on: %v", ErrInvalidSeed, e.ID, err)
	}
	end := start
	if e.EndsOn != "" {
		if end, err = time.Parse(time.DateOnly, e.EndsOn); err != nil {
			return model.Event{}, fmt.Errorf("%w: event %d ends_on: %v", ErrInvalidSeed, e.ID, err)
		}
	}
	return model.Event{ID: e.ID, Title: e.Title, Description: e.Description, StartsOn: start, EndsOn: end}, nil
}

// ParseWeekday accepts English day names, three letter abbreviations, or 0-6 with Sunday as 0.
func ParseWeekday(s string) (time.Weekday, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(v); err == nil {
		if n < 0 || n > 6 {
			return 0, fmt.Errorf("%w: weekday %d out of range", ErrInvalidSeed, n)
		}
		return time.Weekday(n), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if v == name || v == name[:3] {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidSeed, s)
}
