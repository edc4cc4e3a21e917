// Package postgres is the shared attendance store on PostgreSQL. The unique
// index on (person_id, context_key, check_in_day) is the final arbiter when
// stations race on the same key.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/pkg/logger"
	"github.com/okian/rollcall/pkg/metrics"
)

//go:embed schema.sql
var schemaSQL string

// Store implements the repository store over a pgx pool.
type Store struct {
	pool     *pgxpool.Pool
	q        queries
	loc      *time.Location
	log      logger.Logger
	maxConns int32
}

// Option configures a Store.
type Option func(*Store)

// WithLocation sets the reference zone for check_in_day.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxConns caps the pool size.
func WithMaxConns(n int32) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxConns = n
		}
	}
}

// Connect opens a pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := &Store{loc: time.Local, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.q = newQueries(s.loc)

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if s.maxConns > 0 {
		cfg.MaxConns = s.maxConns
	}
	cfg.ConnConfig.ConnectTimeout = 5 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s.pool = pool
	return s, nil
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info(ctx, "schema applied")
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// isUniqueViolation reports a 23505 on the attendance key.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" &&
		(pgErr.ConstraintName == "" || pgErr.ConstraintName == UniqueIndex)
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, metrics.Milliseconds(time.Since(start)))
}

func scanPerson(row pgx.Row) (model.Person, error) {
	var p model.Person
	err := row.Scan(&p.ID, &p.Name, &p.NationalID, &p.Code, &p.Badge, &p.Role, &p.Active)
	return p, err
}

func scanRecord(row pgx.Row) (model.AttendanceRecord, error) {
	var (
		r      model.AttendanceRecord
		method string
	)
	err := row.Scan(&r.ID, &r.PersonID, &r.PersonName, &r.ClassID, &r.EventID, &r.CheckInAt,
		&method, &r.Note, &r.Label, &r.Payload, &r.StationID)
	r.Method = model.VerificationMethod(method)
	return r, err
}

func (s *Store) queryPerson(ctx context.Context, op string, sqlStr string, args []any) (model.Person, error) {
	defer observe(op, time.Now())
	p, err := scanPerson(s.pool.QueryRow(ctx, sqlStr, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Person{}, model.ErrNotFound
	}
	if err != nil {
		return model.Person{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *Store) ByID(ctx context.Context, id int64) (model.Person, error) {
	sqlStr, args, err := s.q.personByID(id).ToSql()
	if err != nil {
		return model.Person{}, fmt.Errorf("build person query: %w", err)
	}
	return s.queryPerson(ctx, "person_by_id", sqlStr, args)
}

func (s *Store) ByCodeOrBadge(ctx context.Context, token string) (model.Person, error) {
	sqlStr, args, err := s.q.personByToken(token).ToSql()
	if err != nil {
		return model.Person{}, fmt.Errorf("build person query: %w", err)
	}
	return s.queryPerson(ctx, "person_by_token", sqlStr, args)
}

func (s *Store) Search(ctx context.Context, term string, limit int) ([]model.Person, error) {
	defer observe("person_search", time.Now())
	sqlStr, args, err := s.q.search(term, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("search people: %w", err)
	}
	defer rows.Close()

	var out []model.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) SessionsOn(ctx context.Context, weekday time.Weekday) ([]model.ClassSession, error) {
	defer observe("sessions_on", time.Now())
	sqlStr, args, err := s.q.sessionsOn(weekday).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sessions query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []model.ClassSession
	for rows.Next() {
		var (
			cs model.ClassSession
			wd int16
		)
		if err := rows.Scan(&cs.ClassID, &wd, &cs.Subject, &cs.ClassName, &cs.Professor, &cs.StartsAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		cs.Weekday = time.Weekday(wd)
		out = append(out, cs)
	}
	return out, rows.Err()
}

func (s *Store) EventsOn(ctx context.Context, day model.Day) ([]model.Event, error) {
	defer observe("events_on", time.Now())
	sqlStr, args, err := s.q.eventsOn(day).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build events query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []model.Event
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Description, &ev.StartsOn, &ev.EndsOn); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *Store) FindExisting(ctx context.Context, q model.ExistingQuery) (model.AttendanceRecord, error) {
	defer observe("find_existing", time.Now())
	sqlStr, args, err := s.q.findExisting(q).ToSql()
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("build existing query: %w", err)
	}
	rec, err := scanRecord(s.pool.QueryRow(ctx, sqlStr, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AttendanceRecord{}, model.ErrNotFound
	}
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("find existing attendance: %w", err)
	}
	return rec, nil
}

func (s *Store) Insert(ctx context.Context, rec model.AttendanceRecord) (model.AttendanceRecord, error) {
	defer observe("insert", time.Now())
	if err := rec.Context().Validate(); err != nil {
		return model.AttendanceRecord{}, err
	}
	sqlStr, args, err := s.q.insert(rec).ToSql()
	if err != nil {
		return model.AttendanceRecord{}, fmt.Errorf("build insert: %w", err)
	}
	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		if isUniqueViolation(err) {
			return model.AttendanceRecord{}, model.ErrUniqueViolation
		}
		return model.AttendanceRecord{}, fmt.Errorf("insert attendance: %w", err)
	}
	return rec, nil
}

func (s *Store) ListBetween(ctx context.Context, from, to time.Time, limit int) ([]model.AttendanceRecord, error) {
	defer observe("list_between", time.Now())
	sqlStr, args, err := s.q.listBetween(from, to, limit).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []model.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
