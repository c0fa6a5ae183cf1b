// Package dataset owns the routine, course, faculty and bus tables.
//
// The Store holds an immutable Snapshot behind an atomic pointer. Loading
// never fails: on the first load a missing or malformed document becomes an
// empty container, on later reloads it keeps its previous contents, and
// either way it is reported in the LoadReport. Appends persist the new
// document first and publish the new snapshot only after the write
// succeeded, so memory and disk never diverge.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/metromate/metromate-linebot-go/internal/errors"
	"github.com/metromate/metromate-linebot-go/internal/logger"
)

// ChangeKind describes an append.
type ChangeKind string

// Change kinds.
const (
	ChangeAddRoutine ChangeKind = "add_routine"
	ChangeAddCourse  ChangeKind = "add_course"
	ChangeAddFaculty ChangeKind = "add_faculty"
	ChangeAddBus     ChangeKind = "add_bus"
)

// Change is emitted to observers after a successful append.
type Change struct {
	Kind     ChangeKind
	Document Document
	Key      string // course code, faculty initial, batch or bus number
	Payload  any
	UserID   string
	At       time.Time
	Snapshot *Snapshot
}

// Observer is notified after every successful append, in commit order.
// Observers run while further appends wait, so they must be quick and must
// not append to the Store themselves.
type Observer func(ctx context.Context, c Change)

// LoadReport summarizes a load.
type LoadReport struct {
	Counts      map[Document]int
	Skipped     int     // routine rows that could not be parsed
	Duplicates  int     // directory keys dropped as case-insensitive duplicates
	Unavailable []error // one *errors.DataUnavailableError per failed document
}

// OK reports whether every document loaded.
func (r LoadReport) OK() bool { return len(r.Unavailable) == 0 }

// Store is the single owner of the dataset.
type Store struct {
	persister Persister
	log       *logger.Logger
	now       func() time.Time

	current atomic.Pointer[Snapshot]
	loaded  atomic.Bool

	// writeMu serializes appends and reloads so a reload can never
	// publish documents read before a concurrent append was persisted.
	writeMu sync.Mutex
	reload  singleflight.Group

	// broken holds documents that exist but could not be read or parsed on
	// the last load. Appends to them are refused until a reload succeeds,
	// otherwise the write would replace the file with only the new record.
	broken map[Document]error

	observerMu sync.RWMutex
	observers  []Observer
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithObserver registers an observer at construction.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observers = append(s.observers, o) }
}

// NewStore creates a store with an empty snapshot. Call Load before serving.
func NewStore(p Persister, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		persister: p,
		log:       log.WithModule("dataset"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(EmptySnapshot())
	return s
}

// Observe registers an observer for future appends.
func (s *Store) Observe(o Observer) {
	s.observerMu.Lock()
	defer s.observerMu.Unlock()
	s.observers = append(s.observers, o)
}

// Snapshot returns the current immutable snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Loaded reports whether Load has completed at least once.
func (s *Store) Loaded() bool {
	return s.loaded.Load()
}

// Load reads all documents and publishes them. It never returns an error.
// A failed document is listed in the report and holds its previous contents,
// or an empty container if nothing was loaded before.
func (s *Store) Load(ctx context.Context) LoadReport {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.loadLocked(ctx)
}

// Reload is Load with concurrent callers collapsed into one read.
func (s *Store) Reload(ctx context.Context) LoadReport {
	v, _, _ := s.reload.Do("reload", func() (any, error) {
		return s.Load(ctx), nil
	})
	return v.(LoadReport)
}

type docResult struct {
	data []byte
	err  error
}

func (s *Store) loadLocked(ctx context.Context) LoadReport {
	results := make([]docResult, len(Documents))
	g, gctx := errgroup.WithContext(ctx)
	for i, doc := range Documents {
		g.Go(func() error {
			data, err := s.persister.ReadDocument(gctx, doc)
			results[i] = docResult{data: data, err: err}
			return nil
		})
	}
	_ = g.Wait()

	keep := s.loaded.Load()
	next := EmptySnapshot()
	if keep {
		next = s.Snapshot().clone()
	}
	broken := make(map[Document]error)
	report := LoadReport{Counts: make(map[Document]int, len(Documents))}
	fail := func(doc Document, err error) {
		report.Unavailable = append(report.Unavailable, apperrors.NewDataUnavailableError(string(doc), err))
		if !errors.Is(err, fs.ErrNotExist) {
			broken[doc] = err
		}
		log := s.log.WithError(err).WithField("document", string(doc))
		if keep {
			log.Warn("Dataset document unavailable, keeping previous data")
		} else {
			log.Warn("Dataset document unavailable, using empty data")
		}
	}

	for i, doc := range Documents {
		res := results[i]
		if res.err != nil {
			fail(doc, res.err)
			continue
		}
		switch doc {
		case DocRoutine:
			rows, err := decodeRoutine(res.data)
			if err != nil {
				fail(doc, err)
				continue
			}
			next.Routine, next.routineRaw = rows.entries, rows.raw
			report.Skipped = rows.skipped
		case DocCourses, DocFaculty:
			dir, dropped, err := decodeDirectory(res.data)
			if err != nil {
				fail(doc, err)
				continue
			}
			if doc == DocCourses {
				next.Courses = dir
			} else {
				next.Faculty = dir
			}
			report.Duplicates += dropped
		case DocBuses:
			buses, err := decodeBuses(res.data)
			if err != nil {
				fail(doc, err)
				continue
			}
			next.Buses = buses
		}
	}

	next.LoadedAt = s.now()
	for _, doc := range Documents {
		report.Counts[doc] = next.Count(doc)
	}
	s.current.Store(next)
	s.loaded.Store(true)
	s.broken = broken

	if report.Skipped > 0 {
		s.log.WithField("skipped", report.Skipped).Warn("Skipped malformed routine rows")
	}
	s.log.WithFields(map[string]any{
		"routine": report.Counts[DocRoutine],
		"courses": report.Counts[DocCourses],
		"faculty": report.Counts[DocFaculty],
		"buses":   report.Counts[DocBuses],
	}).Info("Dataset loaded")
	return report
}

// AddRoutine appends a routine entry.
func (s *Store) AddRoutine(ctx context.Context, e RoutineEntry, userID string) error {
	e.Batch = Normalize(e.Batch)
	e.CourseCode = CanonicalKey(e.CourseCode)
	e.Room = Normalize(e.Room)
	e.FacultyInitial = CanonicalKey(e.FacultyInitial)
	if err := e.Validate(); err != nil {
		return err
	}
	raw, err := encodeRoutineEntry(e)
	if err != nil {
		return fmt.Errorf("encode routine entry: %w", err)
	}
	return s.apply(ctx, Change{Kind: ChangeAddRoutine, Document: DocRoutine, Key: e.Batch, Payload: e, UserID: userID},
		func(next *Snapshot) error {
			next.Routine = append(next.Routine, e)
			next.routineRaw = append(next.routineRaw, raw)
			return nil
		})
}

// AddCourse appends a course. A code that already exists in any case
// returns ErrDuplicateKey and leaves the dataset unchanged.
func (s *Store) AddCourse(ctx context.Context, code, name, userID string) error {
	entry, err := directoryEntry("course_code", code, name)
	if err != nil {
		return err
	}
	return s.apply(ctx, Change{Kind: ChangeAddCourse, Document: DocCourses, Key: entry.Key, Payload: entry, UserID: userID},
		func(next *Snapshot) error {
			dir, err := next.Courses.With(entry)
			if err != nil {
				return err
			}
			next.Courses = dir
			return nil
		})
}

// AddFaculty appends a faculty member. Duplicate initials return
// ErrDuplicateKey and leave the dataset unchanged.
func (s *Store) AddFaculty(ctx context.Context, initial, name, userID string) error {
	entry, err := directoryEntry("initial", initial, name)
	if err != nil {
		return err
	}
	return s.apply(ctx, Change{Kind: ChangeAddFaculty, Document: DocFaculty, Key: entry.Key, Payload: entry, UserID: userID},
		func(next *Snapshot) error {
			dir, err := next.Faculty.With(entry)
			if err != nil {
				return err
			}
			next.Faculty = dir
			return nil
		})
}

// AddBus appends a bus entry.
func (s *Store) AddBus(ctx context.Context, b BusEntry, userID string) error {
	b = BusEntry{
		BusNo:             Normalize(b.BusNo),
		RouteName:         Normalize(b.RouteName),
		RouteDetails:      Normalize(b.RouteDetails),
		DepartureLocation: Normalize(b.DepartureLocation),
		ArrivalLocation:   Normalize(b.ArrivalLocation),
		DepartureTime:     Normalize(b.DepartureTime),
		ArrivalTime:       Normalize(b.ArrivalTime),
		BusType:           Normalize(b.BusType),
	}
	if err := b.Validate(); err != nil {
		return err
	}
	key := b.BusNo
	if key == "" {
		key = b.RouteName
	}
	return s.apply(ctx, Change{Kind: ChangeAddBus, Document: DocBuses, Key: key, Payload: b, UserID: userID},
		func(next *Snapshot) error {
			next.Buses = append(next.Buses, b)
			return nil
		})
}

func directoryEntry(field, key, name string) (DirectoryEntry, error) {
	key = CanonicalKey(key)
	name = Normalize(name)
	if key == "" {
		return DirectoryEntry{}, apperrors.NewValidationError(field, "must not be empty")
	}
	if name == "" {
		return DirectoryEntry{}, apperrors.NewValidationError("name", "must not be empty")
	}
	return DirectoryEntry{Key: key, Name: name}, nil
}

// apply builds the next snapshot, persists the affected document and only
// then publishes it. On any error the current snapshot is unchanged.
// Observers are notified before the next append can start.
func (s *Store) apply(ctx context.Context, change Change, mutate func(*Snapshot) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err, ok := s.broken[change.Document]; ok {
		return apperrors.NewDataUnavailableError(string(change.Document), err)
	}

	next := s.Snapshot().clone()
	if err := mutate(next); err != nil {
		return err
	}

	data, err := next.Encode(change.Document)
	if err != nil {
		return apperrors.NewPersistenceError(string(change.Document), err)
	}
	if err := s.persister.WriteDocument(ctx, change.Document, data); err != nil {
		s.log.WithError(err).WithField("document", string(change.Document)).Error("Failed to persist dataset document")
		return apperrors.NewPersistenceError(string(change.Document), err)
	}

	next.LoadedAt = s.now()
	s.current.Store(next)

	change.At = next.LoadedAt
	change.Snapshot = next
	s.log.WithFields(map[string]any{
		"kind": string(change.Kind),
		"key":  change.Key,
	}).Info("Dataset updated")

	s.observerMu.RLock()
	observers := append([]Observer(nil), s.observers...)
	s.observerMu.RUnlock()
	for _, o := range observers {
		o(ctx, change)
	}
	return nil
}

// MarshalPayload renders a change payload as compact JSON for the journal.
func MarshalPayload(c Change) ([]byte, error) {
	switch p := c.Payload.(type) {
	case RoutineEntry:
		return marshalCompact(recordOf(p))
	case DirectoryEntry:
		return marshalCompact(map[string]string{p.Key: p.Name})
	default:
		return marshalCompact(p)
	}
}
