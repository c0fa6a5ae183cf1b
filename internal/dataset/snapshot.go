package dataset

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Snapshot is an immutable view of all four documents. Readers may use a
// snapshot without locking; appends publish a new snapshot instead of
// mutating the current one.
type Snapshot struct {
	Routine  []RoutineEntry
	Courses  *Directory
	Faculty  *Directory
	Buses    []BusEntry
	LoadedAt time.Time

	routineRaw []json.RawMessage
}

// EmptySnapshot returns a snapshot with empty containers.
func EmptySnapshot() *Snapshot {
	courses, _ := NewDirectory(nil)
	faculty, _ := NewDirectory(nil)
	return &Snapshot{
		Routine: []RoutineEntry{},
		Courses: courses,
		Faculty: faculty,
		Buses:   []BusEntry{},
	}
}

// Count returns the number of records held for doc.
func (s *Snapshot) Count(doc Document) int {
	switch doc {
	case DocRoutine:
		return len(s.Routine)
	case DocCourses:
		return s.Courses.Len()
	case DocFaculty:
		return s.Faculty.Len()
	case DocBuses:
		return len(s.Buses)
	}
	return 0
}

// Encode renders doc in its on-disk JSON form.
func (s *Snapshot) Encode(doc Document) ([]byte, error) {
	switch doc {
	case DocRoutine:
		rows := s.routineRaw
		if rows == nil {
			rows = []json.RawMessage{}
		}
		return encodeIndented(rows)
	case DocCourses:
		return encodeDirectory(s.Courses)
	case DocFaculty:
		return encodeDirectory(s.Faculty)
	case DocBuses:
		buses := s.Buses
		if buses == nil {
			buses = []BusEntry{}
		}
		return encodeIndented(buses)
	}
	return nil, fmt.Errorf("unknown document %q", doc)
}

// clone makes a shallow copy whose slices can be appended to without
// touching the receiver.
func (s *Snapshot) clone() *Snapshot {
	next := *s
	next.Routine = slices.Clip(s.Routine)
	next.Buses = slices.Clip(s.Buses)
	next.routineRaw = slices.Clip(s.routineRaw)
	return &next
}
