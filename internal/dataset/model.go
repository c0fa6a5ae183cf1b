package dataset

import (
	"fmt"
	"slices"

	apperrors "github.com/metromate/metromate-linebot-go/internal/errors"
)

// RoutineEntry is one class slot of a batch.
type RoutineEntry struct {
	Day            Day
	Batch          string
	Start          Clock
	End            Clock
	CourseCode     string
	Room           string
	FacultyInitial string
}

// Contains reports whether c falls inside the half-open slot [Start, End).
func (e RoutineEntry) Contains(c Clock) bool {
	return e.Start <= c && c < e.End
}

// Validate checks the invariants every stored entry satisfies.
func (e RoutineEntry) Validate() error {
	switch {
	case !e.Day.Valid():
		return apperrors.NewValidationError("day", "unknown day")
	case Normalize(e.Batch) == "":
		return apperrors.NewValidationError("batch", "must not be empty")
	case Normalize(e.CourseCode) == "":
		return apperrors.NewValidationError("course_code", "must not be empty")
	case !e.Start.Valid() || !e.End.Valid():
		return apperrors.NewValidationError("time", "outside a single day")
	case e.Start >= e.End:
		return apperrors.NewValidationError("time", fmt.Sprintf("start %s must be before end %s", e.Start, e.End))
	}
	return nil
}

// BusEntry is one bus trip. No field is unique.
type BusEntry struct {
	BusNo             string `json:"bus_no"`
	RouteName         string `json:"route_name"`
	RouteDetails      string `json:"route_details"`
	DepartureLocation string `json:"departure_location"`
	ArrivalLocation   string `json:"arrival_location"`
	DepartureTime     string `json:"departure_time"`
	ArrivalTime       string `json:"arrival_time"`
	BusType           string `json:"bus_type"`
}

// Validate requires at least a bus number or a route name.
func (b BusEntry) Validate() error {
	if Normalize(b.BusNo) == "" && Normalize(b.RouteName) == "" {
		return apperrors.NewValidationError("bus", "bus number or route name is required")
	}
	return nil
}

// DirectoryEntry is one row of the course or faculty map.
type DirectoryEntry struct {
	Key  string
	Name string
}

// Directory is an immutable, insertion-ordered map with case-insensitive
// keys. It backs both the course and the faculty documents.
type Directory struct {
	index   map[string]int
	entries []DirectoryEntry
}

// NewDirectory builds a directory from entries in order. Later entries whose
// key folds to an existing one are dropped and counted.
func NewDirectory(entries []DirectoryEntry) (*Directory, int) {
	d := &Directory{index: make(map[string]int, len(entries))}
	dropped := 0
	for _, e := range entries {
		k := FoldKey(e.Key)
		if _, dup := d.index[k]; dup || k == "" {
			dropped++
			continue
		}
		d.index[k] = len(d.entries)
		d.entries = append(d.entries, e)
	}
	return d, dropped
}

// Lookup finds key case-insensitively.
func (d *Directory) Lookup(key string) (DirectoryEntry, bool) {
	if d == nil {
		return DirectoryEntry{}, false
	}
	i, ok := d.index[FoldKey(key)]
	if !ok {
		return DirectoryEntry{}, false
	}
	return d.entries[i], true
}

// Name returns the full name stored for key, or "" when absent.
func (d *Directory) Name(key string) string {
	e, _ := d.Lookup(key)
	return e.Name
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.entries)
}

// Entries returns a copy of the entries in document order.
func (d *Directory) Entries() []DirectoryEntry {
	if d == nil {
		return nil
	}
	return slices.Clone(d.entries)
}

// With returns a new directory with the entry appended. The receiver is
// left untouched. A key that folds to an existing one yields ErrDuplicateKey.
func (d *Directory) With(e DirectoryEntry) (*Directory, error) {
	k := FoldKey(e.Key)
	if k == "" {
		return nil, apperrors.NewValidationError("key", "must not be empty")
	}
	if _, dup := d.Lookup(e.Key); dup {
		return nil, fmt.Errorf("%s: %w", e.Key, apperrors.ErrDuplicateKey)
	}
	next := &Directory{
		index:   make(map[string]int, d.Len()+1),
		entries: make([]DirectoryEntry, 0, d.Len()+1),
	}
	if d != nil {
		next.entries = append(next.entries, d.entries...)
		for key, i := range d.index {
			next.index[key] = i
		}
	}
	next.index[k] = len(next.entries)
	next.entries = append(next.entries, e)
	return next, nil
}
