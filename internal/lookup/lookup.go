// Package lookup answers structured queries over a dataset snapshot:
// current class, weekly routine, course, faculty and bus schedule.
//
// Every query reads one immutable snapshot, so results are consistent even
// while an append or reload publishes a new one.
package lookup

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/metromate/metromate-linebot-go/internal/dataset"
)

// SnapshotSource provides the current dataset snapshot.
type SnapshotSource interface {
	Snapshot() *dataset.Snapshot
}

// Engine runs lookups against a SnapshotSource.
type Engine struct {
	source SnapshotSource
	loc    *time.Location
}

// NewEngine creates an engine that interprets "now" in loc.
func NewEngine(source SnapshotSource, loc *time.Location) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{source: source, loc: loc}
}

// Location returns the timezone used for current-class lookups.
func (e *Engine) Location() *time.Location { return e.loc }

// Class is a routine entry with its course and faculty names resolved.
// Missing names are empty strings.
type Class struct {
	dataset.RoutineEntry
	CourseName  string
	FacultyName string
}

// ClassResult is the outcome of CurrentClass.
type ClassResult struct {
	Batch string
	Day   dataset.Day
	At    dataset.Clock
	Found bool
	Class Class
}

// CurrentClass returns the first entry, in stored order, for batch on the
// weekday of now whose [start, end) slot contains the time of day.
func (e *Engine) CurrentClass(batch string, now time.Time) ClassResult {
	local := now.In(e.loc)
	res := ClassResult{
		Batch: dataset.Normalize(batch),
		Day:   dataset.DayOf(local.Weekday()),
		At:    dataset.ClockOf(local),
	}

	snap := e.source.Snapshot()
	key := dataset.FoldKey(batch)
	for _, entry := range snap.Routine {
		if entry.Day != res.Day || dataset.FoldKey(entry.Batch) != key {
			continue
		}
		if entry.Contains(res.At) {
			res.Found = true
			res.Class = resolve(snap, entry)
			break
		}
	}
	return res
}

// DaySchedule is the classes of one day, sorted by start time.
type DaySchedule struct {
	Day     dataset.Day
	Classes []Class
}

// WeeklyRoutine groups the entries of batch by day. Days are returned in
// canonical order (Saturday first) and days without classes are omitted.
// An empty result means the batch has no routine.
func (e *Engine) WeeklyRoutine(batch string) []DaySchedule {
	snap := e.source.Snapshot()
	key := dataset.FoldKey(batch)

	var byDay [len(dataset.Week)][]Class
	for _, entry := range snap.Routine {
		if dataset.FoldKey(entry.Batch) != key {
			continue
		}
		byDay[entry.Day] = append(byDay[entry.Day], resolve(snap, entry))
	}

	var week []DaySchedule
	for _, day := range dataset.Week {
		classes := byDay[day]
		if len(classes) == 0 {
			continue
		}
		slices.SortStableFunc(classes, func(a, b Class) int {
			return int(a.Start) - int(b.Start)
		})
		week = append(week, DaySchedule{Day: day, Classes: classes})
	}
	return week
}

func resolve(snap *dataset.Snapshot, entry dataset.RoutineEntry) Class {
	return Class{
		RoutineEntry: entry,
		CourseName:   snap.Courses.Name(entry.CourseCode),
		FacultyName:  snap.Faculty.Name(entry.FacultyInitial),
	}
}

// DirectoryResult is the outcome of a course or faculty lookup.
type DirectoryResult struct {
	Query string // the key as asked, upper-cased for display
	Found bool
	Entry dataset.DirectoryEntry
}

// Course looks up a course code case-insensitively.
func (e *Engine) Course(code string) DirectoryResult {
	return directoryLookup(e.source.Snapshot().Courses, code)
}

// Faculty looks up a faculty initial case-insensitively.
func (e *Engine) Faculty(initial string) DirectoryResult {
	return directoryLookup(e.source.Snapshot().Faculty, initial)
}

func directoryLookup(d *dataset.Directory, key string) DirectoryResult {
	entry, ok := d.Lookup(key)
	return DirectoryResult{Query: dataset.CanonicalKey(key), Found: ok, Entry: entry}
}

// BusStatus distinguishes the outcomes of a bus lookup.
type BusStatus int

// Bus lookup outcomes.
const (
	BusNoData  BusStatus = iota // the dataset has no buses at all
	BusAll                      // no query, every entry returned
	BusMatched                  // query matched at least one entry
	BusNoMatch                  // query matched nothing
)

// BusResult is the outcome of Buses.
type BusResult struct {
	Query   string
	Status  BusStatus
	Entries []dataset.BusEntry
}

// Buses returns every entry when query is blank, otherwise each entry whose
// route name, route details or bus number contains query case-insensitively.
func (e *Engine) Buses(query string) BusResult {
	snap := e.source.Snapshot()
	query = dataset.Normalize(query)
	res := BusResult{Query: query}

	if len(snap.Buses) == 0 {
		res.Status = BusNoData
		return res
	}
	if query == "" {
		res.Status = BusAll
		res.Entries = slices.Clone(snap.Buses)
		return res
	}

	for _, b := range snap.Buses {
		if ContainsFold(b.RouteName, query) || ContainsFold(b.RouteDetails, query) || ContainsFold(b.BusNo, query) {
			res.Entries = append(res.Entries, b)
		}
	}
	if len(res.Entries) == 0 {
		res.Status = BusNoMatch
	} else {
		res.Status = BusMatched
	}
	return res
}

// ContainsFold reports whether substr occurs in s under Unicode case folding.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	_, _, ok := indexFold(s, substr, 0)
	return ok
}

// Highlight wraps every case-insensitive occurrence of query in s with
// marker on both sides, keeping the original spelling of s.
func Highlight(s, query, marker string) string {
	query = dataset.Normalize(query)
	if query == "" || s == "" {
		return s
	}
	var b strings.Builder
	pos := 0
	for {
		start, end, ok := indexFold(s, query, pos)
		if !ok {
			break
		}
		b.WriteString(s[pos:start])
		b.WriteString(marker)
		b.WriteString(s[start:end])
		b.WriteString(marker)
		pos = end
	}
	if pos == 0 {
		return s
	}
	b.WriteString(s[pos:])
	return b.String()
}

// indexFold finds the first byte range [start, end) at or after from whose
// runes equal query under simple case folding. Comparing rune windows keeps
// byte offsets valid even when upper and lower case differ in length.
func indexFold(s, query string, from int) (int, int, bool) {
	n := utf8.RuneCountInString(query)
	for start := from; start < len(s); {
		end, count := start, 0
		for end < len(s) && count < n {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
			count++
		}
		if count < n {
			return 0, 0, false
		}
		if strings.EqualFold(s[start:end], query) {
			return start, end, true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		start += size
	}
	return 0, 0, false
}
