package dataset

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// routineRecord is the on-disk shape of a routine row.
type routineRecord struct {
	Day            string `json:"day"`
	Batch          string `json:"batch"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	CourseCode     string `json:"course_code"`
	Room           string `json:"room"`
	FacultyInitial string `json:"faculty_initial"`
}

func (r routineRecord) entry() (RoutineEntry, error) {
	day, err := ParseDay(r.Day)
	if err != nil {
		return RoutineEntry{}, err
	}
	start, err := ParseClock(r.StartTime)
	if err != nil {
		return RoutineEntry{}, err
	}
	end, err := ParseClock(r.EndTime)
	if err != nil {
		return RoutineEntry{}, err
	}
	e := RoutineEntry{
		Day:            day,
		Batch:          Normalize(r.Batch),
		Start:          start,
		End:            end,
		CourseCode:     Normalize(r.CourseCode),
		Room:           Normalize(r.Room),
		FacultyInitial: Normalize(r.FacultyInitial),
	}
	return e, e.Validate()
}

func recordOf(e RoutineEntry) routineRecord {
	return routineRecord{
		Day:            e.Day.Bengali(),
		Batch:          e.Batch,
		StartTime:      e.Start.String(),
		EndTime:        e.End.String(),
		CourseCode:     e.CourseCode,
		Room:           e.Room,
		FacultyInitial: e.FacultyInitial,
	}
}

// routineRows keeps every row of the routine document in order. Rows that
// fail to parse stay in raw form so a rewrite never loses them.
type routineRows struct {
	raw     []json.RawMessage
	entries []RoutineEntry
	skipped int
}

func decodeRoutine(data []byte) (routineRows, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return routineRows{}, fmt.Errorf("decode routine: %w", err)
	}
	rows := routineRows{raw: raw, entries: make([]RoutineEntry, 0, len(raw))}
	for _, r := range raw {
		var rec routineRecord
		if err := json.Unmarshal(r, &rec); err != nil {
			rows.skipped++
			continue
		}
		e, err := rec.entry()
		if err != nil {
			rows.skipped++
			continue
		}
		rows.entries = append(rows.entries, e)
	}
	return rows, nil
}

func encodeRoutineEntry(e RoutineEntry) (json.RawMessage, error) {
	return marshalCompact(recordOf(e))
}

func decodeDirectory(data []byte) (*Directory, int, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, 0, fmt.Errorf("decode directory: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, 0, errors.New("decode directory: expected a JSON object")
	}

	var entries []DirectoryEntry
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, 0, fmt.Errorf("decode directory key: %w", err)
		}
		key, _ := keyTok.(string)
		var name string
		if err := dec.Decode(&name); err != nil {
			return nil, 0, fmt.Errorf("decode directory value for %q: %w", key, err)
		}
		entries = append(entries, DirectoryEntry{Key: Normalize(key), Name: Normalize(name)})
	}
	if _, err := dec.Token(); err != nil {
		return nil, 0, fmt.Errorf("decode directory: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, 0, errors.New("decode directory: trailing data")
	}

	d, dropped := NewDirectory(entries)
	return d, dropped, nil
}

func encodeDirectory(d *Directory) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("{")
	for i, e := range d.Entries() {
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n  ")
		k, err := marshalCompact(e.Key)
		if err != nil {
			return nil, err
		}
		v, err := marshalCompact(e.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
	}
	if d.Len() > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

func decodeBuses(data []byte) ([]BusEntry, error) {
	var buses []BusEntry
	if err := json.Unmarshal(data, &buses); err != nil {
		return nil, fmt.Errorf("decode buses: %w", err)
	}
	return buses, nil
}

// encodeIndented writes UTF-8 JSON without HTML escaping so Bengali and
// symbols like "&" stay readable in the data files.
func encodeIndented(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
