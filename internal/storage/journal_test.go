package storage

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func newJournal(t *testing.T) *DB {
	t.Helper()
	db, err := NewTestDB(context.Background())
	if err != nil {
		t.Fatalf("NewTestDB: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRecord_FillsIDAndTime(t *testing.T) {
	t.Parallel()
	db := newJournal(t)
	fixed := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	db.now = func() time.Time { return fixed }

	got, err := db.Record(context.Background(), Change{Kind: "add_faculty", Key: "NIR", Payload: "{}", UserID: "U1"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if got.ID == "" {
		t.Error("ID not assigned")
	}
	if !got.CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, fixed)
	}

	recent, err := db.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 1 || recent[0].ID != got.ID || !recent[0].CreatedAt.Equal(fixed) {
		t.Errorf("Recent = %+v, want %+v", recent, got)
	}
}

func TestRecent_NewestFirstAndLimited(t *testing.T) {
	t.Parallel()
	db := newJournal(t)
	ctx := context.Background()

	for i := range 5 {
		if _, err := db.Record(ctx, Change{Kind: "add_course", Key: fmt.Sprintf("C%d", i), Payload: "{}"}); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}

	got, err := db.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	var keys []string
	for _, c := range got {
		keys = append(keys, c.Key)
	}
	want := []string{"C4", "C3", "C2"}
	if fmt.Sprint(keys) != fmt.Sprint(want) {
		t.Errorf("keys = %v, want %v", keys, want)
	}

	n, err := db.Count(ctx)
	if err != nil || n != 5 {
		t.Errorf("Count = %d, %v; want 5", n, err)
	}
}

func TestSearch(t *testing.T) {
	t.Parallel()
	db := newJournal(t)
	ctx := context.Background()

	rows := []Change{
		{Kind: "add_course", Key: "OOP", Payload: `{"OOP":"Object Oriented Programming"}`},
		{Kind: "add_routine", Key: "CSE_58B", Payload: `{"course_code":"DS"}`},
		{Kind: "add_bus", Key: "1", Payload: `{"route_name":"ধানমন্ডি"}`},
	}
	for _, r := range rows {
		if _, err := db.Record(ctx, r); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	tests := []struct {
		term string
		want int
	}{
		{"OOP", 1},
		{"ধানমন্ডি", 1},
		{"CSE_58", 1},
		{"OO_", 0}, // underscore matches literally, not any character
		{"%", 0},
		{"nothing", 0},
	}
	for _, tt := range tests {
		got, err := db.Search(ctx, tt.term, 10)
		if err != nil {
			t.Fatalf("Search(%q): %v", tt.term, err)
		}
		if len(got) != tt.want {
			t.Errorf("Search(%q) returned %d rows, want %d", tt.term, len(got), tt.want)
		}
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()
	for in, want := range map[int]int{0: MaxListLimit, -1: MaxListLimit, 5: 5, 500: MaxListLimit} {
		if got := clampLimit(in); got != want {
			t.Errorf("clampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}
