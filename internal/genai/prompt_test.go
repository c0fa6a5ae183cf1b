package genai

import (
	"strings"
	"testing"
	"time"

	"github.com/metromate/metromate-linebot-go/internal/dataset"
	"github.com/metromate/metromate-linebot-go/internal/history"
)

func promptSnapshot() *dataset.Snapshot {
	snap := dataset.EmptySnapshot()
	snap.Courses, _ = dataset.NewDirectory([]dataset.DirectoryEntry{
		{Key: "OOP", Name: "Object Oriented Programming"},
	})
	snap.Faculty, _ = dataset.NewDirectory([]dataset.DirectoryEntry{
		{Key: "NIR", Name: "নাহিদুল ইসলাম রনি"},
	})
	snap.Buses = []dataset.BusEntry{
		{BusNo: "1", RouteName: "Dhanmondi", RouteDetails: "Campus -> Dhanmondi & 27"},
	}
	return snap
}

func TestBuildPrompt(t *testing.T) {
	t.Parallel()
	now := time.Date(2025, 3, 3, 9, 15, 7, 0, time.FixedZone("Asia/Dhaka", 6*60*60))

	got, err := BuildPrompt(AnswerRequest{
		Now:      now,
		Snapshot: promptSnapshot(),
		History: []history.Turn{
			{Role: history.RoleUser, Message: "hi"},
			{Role: history.RoleBot, Message: "Hi, I'm MetroMate."},
		},
		Question: "Which bus goes to Dhanmondi?",
	})
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}

	// Sections must appear in this order.
	ordered := []string{
		"[SYSTEM: Current date and time is 2025-03-03 09:15:07]",
		"Your name is MetroMate.",
		"Nahidul Islam Rony",
		"Here is the data:",
		"Routine: []",
		`Faculty: {"NIR":"নাহিদুল ইসলাম রনি"}`,
		`Courses: {"OOP":"Object Oriented Programming"}`,
		`Bus Schedule: [{"bus_no":"1","route_name":"Dhanmondi","route_details":"Campus -> Dhanmondi & 27"`,
		"Recent conversation:\n[User] hi\n[Bot] Hi, I'm MetroMate.\n",
		"User question: Which bus goes to Dhanmondi?",
		"Answer in Bangla if the question is in Bangla, otherwise in English.",
	}
	pos := 0
	for _, want := range ordered {
		i := strings.Index(got[pos:], want)
		if i < 0 {
			t.Fatalf("prompt missing %q after offset %d:\n%s", want, pos, got)
		}
		pos += i + len(want)
	}
}

func TestBuildPrompt_NoHistoryNoSnapshot(t *testing.T) {
	t.Parallel()
	got, err := BuildPrompt(AnswerRequest{Now: time.Unix(0, 0).UTC(), Question: "hello"})
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if strings.Contains(got, "Recent conversation:") {
		t.Error("empty history should omit the conversation section")
	}
	for _, want := range []string{"Routine: []", "Faculty: {}", "Courses: {}", "Bus Schedule: []"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
