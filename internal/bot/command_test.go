package bot

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want Command
	}{
		{"explicit with args", "/bus Dhanmondi", Command{Name: "bus", Args: "Dhanmondi", Explicit: true}},
		{"upper case name", "/Class_Current cse-58b", Command{Name: "class_current", Args: "cse-58b", Explicit: true}},
		{"bot suffix", "/start@MetroMateBot", Command{Name: "start", Explicit: true}},
		{"without slash", "weekly_routine CSE-58B", Command{Name: "weekly_routine", Args: "CSE-58B"}},
		{"collapses whitespace", "  /add_course   CSE101  Intro \n to CS ", Command{Name: "add_course", Args: "CSE101 Intro to CS", Explicit: true}},
		{"pipe args kept", "/add_bus 7|Uttara|Uttara - Campus", Command{Name: "add_bus", Args: "7|Uttara|Uttara - Campus", Explicit: true}},
		{"slash with space", "/ help", Command{Name: "help", Explicit: true}},
		{"free text", "আজ কি ক্লাস আছে?", Command{Name: "আজ", Args: "কি ক্লাস আছে?"}},
		{"empty", "   ", Command{}},
		{"bare slash", "/", Command{Explicit: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if diff := cmp.Diff(tt.want, ParseCommand(tt.text)); diff != "" {
				t.Errorf("ParseCommand(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestCommandStandalone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"/bus Dhanmondi", true},
		{"/help", true},
		{"bus", true},
		{"  Weekly_Routine  ", true},
		{"bus কখন ছাড়ে?", false},
		{"help me understand the OOP syllabus", false},
		{"/", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ParseCommand(tt.text).Standalone(); got != tt.want {
			t.Errorf("ParseCommand(%q).Standalone() = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestSanitizeNFC(t *testing.T) {
	t.Parallel()

	// KA followed by the two halves of the O vowel sign composes to U+09CB.
	decomposed := "\u0995\u09c7\u09be"
	composed := "\u0995\u09cb"
	if got := Sanitize(" " + decomposed + " "); got != composed {
		t.Errorf("Sanitize() = %q, want %q", got, composed)
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	bus := &mockHandler{name: "bus", commands: []string{"bus"}}
	dir := &mockHandler{name: "directory", commands: []string{"course_info", "faculty_info"}}

	r := NewRegistry()
	r.Register(bus)
	r.Register(dir)

	if !r.Has("faculty_info") || r.Has("unknown") {
		t.Fatal("Has() does not reflect registered commands")
	}

	if _, ok := r.Dispatch(context.Background(), Request{Command: "unknown"}); ok {
		t.Error("Dispatch() of unknown command reported ok")
	}
	if _, ok := r.Dispatch(context.Background(), Request{Command: "course_info", Args: "OOP"}); !ok {
		t.Fatal("Dispatch() of course_info failed")
	}
	if dir.calls != 1 || dir.lastReq.Args != "OOP" {
		t.Errorf("directory handler calls=%d args=%q", dir.calls, dir.lastReq.Args)
	}
}

func TestRegistryDuplicateCommandPanics(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&mockHandler{name: "a", commands: []string{"bus"}})

	defer func() {
		if recover() == nil {
			t.Error("expected panic for duplicate command")
		}
	}()
	r.Register(&mockHandler{name: "b", commands: []string{"bus"}})
}
