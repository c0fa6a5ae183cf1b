package directory

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/metromate/metromate-linebot-go/internal/bot"
	"github.com/metromate/metromate-linebot-go/internal/dataset"
	"github.com/metromate/metromate-linebot-go/internal/format"
	"github.com/metromate/metromate-linebot-go/internal/logger"
	"github.com/metromate/metromate-linebot-go/internal/lookup"
	"github.com/metromate/metromate-linebot-go/internal/metrics"
)

func setupTestHandler(t *testing.T) (*Handler, *metrics.Metrics) {
	t.Helper()

	dir := t.TempDir()
	files := map[dataset.Document]string{
		dataset.DocCourses: `{"OOP": "Object Oriented Programming", "cse101": ""}`,
		dataset.DocFaculty: `{"NIR": "Nahidul Islam Rony", "ABU": "Abu Ubayda"}`,
	}
	for doc, content := range files {
		if err := os.WriteFile(filepath.Join(dir, string(doc)), []byte(content), 0o600); err != nil {
			t.Fatalf("write fixture: %v", err)
		}
	}

	persister, err := dataset.NewFilePersister(dir)
	if err != nil {
		t.Fatalf("NewFilePersister() error = %v", err)
	}
	log := logger.NewTestLogger()
	store := dataset.NewStore(persister, log)
	store.Load(context.Background()) // routine and buses are missing on purpose

	m := metrics.New(prometheus.NewRegistry())
	return NewHandler(lookup.NewEngine(store, time.UTC), m, log), m
}

func replyText(t *testing.T, msgs []messaging_api.MessageInterface) string {
	t.Helper()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	return msgs[0].(*messaging_api.TextMessage).Text
}

func TestHandle(t *testing.T) {
	t.Parallel()
	h, m := setupTestHandler(t)

	tests := []struct {
		name    string
		command string
		args    string
		want    []string
	}{
		{"course found", CommandCourse, "OOP", []string{"Object Oriented Programming", "OOP"}},
		{"course lower case", CommandCourse, "oop", []string{"Object Oriented Programming", "OOP"}},
		{"course empty name", CommandCourse, "CSE101", []string{format.UnknownName}},
		{"course only first arg", CommandCourse, "OOP extra words", []string{"Object Oriented Programming"}},
		{"course missing", CommandCourse, "XYZ", []string{"XYZ", "কোনো তথ্য পাওয়া যায়নি"}},
		{"course usage", CommandCourse, "", []string{format.CourseUsage()}},
		{"faculty found", CommandFaculty, "nir", []string{"Nahidul Islam Rony", "NIR"}},
		{"faculty alias", CommandFacultyAlias, "ABU", []string{"Abu Ubayda"}},
		{"faculty missing", CommandFaculty, "zzz", []string{"ZZZ", "শিক্ষকের তথ্য পাওয়া যায়নি"}},
		{"faculty usage", CommandFaculty, "  ", []string{format.FacultyUsage()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			text := replyText(t, h.Handle(context.Background(), bot.Request{Command: tt.command, Args: tt.args}))
			for _, w := range tt.want {
				if !strings.Contains(text, w) {
					t.Errorf("reply missing %q:\n%s", w, text)
				}
			}
		})
	}

	t.Cleanup(func() {
		if got := testutil.ToFloat64(m.LookupsTotal.WithLabelValues(CommandFaculty, "not_found")); got != 1 {
			t.Errorf("faculty not_found = %v, want 1", got)
		}
		if got := testutil.ToFloat64(m.LookupsTotal.WithLabelValues(CommandCourse, "found")); got != 4 {
			t.Errorf("course found = %v, want 4", got)
		}
	})
}
