package dataset

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/metromate/metromate-linebot-go/internal/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingReloader struct {
	calls atomic.Int32
}

func (r *countingReloader) Reload(context.Context) LoadReport {
	r.calls.Add(1)
	return LoadReport{}
}

func TestWatcher_DebouncesAndStops(t *testing.T) {
	dir := t.TempDir()
	r := &countingReloader{}
	reloaded := make(chan LoadReport, 4)

	w, err := NewWatcher(dir, r, 100*time.Millisecond, func(rep LoadReport) { reloaded <- rep }, logger.NewTestLogger())
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}

	// Unrelated files never trigger a reload.
	if err := os.WriteFile(dir+"/notes.txt", []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for i := range 5 {
		if err := os.WriteFile(dir+"/"+string(DocBuses), []byte{byte('0' + i)}, 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-reloaded:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	time.Sleep(300 * time.Millisecond)
	if got := r.calls.Load(); got != 1 {
		t.Errorf("Reload called %d times, want 1", got)
	}

	w.Stop()
	w.Stop()
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(t.TempDir(), &countingReloader{}, time.Second, nil, logger.NewTestLogger())
	if err != nil {
		t.Fatal(err)
	}
	w.Stop()
}
