// Package backup mirrors the dataset documents to R2.
//
// After each append the latest snapshot is bundled, compressed and uploaded
// in the background. Uploads are serialized and coalesced: only the newest
// pending snapshot is sent. At startup an empty data directory can be
// restored from the last bundle.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/metromate/metromate-linebot-go/internal/dataset"
	"github.com/metromate/metromate-linebot-go/internal/logger"
	"github.com/metromate/metromate-linebot-go/internal/metrics"
	"github.com/metromate/metromate-linebot-go/internal/r2client"
)

// ErrNoBackup is returned by Restore when no bundle exists.
var ErrNoBackup = errors.New("backup: no bundle found")

// Object metadata keys.
const (
	metaContentHash = "content-sha256"
	metaBundleID    = "bundle-id"
)

// ObjectStore is the subset of r2client.Client used for backups.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string, metadata map[string]string) (string, error)
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
	Head(ctx context.Context, key string) (r2client.ObjectInfo, error)
}

// DocumentWriter receives restored documents. dataset.Persister satisfies it.
type DocumentWriter interface {
	WriteDocument(ctx context.Context, doc dataset.Document, data []byte) error
}

// Config configures a Manager.
type Config struct {
	Key           string        // object key of the bundle
	UploadTimeout time.Duration // per background upload
	Metrics       *metrics.Metrics
	Now           func() time.Time
}

// Manager uploads and restores dataset bundles.
type Manager struct {
	store ObjectStore
	cfg   Config
	log   *logger.Logger

	mu       sync.Mutex // serializes uploads, guards lastHash
	lastHash string

	pending  atomic.Pointer[dataset.Snapshot]
	wake     chan struct{}
	stopCh   chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	wg       sync.WaitGroup
}

// New creates a manager. Call Start to enable background uploads.
func New(store ObjectStore, cfg Config, log *logger.Logger) *Manager {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 30 * time.Second
	}
	return &Manager{
		store:  store,
		cfg:    cfg,
		log:    log.WithModule("backup"),
		wake:   make(chan struct{}, 1),
		stopCh: make(chan struct{}),
	}
}

// Start runs the background uploader until Stop. Safe to call once.
func (m *Manager) Start() {
	if !m.started.CompareAndSwap(false, true) {
		return
	}
	m.wg.Go(m.loop)
}

// Stop uploads any pending snapshot and waits for the uploader to exit.
// Safe to call multiple times.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// OnChange schedules a backup of the snapshot produced by an append.
// It has the signature of a dataset.Observer.
func (m *Manager) OnChange(_ context.Context, c dataset.Change) {
	m.Schedule(c.Snapshot)
}

// Schedule queues snap for upload, replacing any snapshot not yet sent.
func (m *Manager) Schedule(snap *dataset.Snapshot) {
	if snap == nil {
		return
	}
	m.pending.Store(snap)
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) loop() {
	for {
		select {
		case <-m.stopCh:
			m.flush()
			return
		case <-m.wake:
			m.flush()
		}
	}
}

func (m *Manager) flush() {
	snap := m.pending.Swap(nil)
	if snap == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.UploadTimeout)
	defer cancel()
	if _, err := m.Upload(ctx, snap); err != nil {
		m.log.WithError(err).Warn("Dataset backup failed")
	}
}

// Upload sends snap unless the stored bundle already has the same content.
// It reports whether an upload happened.
func (m *Manager) Upload(ctx context.Context, snap *dataset.Snapshot) (bool, error) {
	start := time.Now()
	uploaded, err := m.upload(ctx, snap)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case !uploaded:
		status = "unchanged"
	}
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.RecordBackup(status, time.Since(start).Seconds())
	}
	return uploaded, err
}

func (m *Manager) upload(ctx context.Context, snap *dataset.Snapshot) (bool, error) {
	bundle, err := NewBundle(snap, m.cfg.Now())
	if err != nil {
		return false, err
	}
	hash := bundle.Hash()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastHash == "" {
		info, err := m.store.Head(ctx, m.cfg.Key)
		switch {
		case err == nil:
			m.lastHash = info.Metadata[metaContentHash]
		case !errors.Is(err, r2client.ErrNotFound):
			m.log.WithError(err).Debug("Could not read backup metadata")
		}
	}
	if hash == m.lastHash {
		return false, nil
	}

	data, err := Encode(bundle)
	if err != nil {
		return false, err
	}
	etag, err := m.store.Upload(ctx, m.cfg.Key, bytes.NewReader(data), "application/zstd", map[string]string{
		metaContentHash: hash,
		metaBundleID:    bundle.ID,
	})
	if err != nil {
		return false, fmt.Errorf("upload bundle: %w", err)
	}
	m.lastHash = hash

	m.log.WithFields(map[string]any{
		"bundle_id": bundle.ID,
		"etag":      etag,
		"bytes":     len(data),
	}).Info("Dataset backup uploaded")
	return true, nil
}

// Restore downloads the bundle and writes every document it holds.
// It returns the restored documents, or ErrNoBackup.
func (m *Manager) Restore(ctx context.Context, w DocumentWriter) ([]dataset.Document, error) {
	body, _, err := m.store.Download(ctx, m.cfg.Key)
	if err != nil {
		if errors.Is(err, r2client.ErrNotFound) {
			return nil, ErrNoBackup
		}
		return nil, fmt.Errorf("download bundle: %w", err)
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(io.LimitReader(body, maxBundleSize))
	if err != nil {
		return nil, fmt.Errorf("read bundle: %w", err)
	}
	bundle, err := Decode(data)
	if err != nil {
		return nil, err
	}

	var restored []dataset.Document
	for _, doc := range dataset.Documents {
		text, ok := bundle.Documents[doc]
		if !ok {
			continue
		}
		if err := w.WriteDocument(ctx, doc, []byte(text)); err != nil {
			return restored, fmt.Errorf("restore %s: %w", doc, err)
		}
		restored = append(restored, doc)
	}

	m.mu.Lock()
	m.lastHash = bundle.Hash()
	m.mu.Unlock()

	m.log.WithFields(map[string]any{
		"bundle_id": bundle.ID,
		"documents": len(restored),
		"created":   bundle.CreatedAt,
	}).Info("Dataset restored from backup")
	return restored, nil
}
