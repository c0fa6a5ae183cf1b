package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/metromate/metromate-linebot-go/internal/backup"
	"github.com/metromate/metromate-linebot-go/internal/config"
	"github.com/metromate/metromate-linebot-go/internal/dataset"
	apperrors "github.com/metromate/metromate-linebot-go/internal/errors"
	"github.com/metromate/metromate-linebot-go/internal/metrics"
	"github.com/metromate/metromate-linebot-go/internal/sentry"
	"github.com/metromate/metromate-linebot-go/internal/storage"
)

// initDataset restores an empty data directory from R2 when backups are
// enabled, loads the store, opens the journal and wires the change observers.
func (a *Application) initDataset(ctx context.Context) error {
	log := a.logger

	persister, err := dataset.NewFilePersister(a.cfg.DataDir)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}

	if a.cfg.R2.Enabled {
		if a.backup, err = newBackup(ctx, a.cfg, a.metrics, log); err != nil {
			return err
		}
		if missing := persister.Missing(); len(missing) == len(dataset.Documents) {
			a.restore(ctx, persister)
		}
	}

	if a.journal, err = storage.New(ctx, a.cfg.JournalPath, config.DatabaseBusyTimeout); err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	log.WithField("path", a.cfg.JournalPath).Info("Change journal opened")

	a.store = dataset.NewStore(persister, log, dataset.WithObserver(a.journalChange))
	recordLoadReport(a.metrics, a.store.Load(ctx))

	if a.backup != nil {
		a.store.Observe(a.backup.OnChange)
	}
	a.store.Observe(func(_ context.Context, c dataset.Change) {
		a.metrics.SetDatasetRecords(string(c.Document), c.Snapshot.Count(c.Document))
	})

	if a.cfg.DataWatch {
		a.watcher, err = dataset.NewWatcher(a.cfg.DataDir, a.store, config.DatasetWatchDebounce, a.onReload, log)
		if err != nil {
			// Reload still works through /reload.
			log.WithError(err).Warn("Dataset watcher unavailable")
			a.watcher = nil
		}
	}
	return nil
}

// restore fills an empty data directory from the last backup bundle.
// Failures are logged; the store then starts with empty data.
func (a *Application) restore(ctx context.Context, w backup.DocumentWriter) {
	rctx, cancel := context.WithTimeout(ctx, config.BackupRestore)
	defer cancel()

	docs, err := a.backup.Restore(rctx, w)
	switch {
	case errors.Is(err, backup.ErrNoBackup):
		a.logger.Info("No dataset backup found, starting with empty data")
	case err != nil:
		a.logger.WithError(err).Warn("Dataset restore failed")
		sentry.CaptureError(ctx, err, map[string]string{"component": "backup"})
	default:
		a.logger.WithField("documents", len(docs)).Info("Dataset restored from backup")
	}
}

// onReload runs after every reload, from the watcher or from /reload.
// A partial reload is not backed up; the last complete bundle stays in R2.
func (a *Application) onReload(report dataset.LoadReport) {
	recordLoadReport(a.metrics, report)
	if a.backup == nil {
		return
	}
	if !report.OK() {
		a.logger.WithField("unavailable", len(report.Unavailable)).Warn("Partial dataset reload, backup skipped")
		return
	}
	a.backup.Schedule(a.store.Snapshot())
}

func recordLoadReport(m *metrics.Metrics, report dataset.LoadReport) {
	for doc, n := range report.Counts {
		m.SetDatasetRecords(string(doc), n)
	}
	for _, err := range report.Unavailable {
		var du *apperrors.DataUnavailableError
		if errors.As(err, &du) {
			m.RecordDataUnavailable(du.Document)
		}
	}
	status := "ok"
	if !report.OK() {
		status = "partial"
	}
	m.RecordDatasetReload(status)
}

// journalChange records a committed append. A journal failure never undoes
// the append; it is logged and reported.
func (a *Application) journalChange(ctx context.Context, c dataset.Change) {
	log := a.logger.WithField("document", string(c.Document)).WithField("key", c.Key)

	payload, err := dataset.MarshalPayload(c)
	if err != nil {
		log.WithError(err).Error("Failed to encode change payload")
		return
	}
	if _, err := a.journal.Record(ctx, storage.Change{
		Kind:      string(c.Kind),
		Document:  string(c.Document),
		Key:       c.Key,
		Payload:   string(payload),
		UserID:    c.UserID,
		CreatedAt: c.At,
	}); err != nil {
		log.WithError(err).Error("Failed to journal dataset change")
		sentry.CaptureError(ctx, err, map[string]string{"component": "journal"})
	}
}
