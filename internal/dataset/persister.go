package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Document names one of the four JSON files of the dataset.
type Document string

// Dataset documents.
const (
	DocRoutine Document = "routine_data.json"
	DocCourses Document = "course_info.json"
	DocFaculty Document = "faculty_info.json"
	DocBuses   Document = "bus_info.json"
)

// Documents lists every document in load order.
var Documents = []Document{DocRoutine, DocCourses, DocFaculty, DocBuses}

// IsDocument reports whether name is one of the dataset file names.
func IsDocument(name string) bool {
	for _, d := range Documents {
		if string(d) == name {
			return true
		}
	}
	return false
}

// Persister reads and writes raw documents.
// ReadDocument returns an error wrapping fs.ErrNotExist for a missing document.
type Persister interface {
	ReadDocument(ctx context.Context, doc Document) ([]byte, error)
	WriteDocument(ctx context.Context, doc Document, data []byte) error
}

// FilePersister stores documents as files in one directory.
type FilePersister struct {
	dir string
}

// NewFilePersister creates the directory if needed.
func NewFilePersister(dir string) (*FilePersister, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FilePersister{dir: dir}, nil
}

// Dir returns the data directory.
func (p *FilePersister) Dir() string { return p.dir }

// Path returns the file path of doc.
func (p *FilePersister) Path(doc Document) string {
	return filepath.Join(p.dir, string(doc))
}

// ReadDocument reads doc from disk.
func (p *FilePersister) ReadDocument(ctx context.Context, doc Document) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(p.Path(doc))
}

// WriteDocument replaces doc atomically: the data goes to a temp file in the
// same directory which is synced and renamed over the target.
func (p *FilePersister) WriteDocument(ctx context.Context, doc Document, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(p.dir, "."+string(doc)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, p.Path(doc)); err != nil {
		cleanup()
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// Missing lists the documents that do not exist on disk.
func (p *FilePersister) Missing() []Document {
	var missing []Document
	for _, doc := range Documents {
		if _, err := os.Stat(p.Path(doc)); errors.Is(err, fs.ErrNotExist) {
			missing = append(missing, doc)
		}
	}
	return missing
}
