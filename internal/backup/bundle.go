package backup

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/metromate/metromate-linebot-go/internal/dataset"
)

const (
	bundleVersion = 1

	// maxBundleSize bounds the decompressed bundle.
	maxBundleSize = 64 << 20
)

// Bundle holds every dataset document as its exact on-disk text.
type Bundle struct {
	Version   int                         `json:"version"`
	ID        string                      `json:"id"`
	CreatedAt time.Time                   `json:"created_at"`
	Documents map[dataset.Document]string `json:"documents"`
}

// NewBundle captures all documents of snap.
func NewBundle(snap *dataset.Snapshot, now time.Time) (Bundle, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Bundle{}, fmt.Errorf("generate bundle id: %w", err)
	}
	b := Bundle{
		Version:   bundleVersion,
		ID:        id.String(),
		CreatedAt: now.UTC(),
		Documents: make(map[dataset.Document]string, len(dataset.Documents)),
	}
	for _, doc := range dataset.Documents {
		data, err := snap.Encode(doc)
		if err != nil {
			return Bundle{}, fmt.Errorf("encode %s: %w", doc, err)
		}
		b.Documents[doc] = string(data)
	}
	return b, nil
}

// Hash identifies the document contents, ignoring ID and CreatedAt.
func (b Bundle) Hash() string {
	h := sha256.New()
	for _, doc := range dataset.Documents {
		data, ok := b.Documents[doc]
		if !ok {
			continue
		}
		fmt.Fprintf(h, "%s\x00%d\x00", doc, len(data))
		h.Write([]byte(data))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Encode renders the bundle as zstd-compressed JSON.
func Encode(b Bundle) ([]byte, error) {
	var raw bytes.Buffer
	enc := json.NewEncoder(&raw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return nil, fmt.Errorf("marshal bundle: %w", err)
	}

	zw, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	defer func() { _ = zw.Close() }()
	return zw.EncodeAll(raw.Bytes(), nil), nil
}

// Decode parses a bundle produced by Encode.
func Decode(data []byte) (Bundle, error) {
	zr, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBundleSize))
	if err != nil {
		return Bundle{}, fmt.Errorf("create decoder: %w", err)
	}
	defer zr.Close()

	raw, err := zr.DecodeAll(data, nil)
	if err != nil {
		return Bundle{}, fmt.Errorf("decompress bundle: %w", err)
	}

	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return Bundle{}, fmt.Errorf("unmarshal bundle: %w", err)
	}
	if b.Version != bundleVersion {
		return Bundle{}, fmt.Errorf("unsupported bundle version %d", b.Version)
	}
	return b, nil
}
