package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/relicforge/relic-server-go/internal/effects"
	"github.com/relicforge/relic-server-go/internal/sheet"
)

// DocumentVersion is the layout version written by this build.
const DocumentVersion = 1

var (
	// ErrNotFound is returned by Load when no document has been saved under the key.
	ErrNotFound           = errors.New("document not found")
	ErrUnsupportedVersion = errors.New("unsupported document version")
)

// Document is everything a session persists: engine state plus the characters it targets.
type Document struct {
	Version    int                       `json:"version"`
	Effects    effects.State             `json:"effects"`
	Characters map[string]sheet.Snapshot `json:"characters"`
	SavedAt    time.Time                 `json:"saved_at"`
}

// NewDocument returns an empty document at the current version.
func NewDocument() *Document {
	return &Document{
		Version:    DocumentVersion,
		Effects:    effects.NewState(),
		Characters: make(map[string]sheet.Snapshot),
	}
}

func (d *Document) normalize() {
	if d.Version == 0 {
		d.Version = DocumentVersion
	}
	if d.Effects.Instances == nil {
		d.Effects.Instances = make(map[string]effects.Instance)
	}
	if d.Effects.Order == nil {
		d.Effects.Order = make([]string, 0)
	}
	if d.Effects.Index == nil {
		d.Effects.Index = make(map[string][]string)
	}
	if d.Characters == nil {
		d.Characters = make(map[string]sheet.Snapshot)
	}
}

// Encode serialises a document as JSON.
func Encode(doc *Document) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("encode document: nil document")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}

// Decode parses and normalises a JSON document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Version > DocumentVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, doc.Version)
	}
	doc.normalize()
	return &doc, nil
}

// Store loads and saves a single session document.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
	Close() error
}

// Copy loads the document from src and saves it to dst.
func Copy(ctx context.Context, src, dst Store) (*Document, error) {
	doc, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("copy: load source: %w", err)
	}
	if err := dst.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("copy: save destination: %w", err)
	}
	return doc, nil
}
