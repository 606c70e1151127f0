// Package catalog keeps a history of completed splits in a pebble database.
// Recording is strictly best-effort from the splitter's point of view: a
// catalog failure never fails the split that triggered it.
package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

// Manifest records one fully successful split.
type Manifest struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Sections    uint32    `json:"sections"`
	SectionSize int64     `json:"section_size"`
	Compressed  bool      `json:"compressed"`
	CreatedAt   time.Time `json:"created_at"`
}

// Catalog is a pebble-backed split history.
type Catalog struct {
	db *pebble.DB
}

// Open opens (or creates) the catalog at path.
func Open(path string) (*Catalog, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Record stores a manifest under a fresh KSUID and returns the assigned id.
// KSUIDs sort chronologically, so the keyspace doubles as history order.
func (c *Catalog) Record(m Manifest) (string, error) {
	id := ksuid.New()
	m.ID = id.String()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode manifest: %w", err)
	}
	if err := c.db.Set(id.Bytes(), data, pebble.NoSync); err != nil {
		return "", fmt.Errorf("store manifest: %w", err)
	}
	return m.ID, nil
}

// List returns every recorded manifest, newest first.
func (c *Catalog) List() ([]Manifest, error) {
	iter, err := c.db.NewIter(nil)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	defer iter.Close()

	var manifests []Manifest
	for ok := iter.Last(); ok; ok = iter.Prev() {
		var m Manifest
		if err := json.Unmarshal(iter.Value(), &m); err != nil {
			return nil, fmt.Errorf("decode manifest %x: %w", iter.Key(), err)
		}
		manifests = append(manifests, m)
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	return manifests, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
