// Package catalog provides the snapshot stores behind the catalog cache:
// a JSON file (the default), memory, SQLite and MySQL backends.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mikey/usenet-explorer/internal/core"
)

// FileStore persists one catalog snapshot as a JSON document. Writes go to
// a temp file in the same directory followed by a rename, so a crash
// mid-write never yields a corrupt snapshot.
type FileStore struct {
	path   string
	logger *zap.Logger
}

// NewFileStore creates a file store at the given path.
func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

type snapshotDoc struct {
	FetchedAt int64         `json:"fetched_at"`
	Groups    []groupRecord `json:"groups"`
}

type groupRecord struct {
	Name string `json:"name"`
	High int64  `json:"high"`
	Low  int64  `json:"low"`
	Flag string `json:"flag"`
}

// Load reads the snapshot. A missing or corrupt file is a cache miss: an
// empty snapshot and no error.
func (fs *FileStore) Load(ctx context.Context) (*core.Snapshot, error) {
	data, err := os.ReadFile(fs.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fs.logger.Warn("Catalog cache unreadable, treating as missing",
				zap.String("path", fs.path), zap.Error(err))
		}
		return &core.Snapshot{}, nil
	}

	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		fs.logger.Warn("Catalog cache corrupt, treating as missing",
			zap.String("path", fs.path), zap.Error(err))
		return &core.Snapshot{}, nil
	}
	return docToSnapshot(&doc), nil
}

// Save atomically replaces the stored snapshot.
func (fs *FileStore) Save(ctx context.Context, snap *core.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(fs.path), 0o755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(snapshotToDoc(snap), "", "  ")
	if err != nil {
		return fmt.Errorf("encoding catalog snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fs.path), ".catalog-*")
	if err != nil {
		return fmt.Errorf("creating temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing snapshot: %w", err)
	}

	fs.logger.Debug("Catalog snapshot persisted",
		zap.String("path", fs.path),
		zap.Int("groups", len(snap.Groups)))
	return nil
}

func snapshotToDoc(snap *core.Snapshot) *snapshotDoc {
	doc := &snapshotDoc{
		FetchedAt: snap.FetchedAt.Unix(),
		Groups:    make([]groupRecord, 0, len(snap.Groups)),
	}
	for _, g := range snap.Groups {
		doc.Groups = append(doc.Groups, groupRecord{Name: g.Name, High: g.High, Low: g.Low, Flag: g.Flag})
	}
	return doc
}

func docToSnapshot(doc *snapshotDoc) *core.Snapshot {
	snap := &core.Snapshot{Groups: make([]core.NewsgroupEntry, 0, len(doc.Groups))}
	if doc.FetchedAt > 0 {
		snap.FetchedAt = timeUnix(doc.FetchedAt)
	}
	for _, g := range doc.Groups {
		snap.Groups = append(snap.Groups, core.NewsgroupEntry{Name: g.Name, High: g.High, Low: g.Low, Flag: g.Flag})
	}
	return snap
}

func timeUnix(sec int64) time.Time { return time.Unix(sec, 0).UTC() }
