package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dronecast/overlay-client/internal/forge"
	"github.com/dronecast/overlay-client/internal/netid"
)

// FSStore is a file-backed Store rooted at a per-client directory, laid
// out as two subdirectories ("metadata" and "content"), each keyed by the
// big-endian hex encoding of a FileHash.
type FSStore struct {
	root string
}

// Root returns the per-client root directory, e.g. "db/client_video/client_5".
func Root(dbRoot string, id netid.NodeId) string {
	return filepath.Join(dbRoot, fmt.Sprintf("client_%d", id))
}

// Open creates the store's directory layout if absent and returns an
// FSStore rooted there.
func Open(root string) (*FSStore, error) {
	for _, sub := range []string{"metadata", "content"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, fmt.Errorf("store: create %s table: %w", sub, err)
		}
	}
	return &FSStore{root: root}, nil
}

func keyFileName(id netid.FileHash) string {
	return fmt.Sprintf("%04x", uint16(id))
}

func (s *FSStore) metadataPath(id netid.FileHash) string {
	return filepath.Join(s.root, "metadata", keyFileName(id))
}

func (s *FSStore) contentPath(id netid.FileHash) string {
	return filepath.Join(s.root, "content", keyFileName(id))
}

// PutMetadata writes one video's descriptor, used during manifest load.
func (s *FSStore) PutMetadata(meta forge.VideoMetaData) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("store: marshal metadata %d: %w", meta.ID, err)
	}
	if err := os.WriteFile(s.metadataPath(meta.ID), data, 0o644); err != nil {
		return fmt.Errorf("store: write metadata %d: %w", meta.ID, err)
	}
	return nil
}

// PutContent writes one video's raw content bytes, used during manifest load.
func (s *FSStore) PutContent(id netid.FileHash, data []byte) error {
	if err := os.WriteFile(s.contentPath(id), data, 0o644); err != nil {
		return fmt.Errorf("store: write content %d: %w", id, err)
	}
	return nil
}

// GetMetadata implements Store.
func (s *FSStore) GetMetadata(id netid.FileHash) (forge.VideoMetaData, bool, error) {
	data, err := os.ReadFile(s.metadataPath(id))
	if os.IsNotExist(err) {
		return forge.VideoMetaData{}, false, nil
	}
	if err != nil {
		return forge.VideoMetaData{}, false, fmt.Errorf("store: read metadata %d: %w", id, err)
	}
	var meta forge.VideoMetaData
	if err := json.Unmarshal(data, &meta); err != nil {
		return forge.VideoMetaData{}, false, fmt.Errorf("store: decode metadata %d: %w", id, err)
	}
	return meta, true, nil
}

// GetContent implements Store.
func (s *FSStore) GetContent(id netid.FileHash) ([]byte, bool, error) {
	data, err := os.ReadFile(s.contentPath(id))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: read content %d: %w", id, err)
	}
	return data, true, nil
}

// ListMetadata implements Store.
func (s *FSStore) ListMetadata() ([]forge.VideoMetaData, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, "metadata"))
	if err != nil {
		return nil, fmt.Errorf("store: list metadata: %w", err)
	}
	out := make([]forge.VideoMetaData, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, "metadata", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("store: read metadata entry %s: %w", e.Name(), err)
		}
		var meta forge.VideoMetaData
		if err := json.Unmarshal(data, &meta); err != nil {
			return nil, fmt.Errorf("store: decode metadata entry %s: %w", e.Name(), err)
		}
		out = append(out, meta)
	}
	return out, nil
}
