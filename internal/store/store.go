// Package store is the local content store: an opaque key-value store
// with two tables, metadata (FileHash -> VideoMetaData) and content
// (FileHash -> raw bytes), file-backed under a per-client root directory.
package store

import (
	"github.com/dronecast/overlay-client/internal/forge"
	"github.com/dronecast/overlay-client/internal/netid"
)

// Store is the contract the networking core depends on. Everything about
// how it is populated (manifest parsing, file layout) is a startup-time
// concern; the core only ever reads it.
type Store interface {
	// ListMetadata returns every video descriptor known locally.
	ListMetadata() ([]forge.VideoMetaData, error)
	// GetMetadata looks up one descriptor by its FileHash.
	GetMetadata(id netid.FileHash) (forge.VideoMetaData, bool, error)
	// GetContent returns the full raw bytes for a video's content.
	GetContent(id netid.FileHash) ([]byte, bool, error)
}
