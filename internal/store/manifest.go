package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dronecast/overlay-client/internal/forge"
	"github.com/dronecast/overlay-client/internal/netid"
	"github.com/dronecast/overlay-client/internal/wire"
)

// ManifestSchema is the JSON Schema every video_metadata.json manifest
// must satisfy before it is loaded. A malformed manifest is a
// configuration error and is fatal at startup, per the error handling
// design: config errors never degrade gracefully.
const ManifestSchema = `{
  "type": "object",
  "required": ["videos"],
  "properties": {
    "videos": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["title", "description", "duration", "mime_type", "created_at"],
        "properties": {
          "title": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "duration": {"type": "number"},
          "mime_type": {"type": "string", "minLength": 1},
          "created_at": {"type": "string", "minLength": 1}
        }
      }
    }
  }
}`

// manifestVideo mirrors one entry of the manifest's "videos" array.
type manifestVideo struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Duration    float32 `json:"duration"`
	MimeType    string  `json:"mime_type"`
	CreatedAt   string  `json:"created_at"`
}

type manifestDoc struct {
	Videos []manifestVideo `json:"videos"`
}

// FileHash computes the deterministic 16-bit content identifier for a
// video descriptor: a Fletcher-16 digest over its canonical field bytes.
func FileHash(title, description string, duration float32, mimeType, createdAt string) netid.FileHash {
	var buf []byte
	buf = append(buf, []byte(title)...)
	buf = append(buf, []byte(description)...)
	var durBits [4]byte
	binary.BigEndian.PutUint32(durBits[:], math.Float32bits(duration))
	buf = append(buf, durBits[:]...)
	buf = append(buf, []byte(mimeType)...)
	buf = append(buf, []byte(createdAt)...)
	return netid.FileHash(wire.Fletcher16(buf))
}

// contentFileName derives "videos/<lowercase_title_nospaces>.mp4" from a title.
func contentFileName(title string) string {
	lower := strings.ToLower(title)
	return strings.ReplaceAll(lower, " ", "") + ".mp4"
}

// LoadManifest validates manifestPath against schemaPath (falling back to
// ManifestSchema if schemaPath is empty), then populates store with every
// video's metadata and content read from videosDir.
func LoadManifest(s *FSStore, manifestPath, schemaPath, videosDir string) error {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("manifest: read %s: %w", manifestPath, err)
	}

	schema := ManifestSchema
	if schemaPath != "" {
		schemaBytes, err := os.ReadFile(schemaPath)
		if err != nil {
			return fmt.Errorf("manifest: read schema %s: %w", schemaPath, err)
		}
		schema = string(schemaBytes)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return fmt.Errorf("manifest: schema validation error: %w", err)
	}
	if !result.Valid() {
		var errs []string
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("manifest: %s does not satisfy schema: %s", manifestPath, strings.Join(errs, "; "))
	}

	var doc manifestDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("manifest: decode %s: %w", manifestPath, err)
	}

	for _, v := range doc.Videos {
		id := FileHash(v.Title, v.Description, v.Duration, v.MimeType, v.CreatedAt)
		meta := forge.VideoMetaData{
			ID:          id,
			Title:       v.Title,
			Description: v.Description,
			Duration:    v.Duration,
			MimeType:    v.MimeType,
			CreatedAt:   v.CreatedAt,
		}
		if err := s.PutMetadata(meta); err != nil {
			return fmt.Errorf("manifest: store metadata for %q: %w", v.Title, err)
		}

		contentPath := filepath.Join(videosDir, contentFileName(v.Title))
		content, err := os.ReadFile(contentPath)
		if err != nil {
			return fmt.Errorf("manifest: read content %s for %q: %w", contentPath, v.Title, err)
		}
		if err := s.PutContent(id, content); err != nil {
			return fmt.Errorf("manifest: store content for %q: %w", v.Title, err)
		}
	}
	return nil
}
