package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dronecast/overlay-client/internal/forge"
	"github.com/dronecast/overlay-client/internal/netid"
)

func TestFSStore_PutAndGetRoundTrip(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	meta, ok, err := s.GetMetadata(42)
	if err != nil || ok {
		t.Fatalf("GetMetadata on empty store = %v, %v, %v", meta, ok, err)
	}

	want := netid.FileHash(42)
	if err := s.PutMetadata(mustVideoMeta(want, "Demo")); err != nil {
		t.Fatalf("PutMetadata: %v", err)
	}
	if err := s.PutContent(want, []byte("binary content")); err != nil {
		t.Fatalf("PutContent: %v", err)
	}

	gotMeta, ok, err := s.GetMetadata(want)
	if err != nil || !ok || gotMeta.Title != "Demo" {
		t.Fatalf("GetMetadata = %+v, %v, %v", gotMeta, ok, err)
	}
	gotContent, ok, err := s.GetContent(want)
	if err != nil || !ok || string(gotContent) != "binary content" {
		t.Fatalf("GetContent = %q, %v, %v", gotContent, ok, err)
	}
}

func TestFSStore_ListMetadata(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := s.PutMetadata(mustVideoMeta(netid.FileHash(i), "video")); err != nil {
			t.Fatal(err)
		}
	}
	list, err := s.ListMetadata()
	if err != nil {
		t.Fatalf("ListMetadata: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("ListMetadata returned %d entries, want 3", len(list))
	}
}

func TestLoadManifest_ValidatesAndPopulates(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}

	videosDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(videosDir, "demovideo.mp4"), []byte("fakebytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	manifestPath := filepath.Join(t.TempDir(), "video_metadata.json")
	manifest := `{
		"videos": [
			{"title": "Demo Video", "description": "a test video", "duration": 12.5, "mime_type": "video/mp4", "created_at": "2026-01-01T00:00:00Z"}
		]
	}`
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := LoadManifest(s, manifestPath, "", videosDir); err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}

	list, err := s.ListMetadata()
	if err != nil || len(list) != 1 {
		t.Fatalf("ListMetadata after manifest load = %v, %v", list, err)
	}
	if list[0].Title != "Demo Video" {
		t.Fatalf("unexpected title %q", list[0].Title)
	}

	content, ok, err := s.GetContent(list[0].ID)
	if err != nil || !ok || string(content) != "fakebytes" {
		t.Fatalf("GetContent = %q, %v, %v", content, ok, err)
	}
}

func TestLoadManifest_RejectsSchemaViolation(t *testing.T) {
	root := t.TempDir()
	s, err := Open(root)
	if err != nil {
		t.Fatal(err)
	}

	manifestPath := filepath.Join(t.TempDir(), "video_metadata.json")
	// Missing required "duration" field.
	manifest := `{"videos": [{"title": "x", "description": "y", "mime_type": "video/mp4", "created_at": "now"}]}`
	if err := os.WriteFile(manifestPath, []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := LoadManifest(s, manifestPath, "", t.TempDir()); err == nil {
		t.Fatal("expected a schema validation error")
	}
}

func TestFileHash_Deterministic(t *testing.T) {
	a := FileHash("Title", "Desc", 1.0, "video/mp4", "now")
	b := FileHash("Title", "Desc", 1.0, "video/mp4", "now")
	if a != b {
		t.Fatalf("FileHash not deterministic: %v vs %v", a, b)
	}
	c := FileHash("Other", "Desc", 1.0, "video/mp4", "now")
	if a == c {
		t.Fatal("expected different titles to produce different hashes")
	}
}

func mustVideoMeta(id netid.FileHash, title string) forge.VideoMetaData {
	return forge.VideoMetaData{ID: id, Title: title, MimeType: "video/mp4"}
}
