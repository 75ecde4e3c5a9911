package attachments

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"pan card.png", "pan_card.png"},
		{"../../etc/passwd", "etc_passwd"},
		{`C:\scans\gst.jpg`, "C_scans_gst.jpg"},
		{"  spaced   out  .jpg", "spaced_out_.jpg"},
		{".hidden", "hidden"},
		{"naïve résumé.pdf", "nave_rsum.pdf"},
		{"???", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := SanitizeFilename(tt.in); got != tt.want {
				t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestObjectName(t *testing.T) {
	now := time.Unix(1700000000, 0)
	if got := ObjectName(now, "pan card.png"); got != "1700000000_pan_card.png" {
		t.Errorf("ObjectName() = %q", got)
	}
	if got := ObjectName(now, "///"); got != "1700000000_upload" {
		t.Errorf("ObjectName() for unusable name = %q", got)
	}
}

func newTestLocalStore(t *testing.T) *LocalStore {
	t.Helper()
	s, err := NewLocalStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("NewLocalStore() error = %v", err)
	}
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func TestLocalStore_PersistAndOpen(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	ref, err := s.Persist(ctx, []byte("image-bytes"), "pan.png")
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if ref != "1700000000_pan.png" {
		t.Errorf("ref = %q", ref)
	}

	rc, err := s.Open(ctx, ref)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "image-bytes" {
		t.Errorf("content = %q", data)
	}

	info, err := os.Stat(filepath.Join(s.Dir(), ref))
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestLocalStore_SameSecondCollision(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	first, err := s.Persist(ctx, []byte("a"), "gst.jpg")
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	second, err := s.Persist(ctx, []byte("b"), "gst.jpg")
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if first == second {
		t.Fatalf("both uploads got reference %q", first)
	}
	if second != "1700000000_gst-1.jpg" {
		t.Errorf("second ref = %q", second)
	}
}

func TestLocalStore_EmptyUpload(t *testing.T) {
	_, err := newTestLocalStore(t).Persist(context.Background(), nil, "pan.png")
	if !errors.Is(err, ErrEmptyUpload) {
		t.Fatalf("Persist() error = %v, want ErrEmptyUpload", err)
	}
	var pErr *PersistError
	if !errors.As(err, &pErr) || pErr.Name != "pan.png" {
		t.Errorf("error = %#v, want *PersistError for pan.png", err)
	}
}

func TestLocalStore_OpenRejectsEscapes(t *testing.T) {
	s := newTestLocalStore(t)
	for _, ref := range []string{"", "../secret", "a/b.png", ".env", "missing.png"} {
		if _, err := s.Open(context.Background(), ref); !errors.Is(err, ErrNotFound) {
			t.Errorf("Open(%q) error = %v, want ErrNotFound", ref, err)
		}
	}
}

func TestParseGCSURI(t *testing.T) {
	bucket, object, err := ParseGCSURI("gs://ledger/vendor-images/1_pan.png")
	if err != nil {
		t.Fatalf("ParseGCSURI() error = %v", err)
	}
	if bucket != "ledger" || object != "vendor-images/1_pan.png" {
		t.Errorf("got (%q, %q)", bucket, object)
	}

	for _, bad := range []string{"ledger/x", "gs://ledger", "gs:///x", "gs://ledger/"} {
		if _, _, err := ParseGCSURI(bad); err == nil {
			t.Errorf("ParseGCSURI(%q) error = nil", bad)
		}
	}
}

func TestBaseName(t *testing.T) {
	tests := map[string]string{
		"gs://bucket/vendor-images/1_pan.png": "1_pan.png",
		"1_gst.jpg":                           "1_gst.jpg",
		"gs://bucket":                         "bucket",
	}
	for in, want := range tests {
		if got := BaseName(in); got != want {
			t.Errorf("BaseName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLocalStore_Remove(t *testing.T) {
	s := newTestLocalStore(t)
	ctx := context.Background()

	ref, err := s.Persist(ctx, []byte("img"), "pan.png")
	if err != nil {
		t.Fatalf("Persist() error = %v", err)
	}
	if err := s.Remove(ctx, ref); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if _, err := s.Open(ctx, ref); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() after Remove error = %v, want ErrNotFound", err)
	}
	if err := s.Remove(ctx, ref); err != nil {
		t.Errorf("second Remove() error = %v, want nil", err)
	}
	if err := s.Remove(ctx, "../secret"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Remove(escape) error = %v, want ErrNotFound", err)
	}
}
