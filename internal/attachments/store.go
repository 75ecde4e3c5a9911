// Package attachments persists uploaded images (tax registration scans) and
// hands back opaque references that line items carry.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyUpload is returned when there are no bytes to persist.
var ErrEmptyUpload = errors.New("empty upload")

// ErrNotFound is returned by Open for an unknown reference.
var ErrNotFound = errors.New("attachment not found")

// Store persists raw upload bytes and reads them back by reference.
type Store interface {
	// Persist stores data and returns a stable reference for it.
	Persist(ctx context.Context, data []byte, suggestedName string) (string, error)

	// Open returns a reader for a reference previously returned by Persist.
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
}

// Remover is implemented by stores that can delete a persisted upload.
// Removing an unknown reference is not an error.
type Remover interface {
	Remove(ctx context.Context, ref string) error
}

// PersistError reports a storage failure for one upload.
type PersistError struct {
	Name string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist attachment %q: %v", e.Name, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// ObjectName builds "<epoch-seconds>_<sanitized name>" for an upload.
func ObjectName(now time.Time, suggested string) string {
	name := SanitizeFilename(suggested)
	if name == "" {
		name = "upload"
	}
	return strconv.FormatInt(now.Unix(), 10) + "_" + name
}

// SanitizeFilename reduces name to a safe flat filename: path separators and
// whitespace runs become underscores, anything outside [A-Za-z0-9._-] is
// dropped, and leading or trailing dots and underscores are trimmed.
func SanitizeFilename(name string) string {
	name = strings.NewReplacer("/", " ", "\\", " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "._")
}

func checkUpload(data []byte, suggestedName string) error {
	if len(data) == 0 {
		return &PersistError{Name: suggestedName, Err: ErrEmptyUpload}
	}
	return nil
}
