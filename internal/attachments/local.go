package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LocalStore keeps uploads as files in one directory. References are bare
// file names inside that directory.
type LocalStore struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

var (
	_ Store   = (*LocalStore)(nil)
	_ Remover = (*LocalStore)(nil)
)

// NewLocalStore creates dir if needed and returns a store rooted there.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("NewLocalStore: create %s: %w", dir, err)
	}
	return &LocalStore{dir: dir, now: time.Now}, nil
}

// Dir returns the directory uploads are written to.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Persist writes data under a timestamped name. A name already taken in the
// same second gets a numeric suffix before its extension.
func (s *LocalStore) Persist(ctx context.Context, data []byte, suggestedName string) (string, error) {
	if err := checkUpload(data, suggestedName); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", &PersistError{Name: suggestedName, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base := ObjectName(s.now(), suggestedName)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 0; i < 1000; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s-%d%s", stem, i, ext)
		}
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", &PersistError{Name: suggestedName, Err: err}
		}
		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", &PersistError{Name: suggestedName, Err: err}
		}
		if err := f.Close(); err != nil {
			return "", &PersistError{Name: suggestedName, Err: err}
		}
		return name, nil
	}
	return "", &PersistError{Name: suggestedName, Err: errors.New("no free file name")}
}

// Open opens a stored upload. References that are not plain file names in
// the store directory are rejected.
func (s *LocalStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if !plainName(ref) {
		return nil, fmt.Errorf("LocalStore.Open: invalid reference %q: %w", ref, ErrNotFound)
	}
	f, err := os.Open(filepath.Join(s.dir, ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("LocalStore.Open: %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("LocalStore.Open: %w", err)
	}
	return f, nil
}

func (s *LocalStore) Remove(ctx context.Context, ref string) error {
	if !plainName(ref) {
		return fmt.Errorf("LocalStore.Remove: invalid reference %q: %w", ref, ErrNotFound)
	}
	err := os.Remove(filepath.Join(s.dir, ref))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("LocalStore.Remove: %w", err)
	}
	return nil
}

func plainName(ref string) bool {
	return ref != "" && ref == filepath.Base(ref) && !strings.HasPrefix(ref, ".")
}
