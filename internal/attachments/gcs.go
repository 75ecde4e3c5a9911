package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// GCSPrefix is the object prefix uploads are written under.
const GCSPrefix = "vendor-images/"

// GCSStore keeps uploads as objects in a Cloud Storage bucket. References
// are gs:// URIs.
type GCSStore struct {
	client *storage.Client
	bucket string
	now    func() time.Time
}

var (
	_ Store   = (*GCSStore)(nil)
	_ Remover = (*GCSStore)(nil)
)

// NewGCSStore wraps an existing storage client. The caller owns the client.
func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	return &GCSStore{client: client, bucket: bucket, now: time.Now}
}

func (s *GCSStore) Persist(ctx context.Context, data []byte, suggestedName string) (string, error) {
	if err := checkUpload(data, suggestedName); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	objectName := GCSPrefix + ObjectName(s.now(), suggestedName)
	w := s.client.Bucket(s.bucket).Object(objectName).NewWriter(ctx)
	w.ContentType = http.DetectContentType(data)

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", &PersistError{Name: suggestedName, Err: fmt.Errorf("write object: %w", err)}
	}
	if err := w.Close(); err != nil {
		return "", &PersistError{Name: suggestedName, Err: fmt.Errorf("finalize upload: %w", err)}
	}

	return "gs://" + s.bucket + "/" + objectName, nil
}

// Open accepts either a full gs:// reference or the bare object name that
// Persist produced, which is looked up under GCSPrefix in the store's bucket.
func (s *GCSStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	bucket, object, err := s.resolve(ref)
	if err != nil {
		return nil, fmt.Errorf("GCSStore.Open: %w", err)
	}
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("GCSStore.Open: %s: %w", ref, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("GCSStore.Open: reading object %s/%s: %w", bucket, object, err)
	}
	return r, nil
}

func (s *GCSStore) Remove(ctx context.Context, ref string) error {
	bucket, object, err := s.resolve(ref)
	if err != nil {
		return fmt.Errorf("GCSStore.Remove: %w", err)
	}
	err = s.client.Bucket(bucket).Object(object).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("GCSStore.Remove: deleting object %s/%s: %w", bucket, object, err)
	}
	return nil
}

func (s *GCSStore) resolve(ref string) (bucket, object string, err error) {
	if strings.HasPrefix(ref, "gs://") {
		return ParseGCSURI(ref)
	}
	if ref == "" || ref != path.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", "", fmt.Errorf("invalid reference %q: %w", ref, ErrNotFound)
	}
	return s.bucket, GCSPrefix + ref, nil
}

// ParseGCSURI splits gs://bucket/path/to/object into bucket and object path.
func ParseGCSURI(uri string) (bucket, object string, err error) {
	if !strings.HasPrefix(uri, "gs://") {
		return "", "", fmt.Errorf("invalid GCS URI: %s", uri)
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, "gs://"), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid GCS URI (no object path): %s", uri)
	}
	return parts[0], parts[1], nil
}

// BaseName returns the file name part of a reference from any backend,
// e.g. "gs://bucket/vendor-images/1_pan.png" -> "1_pan.png".
func BaseName(ref string) string {
	if bucketless := strings.TrimPrefix(ref, "gs://"); bucketless != ref {
		parts := strings.SplitN(bucketless, "/", 2)
		if len(parts) < 2 {
			return bucketless
		}
		return path.Base(parts[1])
	}
	return path.Base(ref)
}
