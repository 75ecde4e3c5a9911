package attachments

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// DriveStore uploads files into a Google Drive folder. References are Drive
// file ids.
type DriveStore struct {
	files    *drive.FilesService
	folderID string
	now      func() time.Time
}

var (
	_ Store   = (*DriveStore)(nil)
	_ Remover = (*DriveStore)(nil)
)

// NewDriveStore stores uploads in folderID using svc.
func NewDriveStore(svc *drive.Service, folderID string) *DriveStore {
	return &DriveStore{files: svc.Files, folderID: folderID, now: time.Now}
}

func (s *DriveStore) Persist(ctx context.Context, data []byte, suggestedName string) (string, error) {
	if err := checkUpload(data, suggestedName); err != nil {
		return "", err
	}

	meta := &drive.File{
		Name:     ObjectName(s.now(), suggestedName),
		MimeType: http.DetectContentType(data),
	}
	if s.folderID != "" {
		meta.Parents = []string{s.folderID}
	}

	created, err := s.files.Create(meta).
		Media(bytes.NewReader(data)).
		Fields("id").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return "", &PersistError{Name: suggestedName, Err: fmt.Errorf("drive create: %w", err)}
	}
	return created.Id, nil
}

func (s *DriveStore) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	resp, err := s.files.Get(ref).SupportsAllDrives(true).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil, fmt.Errorf("DriveStore.Open: %s: %w", ref, ErrNotFound)
		}
		return nil, fmt.Errorf("DriveStore.Open: %w", err)
	}
	return resp.Body, nil
}

func (s *DriveStore) Remove(ctx context.Context, ref string) error {
	err := s.files.Delete(ref).SupportsAllDrives(true).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("DriveStore.Remove: %w", err)
	}
	return nil
}
