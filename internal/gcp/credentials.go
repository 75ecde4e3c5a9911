// Package gcp builds client options for Google APIs from service-account
// configuration.
package gcp

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Scopes needed by the Sheets sink, the Drive title lookup and Drive uploads.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	drive.DriveScope,
}

// CredentialSource says where service-account JSON comes from. Inline JSON
// wins over a file; with neither, Application Default Credentials are used.
type CredentialSource struct {
	JSON string
	File string
}

// ClientOptions resolves credentials for scopes and returns options usable
// with any google.golang.org/api service constructor.
func ClientOptions(ctx context.Context, src CredentialSource, scopes ...string) ([]option.ClientOption, error) {
	if len(scopes) == 0 {
		scopes = Scopes
	}

	data := []byte(src.JSON)
	if len(data) == 0 && src.File != "" {
		b, err := os.ReadFile(src.File)
		if err != nil {
			return nil, fmt.Errorf("ClientOptions: read service account file: %w", err)
		}
		data = b
	}

	var (
		creds *google.Credentials
		err   error
	)
	if len(data) > 0 {
		creds, err = google.CredentialsFromJSON(ctx, data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("ClientOptions: parse service account JSON: %w", err)
		}
	} else {
		creds, err = google.FindDefaultCredentials(ctx, scopes...)
		if err != nil {
			return nil, fmt.Errorf("ClientOptions: find default credentials: %w", err)
		}
	}

	return []option.ClientOption{option.WithCredentials(creds)}, nil
}

// Services bundles the API clients built from one set of credentials.
type Services struct {
	Sheets *sheets.Service
	Drive  *drive.Service
}

// NewServices creates Sheets and Drive clients sharing opts.
func NewServices(ctx context.Context, opts ...option.ClientOption) (*Services, error) {
	sheetsSvc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewServices: sheets: %w", err)
	}
	driveSvc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("NewServices: drive: %w", err)
	}
	return &Services{Sheets: sheetsSvc, Drive: driveSvc}, nil
}
