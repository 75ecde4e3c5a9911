package gcp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClientOptions_MissingFile(t *testing.T) {
	_, err := ClientOptions(context.Background(), CredentialSource{File: filepath.Join(t.TempDir(), "nope.json")})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("ClientOptions() error = %v, want read failure", err)
	}
}

func TestClientOptions_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := ClientOptions(context.Background(), CredentialSource{File: path})
	if err == nil || !strings.Contains(err.Error(), "parse service account JSON") {
		t.Fatalf("ClientOptions() error = %v, want parse failure", err)
	}
}
