package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestResolveLocalPath(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(local, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(nil, dir, time.Second)

	path, cleanup, err := r.Resolve(context.Background(), local, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	defer cleanup()
	if path != local {
		t.Fatalf("path = %s, want the original local path", path)
	}

	cleanup()
	if _, err := os.Stat(local); err != nil {
		t.Fatal("cleanup removed a caller-owned local file")
	}
}

func TestResolveFileScheme(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(local, []byte("%PDF-1.4"), 0o600); err != nil {
		t.Fatal(err)
	}
	r := NewResolver(nil, dir, time.Second)

	path, cleanup, err := r.Resolve(context.Background(), "file://"+local, "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	defer cleanup()
	if path != local {
		t.Fatalf("path = %s, want %s", path, local)
	}
}

func TestResolveMissingLocalPath(t *testing.T) {
	r := NewResolver(nil, t.TempDir(), time.Second)
	if _, _, err := r.Resolve(context.Background(), "/no/such/file.pdf", ""); err == nil {
		t.Fatal("missing path resolved")
	}
}

func TestResolveS3WithoutClient(t *testing.T) {
	r := NewResolver(nil, t.TempDir(), time.Second)
	if _, _, err := r.Resolve(context.Background(), "s3://bucket/key.pdf", ""); err == nil {
		t.Fatal("s3 reference resolved without a client")
	}
}

func TestResolveHTTP(t *testing.T) {
	body := []byte("%PDF-1.4 remote")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	r := NewResolver(nil, t.TempDir(), 5*time.Second)
	path, cleanup, err := r.Resolve(context.Background(), srv.URL+"/doc.pdf", "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read fetched file: %v", err)
	}
	if string(data) != string(body) {
		t.Fatalf("fetched data = %q", data)
	}

	cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("cleanup left the temp file behind")
	}
}

func TestResolveHTTPErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	r := NewResolver(nil, t.TempDir(), 5*time.Second)
	if _, _, err := r.Resolve(context.Background(), srv.URL+"/doc.pdf", ""); err == nil {
		t.Fatal("404 response resolved")
	}
}
