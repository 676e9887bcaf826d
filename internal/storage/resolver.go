// Package storage resolves task source references to local files and
// uploads task results. Sources may live on disk, behind an HTTP URL,
// or in S3, where objects can be sealed with password-derived AES-GCM.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Resolver turns source references into local file paths.
type Resolver struct {
	s3      *S3Client
	tempDir string
	httpCli *http.Client
}

// NewResolver builds a resolver. s3 may be nil when no bucket is
// configured, in which case s3:// references fail with a clear error.
func NewResolver(s3 *S3Client, tempDir string, httpTimeout time.Duration) *Resolver {
	if httpTimeout <= 0 {
		httpTimeout = 60 * time.Second
	}
	return &Resolver{
		s3:      s3,
		tempDir: tempDir,
		httpCli: &http.Client{Timeout: httpTimeout},
	}
}

// Resolve fetches ref to a local path. cleanup removes any temp file
// the fetch produced and is always safe to call.
func (r *Resolver) Resolve(ctx context.Context, ref, password string) (path string, cleanup func(), err error) {
	none := func() {}

	switch {
	case strings.HasPrefix(ref, "s3://"):
		return r.resolveS3(ctx, ref, password)

	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		return r.resolveHTTP(ctx, ref)

	case strings.HasPrefix(ref, "file://"):
		local := strings.TrimPrefix(ref, "file://")
		if _, err := os.Stat(local); err != nil {
			return "", none, fmt.Errorf("source %s: %w", ref, err)
		}
		return local, none, nil

	default:
		if _, err := os.Stat(ref); err != nil {
			return "", none, fmt.Errorf("source %s: %w", ref, err)
		}
		return ref, none, nil
	}
}

func (r *Resolver) resolveS3(ctx context.Context, ref, password string) (string, func(), error) {
	none := func() {}
	if r.s3 == nil {
		return "", none, fmt.Errorf("source %s: no S3 bucket configured", ref)
	}

	u, err := url.Parse(ref)
	if err != nil {
		return "", none, fmt.Errorf("source %s: %w", ref, err)
	}
	key := strings.TrimPrefix(u.Path, "/")
	if u.Host != r.s3.bucket {
		return "", none, fmt.Errorf("source %s: bucket %s not configured", ref, u.Host)
	}
	if key == "" {
		return "", none, fmt.Errorf("source %s: empty object key", ref)
	}

	tmp, cleanup, err := r.tempFile()
	if err != nil {
		return "", none, err
	}
	if err := r.s3.Download(ctx, key, tmp, password); err != nil {
		cleanup()
		return "", none, err
	}
	return tmp, cleanup, nil
}

func (r *Resolver) resolveHTTP(ctx context.Context, ref string) (string, func(), error) {
	none := func() {}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return "", none, fmt.Errorf("source %s: %w", ref, err)
	}
	resp, err := r.httpCli.Do(req)
	if err != nil {
		return "", none, fmt.Errorf("source %s: %w", ref, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", none, fmt.Errorf("source %s: status %d", ref, resp.StatusCode)
	}

	tmp, cleanup, err := r.tempFile()
	if err != nil {
		return "", none, err
	}
	f, err := os.Create(tmp)
	if err != nil {
		cleanup()
		return "", none, fmt.Errorf("create %s: %w", tmp, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		cleanup()
		return "", none, fmt.Errorf("download %s: %w", ref, err)
	}

	log.Debug().Str("url", ref).Int64("bytes", n).Str("dest", tmp).Msg("downloaded source over HTTP")
	return tmp, cleanup, nil
}

func (r *Resolver) tempFile() (string, func(), error) {
	f, err := os.CreateTemp(r.tempDir, "pdfbatch-src-*.pdf")
	if err != nil {
		return "", func() {}, fmt.Errorf("create temp file: %w", err)
	}
	name := f.Name()
	f.Close()
	return name, func() { os.Remove(name) }, nil
}
