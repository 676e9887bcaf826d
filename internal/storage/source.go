package storage

import (
	"context"
	"io"

	"github.com/local/pdfbatch/internal/pagesource"
)

// ResolvingSource wraps a page source so documents can be opened from
// remote references. The fetched temp file lives until the document is
// closed.
type ResolvingSource struct {
	inner    pagesource.Source
	resolver *Resolver
	// Password unseals encrypted S3 objects. Empty is fine for plain ones.
	Password string
}

func NewResolvingSource(inner pagesource.Source, resolver *Resolver) *ResolvingSource {
	return &ResolvingSource{inner: inner, resolver: resolver}
}

func (s *ResolvingSource) Open(ctx context.Context, ref string) (pagesource.Document, error) {
	local, cleanup, err := s.resolver.Resolve(ctx, ref, s.Password)
	if err != nil {
		return nil, err
	}
	doc, err := s.inner.Open(ctx, local)
	if err != nil {
		cleanup()
		return nil, err
	}
	return &resolvedDocument{Document: doc, cleanup: cleanup}, nil
}

func (s *ResolvingSource) BlankPage(box pagesource.Rect) (pagesource.Page, error) {
	return s.inner.BlankPage(box)
}

func (s *ResolvingSource) Compose(ctx context.Context, w io.Writer, pages []pagesource.Page, req pagesource.ComposeRequest) error {
	return s.inner.Compose(ctx, w, pages, req)
}

type resolvedDocument struct {
	pagesource.Document
	cleanup func()
}

func (d *resolvedDocument) Close() error {
	err := d.Document.Close()
	d.cleanup()
	return err
}
