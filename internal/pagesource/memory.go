package pagesource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// MemorySource is an in-memory Source. It backs the library tests and is
// handy for composing synthetic documents without touching disk: register
// documents under a path, open them through the same interface the pdfcpu
// backend serves, and decode composed output with ParseComposed.
type MemorySource struct {
	mu   sync.Mutex
	docs map[string]*MemoryDocument
}

func NewMemorySource() *MemorySource {
	return &MemorySource{docs: map[string]*MemoryDocument{}}
}

// AddDocument registers doc under path for later Open calls.
func (s *MemorySource) AddDocument(path string, doc *MemoryDocument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = doc
}

func (s *MemorySource) Open(ctx context.Context, path string) (Document, error) {
	s.mu.Lock()
	doc, ok := s.docs[path]
	s.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("open %s: no such document", path)
	}
	doc.closed = false
	return doc, nil
}

func (s *MemorySource) BlankPage(box Rect) (Page, error) {
	if box.IsZero() {
		box = Letter
	}
	return &MemoryPage{media: box, crop: box, blank: true}, nil
}

// MemoryDocument is an in-memory document.
type MemoryDocument struct {
	pages   []*MemoryPage
	outline []OutlineEntry
	closed  bool
}

func NewMemoryDocument(pages ...*MemoryPage) *MemoryDocument {
	return &MemoryDocument{pages: pages}
}

// WithOutline sets the document outline and returns the document.
func (d *MemoryDocument) WithOutline(entries ...OutlineEntry) *MemoryDocument {
	d.outline = entries
	return d
}

func (d *MemoryDocument) PageCount() int { return len(d.pages) }

func (d *MemoryDocument) Page(n int) (Page, error) {
	if d.closed {
		return nil, fmt.Errorf("page %d: document closed", n)
	}
	if n < 1 || n > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range [1,%d]", n, len(d.pages))
	}
	return d.pages[n-1], nil
}

func (d *MemoryDocument) Outline() ([]OutlineEntry, error) { return d.outline, nil }

func (d *MemoryDocument) Close() error {
	d.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (d *MemoryDocument) Closed() bool { return d.closed }

// MemoryPage is an in-memory page. Content is an opaque marker standing
// in for the page's content stream and resources.
type MemoryPage struct {
	media   Rect
	crop    Rect
	rot     int
	content string
	blank   bool
}

func NewMemoryPage(content string, box Rect) *MemoryPage {
	return &MemoryPage{media: box, crop: box, content: content}
}

// WithCropBox overrides the crop box and returns the page.
func (p *MemoryPage) WithCropBox(box Rect) *MemoryPage {
	p.crop = box
	return p
}

// WithRotation sets the page rotation and returns the page.
func (p *MemoryPage) WithRotation(deg int) *MemoryPage {
	p.rot = norm(deg)
	return p
}

// SetContent replaces the page content marker. Used to verify that
// mutating a source page never leaks into previously imported copies.
func (p *MemoryPage) SetContent(content string) { p.content = content }

func (p *MemoryPage) Content() string { return p.content }

func (p *MemoryPage) MediaBox() Rect { return p.media }
func (p *MemoryPage) CropBox() Rect  { return p.crop }
func (p *MemoryPage) Rotation() int  { return p.rot }
func (p *MemoryPage) Rotate(deg int) { p.rot = norm(p.rot + deg) }

func (p *MemoryPage) Duplicate() (Page, error) {
	cp := *p
	return &cp, nil
}

// ComposedDocument is the serialized form the memory backend writes. It
// records the full compose request so tests can assert on every
// document-level attribute.
type ComposedDocument struct {
	Info       map[string]string `json:"info,omitempty"`
	Version    string            `json:"version,omitempty"`
	PageLayout string            `json:"page_layout,omitempty"`
	PageMode   string            `json:"page_mode,omitempty"`
	Labels     []PageLabel       `json:"labels,omitempty"`
	Outline    []OutlineEntry    `json:"outline,omitempty"`
	Compressed bool              `json:"compressed"`
	Encrypted  bool              `json:"encrypted"`
	Pages      []ComposedPage    `json:"pages"`
}

type ComposedPage struct {
	MediaBox Rect   `json:"media_box"`
	CropBox  Rect   `json:"crop_box"`
	Rotation int    `json:"rotation"`
	Content  string `json:"content,omitempty"`
	Blank    bool   `json:"blank,omitempty"`
}

func (s *MemorySource) Compose(ctx context.Context, w io.Writer, pages []Page, req ComposeRequest) error {
	out := ComposedDocument{
		Info:       req.Info,
		Version:    req.Version,
		PageLayout: req.PageLayout,
		PageMode:   req.PageMode,
		Labels:     req.Labels,
		Outline:    req.Outline,
		Compressed: req.CompressStreams && req.ObjectStreams && req.XRefStream && req.SyncBodyWrite,
		Encrypted:  req.Security != nil,
	}
	for i, pg := range pages {
		mp, ok := pg.(*MemoryPage)
		if !ok {
			return fmt.Errorf("compose: page %d is not owned by this backend", i+1)
		}
		out.Pages = append(out.Pages, ComposedPage{
			MediaBox: mp.media,
			CropBox:  mp.crop,
			Rotation: mp.rot,
			Content:  mp.content,
			Blank:    mp.blank,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// ParseComposed decodes a document written by MemorySource.Compose.
func ParseComposed(r io.Reader) (*ComposedDocument, error) {
	var doc ComposedDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
