// Package pagesource abstracts the PDF object model behind a small
// page-oriented surface. Everything below this boundary (token parsing,
// xref handling, stream encoding) belongs to the backing library; the
// composition layer only ever sees documents, pages and boxes.
package pagesource

import (
	"context"
	"io"
)

// Rect is a PDF rectangle in default user space units (1/72 inch).
type Rect struct {
	LLX, LLY, URX, URY float64
}

func (r Rect) Width() float64  { return r.URX - r.LLX }
func (r Rect) Height() float64 { return r.URY - r.LLY }

// IsZero reports whether the rectangle is the zero value.
func (r Rect) IsZero() bool {
	return r.LLX == 0 && r.LLY == 0 && r.URX == 0 && r.URY == 0
}

// Standard page sizes.
var (
	Letter = Rect{0, 0, 612, 792}
	A4     = Rect{0, 0, 595.27563, 841.8898}
)

// OutlineEntry is one bookmark of a document outline, flattened in
// depth-first order. Page is the 1-based target page, 0 when the entry
// has no resolvable page destination.
type OutlineEntry struct {
	Level int    `json:"level"`
	Title string `json:"title,omitempty"`
	Page  int    `json:"page"`
}

// PageLabel describes the labeling of a page range starting at StartPage
// (1-based) and running to the next label or the end of the document.
type PageLabel struct {
	StartPage int        `json:"start_page"`
	Style     LabelStyle `json:"style"`
	Prefix    string     `json:"prefix,omitempty"`
	// Offset is the numbering start within the range, 1 when zero.
	Offset int `json:"offset,omitempty"`
}

// LabelStyle enumerates page label numbering styles.
type LabelStyle string

const (
	LabelArabic      LabelStyle = "arabic"
	LabelRomanUpper  LabelStyle = "roman-upper"
	LabelRomanLower  LabelStyle = "roman-lower"
	LabelLetterUpper LabelStyle = "letter-upper"
	LabelLetterLower LabelStyle = "letter-lower"
	LabelNone        LabelStyle = "none"
)

// Permissions is the access permission set stamped on an encrypted
// document. The backend maps it onto whatever granularity it supports.
type Permissions int

const (
	PermissionsAll Permissions = iota
	PermissionsNone
)

// Security carries the encryption descriptor for a save.
type Security struct {
	UserPassword  string
	OwnerPassword string
	Permissions   Permissions
}

// ComposeRequest carries everything the backend needs to serialize an
// ordered page sequence into one document.
type ComposeRequest struct {
	// Info entries for the document information dictionary (Creator,
	// Title, custom markers).
	Info map[string]string
	// Version is the declared PDF version ("1.6"), backend default when
	// empty.
	Version    string
	PageLayout string
	PageMode   string
	Labels     []PageLabel
	Outline    []OutlineEntry

	CompressStreams bool
	ObjectStreams   bool
	XRefStream      bool
	SyncBodyWrite   bool

	Security *Security
}

// Source opens documents and composes new ones. Implementations must be
// safe for use from multiple goroutines opening distinct documents; a
// Document itself is owned by a single task at a time.
type Source interface {
	// Open opens the document at path for reading.
	Open(ctx context.Context, path string) (Document, error)
	// BlankPage returns a new empty page with the given media box.
	BlankPage(box Rect) (Page, error)
	// Compose serializes pages in order into w according to req.
	Compose(ctx context.Context, w io.Writer, pages []Page, req ComposeRequest) error
}

// Document is one open document. Page indices are 1-based and contiguous.
type Document interface {
	PageCount() int
	Page(n int) (Page, error)
	Outline() ([]OutlineEntry, error)
	Close() error
}

// Page is a single page. Pages obtained from an open Document are
// read-only views; Duplicate returns a deep, non-aliasing copy that the
// caller owns and may mutate. Mutating a duplicate never affects the
// page it was copied from.
type Page interface {
	MediaBox() Rect
	CropBox() Rect
	// Rotation is the page rotation as tracked by this abstraction.
	// Backends that bake the source rotation into the page content
	// report only rotation applied through Rotate.
	Rotation() int
	// Rotate turns the page clockwise by deg degrees, multiples of 90.
	Rotate(deg int)
	Duplicate() (Page, error)
}
