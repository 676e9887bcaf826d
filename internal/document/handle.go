// Package document implements the owning wrapper around one open or
// newly composed document: page-tree mutation, document-level metadata
// and the single save operation.
package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfbatch/internal/pagesource"
)

// Creator is stamped on every document this tool produces.
const Creator = "pdfbatch"

// createdInfoKey marks tool-generated output in the information
// dictionary, mirroring what the creation stamp does for provenance.
const createdInfoKey = "PdfbatchCreated"

var versionRe = regexp.MustCompile(`^[12]\.\d$`)

// ValidVersion reports whether v is an acceptable declared PDF version.
func ValidVersion(v string) bool { return versionRe.MatchString(v) }

// Handle owns exactly one document. A handle is either created empty and
// populated by importing pages, or opened over an existing document to
// read pages from. Handles are not safe for concurrent use; each is
// exclusively owned by the task that created it.
type Handle struct {
	src       pagesource.Source
	doc       pagesource.Document
	pages     []pagesource.Page
	info      map[string]string
	version   string
	layout    string
	mode      string
	labels    []pagesource.PageLabel
	outline   []pagesource.OutlineEntry
	writeOpts map[WriteOption]struct{}
	closed    bool
}

// NewHandle creates a handle over an empty document and stamps creator
// and creation metadata, so every produced document is distinguishable
// as tool-generated output.
func NewHandle(src pagesource.Source) *Handle {
	return &Handle{
		src: src,
		info: map[string]string{
			"Creator":      Creator,
			createdInfoKey: time.Now().UTC().Format(time.RFC3339),
		},
		writeOpts: map[WriteOption]struct{}{},
	}
}

// Open opens the document at path and returns a handle over it. The
// handle's pages are read-only views into the source document.
func Open(ctx context.Context, src pagesource.Source, path string) (*Handle, error) {
	doc, err := src.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	pages := make([]pagesource.Page, doc.PageCount())
	for i := range pages {
		p, err := doc.Page(i + 1)
		if err != nil {
			doc.Close()
			return nil, err
		}
		pages[i] = p
	}
	return &Handle{
		src:       src,
		doc:       doc,
		pages:     pages,
		info:      map[string]string{},
		writeOpts: map[WriteOption]struct{}{},
	}, nil
}

func (h *Handle) PageCount() int { return len(h.pages) }

// Page returns the page at the 1-based index n.
func (h *Handle) Page(n int) (pagesource.Page, error) {
	if err := h.checkRange(n); err != nil {
		return nil, err
	}
	return h.pages[n-1], nil
}

// Outline returns the outline of the underlying source document.
func (h *Handle) Outline() ([]pagesource.OutlineEntry, error) {
	if h.doc == nil {
		return h.outline, nil
	}
	return h.doc.Outline()
}

// ImportPage appends a deep copy of page to this document and returns
// the copy. The duplicate carries the source page's media box, crop box,
// resources and rotation per the Duplicate contract; rotation is
// re-applied here for backends that track it outside the page content.
// Later mutation of the source page cannot affect the copy.
func (h *Handle) ImportPage(page pagesource.Page) (pagesource.Page, error) {
	if h.closed {
		return nil, ErrClosed
	}
	imported, err := page.Duplicate()
	if err != nil {
		return nil, fmt.Errorf("import page: %w", err)
	}
	if d := page.Rotation() - imported.Rotation(); d != 0 {
		imported.Rotate(d)
	}
	h.pages = append(h.pages, imported)
	return imported, nil
}

// AddPage appends page to the document.
func (h *Handle) AddPage(page pagesource.Page) pagesource.Page {
	h.pages = append(h.pages, page)
	return page
}

// RemovePage removes the page at the 1-based index n, preserving the
// relative order of the remaining pages.
func (h *Handle) RemovePage(n int) error {
	if err := h.checkRange(n); err != nil {
		return err
	}
	h.pages = append(h.pages[:n-1], h.pages[n:]...)
	return nil
}

// MovePageToEnd moves the page at the 1-based index n to the end of the
// document. Moving the last page is a no-op.
func (h *Handle) MovePageToEnd(n int) error {
	if err := h.checkRange(n); err != nil {
		return err
	}
	if n == len(h.pages) {
		return nil
	}
	page := h.pages[n-1]
	h.pages = append(h.pages[:n-1], h.pages[n:]...)
	h.pages = append(h.pages, page)
	return nil
}

// AddBlankPage appends a blank page with the given media box, falling
// back to Letter when box is zero.
func (h *Handle) AddBlankPage(box pagesource.Rect) (pagesource.Page, error) {
	log.Debug().Msg("adding blank page")
	blank, err := h.src.BlankPage(box)
	if err != nil {
		return nil, err
	}
	return h.AddPage(blank), nil
}

// AddBlankPageIfOdd appends one blank page with the given default box
// only when the current page count is odd.
func (h *Handle) AddBlankPageIfOdd(box pagesource.Rect) error {
	if len(h.pages)%2 != 0 {
		_, err := h.AddBlankPage(box)
		return err
	}
	return nil
}

// AddBlankPageBefore inserts a blank page before the 1-based index n,
// sized to the target page's media box so mixed-size documents stay
// visually consistent at the insertion point.
func (h *Handle) AddBlankPageBefore(n int) error {
	return h.insertBlank(n, 0)
}

// AddBlankPageAfter inserts a blank page after the 1-based index n,
// sized to the target page's media box.
func (h *Handle) AddBlankPageAfter(n int) error {
	return h.insertBlank(n, 1)
}

func (h *Handle) insertBlank(n, offset int) error {
	if err := h.checkRange(n); err != nil {
		return err
	}
	blank, err := h.src.BlankPage(h.pages[n-1].MediaBox())
	if err != nil {
		return err
	}
	at := n - 1 + offset
	h.pages = append(h.pages[:at], append([]pagesource.Page{blank}, h.pages[at:]...)...)
	return nil
}

// SetInfo sets one document information entry.
func (h *Handle) SetInfo(key, value string) {
	h.info[key] = value
}

// SetVersion declares the output PDF version, e.g. "1.6".
func (h *Handle) SetVersion(v string) error {
	if !versionRe.MatchString(v) {
		return fmt.Errorf("invalid pdf version %q", v)
	}
	h.version = v
	return nil
}

// SetPageLayout sets the viewer page layout preference.
func (h *Handle) SetPageLayout(layout string) { h.layout = layout }

// SetPageMode sets the viewer page mode preference.
func (h *Handle) SetPageMode(mode string) { h.mode = mode }

// SetOutline replaces the outline written with the composed document.
func (h *Handle) SetOutline(entries []pagesource.OutlineEntry) { h.outline = entries }

// SetPageLabels assigns page labels, validated against the current page
// count. Labels reference positions, so callers must finalize the page
// count first; assigning labels to pages that do not (yet) exist is a
// caller error.
func (h *Handle) SetPageLabels(labels []pagesource.PageLabel) error {
	seen := map[int]struct{}{}
	for _, l := range labels {
		if l.StartPage < 1 || l.StartPage > len(h.pages) {
			return &OutOfRangeError{Index: l.StartPage, PageCount: len(h.pages)}
		}
		if _, dup := seen[l.StartPage]; dup {
			return fmt.Errorf("duplicate page label start page %d", l.StartPage)
		}
		seen[l.StartPage] = struct{}{}
	}
	sorted := append([]pagesource.PageLabel(nil), labels...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartPage < sorted[j].StartPage })
	h.labels = sorted
	return nil
}

// AddWriteOption adds the given write options for the next save.
func (h *Handle) AddWriteOption(opts ...WriteOption) {
	for _, o := range opts {
		h.writeOpts[o] = struct{}{}
	}
}

// RemoveWriteOption removes the given write options.
func (h *Handle) RemoveWriteOption(opts ...WriteOption) {
	for _, o := range opts {
		delete(h.writeOpts, o)
	}
}

// SetCompress toggles the compression write options as one bundle: all
// four are added together or removed together, never a subset.
func (h *Handle) SetCompress(compress bool) {
	if compress {
		h.AddWriteOption(compressedOpts...)
	} else {
		h.RemoveWriteOption(compressedOpts...)
	}
}

// WriteOptions returns the write options accumulated for the next save,
// in declaration order.
func (h *Handle) WriteOptions() []WriteOption {
	opts := make([]WriteOption, 0, len(h.writeOpts))
	for o := range h.writeOpts {
		opts = append(opts, o)
	}
	sort.Slice(opts, func(i, j int) bool { return opts[i] < opts[j] })
	return opts
}

func (h *Handle) has(o WriteOption) bool {
	_, ok := h.writeOpts[o]
	return ok
}

// Save serializes the document to dest using the accumulated write
// options and the optional security descriptor. The document is written
// to a temporary file in the destination directory and promoted with an
// atomic rename, so a failed save never leaves a partial file that looks
// complete.
func (h *Handle) Save(ctx context.Context, dest string, sec *pagesource.Security) error {
	if h.closed {
		return &SaveError{Dest: dest, Err: ErrClosed}
	}
	req := pagesource.ComposeRequest{
		Info:            h.info,
		Version:         h.version,
		PageLayout:      h.layout,
		PageMode:        h.mode,
		Labels:          h.labels,
		Outline:         h.outline,
		CompressStreams: h.has(CompressStreams),
		ObjectStreams:   h.has(ObjectStreams),
		XRefStream:      h.has(XRefStream),
		SyncBodyWrite:   h.has(SyncBodyWrite),
		Security:        sec,
	}

	log.Debug().Str("dest", dest).Int("pages", len(h.pages)).Msg("saving document")
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".pdfbatch-*.tmp")
	if err != nil {
		return &SaveError{Dest: dest, Err: err}
	}
	tmpName := tmp.Name()
	if err := h.src.Compose(ctx, tmp, h.pages, req); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &SaveError{Dest: dest, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &SaveError{Dest: dest, Err: err}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return &SaveError{Dest: dest, Err: err}
	}
	return nil
}

// Close releases the underlying document. It is safe to call on every
// exit path, including after a failed save or a second time.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.doc != nil {
		return h.doc.Close()
	}
	return nil
}

func (h *Handle) checkRange(n int) error {
	if h.closed {
		return ErrClosed
	}
	if n < 1 || n > len(h.pages) {
		return &OutOfRangeError{Index: n, PageCount: len(h.pages)}
	}
	return nil
}
