package pagesource

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/rs/zerolog/log"
)

// OutlineReader resolves the bookmark tree of a document on disk. The
// pdfcpu backend delegates outline reading because pdfcpu exposes no
// outline API at this version; see NewFitzOutlineReader.
type OutlineReader interface {
	ReadOutline(path string) ([]OutlineEntry, error)
}

// PdfcpuSource is the production Source backed by pdfcpu.
type PdfcpuSource struct {
	outlines OutlineReader
}

// NewPdfcpuSource returns a Source reading and writing documents through
// pdfcpu. outlines may be nil, in which case Outline returns empty.
func NewPdfcpuSource(outlines OutlineReader) *PdfcpuSource {
	return &PdfcpuSource{outlines: outlines}
}

func readConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func (s *PdfcpuSource) Open(ctx context.Context, path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	pctx, err := api.ReadContext(f, readConf())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	dims, err := pctx.PageDims()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("page dims %s: %w", path, err)
	}
	return &pdfcpuDocument{src: s, path: path, f: f, ctx: pctx, dims: dims}, nil
}

func (s *PdfcpuSource) BlankPage(box Rect) (Page, error) {
	if box.IsZero() {
		box = Letter
	}
	dim := types.Dim{Width: box.Width(), Height: box.Height()}
	pctx, err := pdfcpu.CreateContextWithXRefTable(readConf(), &dim)
	if err != nil {
		return nil, fmt.Errorf("blank page: %w", err)
	}
	var buf bytes.Buffer
	if err := api.WriteContext(pctx, &buf); err != nil {
		return nil, fmt.Errorf("blank page: %w", err)
	}
	return &pdfcpuPage{data: buf.Bytes(), media: box, crop: box}, nil
}

type pdfcpuDocument struct {
	src    *PdfcpuSource
	path   string
	f      *os.File
	ctx    *model.Context
	dims   []types.Dim
	closed bool
}

func (d *pdfcpuDocument) PageCount() int { return d.ctx.PageCount }

func (d *pdfcpuDocument) Page(n int) (Page, error) {
	if n < 1 || n > d.ctx.PageCount {
		return nil, fmt.Errorf("page %d out of range [1,%d]", n, d.ctx.PageCount)
	}
	box := Letter
	if n-1 < len(d.dims) {
		box = Rect{0, 0, d.dims[n-1].Width, d.dims[n-1].Height}
	}
	return &pdfcpuView{doc: d, n: n, box: box}, nil
}

func (d *pdfcpuDocument) Outline() ([]OutlineEntry, error) {
	if d.src.outlines == nil {
		return nil, nil
	}
	return d.src.outlines.ReadOutline(d.path)
}

func (d *pdfcpuDocument) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.f.Close()
}

// pdfcpuView is a read-only page of an open document.
type pdfcpuView struct {
	doc *pdfcpuDocument
	n   int
	box Rect
}

func (p *pdfcpuView) MediaBox() Rect { return p.box }
func (p *pdfcpuView) CropBox() Rect  { return p.box }
func (p *pdfcpuView) Rotation() int  { return 0 }
func (p *pdfcpuView) Rotate(int) {
	log.Warn().Str("doc", p.doc.path).Int("page", p.n).Msg("ignoring rotation of a source page view; duplicate it first")
}

// Duplicate extracts the page into a standalone single-page document, so
// the copy stays valid after the source document is closed and shares no
// mutable state with it.
func (p *pdfcpuView) Duplicate() (Page, error) {
	pctx, err := pdfcpu.ExtractPage(p.doc.ctx, p.n)
	if err != nil {
		return nil, fmt.Errorf("extract page %d of %s: %w", p.n, p.doc.path, err)
	}
	var buf bytes.Buffer
	if err := api.WriteContext(pctx, &buf); err != nil {
		return nil, fmt.Errorf("extract page %d of %s: %w", p.n, p.doc.path, err)
	}
	return &pdfcpuPage{data: buf.Bytes(), media: p.box, crop: p.box}, nil
}

// pdfcpuPage is an owned page: a single-page document plus a pending
// rotation applied at compose time.
type pdfcpuPage struct {
	data   []byte
	media  Rect
	crop   Rect
	rotate int
}

func (p *pdfcpuPage) MediaBox() Rect { return p.media }
func (p *pdfcpuPage) CropBox() Rect  { return p.crop }
func (p *pdfcpuPage) Rotation() int  { return p.rotate }
func (p *pdfcpuPage) Rotate(deg int) { p.rotate = norm(p.rotate + deg) }

func (p *pdfcpuPage) Duplicate() (Page, error) {
	data := make([]byte, len(p.data))
	copy(data, p.data)
	return &pdfcpuPage{data: data, media: p.media, crop: p.crop, rotate: p.rotate}, nil
}

func norm(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// Compose merges the single-page documents behind pages into one
// document and applies the requested document-level attributes. Page
// labels, outline and viewer preferences are carried by the in-memory
// plan but have no write API in this pdfcpu version; they are reported
// and dropped here rather than silently half-applied.
func (s *PdfcpuSource) Compose(ctx context.Context, w io.Writer, pages []Page, req ComposeRequest) error {
	if len(pages) == 0 {
		return fmt.Errorf("compose: no pages")
	}
	readers := make([]io.ReadSeeker, 0, len(pages))
	for i, pg := range pages {
		op, ok := pg.(*pdfcpuPage)
		if !ok {
			return fmt.Errorf("compose: page %d is not owned by this backend", i+1)
		}
		readers = append(readers, bytes.NewReader(op.data))
	}

	conf := readConf()
	conf.WriteObjectStream = req.ObjectStreams
	conf.WriteXRefStream = req.XRefStream

	var buf bytes.Buffer
	if err := api.MergeRaw(readers, &buf, false, conf); err != nil {
		return fmt.Errorf("compose: merge: %w", err)
	}
	cur := buf.Bytes()

	// Pending page rotations, grouped by angle.
	byAngle := map[int][]string{}
	for i, pg := range pages {
		if rot := pg.(*pdfcpuPage).rotate; rot != 0 {
			byAngle[rot] = append(byAngle[rot], fmt.Sprintf("%d", i+1))
		}
	}
	for angle, sel := range byAngle {
		var out bytes.Buffer
		if err := api.Rotate(bytes.NewReader(cur), &out, angle, sel, conf); err != nil {
			return fmt.Errorf("compose: rotate %d: %w", angle, err)
		}
		cur = out.Bytes()
	}

	if len(req.Info) > 0 {
		var out bytes.Buffer
		if err := api.AddProperties(bytes.NewReader(cur), &out, req.Info, conf); err != nil {
			return fmt.Errorf("compose: info: %w", err)
		}
		cur = out.Bytes()
	}

	if req.Version != "" {
		v, err := model.PDFVersion(req.Version)
		if err != nil {
			return fmt.Errorf("compose: version %q: %w", req.Version, err)
		}
		pctx, err := api.ReadContext(bytes.NewReader(cur), conf)
		if err != nil {
			return fmt.Errorf("compose: reread: %w", err)
		}
		pctx.HeaderVersion = &v
		var out bytes.Buffer
		if err := api.WriteContext(pctx, &out); err != nil {
			return fmt.Errorf("compose: version: %w", err)
		}
		cur = out.Bytes()
	}

	if len(req.Labels) > 0 || len(req.Outline) > 0 || req.PageLayout != "" || req.PageMode != "" {
		log.Debug().Msg("page labels, outline and viewer preferences are not persisted by the pdfcpu backend")
	}

	if req.Security != nil {
		econf := readConf()
		econf.UserPW = req.Security.UserPassword
		econf.OwnerPW = req.Security.OwnerPassword
		if econf.OwnerPW == "" {
			econf.OwnerPW = econf.UserPW
		}
		if req.Security.Permissions == PermissionsAll {
			econf.Permissions = model.PermissionsAll
		} else {
			econf.Permissions = model.PermissionsNone
		}
		var out bytes.Buffer
		if err := api.Encrypt(bytes.NewReader(cur), &out, econf); err != nil {
			return fmt.Errorf("compose: encrypt: %w", err)
		}
		cur = out.Bytes()
	}

	if _, err := w.Write(cur); err != nil {
		return fmt.Errorf("compose: write: %w", err)
	}
	return nil
}
