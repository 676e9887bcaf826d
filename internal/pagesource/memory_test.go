package pagesource

import (
	"bytes"
	"context"
	"testing"
)

func TestMemorySourceOpen(t *testing.T) {
	src := NewMemorySource()
	src.AddDocument("a.pdf", NewMemoryDocument(
		NewMemoryPage("p1", Letter),
		NewMemoryPage("p2", A4),
	))

	doc, err := src.Open(context.Background(), "a.pdf")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer doc.Close()
	if doc.PageCount() != 2 {
		t.Fatalf("page count = %d, want 2", doc.PageCount())
	}
	if _, err := doc.Page(0); err == nil {
		t.Fatal("page 0 returned")
	}
	if _, err := doc.Page(3); err == nil {
		t.Fatal("page beyond count returned")
	}

	if _, err := src.Open(context.Background(), "missing.pdf"); err == nil {
		t.Fatal("missing document opened")
	}
}

func TestBlankPageDefaultsToLetter(t *testing.T) {
	src := NewMemorySource()
	p, err := src.BlankPage(Rect{})
	if err != nil {
		t.Fatalf("blank page: %v", err)
	}
	if p.MediaBox() != Letter {
		t.Fatalf("media box = %v, want Letter", p.MediaBox())
	}

	p, err = src.BlankPage(A4)
	if err != nil {
		t.Fatalf("blank page: %v", err)
	}
	if p.MediaBox() != A4 {
		t.Fatalf("media box = %v, want A4", p.MediaBox())
	}
}

func TestRotationNormalization(t *testing.T) {
	p := NewMemoryPage("x", Letter)
	p.Rotate(90)
	p.Rotate(90)
	p.Rotate(90)
	p.Rotate(90)
	if p.Rotation() != 0 {
		t.Fatalf("rotation = %d, want 0 after full turn", p.Rotation())
	}
	p.Rotate(-90)
	if p.Rotation() != 270 {
		t.Fatalf("rotation = %d, want 270", p.Rotation())
	}
}

func TestComposeRoundTrip(t *testing.T) {
	src := NewMemorySource()
	pages := []Page{
		NewMemoryPage("p1", Letter).WithRotation(90),
		NewMemoryPage("p2", A4).WithCropBox(Rect{10, 10, 500, 700}),
	}

	var buf bytes.Buffer
	req := ComposeRequest{
		Info:            map[string]string{"Title": "composed"},
		Version:         "1.6",
		CompressStreams: true,
		ObjectStreams:   true,
		XRefStream:      true,
		SyncBodyWrite:   true,
	}
	if err := src.Compose(context.Background(), &buf, pages, req); err != nil {
		t.Fatalf("compose: %v", err)
	}

	doc, err := ParseComposed(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Info["Title"] != "composed" || doc.Version != "1.6" {
		t.Fatalf("document attributes = %+v", doc)
	}
	if !doc.Compressed {
		t.Fatal("full write-option set not reported as compressed")
	}
	if doc.Pages[0].Rotation != 90 {
		t.Fatalf("page 1 rotation = %d", doc.Pages[0].Rotation)
	}
	if doc.Pages[1].CropBox != (Rect{10, 10, 500, 700}) {
		t.Fatalf("page 2 crop box = %v", doc.Pages[1].CropBox)
	}
}

func TestComposePartialOptionSetIsNotCompressed(t *testing.T) {
	src := NewMemorySource()
	var buf bytes.Buffer
	req := ComposeRequest{CompressStreams: true, XRefStream: true}
	if err := src.Compose(context.Background(), &buf, nil, req); err != nil {
		t.Fatalf("compose: %v", err)
	}
	doc, err := ParseComposed(&buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if doc.Compressed {
		t.Fatal("partial write-option set reported as compressed")
	}
}

func TestComposeRejectsForeignPage(t *testing.T) {
	src := NewMemorySource()
	var buf bytes.Buffer
	err := src.Compose(context.Background(), &buf, []Page{stubPage{}}, ComposeRequest{})
	if err == nil {
		t.Fatal("foreign page composed")
	}
}

type stubPage struct{}

func (stubPage) MediaBox() Rect           { return Letter }
func (stubPage) CropBox() Rect            { return Letter }
func (stubPage) Rotation() int            { return 0 }
func (stubPage) Rotate(int)               {}
func (stubPage) Duplicate() (Page, error) { return stubPage{}, nil }
