package pagesource

import (
	"fmt"

	fitz "github.com/gen2brain/go-fitz"
)

// fitzOutlineReader reads document outlines through go-fitz, which walks
// the bookmark tree natively. Opened per call; outline reads are rare
// (one per outline-driven split).
type fitzOutlineReader struct{}

// NewFitzOutlineReader returns the go-fitz backed OutlineReader.
func NewFitzOutlineReader() OutlineReader { return fitzOutlineReader{} }

func (fitzOutlineReader) ReadOutline(path string) ([]OutlineEntry, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer doc.Close()

	toc, err := doc.ToC()
	if err != nil {
		return nil, fmt.Errorf("outline %s: %w", path, err)
	}
	entries := make([]OutlineEntry, 0, len(toc))
	for _, o := range toc {
		e := OutlineEntry{Level: o.Level, Title: o.Title}
		if o.Page >= 0 {
			// go-fitz pages are 0-based.
			e.Page = o.Page + 1
		}
		entries = append(entries, e)
	}
	return entries, nil
}
