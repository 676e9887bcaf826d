// Package filetype gates inputs on their actual content: sources are
// probed by magic bytes before any document is opened, so a mislabeled
// file fails with a clear message instead of a parser error.
package filetype

import (
	"fmt"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"
)

// Info describes a probed input file.
type Info struct {
	MIMEType string
	IsPDF    bool
	// Pages is the page count, populated only for PDFs.
	Pages int
}

// Probe detects the file type using magic bytes, not the filename, and
// counts pages when the file is a PDF.
func Probe(path string) (*Info, error) {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect file type: %w", err)
	}
	info := &Info{MIMEType: mtype.String()}
	log.Debug().Str("mime", info.MIMEType).Str("file", path).Msg("detected file type")

	if !mtype.Is("application/pdf") {
		return info, nil
	}
	info.IsPDF = true
	n, err := api.PageCountFile(path)
	if err != nil {
		return nil, fmt.Errorf("pdf page count: %w", err)
	}
	info.Pages = n
	return info, nil
}

// EnsurePDF returns an error unless path holds a PDF document.
func EnsurePDF(path string) error {
	info, err := Probe(path)
	if err != nil {
		return err
	}
	if !info.IsPDF {
		return fmt.Errorf("%s is not a PDF (detected %s)", path, info.MIMEType)
	}
	return nil
}
