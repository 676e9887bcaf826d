package task

import (
	"fmt"
	"os"

	"github.com/local/pdfbatch/internal/document"
	"github.com/local/pdfbatch/internal/outputs"
	"github.com/local/pdfbatch/internal/pagesource"
)

// Kind tags a task variant. Exactly one task implementation is
// registered per kind.
type Kind string

const (
	KindSplitByPages   Kind = "split-by-pages"
	KindSplitEvenOdd   Kind = "split-even-odd"
	KindSplitByOutline Kind = "split-by-outline"
	KindMerge          Kind = "merge"
	KindRotate         Kind = "rotate"
	KindSetPageLabels  Kind = "set-page-labels"
)

// Kinds lists every task kind the toolkit ships. The registry refuses to
// start with any of these unbound.
var Kinds = []Kind{
	KindSplitByPages,
	KindSplitEvenOdd,
	KindSplitByOutline,
	KindMerge,
	KindRotate,
	KindSetPageLabels,
}

// Parameters is a typed configuration object consumed by exactly one
// task implementation.
type Parameters interface {
	Kind() Kind
	// Sources lists the input document references.
	Sources() []string
	// OutputOpts exposes the shared output controls for mutation, so
	// service-level defaults can fill fields a request left unset.
	OutputOpts() *OutputOptions
	// Validate performs structural checks. It runs before any document
	// is opened.
	Validate() error
}

// OutputOptions are the output controls shared by every task.
type OutputOptions struct {
	// ExistingOutput is the collision policy: fail (default), overwrite
	// or skip.
	ExistingOutput string `json:"existing_output,omitempty"`
	// Compress toggles the compression write-option bundle. Nil means
	// unset, letting a service-level default apply.
	Compress *bool `json:"compress,omitempty"`
	// Version is the declared PDF version of the outputs, e.g. "1.6".
	Version string `json:"version,omitempty"`
	// Encrypt, when set, password-protects every output.
	Encrypt *EncryptOptions `json:"encrypt,omitempty"`
}

func (o *OutputOptions) OutputOpts() *OutputOptions { return o }

// EncryptOptions describe output encryption. At least one password must
// be set; an empty owner password falls back to the user password.
type EncryptOptions struct {
	UserPassword  string `json:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
	// AllowAll grants the full access permission set instead of none.
	AllowAll bool `json:"allow_all,omitempty"`
}

// Security maps the encryption options onto the backend descriptor, nil
// when encryption is not requested.
func (o OutputOptions) Security() *pagesource.Security {
	if o.Encrypt == nil {
		return nil
	}
	perms := pagesource.PermissionsNone
	if o.Encrypt.AllowAll {
		perms = pagesource.PermissionsAll
	}
	return &pagesource.Security{
		UserPassword:  o.Encrypt.UserPassword,
		OwnerPassword: o.Encrypt.OwnerPassword,
		Permissions:   perms,
	}
}

// Policy parses the configured collision policy.
func (o OutputOptions) Policy() (outputs.ExistingOutputPolicy, error) {
	return outputs.ParsePolicy(o.ExistingOutput)
}

func (o OutputOptions) validate() error {
	if _, err := o.Policy(); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	if o.Version != "" && !document.ValidVersion(o.Version) {
		return &ValidationError{Message: fmt.Sprintf("invalid pdf version %q", o.Version)}
	}
	if o.Encrypt != nil && o.Encrypt.UserPassword == "" && o.Encrypt.OwnerPassword == "" {
		return &ValidationError{Message: "encryption requested without a password"}
	}
	return nil
}

// SplitByPagesParameters bursts one source at explicit page numbers into
// a directory of output files.
type SplitByPagesParameters struct {
	Source    string `json:"source"`
	Pages     []int  `json:"pages"`
	OutputDir string `json:"output_dir"`
	BaseName  string `json:"base_name,omitempty"`
	OutputOptions
}

func (p *SplitByPagesParameters) Kind() Kind        { return KindSplitByPages }
func (p *SplitByPagesParameters) Sources() []string { return []string{p.Source} }

func (p *SplitByPagesParameters) Validate() error {
	if p.Source == "" {
		return &ValidationError{Message: "missing source"}
	}
	if len(p.Pages) == 0 {
		return &ValidationError{Message: "missing split pages"}
	}
	if err := checkOutputDir(p.OutputDir); err != nil {
		return err
	}
	return p.OutputOptions.validate()
}

// Selection picks the even or odd pages of a source.
type Selection string

const (
	SelectEven Selection = "even"
	SelectOdd  Selection = "odd"
)

// SplitEvenOddParameters writes each selected page of the source as its
// own single-page output file.
type SplitEvenOddParameters struct {
	Source    string    `json:"source"`
	Select    Selection `json:"select"`
	OutputDir string    `json:"output_dir"`
	BaseName  string    `json:"base_name,omitempty"`
	OutputOptions
}

func (p *SplitEvenOddParameters) Kind() Kind        { return KindSplitEvenOdd }
func (p *SplitEvenOddParameters) Sources() []string { return []string{p.Source} }

func (p *SplitEvenOddParameters) Validate() error {
	if p.Source == "" {
		return &ValidationError{Message: "missing source"}
	}
	if p.Select != SelectEven && p.Select != SelectOdd {
		return &ValidationError{Message: fmt.Sprintf("invalid selection %q", p.Select)}
	}
	if err := checkOutputDir(p.OutputDir); err != nil {
		return err
	}
	return p.OutputOptions.validate()
}

// SplitByOutlineParameters derives split points from the bookmarks at
// one outline level.
type SplitByOutlineParameters struct {
	Source    string `json:"source"`
	Level     int    `json:"level"`
	OutputDir string `json:"output_dir"`
	BaseName  string `json:"base_name,omitempty"`
	OutputOptions
}

func (p *SplitByOutlineParameters) Kind() Kind        { return KindSplitByOutline }
func (p *SplitByOutlineParameters) Sources() []string { return []string{p.Source} }

func (p *SplitByOutlineParameters) Validate() error {
	if p.Source == "" {
		return &ValidationError{Message: "missing source"}
	}
	if p.Level < 1 {
		return &ValidationError{Message: "outline level must be >= 1"}
	}
	if err := checkOutputDir(p.OutputDir); err != nil {
		return err
	}
	return p.OutputOptions.validate()
}

// MergeParameters concatenates the pages of several sources into one
// output file, optionally padding each source to an even page count so
// duplex printing keeps documents aligned.
type MergeParameters struct {
	Inputs         []string `json:"inputs"`
	Output         string   `json:"output"`
	BlankPageIfOdd bool     `json:"blank_page_if_odd,omitempty"`
	OutputOptions
}

func (p *MergeParameters) Kind() Kind        { return KindMerge }
func (p *MergeParameters) Sources() []string { return p.Inputs }

func (p *MergeParameters) Validate() error {
	if len(p.Inputs) < 2 {
		return &ValidationError{Message: "merge needs at least two inputs"}
	}
	for _, in := range p.Inputs {
		if in == "" {
			return &ValidationError{Message: "empty merge input"}
		}
	}
	if p.Output == "" {
		return &ValidationError{Message: "missing output"}
	}
	return p.OutputOptions.validate()
}

// RotateParameters rotates the listed pages (all pages when empty) and
// writes the whole document to one output file.
type RotateParameters struct {
	Source   string `json:"source"`
	Rotation int    `json:"rotation"`
	Pages    []int  `json:"pages,omitempty"`
	Output   string `json:"output"`
	OutputOptions
}

func (p *RotateParameters) Kind() Kind        { return KindRotate }
func (p *RotateParameters) Sources() []string { return []string{p.Source} }

func (p *RotateParameters) Validate() error {
	if p.Source == "" {
		return &ValidationError{Message: "missing source"}
	}
	if p.Rotation%90 != 0 || p.Rotation == 0 {
		return &ValidationError{Message: fmt.Sprintf("rotation %d is not a non-zero multiple of 90", p.Rotation)}
	}
	if p.Output == "" {
		return &ValidationError{Message: "missing output"}
	}
	return p.OutputOptions.validate()
}

// SetPageLabelsParameters rewrites the page labels of a document into
// one output file.
type SetPageLabelsParameters struct {
	Source string                 `json:"source"`
	Labels []pagesource.PageLabel `json:"labels"`
	Output string                 `json:"output"`
	OutputOptions
}

func (p *SetPageLabelsParameters) Kind() Kind        { return KindSetPageLabels }
func (p *SetPageLabelsParameters) Sources() []string { return []string{p.Source} }

func (p *SetPageLabelsParameters) Validate() error {
	if p.Source == "" {
		return &ValidationError{Message: "missing source"}
	}
	if len(p.Labels) == 0 {
		return &ValidationError{Message: "missing page labels"}
	}
	if p.Output == "" {
		return &ValidationError{Message: "missing output"}
	}
	return p.OutputOptions.validate()
}

func checkOutputDir(dir string) error {
	if dir == "" {
		return &ValidationError{Message: "missing output directory"}
	}
	info, err := os.Stat(dir)
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("output directory %s does not exist", dir)}
	}
	if !info.IsDir() {
		return &ValidationError{Message: fmt.Sprintf("output path %s is not a directory", dir)}
	}
	return nil
}
