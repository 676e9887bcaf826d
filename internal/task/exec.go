package task

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfbatch/internal/document"
	"github.com/local/pdfbatch/internal/metrics"
	"github.com/local/pdfbatch/internal/outputs"
	"github.com/local/pdfbatch/internal/pagesource"
	"github.com/local/pdfbatch/internal/split"
)

// writeUnits materializes each planned unit as one output document read
// from the open source handle. Units are processed strictly in order;
// each unit's policy resolution and save complete before the next unit
// begins. A fail-policy collision aborts the task and leaves earlier
// outputs in place.
func writeUnits(ctx context.Context, src pagesource.Source, from *document.Handle,
	units []split.Unit, dest outputs.Destination, opts OutputOptions, progress Progress) (Result, error) {

	policy, err := opts.Policy()
	if err != nil {
		return Result{}, &ValidationError{Message: err.Error()}
	}
	resolver := outputs.NewResolver(policy)

	ranges := make([][2]int, len(units))
	for i, u := range units {
		ranges[i] = [2]int{u.First(), u.Last()}
	}
	paths, err := dest.Paths(ranges)
	if err != nil {
		return Result{}, &ValidationError{Message: err.Error()}
	}

	var res Result
	for i, unit := range units {
		path := paths[i]
		state, err := resolver.Resolve(path)
		if err != nil {
			return res, err
		}
		switch state {
		case outputs.Skipped:
			log.Info().Str("dest", path).Msg("output exists, skipping unit")
			metrics.IncUnit("skipped")
			res.Skipped = append(res.Skipped, path)
		case outputs.Aborted:
			metrics.IncUnit("aborted")
			return res, &PolicyAbortError{Dest: path}
		case outputs.Proceed:
			if err := writeUnit(ctx, src, from, unit.Pages, path, opts); err != nil {
				return res, err
			}
			metrics.IncUnit("written")
			res.Written = append(res.Written, path)
		}
		if progress != nil {
			progress(i+1, len(units))
		}
	}
	return res, nil
}

func writeUnit(ctx context.Context, src pagesource.Source, from *document.Handle,
	pages []int, path string, opts OutputOptions) error {

	out := document.NewHandle(src)
	defer out.Close()
	for _, n := range pages {
		p, err := from.Page(n)
		if err != nil {
			return err
		}
		if _, err := out.ImportPage(p); err != nil {
			return err
		}
	}
	if err := applyOutputOptions(out, opts); err != nil {
		return err
	}
	return out.Save(ctx, path, opts.Security())
}

func applyOutputOptions(h *document.Handle, opts OutputOptions) error {
	h.SetCompress(opts.Compress != nil && *opts.Compress)
	if opts.Version != "" {
		if err := h.SetVersion(opts.Version); err != nil {
			return &ValidationError{Message: err.Error()}
		}
	}
	return nil
}

// resolveSingle gates a one-file output. The bool reports whether the
// save should proceed; a skipped output is recorded in the result.
func resolveSingle(path string, opts OutputOptions) (bool, Result, error) {
	policy, err := opts.Policy()
	if err != nil {
		return false, Result{}, &ValidationError{Message: err.Error()}
	}
	state, err := outputs.NewResolver(policy).Resolve(path)
	if err != nil {
		return false, Result{}, err
	}
	switch state {
	case outputs.Skipped:
		log.Info().Str("dest", path).Msg("output exists, skipping task output")
		metrics.IncUnit("skipped")
		return false, Result{Skipped: []string{path}}, nil
	case outputs.Aborted:
		metrics.IncUnit("aborted")
		return false, Result{}, &PolicyAbortError{Dest: path}
	}
	return true, Result{}, nil
}

// defaultBase derives an output base name from the source file name.
func defaultBase(source, configured string) string {
	if configured != "" {
		return configured
	}
	name := filepath.Base(source)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

func openSource(ctx context.Context, src pagesource.Source, ref string) (*document.Handle, error) {
	h, err := document.Open(ctx, src, ref)
	if err != nil {
		return nil, &SourceReadError{Ref: ref, Err: err}
	}
	if h.PageCount() == 0 {
		h.Close()
		return nil, &SourceReadError{Ref: ref, Err: fmt.Errorf("document has no pages")}
	}
	return h, nil
}
