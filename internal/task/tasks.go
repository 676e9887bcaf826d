package task

import (
	"context"

	"github.com/local/pdfbatch/internal/document"
	"github.com/local/pdfbatch/internal/outputs"
	"github.com/local/pdfbatch/internal/pagesource"
	"github.com/local/pdfbatch/internal/split"
)

func splitByPagesTask(src pagesource.Source) Handler {
	return func(ctx context.Context, p Parameters, progress Progress) (Result, error) {
		params := p.(*SplitByPagesParameters)
		in, err := openSource(ctx, src, params.Source)
		if err != nil {
			return Result{}, err
		}
		defer in.Close()

		units, err := split.ByPageNumbers(params.Pages, in.PageCount())
		if err != nil {
			return Result{}, &ValidationError{Message: err.Error()}
		}
		dest, err := outputs.NewDirectoryDestination(params.OutputDir, defaultBase(params.Source, params.BaseName))
		if err != nil {
			return Result{}, &ValidationError{Message: err.Error()}
		}
		return writeUnits(ctx, src, in, units, dest, params.OutputOptions, progress)
	}
}

func splitEvenOddTask(src pagesource.Source) Handler {
	return func(ctx context.Context, p Parameters, progress Progress) (Result, error) {
		params := p.(*SplitEvenOddParameters)
		in, err := openSource(ctx, src, params.Source)
		if err != nil {
			return Result{}, err
		}
		defer in.Close()

		var units []split.Unit
		if params.Select == SelectEven {
			units, err = split.EvenPages(in.PageCount())
		} else {
			units, err = split.OddPages(in.PageCount())
		}
		if err != nil {
			return Result{}, &ValidationError{Message: err.Error()}
		}
		dest, err := outputs.NewDirectoryDestination(params.OutputDir, defaultBase(params.Source, params.BaseName))
		if err != nil {
			return Result{}, &ValidationError{Message: err.Error()}
		}
		return writeUnits(ctx, src, in, units, dest, params.OutputOptions, progress)
	}
}

func splitByOutlineTask(src pagesource.Source) Handler {
	return func(ctx context.Context, p Parameters, progress Progress) (Result, error) {
		params := p.(*SplitByOutlineParameters)
		in, err := openSource(ctx, src, params.Source)
		if err != nil {
			return Result{}, err
		}
		defer in.Close()

		entries, err := in.Outline()
		if err != nil {
			return Result{}, &SourceReadError{Ref: params.Source, Err: err}
		}
		units, err := split.ByOutline(entries, params.Level, in.PageCount())
		if err != nil {
			return Result{}, &ValidationError{Message: err.Error()}
		}
		dest, err := outputs.NewDirectoryDestination(params.OutputDir, defaultBase(params.Source, params.BaseName))
		if err != nil {
			return Result{}, &ValidationError{Message: err.Error()}
		}
		return writeUnits(ctx, src, in, units, dest, params.OutputOptions, progress)
	}
}

func mergeTask(src pagesource.Source) Handler {
	return func(ctx context.Context, p Parameters, progress Progress) (Result, error) {
		params := p.(*MergeParameters)

		proceed, res, err := resolveSingle(params.Output, params.OutputOptions)
		if err != nil || !proceed {
			return res, err
		}

		out := document.NewHandle(src)
		defer out.Close()
		for i, ref := range params.Inputs {
			in, err := openSource(ctx, src, ref)
			if err != nil {
				return Result{}, err
			}
			var lastBox pagesource.Rect
			for n := 1; n <= in.PageCount(); n++ {
				page, err := in.Page(n)
				if err != nil {
					in.Close()
					return Result{}, err
				}
				if _, err := out.ImportPage(page); err != nil {
					in.Close()
					return Result{}, err
				}
				lastBox = page.MediaBox()
			}
			in.Close()
			if params.BlankPageIfOdd {
				if err := out.AddBlankPageIfOdd(lastBox); err != nil {
					return Result{}, err
				}
			}
			if progress != nil {
				progress(i+1, len(params.Inputs))
			}
		}
		if err := applyOutputOptions(out, params.OutputOptions); err != nil {
			return Result{}, err
		}
		if err := out.Save(ctx, params.Output, params.Security()); err != nil {
			return Result{}, err
		}
		return Result{Written: []string{params.Output}}, nil
	}
}

func rotateTask(src pagesource.Source) Handler {
	return func(ctx context.Context, p Parameters, progress Progress) (Result, error) {
		params := p.(*RotateParameters)

		proceed, res, err := resolveSingle(params.Output, params.OutputOptions)
		if err != nil || !proceed {
			return res, err
		}

		in, err := openSource(ctx, src, params.Source)
		if err != nil {
			return Result{}, err
		}
		defer in.Close()

		selected := params.Pages
		if len(selected) == 0 {
			selected = make([]int, in.PageCount())
			for i := range selected {
				selected[i] = i + 1
			}
		}
		// Reuse the selection validation: in-range, no duplicates.
		if _, err := split.SelectPages(selected, in.PageCount()); err != nil {
			return Result{}, &ValidationError{Message: err.Error()}
		}

		out := document.NewHandle(src)
		defer out.Close()
		imported := make([]pagesource.Page, in.PageCount())
		for n := 1; n <= in.PageCount(); n++ {
			page, err := in.Page(n)
			if err != nil {
				return Result{}, err
			}
			imported[n-1], err = out.ImportPage(page)
			if err != nil {
				return Result{}, err
			}
		}
		for _, n := range selected {
			imported[n-1].Rotate(params.Rotation)
		}
		if err := applyOutputOptions(out, params.OutputOptions); err != nil {
			return Result{}, err
		}
		if err := out.Save(ctx, params.Output, params.Security()); err != nil {
			return Result{}, err
		}
		return Result{Written: []string{params.Output}}, nil
	}
}

func setPageLabelsTask(src pagesource.Source) Handler {
	return func(ctx context.Context, p Parameters, progress Progress) (Result, error) {
		params := p.(*SetPageLabelsParameters)

		proceed, res, err := resolveSingle(params.Output, params.OutputOptions)
		if err != nil || !proceed {
			return res, err
		}

		in, err := openSource(ctx, src, params.Source)
		if err != nil {
			return Result{}, err
		}
		defer in.Close()

		out := document.NewHandle(src)
		defer out.Close()
		for n := 1; n <= in.PageCount(); n++ {
			page, err := in.Page(n)
			if err != nil {
				return Result{}, err
			}
			if _, err := out.ImportPage(page); err != nil {
				return Result{}, err
			}
		}
		// Labels are validated against the final page count, so they are
		// assigned only after the page tree is complete.
		if err := out.SetPageLabels(params.Labels); err != nil {
			return Result{}, &ValidationError{Message: err.Error()}
		}
		if err := applyOutputOptions(out, params.OutputOptions); err != nil {
			return Result{}, err
		}
		if err := out.Save(ctx, params.Output, params.Security()); err != nil {
			return Result{}, err
		}
		return Result{Written: []string{params.Output}}, nil
	}
}
