// Package split holds the pure page-range algorithms: given a split
// specification over a 1..N page range, produce the ordered output units
// feeding the composition layer. There are two distinct families here:
// partition algorithms cut the whole range into consecutive units, while
// selection algorithms pick individual pages, each becoming its own
// single-page unit.
package split

import (
	"fmt"
	"sort"

	"github.com/local/pdfbatch/internal/pagesource"
)

// Unit is one planned output: an ordered list of 1-based source pages
// mapped onto one destination document.
type Unit struct {
	Pages []int
}

// First returns the first source page of the unit.
func (u Unit) First() int { return u.Pages[0] }

// Last returns the last source page of the unit.
func (u Unit) Last() int { return u.Pages[len(u.Pages)-1] }

// ByPageNumbers partitions [1..pageCount] by cutting after each listed
// page. Points are sorted ascending before cutting; a point equal to the
// final page is a no-op cut and never produces an empty trailing unit.
// An empty point list yields exactly one unit spanning the whole range.
// Out-of-range and duplicate points are rejected rather than clamped,
// since clamping would hide a caller configuration error as a no-op.
func ByPageNumbers(points []int, pageCount int) ([]Unit, error) {
	if pageCount < 1 {
		return nil, fmt.Errorf("empty page range")
	}
	seen := map[int]struct{}{}
	sorted := append([]int(nil), points...)
	sort.Ints(sorted)
	for _, p := range sorted {
		if p <= 0 || p > pageCount {
			return nil, fmt.Errorf("split point %d out of range [1,%d]", p, pageCount)
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("duplicate split point %d", p)
		}
		seen[p] = struct{}{}
	}

	var units []Unit
	start := 1
	for _, p := range sorted {
		units = append(units, Unit{Pages: pageRange(start, p)})
		start = p + 1
	}
	if start <= pageCount {
		units = append(units, Unit{Pages: pageRange(start, pageCount)})
	}
	return units, nil
}

// SelectPages turns each listed page into its own single-page unit, in
// ascending page order. Out-of-range and duplicate pages are rejected.
func SelectPages(pages []int, pageCount int) ([]Unit, error) {
	if pageCount < 1 {
		return nil, fmt.Errorf("empty page range")
	}
	seen := map[int]struct{}{}
	sorted := append([]int(nil), pages...)
	sort.Ints(sorted)
	units := make([]Unit, 0, len(sorted))
	for _, p := range sorted {
		if p <= 0 || p > pageCount {
			return nil, fmt.Errorf("selected page %d out of range [1,%d]", p, pageCount)
		}
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("duplicate selected page %d", p)
		}
		seen[p] = struct{}{}
		units = append(units, Unit{Pages: []int{p}})
	}
	return units, nil
}

// EvenPages selects every even page of [1..pageCount].
func EvenPages(pageCount int) ([]Unit, error) {
	return SelectPages(everyOther(2, pageCount), pageCount)
}

// OddPages selects every odd page of [1..pageCount].
func OddPages(pageCount int) ([]Unit, error) {
	return SelectPages(everyOther(1, pageCount), pageCount)
}

// ByOutline derives split points from the bookmark target pages at the
// given outline level, then cuts with the same semantics as
// ByPageNumbers: each bookmarked page starts a new unit. Several
// bookmarks landing on the same page collapse into one cut. Entries
// without a page destination are ignored.
func ByOutline(entries []pagesource.OutlineEntry, level, pageCount int) ([]Unit, error) {
	targets := map[int]struct{}{}
	for _, e := range entries {
		if e.Level != level || e.Page < 1 || e.Page > pageCount {
			continue
		}
		targets[e.Page] = struct{}{}
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no outline destinations at level %d", level)
	}
	var points []int
	for p := range targets {
		// A bookmark on page p means the unit boundary is after p-1.
		if p > 1 {
			points = append(points, p-1)
		}
	}
	return ByPageNumbers(points, pageCount)
}

func pageRange(from, to int) []int {
	pages := make([]int, 0, to-from+1)
	for p := from; p <= to; p++ {
		pages = append(pages, p)
	}
	return pages
}

func everyOther(start, pageCount int) []int {
	var pages []int
	for p := start; p <= pageCount; p += 2 {
		pages = append(pages, p)
	}
	return pages
}
