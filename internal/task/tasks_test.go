package task

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/local/pdfbatch/internal/pagesource"
)

func newFixture(t *testing.T) (*pagesource.MemorySource, *Dispatcher) {
	t.Helper()
	src := pagesource.NewMemorySource()
	reg, err := DefaultRegistry(src)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return src, NewDispatcher(reg)
}

func addDoc(src *pagesource.MemorySource, path string, n int) *pagesource.MemoryDocument {
	pages := make([]*pagesource.MemoryPage, n)
	for i := range pages {
		pages[i] = pagesource.NewMemoryPage(pageContent(path, i+1), pagesource.Letter)
	}
	doc := pagesource.NewMemoryDocument(pages...)
	src.AddDocument(path, doc)
	return doc
}

func pageContent(path string, n int) string {
	return path + "#" + string(rune('0'+n))
}

func parseOutput(t *testing.T, path string) *pagesource.ComposedDocument {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open output %s: %v", path, err)
	}
	defer f.Close()
	doc, err := pagesource.ParseComposed(f)
	if err != nil {
		t.Fatalf("parse output %s: %v", path, err)
	}
	return doc
}

func TestSplitByPagesBurst(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "in.pdf", 4)
	dir := t.TempDir()

	res, err := d.Dispatch(context.Background(), "t1", &SplitByPagesParameters{
		Source:    "in.pdf",
		Pages:     []int{1, 2, 3},
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Written) != 4 {
		t.Fatalf("written = %v, want 4 files", res.Written)
	}

	for i := 1; i <= 4; i++ {
		path := filepath.Join(dir, "in_"+string(rune('0'+i))+".pdf")
		doc := parseOutput(t, path)
		if len(doc.Pages) != 1 {
			t.Fatalf("%s has %d pages, want 1", path, len(doc.Pages))
		}
		if doc.Pages[0].Content != pageContent("in.pdf", i) {
			t.Fatalf("%s holds page %q", path, doc.Pages[0].Content)
		}
	}
}

func TestSplitByPagesRangeNaming(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "report.pdf", 5)
	dir := t.TempDir()

	res, err := d.Dispatch(context.Background(), "t2", &SplitByPagesParameters{
		Source:    "report.pdf",
		Pages:     []int{2},
		OutputDir: dir,
		BaseName:  "part",
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	want := []string{
		filepath.Join(dir, "part_1-2.pdf"),
		filepath.Join(dir, "part_3-5.pdf"),
	}
	if len(res.Written) != 2 || res.Written[0] != want[0] || res.Written[1] != want[1] {
		t.Fatalf("written = %v, want %v", res.Written, want)
	}

	second := parseOutput(t, want[1])
	if len(second.Pages) != 3 {
		t.Fatalf("second unit has %d pages, want 3", len(second.Pages))
	}
}

func TestSplitFailPolicyLeavesEarlierUnits(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "in.pdf", 3)
	dir := t.TempDir()

	// Pre-create the second unit's destination so the fail policy trips
	// after the first unit has been written.
	collision := filepath.Join(dir, "in_2.pdf")
	if err := os.WriteFile(collision, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := d.Dispatch(context.Background(), "t3", &SplitByPagesParameters{
		Source:    "in.pdf",
		Pages:     []int{1, 2},
		OutputDir: dir,
	})
	if !IsPolicyAbort(err) {
		t.Fatalf("dispatch error = %v, want policy abort", err)
	}
	if len(res.Written) != 1 {
		t.Fatalf("written = %v, want the first unit only", res.Written)
	}
	if _, err := os.Stat(res.Written[0]); err != nil {
		t.Fatalf("earlier output removed after abort: %v", err)
	}
	if data, _ := os.ReadFile(collision); string(data) != "old" {
		t.Fatal("existing file overwritten despite fail policy")
	}
}

func TestSplitSkipPolicy(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "in.pdf", 2)
	dir := t.TempDir()

	existing := filepath.Join(dir, "in_1.pdf")
	if err := os.WriteFile(existing, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := d.Dispatch(context.Background(), "t4", &SplitByPagesParameters{
		Source:        "in.pdf",
		Pages:         []int{1},
		OutputDir:     dir,
		OutputOptions: OutputOptions{ExistingOutput: "skip"},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != existing {
		t.Fatalf("skipped = %v", res.Skipped)
	}
	if len(res.Written) != 1 {
		t.Fatalf("written = %v", res.Written)
	}
	if data, _ := os.ReadFile(existing); string(data) != "old" {
		t.Fatal("skipped file was rewritten")
	}
}

func TestSplitOverwritePolicy(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "in.pdf", 1)
	dir := t.TempDir()

	existing := filepath.Join(dir, "in_1.pdf")
	if err := os.WriteFile(existing, []byte("old"), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := d.Dispatch(context.Background(), "t5", &SplitByPagesParameters{
		Source:        "in.pdf",
		Pages:         []int{1},
		OutputDir:     dir,
		OutputOptions: OutputOptions{ExistingOutput: "overwrite"},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Written) != 1 {
		t.Fatalf("written = %v", res.Written)
	}
	doc := parseOutput(t, existing)
	if len(doc.Pages) != 1 {
		t.Fatal("existing file not replaced under overwrite policy")
	}
}

func TestSplitEvenOdd(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "in.pdf", 5)

	t.Run("even", func(t *testing.T) {
		dir := t.TempDir()
		res, err := d.Dispatch(context.Background(), "t6", &SplitEvenOddParameters{
			Source:    "in.pdf",
			Select:    SelectEven,
			OutputDir: dir,
		})
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		want := []string{
			filepath.Join(dir, "in_2.pdf"),
			filepath.Join(dir, "in_4.pdf"),
		}
		if len(res.Written) != 2 || res.Written[0] != want[0] || res.Written[1] != want[1] {
			t.Fatalf("written = %v, want %v", res.Written, want)
		}
	})

	t.Run("odd", func(t *testing.T) {
		dir := t.TempDir()
		res, err := d.Dispatch(context.Background(), "t7", &SplitEvenOddParameters{
			Source:    "in.pdf",
			Select:    SelectOdd,
			OutputDir: dir,
		})
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		if len(res.Written) != 3 {
			t.Fatalf("written = %v, want 3 files", res.Written)
		}
	})
}

func TestSplitByOutline(t *testing.T) {
	src, d := newFixture(t)
	doc := addDoc(src, "book.pdf", 6)
	doc.WithOutline(
		pagesource.OutlineEntry{Level: 1, Title: "Ch 1", Page: 1},
		pagesource.OutlineEntry{Level: 1, Title: "Ch 2", Page: 3},
		pagesource.OutlineEntry{Level: 2, Title: "Sec 2.1", Page: 4},
		pagesource.OutlineEntry{Level: 1, Title: "Ch 3", Page: 5},
	)
	dir := t.TempDir()

	res, err := d.Dispatch(context.Background(), "t8", &SplitByOutlineParameters{
		Source:    "book.pdf",
		Level:     1,
		OutputDir: dir,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Written) != 3 {
		t.Fatalf("written = %v, want 3 chapters", res.Written)
	}
	first := parseOutput(t, res.Written[0])
	if len(first.Pages) != 2 {
		t.Fatalf("first chapter has %d pages, want 2", len(first.Pages))
	}

	t.Run("level without bookmarks", func(t *testing.T) {
		_, err := d.Dispatch(context.Background(), "t9", &SplitByOutlineParameters{
			Source:    "book.pdf",
			Level:     3,
			OutputDir: t.TempDir(),
		})
		if !IsValidation(err) {
			t.Fatalf("dispatch error = %v, want validation error", err)
		}
	})
}

func TestMerge(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "a.pdf", 2)
	addDoc(src, "b.pdf", 3)
	out := filepath.Join(t.TempDir(), "merged.pdf")

	res, err := d.Dispatch(context.Background(), "t10", &MergeParameters{
		Inputs: []string{"a.pdf", "b.pdf"},
		Output: out,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if len(res.Written) != 1 || res.Written[0] != out {
		t.Fatalf("written = %v", res.Written)
	}

	doc := parseOutput(t, out)
	if len(doc.Pages) != 5 {
		t.Fatalf("merged page count = %d, want 5", len(doc.Pages))
	}
	if doc.Pages[0].Content != pageContent("a.pdf", 1) || doc.Pages[2].Content != pageContent("b.pdf", 1) {
		t.Fatalf("merged page order wrong: %+v", doc.Pages)
	}
}

func TestMergeBlankPageIfOdd(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "a.pdf", 3)
	addDoc(src, "b.pdf", 2)
	out := filepath.Join(t.TempDir(), "merged.pdf")

	_, err := d.Dispatch(context.Background(), "t11", &MergeParameters{
		Inputs:         []string{"a.pdf", "b.pdf"},
		Output:         out,
		BlankPageIfOdd: true,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	doc := parseOutput(t, out)
	// 3 pages + 1 blank pad, then 2 already-even pages.
	if len(doc.Pages) != 6 {
		t.Fatalf("page count = %d, want 6", len(doc.Pages))
	}
	if !doc.Pages[3].Blank {
		t.Fatalf("page 4 = %+v, want blank pad", doc.Pages[3])
	}
	if doc.Pages[4].Content != pageContent("b.pdf", 1) {
		t.Fatalf("page 5 = %+v", doc.Pages[4])
	}
}

func TestRotate(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "in.pdf", 3)
	out := filepath.Join(t.TempDir(), "rotated.pdf")

	_, err := d.Dispatch(context.Background(), "t12", &RotateParameters{
		Source:   "in.pdf",
		Rotation: 90,
		Pages:    []int{2},
		Output:   out,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	doc := parseOutput(t, out)
	if doc.Pages[0].Rotation != 0 || doc.Pages[2].Rotation != 0 {
		t.Fatalf("unselected pages rotated: %+v", doc.Pages)
	}
	if doc.Pages[1].Rotation != 90 {
		t.Fatalf("page 2 rotation = %d, want 90", doc.Pages[1].Rotation)
	}

	t.Run("all pages by default", func(t *testing.T) {
		out := filepath.Join(t.TempDir(), "rotated.pdf")
		_, err := d.Dispatch(context.Background(), "t13", &RotateParameters{
			Source:   "in.pdf",
			Rotation: 180,
			Output:   out,
		})
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		doc := parseOutput(t, out)
		for i, p := range doc.Pages {
			if p.Rotation != 180 {
				t.Fatalf("page %d rotation = %d, want 180", i+1, p.Rotation)
			}
		}
	})

	t.Run("source rotation is preserved and added to", func(t *testing.T) {
		rotSrc := pagesource.NewMemorySource()
		rotSrc.AddDocument("r.pdf", pagesource.NewMemoryDocument(
			pagesource.NewMemoryPage("r1", pagesource.Letter).WithRotation(90),
		))
		reg, err := DefaultRegistry(rotSrc)
		if err != nil {
			t.Fatal(err)
		}
		out := filepath.Join(t.TempDir(), "r.pdf")
		_, err = NewDispatcher(reg).Dispatch(context.Background(), "t14", &RotateParameters{
			Source:   "r.pdf",
			Rotation: 90,
			Output:   out,
		})
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		doc := parseOutput(t, out)
		if doc.Pages[0].Rotation != 180 {
			t.Fatalf("rotation = %d, want 180", doc.Pages[0].Rotation)
		}
	})
}

func TestSetPageLabels(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "in.pdf", 4)
	out := filepath.Join(t.TempDir(), "labeled.pdf")

	_, err := d.Dispatch(context.Background(), "t15", &SetPageLabelsParameters{
		Source: "in.pdf",
		Labels: []pagesource.PageLabel{
			{StartPage: 3, Style: pagesource.LabelArabic},
			{StartPage: 1, Style: pagesource.LabelRomanLower, Prefix: "p-"},
		},
		Output: out,
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	doc := parseOutput(t, out)
	if len(doc.Labels) != 2 {
		t.Fatalf("labels = %+v", doc.Labels)
	}
	// Labels are stored sorted by start page.
	if doc.Labels[0].StartPage != 1 || doc.Labels[0].Prefix != "p-" {
		t.Fatalf("first label = %+v", doc.Labels[0])
	}
	if doc.Labels[1].StartPage != 3 || doc.Labels[1].Style != pagesource.LabelArabic {
		t.Fatalf("second label = %+v", doc.Labels[1])
	}

	t.Run("label beyond page count", func(t *testing.T) {
		_, err := d.Dispatch(context.Background(), "t16", &SetPageLabelsParameters{
			Source: "in.pdf",
			Labels: []pagesource.PageLabel{{StartPage: 9, Style: pagesource.LabelArabic}},
			Output: filepath.Join(t.TempDir(), "x.pdf"),
		})
		if !IsValidation(err) {
			t.Fatalf("dispatch error = %v, want validation error", err)
		}
	})
}

func TestOutputOptionsApplied(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "in.pdf", 1)
	dir := t.TempDir()

	res, err := d.Dispatch(context.Background(), "t17", &SplitByPagesParameters{
		Source:    "in.pdf",
		Pages:     []int{1},
		OutputDir: dir,
		OutputOptions: OutputOptions{
			Compress: boolPtr(true),
			Version:  "1.7",
		},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	doc := parseOutput(t, res.Written[0])
	if !doc.Compressed {
		t.Fatal("compression bundle not applied")
	}
	if doc.Version != "1.7" {
		t.Fatalf("version = %q, want 1.7", doc.Version)
	}
}

func TestEncryptedOutput(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "a.pdf", 1)
	addDoc(src, "b.pdf", 1)
	out := filepath.Join(t.TempDir(), "merged.pdf")

	_, err := d.Dispatch(context.Background(), "t19", &MergeParameters{
		Inputs: []string{"a.pdf", "b.pdf"},
		Output: out,
		OutputOptions: OutputOptions{
			Encrypt: &EncryptOptions{UserPassword: "secret", AllowAll: true},
		},
	})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	doc := parseOutput(t, out)
	if !doc.Encrypted {
		t.Fatal("output not encrypted")
	}
}

func TestEncryptionRequiresPassword(t *testing.T) {
	src, d := newFixture(t)
	addDoc(src, "in.pdf", 2)

	_, err := d.Dispatch(context.Background(), "t20", &SplitByPagesParameters{
		Source:    "in.pdf",
		Pages:     []int{1},
		OutputDir: t.TempDir(),
		OutputOptions: OutputOptions{
			Encrypt: &EncryptOptions{},
		},
	})
	if !IsValidation(err) {
		t.Fatalf("dispatch error = %v, want validation error", err)
	}
}

func TestMissingSourceIsReadError(t *testing.T) {
	_, d := newFixture(t)

	_, err := d.Dispatch(context.Background(), "t18", &SplitByPagesParameters{
		Source:    "nope.pdf",
		Pages:     []int{1},
		OutputDir: t.TempDir(),
	})
	if !IsSourceRead(err) {
		t.Fatalf("dispatch error = %v, want source read error", err)
	}
}
