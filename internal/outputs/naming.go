package outputs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Destination is a resolved output target: either a directory receiving
// one deterministically named file per unit, or a single file.
type Destination struct {
	dir  string
	file string
	base string
}

// NewDirectoryDestination targets dir, naming each output from base plus
// a per-unit page-range suffix. The directory must already exist.
func NewDirectoryDestination(dir, base string) (Destination, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return Destination{}, fmt.Errorf("output directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return Destination{}, fmt.Errorf("output path %s is not a directory", dir)
	}
	if base == "" {
		return Destination{}, fmt.Errorf("empty output base name")
	}
	return Destination{dir: dir, base: strings.TrimSuffix(base, ".pdf")}, nil
}

// NewFileDestination targets exactly one output file.
func NewFileDestination(path string) (Destination, error) {
	if path == "" {
		return Destination{}, fmt.Errorf("empty output path")
	}
	return Destination{file: path}, nil
}

// Single reports whether the destination is a single file target.
func (d Destination) Single() bool { return d.file != "" }

// Paths returns one destination path per unit page range, in order. A
// single-file destination cannot receive more than one unit; that is a
// configuration error surfaced here so it is caught at validation time.
func (d Destination) Paths(ranges [][2]int) ([]string, error) {
	if d.Single() {
		if len(ranges) > 1 {
			return nil, fmt.Errorf("split produces %d output files but a single output file was configured", len(ranges))
		}
		return []string{d.file}, nil
	}
	paths := make([]string, 0, len(ranges))
	for _, r := range ranges {
		var name string
		if r[0] == r[1] {
			name = fmt.Sprintf("%s_%d.pdf", d.base, r[0])
		} else {
			name = fmt.Sprintf("%s_%d-%d.pdf", d.base, r[0], r[1])
		}
		paths = append(paths, filepath.Join(d.dir, name))
	}
	return paths, nil
}
