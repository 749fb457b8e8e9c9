// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package accession reads accession lists and splits them into the batches
// and pages used by the two-phase E-utilities retrieval.
package accession

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/pdiddy/seqfetch/pkg/types"
)

// ErrInputNotFound is returned by Load when the accession list does not exist.
var ErrInputNotFound = errors.New("input file not found")

// Batch is a contiguous group of identifiers registered in one session.
type Batch struct {
	// Number is the 1-based position of the batch in the run.
	Number int
	// Total is the number of batches in the run.
	Total int
	// Offset is the index of the first identifier in the full list.
	Offset int
	IDs    []string
}

// Len returns the number of identifiers in the batch.
func (b Batch) Len() int { return len(b.IDs) }

// Page is a sub-range of a registered batch retrieved in one request.
type Page struct {
	Start int
	Count int
}

// End returns the exclusive end offset of the page.
func (p Page) End() int { return p.Start + p.Count }

// String renders the page as "start-end" for progress messages.
func (p Page) String() string {
	return fmt.Sprintf("%d-%d", p.Start, p.End())
}

// Load reads one identifier per line from path. Surrounding whitespace is
// trimmed and blank lines are dropped; order and duplicates are preserved.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %w", ErrInputNotFound, path, err)
		}
		return nil, fmt.Errorf("opening input file: %w", err)
	}
	defer f.Close()

	ids, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return ids, nil
}

// Read parses an accession list from r.
func Read(r io.Reader) ([]string, error) {
	var ids []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if id := strings.TrimSpace(sc.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Partition splits ids into consecutive batches of at most size identifiers.
// A non-positive size uses types.DefaultBatchSize. The batches share the
// backing array of ids.
func Partition(ids []string, size int) []Batch {
	if size <= 0 {
		size = types.DefaultBatchSize
	}
	total := (len(ids) + size - 1) / size
	batches := make([]Batch, 0, total)
	for i := 0; i < len(ids); i += size {
		end := min(i+size, len(ids))
		batches = append(batches, Batch{
			Number: len(batches) + 1,
			Total:  total,
			Offset: i,
			IDs:    ids[i:end:end],
		})
	}
	return batches
}

// Pages returns the page ranges covering n records: offsets 0, size,
// 2*size, ... with the last page holding the remainder. A non-positive size
// uses types.DefaultPageSize.
func Pages(n, size int) []Page {
	if size <= 0 {
		size = types.DefaultPageSize
	}
	if n <= 0 {
		return nil
	}
	pages := make([]Page, 0, (n+size-1)/size)
	for start := 0; start < n; start += size {
		pages = append(pages, Page{Start: start, Count: min(size, n-start)})
	}
	return pages
}
