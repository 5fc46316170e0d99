package ingest

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/mapping"
)

// CSVOptions control reference CSV decoding.
type CSVOptions struct {
	// Windows1251 decodes legacy accounting exports, which arrive in the
	// Windows-1251 codepage rather than UTF-8.
	Windows1251 bool

	// Comma is the field delimiter; zero means ','. Legacy exports use ';'.
	Comma rune
}

func csvReader(r io.Reader, opts CSVOptions) *csv.Reader {
	if opts.Windows1251 {
		r = transform.NewReader(r, charmap.Windows1251.NewDecoder())
	}
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return cr
}

// ReadMappingPairs reads a two-column CSV of route code mapping pairs.
// A header row is skipped when its first cell is not code-like.
func ReadMappingPairs(path string, opts CSVOptions) ([]mapping.Pair, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	records, err := csvReader(f, opts).ReadAll()
	if err != nil {
		return nil, errors.WrapParse("csv", path, err)
	}

	var pairs []mapping.Pair
	for i, rec := range records {
		if len(rec) < 2 {
			continue
		}
		left, right := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if left == "" || right == "" {
			continue
		}
		if i == 0 && looksLikeHeader(left) {
			continue
		}
		pairs = append(pairs, mapping.Pair{Left: left, Right: right})
	}
	return pairs, nil
}

// ReadActiveCodes reads a one-column CSV of active export chart codes.
func ReadActiveCodes(path string, opts CSVOptions) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}
	defer f.Close()

	records, err := csvReader(f, opts).ReadAll()
	if err != nil {
		return nil, errors.WrapParse("csv", path, err)
	}

	var codes []string
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		code := strings.TrimSpace(rec[0])
		if code == "" {
			continue
		}
		if i == 0 && looksLikeHeader(code) {
			continue
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// looksLikeHeader reports whether a first-row cell is a column title rather
// than a code. Codes carry digits; titles don't.
func looksLikeHeader(cell string) bool {
	for _, r := range cell {
		if r >= '0' && r <= '9' {
			return false
		}
	}
	return true
}
