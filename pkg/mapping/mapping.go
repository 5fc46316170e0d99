// Package mapping projects resolved route codes onto the accounting chart's
// active code set. Reference mappings are bidirectional pairs; a code that is
// not itself active may still reach an active code through a one- or two-hop
// walk of the matrix. Codes that reach nothing active are reported inactive,
// never silently exported.
package mapping

import (
	"sort"

	"github.com/railstation/railrec/pkg/constants"
	"github.com/railstation/railrec/pkg/errors"
)

// Pair is one mapping row: two route codes that denote the same route in
// different charts. Direction does not matter.
type Pair struct {
	Left  string `json:"left" yaml:"left"`
	Right string `json:"right" yaml:"right"`
}

// Matrix is the bidirectional adjacency of mapping pairs, frozen after
// construction. Safe for concurrent reads.
type Matrix struct {
	adjacent map[string][]string
}

// NewMatrix builds a Matrix from mapping pairs. Neighbor lists are sorted so
// traversal order, and therefore resolution, is deterministic.
func NewMatrix(pairs []Pair) *Matrix {
	adjacent := make(map[string][]string)
	add := func(from, to string) {
		if from == "" || to == "" || from == to {
			return
		}
		for _, existing := range adjacent[from] {
			if existing == to {
				return
			}
		}
		adjacent[from] = append(adjacent[from], to)
	}
	for _, p := range pairs {
		add(p.Left, p.Right)
		add(p.Right, p.Left)
	}
	for _, neighbors := range adjacent {
		sort.Strings(neighbors)
	}
	return &Matrix{adjacent: adjacent}
}

// Neighbors returns the codes directly mapped to the given code.
func (m *Matrix) Neighbors(code string) []string {
	return m.adjacent[code]
}

// Len returns the number of codes that participate in any mapping.
func (m *Matrix) Len() int {
	return len(m.adjacent)
}

// ActiveSet is the set of codes present in the accounting export chart.
type ActiveSet map[string]struct{}

// NewActiveSet builds an ActiveSet from a code list.
func NewActiveSet(codes []string) ActiveSet {
	set := make(ActiveSet, len(codes))
	for _, c := range codes {
		if c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

// Contains reports whether a code is in the active chart.
func (s ActiveSet) Contains(code string) bool {
	_, ok := s[code]
	return ok
}

// Resolve maps a route code to an active export code. The code itself wins
// when active; otherwise the matrix is walked breadth-first up to the hop
// limit and the first active code in deterministic order wins. The second
// return is false when nothing active is reachable.
func Resolve(code string, matrix *Matrix, active ActiveSet) (string, bool) {
	if active.Contains(code) {
		return code, true
	}
	if matrix == nil {
		return code, false
	}

	visited := map[string]struct{}{code: {}}
	frontier := []string{code}

	for hop := 0; hop < constants.MaxMappingHops; hop++ {
		var next []string
		for _, c := range frontier {
			for _, n := range matrix.Neighbors(c) {
				if _, seen := visited[n]; seen {
					continue
				}
				visited[n] = struct{}{}
				if active.Contains(n) {
					return n, true
				}
				next = append(next, n)
			}
		}
		frontier = next
	}
	return code, false
}

// ResolveStrict is Resolve with an error for inactive codes, for callers
// that treat unmappable codes as failures rather than flags.
func ResolveStrict(code string, matrix *Matrix, active ActiveSet) (string, error) {
	resolved, ok := Resolve(code, matrix, active)
	if !ok {
		return resolved, errors.NewInactiveCodeError(code)
	}
	return resolved, nil
}
