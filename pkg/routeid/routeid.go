// Package routeid derives stable route identifiers from resolved reference
// attributes. Derivation is a pure function of the canonical attribute set
// plus the source layer, so the same route yields the same ID across runs,
// workers, and machines. Downstream systems key on these IDs over time.
package routeid

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"github.com/railstation/railrec/pkg/constants"
	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/reference"
)

// Canonical renders the attribute set in its canonical form: keys sorted,
// key=value pairs joined by the unit separator, with the layer appended as a
// final pair. Two attribute sets are the same route exactly when their
// canonical forms are equal.
func Canonical(attrs map[string]string, layer reference.Layer) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		parts = append(parts, k+"="+attrs[k])
	}
	parts = append(parts, "layer="+layer.String())
	return strings.Join(parts, "\x1f")
}

// Derive computes the route ID for an attribute set. Pure and stateless; use
// a Generator when collision detection is needed.
func Derive(attrs map[string]string, layer reference.Layer) string {
	return deriveFromCanonical(Canonical(attrs, layer), constants.RouteIDHexLength)
}

func deriveFromCanonical(canonical string, hexLen int) string {
	sum := sha256.Sum256([]byte(canonical))
	return constants.RouteIDPrefix + hex.EncodeToString(sum[:])[:hexLen]
}

// Generator derives route IDs and detects collisions within one run. The
// ledger exists for detection only: derivation itself stays pure, so workers
// need no coordination for uniqueness, and a collision is a per-shipment
// fatal error rather than something to retry around.
type Generator struct {
	hexLen int

	mu   sync.Mutex
	seen map[string]string // route ID -> canonical form that produced it
}

// NewGenerator creates a Generator. A non-positive hexLen selects the
// default ID length.
func NewGenerator(hexLen int) *Generator {
	if hexLen <= 0 || hexLen > sha256.Size*2 {
		hexLen = constants.RouteIDHexLength
	}
	return &Generator{
		hexLen: hexLen,
		seen:   make(map[string]string),
	}
}

// Derive computes the route ID for an attribute set and records it in the
// run ledger. Two distinct canonical forms mapping to the same ID is a
// CollisionError; deriving the same route twice is not.
func (g *Generator) Derive(attrs map[string]string, layer reference.Layer) (string, error) {
	canonical := Canonical(attrs, layer)
	id := deriveFromCanonical(canonical, g.hexLen)

	g.mu.Lock()
	defer g.mu.Unlock()

	existing, ok := g.seen[id]
	if !ok {
		g.seen[id] = canonical
		return id, nil
	}
	if existing != canonical {
		return "", errors.NewCollisionError(id, canonical, existing)
	}
	return id, nil
}

// Len returns how many distinct route IDs the run has derived so far.
func (g *Generator) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}
