package reference

import (
	"strings"

	"github.com/railstation/railrec/pkg/errors"
)

const (
	// LayerBase is the planned route table, the weakest layer.
	LayerBase Layer = "Base"
	// LayerException is the per-invoice correction table.
	LayerException Layer = "Exception"
	// LayerOverride is the manual per-wagon-and-invoice table, the strongest layer.
	LayerOverride Layer = "Override"
)

// Layer identifies which reference table an entry came from. Precedence is
// fixed: Override wins over Exception, which wins over Base.
type Layer string

// String returns the string representation of a Layer.
func (l Layer) String() string {
	return string(l)
}

// Rank returns the precedence rank of a layer. Higher wins. Unknown layers
// rank zero so they never beat a real one.
func (l Layer) Rank() int {
	switch l {
	case LayerOverride:
		return 3
	case LayerException:
		return 2
	case LayerBase:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the layer is one of the three known tables.
func (l Layer) Valid() bool {
	return l.Rank() > 0
}

// Layers returns all layers in descending precedence order.
func Layers() []Layer {
	return []Layer{LayerOverride, LayerException, LayerBase}
}

// ParseLayer parses a layer name case-insensitively.
func ParseLayer(s string) (Layer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "base", "znp", "plan":
		return LayerBase, nil
	case "exception", "exceptions":
		return LayerException, nil
	case "override", "overrides":
		return LayerOverride, nil
	default:
		return "", errors.NewValidationError(0, "source_layer", s, "unknown layer")
	}
}
