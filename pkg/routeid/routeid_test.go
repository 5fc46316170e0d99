package routeid

import (
	"strings"
	"sync"
	"testing"

	"github.com/railstation/railrec/pkg/constants"
	"github.com/railstation/railrec/pkg/errors"
	"github.com/railstation/railrec/pkg/reference"
)

func TestDeriveIsStable(t *testing.T) {
	attrs := map[string]string{"znp": "4711", "direction": "east"}

	a := Derive(attrs, reference.LayerBase)
	b := Derive(map[string]string{"direction": "east", "znp": "4711"}, reference.LayerBase)

	if a != b {
		t.Errorf("map iteration order leaked into the ID: %s != %s", a, b)
	}
	if !strings.HasPrefix(a, constants.RouteIDPrefix) {
		t.Errorf("id %q missing prefix", a)
	}
	if len(a) != len(constants.RouteIDPrefix)+constants.RouteIDHexLength {
		t.Errorf("id %q has wrong length", a)
	}
}

func TestDeriveDistinguishesLayerAndAttributes(t *testing.T) {
	attrs := map[string]string{"znp": "4711"}

	if Derive(attrs, reference.LayerBase) == Derive(attrs, reference.LayerOverride) {
		t.Error("same attributes in different layers must derive different IDs")
	}
	if Derive(attrs, reference.LayerBase) == Derive(map[string]string{"znp": "4712"}, reference.LayerBase) {
		t.Error("different attributes must derive different IDs")
	}
}

func TestGeneratorAcceptsRepeats(t *testing.T) {
	g := NewGenerator(0)
	attrs := map[string]string{"znp": "4711"}

	first, err := g.Derive(attrs, reference.LayerBase)
	if err != nil {
		t.Fatalf("Derive() error: %v", err)
	}
	second, err := g.Derive(attrs, reference.LayerBase)
	if err != nil {
		t.Fatalf("repeat derivation errored: %v", err)
	}
	if first != second {
		t.Errorf("%s != %s", first, second)
	}
	if g.Len() != 1 {
		t.Errorf("ledger size = %d, want 1", g.Len())
	}
}

func TestGeneratorDetectsCollisions(t *testing.T) {
	// A 1-hex-char ID space collides fast; walk attribute values until two
	// distinct canonical forms share an ID.
	g := NewGenerator(1)
	seen := map[string]string{}

	for i := 0; i < 64; i++ {
		attrs := map[string]string{"znp": strings.Repeat("x", i+1)}
		id, err := g.Derive(attrs, reference.LayerBase)
		if err == nil {
			seen[id] = attrs["znp"]
			continue
		}
		if !errors.IsCollision(err) {
			t.Fatalf("unexpected error type: %v", err)
		}
		var ce *errors.CollisionError
		if !errors.As(err, &ce) {
			t.Fatal("error must carry collision details")
		}
		if ce.Canonical == ce.Existing {
			t.Error("a true collision has distinct canonical forms")
		}
		return
	}
	t.Fatal("no collision in 64 derivations over a 16-ID space")
}

func TestGeneratorConcurrentDerivation(t *testing.T) {
	g := NewGenerator(0)

	var wg sync.WaitGroup
	ids := make([][]string, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id, err := g.Derive(map[string]string{"znp": string(rune('a' + i%10))}, reference.LayerBase)
				if err != nil {
					t.Errorf("Derive() error: %v", err)
					return
				}
				ids[w] = append(ids[w], id)
			}
		}(w)
	}
	wg.Wait()

	if g.Len() != 10 {
		t.Errorf("ledger size = %d, want 10 distinct routes", g.Len())
	}
	for w := 1; w < 8; w++ {
		for i := range ids[0] {
			if ids[w][i] != ids[0][i] {
				t.Fatalf("worker %d derived %s where worker 0 derived %s", w, ids[w][i], ids[0][i])
			}
		}
	}
}
