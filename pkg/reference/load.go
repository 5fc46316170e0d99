package reference

import (
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/shopspring/decimal"

	"github.com/railstation/railrec/pkg/constants"
	"github.com/railstation/railrec/pkg/errors"
)

// File-level schema. Amounts and dates arrive as strings and are parsed
// explicitly so a bad value names its entry instead of failing the whole
// unmarshal.
type snapshotFile struct {
	SnapshotAt string      `yaml:"snapshot_at"`
	BaseRoutes []entryFile `yaml:"base_routes"`
	Exceptions []entryFile `yaml:"exceptions"`
	Overrides  []entryFile `yaml:"overrides"`
}

type entryFile struct {
	ID              string            `yaml:"id"`
	MatchKey        matchKeyFile      `yaml:"match_key"`
	RouteAttributes map[string]string `yaml:"route_attributes"`
	RateRule        rateRuleFile      `yaml:"rate_rule"`
	SourceLayer     string            `yaml:"source_layer"`
}

type matchKeyFile struct {
	Origin        string `yaml:"origin"`
	Destination   string `yaml:"destination"`
	Carrier       string `yaml:"carrier"`
	EffectiveFrom string `yaml:"effective_from"`
	EffectiveTo   string `yaml:"effective_to"`
}

type rateRuleFile struct {
	Currency      string              `yaml:"currency"`
	Components    []rateComponentFile `yaml:"components"`
	DeclaredTotal string              `yaml:"declared_total"`
}

type rateComponentFile struct {
	Component string `yaml:"component"`
	Amount    string `yaml:"amount"`
}

// LoadSnapshotFile reads a snapshot from a YAML file on disk.
func LoadSnapshotFile(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return ParseSnapshot(data, path)
}

// LoadSnapshotFS reads a snapshot from a YAML file in the given filesystem.
func LoadSnapshotFS(fsys fs.FS, name string) (*Snapshot, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.WrapIO("read", name, err)
	}
	return ParseSnapshot(data, name)
}

// ParseSnapshot parses YAML snapshot data. The name is used in error
// messages only.
func ParseSnapshot(data []byte, name string) (*Snapshot, error) {
	var file snapshotFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("yaml", name, err)
	}

	snap := &Snapshot{}
	if file.SnapshotAt != "" {
		at, err := parseDate(file.SnapshotAt)
		if err != nil {
			return nil, errors.NewParseError("yaml", name, fmt.Sprintf("snapshot_at: %v", err), err)
		}
		snap.SnapshotAt = at
	} else {
		snap.SnapshotAt = time.Now().UTC()
	}

	var err error
	if snap.BaseRoutes, err = convertEntries(file.BaseRoutes, LayerBase, name); err != nil {
		return nil, err
	}
	if snap.Exceptions, err = convertEntries(file.Exceptions, LayerException, name); err != nil {
		return nil, err
	}
	if snap.Overrides, err = convertEntries(file.Overrides, LayerOverride, name); err != nil {
		return nil, err
	}
	return snap, nil
}

func convertEntries(files []entryFile, layer Layer, name string) ([]ReferenceEntry, error) {
	if len(files) == 0 {
		return nil, nil
	}
	entries := make([]ReferenceEntry, 0, len(files))
	for i, f := range files {
		entry, err := convertEntry(f, layer, i)
		if err != nil {
			return nil, errors.NewParseError("yaml", name,
				fmt.Sprintf("%s entry %d: %v", strings.ToLower(layer.String()), i+1, err), err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func convertEntry(f entryFile, layer Layer, index int) (ReferenceEntry, error) {
	if f.SourceLayer != "" {
		declared, err := ParseLayer(f.SourceLayer)
		if err != nil {
			return ReferenceEntry{}, err
		}
		if declared != layer {
			return ReferenceEntry{}, fmt.Errorf("source_layer %s does not match table %s", declared, layer)
		}
	}

	id := f.ID
	if id == "" {
		id = fmt.Sprintf("%s-%d", strings.ToLower(layer.String()), index+1)
	}

	key, err := convertMatchKey(f.MatchKey)
	if err != nil {
		return ReferenceEntry{}, err
	}

	rule, err := convertRateRule(f.RateRule)
	if err != nil {
		return ReferenceEntry{}, err
	}

	return ReferenceEntry{
		ID:              id,
		MatchKey:        key,
		RouteAttributes: f.RouteAttributes,
		RateRule:        rule,
		SourceLayer:     layer,
	}, nil
}

func convertMatchKey(f matchKeyFile) (MatchKey, error) {
	key := MatchKey{
		Origin:      f.Origin,
		Destination: f.Destination,
		Carrier:     f.Carrier,
	}
	if f.EffectiveFrom != "" {
		from, err := parseDate(f.EffectiveFrom)
		if err != nil {
			return MatchKey{}, fmt.Errorf("effective_from: %w", err)
		}
		key.EffectiveFrom = &from
	}
	if f.EffectiveTo != "" {
		to, err := parseDate(f.EffectiveTo)
		if err != nil {
			return MatchKey{}, fmt.Errorf("effective_to: %w", err)
		}
		key.EffectiveTo = &to
	}
	if key.EffectiveFrom != nil && key.EffectiveTo != nil && key.EffectiveTo.Before(*key.EffectiveFrom) {
		return MatchKey{}, fmt.Errorf("effective_to %s precedes effective_from %s",
			f.EffectiveTo, f.EffectiveFrom)
	}
	return key, nil
}

func convertRateRule(f rateRuleFile) (RateRule, error) {
	rule := RateRule{Currency: f.Currency}
	for _, c := range f.Components {
		if c.Component == "" {
			return RateRule{}, fmt.Errorf("rate component without a name")
		}
		amount, err := decimal.NewFromString(c.Amount)
		if err != nil {
			return RateRule{}, fmt.Errorf("component %s amount %q: %w", c.Component, c.Amount, err)
		}
		rule.Components = append(rule.Components, RateComponent{Component: c.Component, Amount: amount})
	}
	if f.DeclaredTotal != "" {
		total, err := decimal.NewFromString(f.DeclaredTotal)
		if err != nil {
			return RateRule{}, fmt.Errorf("declared_total %q: %w", f.DeclaredTotal, err)
		}
		rule.DeclaredTotal = &total
	}
	return rule, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{constants.DateFormatISO, constants.DateFormatDotted} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable date %q", s)
}
