package screening

import (
	"bytes"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// PresetFile is the on-disk shape of a presets YAML file
//
//	presets:
//	  value:
//	    pe_min: 0
//	    pe_max: 20
//	    ...
type PresetFile struct {
	Presets map[string]Filter `yaml:"presets"`
}

// Presets maps names to filter tuples
type Presets map[string]Filter

// BuiltinPresets are available without a presets file
func BuiltinPresets() Presets {
	return Presets{
		"default": {PEMin: 0, PEMax: 30, PBMin: 0, PBMax: 5, ROEMin: 10, GrowthMin: 0},
		"value":   {PEMin: 0, PEMax: 15, PBMin: 0, PBMax: 2, ROEMin: 8, GrowthMin: 0},
		"growth":  {PEMin: 0, PEMax: 60, PBMin: 0, PBMax: 10, ROEMin: 15, GrowthMin: 20},
		"quality": {PEMin: 0, PEMax: 40, PBMin: 0, PBMax: 8, ROEMin: 20, GrowthMin: 5},
		"all":     {},
	}
}

// LoadPresets reads a presets file and merges it over the built-in set.
// KnownFields(true): 오타/미사용 필드는 즉시 실패
func LoadPresets(path string) (Presets, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read presets: %w", err)
	}
	return ParsePresets(data)
}

// ParsePresets decodes presets YAML and merges it over the built-in set
func ParsePresets(data []byte) (Presets, error) {
	var file PresetFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}

	out := BuiltinPresets()
	for name, f := range file.Presets {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("preset %q: %w", name, err)
		}
		out[name] = f
	}
	return out, nil
}

// Get looks a preset up by name
func (p Presets) Get(name string) (Filter, error) {
	f, ok := p[name]
	if !ok {
		return Filter{}, fmt.Errorf("unknown preset %q (available: %v)", name, p.Names())
	}
	return f, nil
}

// Names returns the sorted preset names
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
