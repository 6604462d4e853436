package config

import (
	_ "embed"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed presets.yaml
var presetsYAML []byte

// ResolutionPreset is a named output geometry. Width and height are even so
// yuv420p subsampling never truncates.
type ResolutionPreset struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// QualityPreset maps a friendly name to encoder settings.
type QualityPreset struct {
	CRF int `yaml:"crf"`
}

type presetTable struct {
	Resolutions map[string]ResolutionPreset `yaml:"resolutions"`
	Qualities   map[string]QualityPreset    `yaml:"qualities"`
}

var (
	presetsOnce sync.Once
	presets     presetTable
)

func loadPresets() presetTable {
	presetsOnce.Do(func() {
		if err := yaml.Unmarshal(presetsYAML, &presets); err != nil {
			panic("config: embedded presets are malformed: " + err.Error())
		}
	})
	return presets
}

// Resolution looks up a named resolution preset.
func Resolution(name string) (ResolutionPreset, bool) {
	p, ok := loadPresets().Resolutions[name]
	return p, ok
}

// Quality looks up a named quality preset.
func Quality(name string) (QualityPreset, bool) {
	p, ok := loadPresets().Qualities[name]
	return p, ok
}

// ResolutionNames returns the known preset names for CLI help output.
func ResolutionNames() []string {
	t := loadPresets()
	names := make([]string, 0, len(t.Resolutions))
	for n := range t.Resolutions {
		names = append(names, n)
	}
	return names
}

// QualityNames returns the known quality preset names.
func QualityNames() []string {
	t := loadPresets()
	names := make([]string, 0, len(t.Qualities))
	for n := range t.Qualities {
		names = append(names, n)
	}
	return names
}
