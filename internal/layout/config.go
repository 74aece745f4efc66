package layout

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// Config carries the geometry constants the engine lays notes out with.
// Colors and theming live in the renderers; nothing here affects them.
type Config struct {
	LineSpacing    float64 `yaml:"lineSpacing"`    // gap between adjacent staff lines
	StaffGap       float64 `yaml:"staffGap"`       // gap between staves of a grand staff
	SystemGap      float64 `yaml:"systemGap"`      // gap between wrapped lines
	NoteHeadRadius float64 `yaml:"noteHeadRadius"`
	StemLength     float64 `yaml:"stemLength"`
	MinBeatWidth   float64 `yaml:"minBeatWidth"`   // minimum horizontal space per beat
	MeasurePadding float64 `yaml:"measurePadding"` // space inside each barline
	TopPadding     float64 `yaml:"topPadding"`
	KeyboardHeight float64 `yaml:"keyboardHeight"` // 0 disables the keyboard strip
}

func DefaultConfig() Config {
	return Config{
		LineSpacing:    10,
		StaffGap:       60,
		SystemGap:      50,
		NoteHeadRadius: 5,
		StemLength:     32,
		MinBeatWidth:   46,
		MeasurePadding: 12,
		TopPadding:     24,
		KeyboardHeight: 0,
	}
}

// LoadConfig reads a YAML config file. Fields left out keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	if cfg.LineSpacing <= 0 || cfg.MinBeatWidth <= 0 {
		return cfg, fmt.Errorf("%s: lineSpacing and minBeatWidth must be positive", path)
	}
	return cfg, nil
}

// staffHeight is the vertical span of the five staff lines.
func (c Config) staffHeight() float64 {
	return 4 * c.LineSpacing
}

// trackBlockHeight is the vertical space one track consumes within a line,
// including room for ledger-line excursions above and below.
func (c Config) trackBlockHeight() float64 {
	return c.staffHeight() + c.StaffGap
}
