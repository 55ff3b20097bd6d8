package preset

import (
	"errors"
	"fmt"
)

// ErrInvalidPreset is returned when the quality name is not one of the
// known presets.
var ErrInvalidPreset = errors.New("preset: invalid preset")

// Preset is the bundle of generation parameters selected by a quality
// name. Steps trades render time for quality, the scheduler is passed
// verbatim to the renderer and the format decides the output container.
type Preset struct {
	Name      string
	Steps     int
	Scheduler string
	Format    string
}

var presets = map[string]Preset{
	"draft":  {Name: "draft", Steps: 27, Scheduler: "euler", Format: "mp3"},
	"normal": {Name: "normal", Steps: 60, Scheduler: "euler", Format: "mp3"},
	"high":   {Name: "high", Steps: 100, Scheduler: "pingpong", Format: "mp3"},
	"ultra":  {Name: "ultra", Steps: 150, Scheduler: "heun", Format: "flac"},
}

// Resolve maps a quality name to its preset. Unknown names are a fatal
// configuration error, callers must not fall back to a default.
func Resolve(name string) (Preset, error) {
	p, ok := presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q (use draft, normal, high or ultra)", ErrInvalidPreset, name)
	}
	return p, nil
}

// Names returns the known preset names in ascending quality order.
func Names() []string {
	return []string{"draft", "normal", "high", "ultra"}
}
