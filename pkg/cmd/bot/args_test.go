package bot

import (
	"testing"

	"github.com/museplan/museplan/pkg/template"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		args []string
		opts map[string]string
		err  bool
	}{
		{
			name: "plain words",
			raw:  "nova city lights",
			args: []string{"nova", "city", "lights"},
			opts: map[string]string{},
		},
		{
			name: "quoted concept",
			raw:  `nova "a song about rain at 3am"`,
			args: []string{"nova", "a song about rain at 3am"},
			opts: map[string]string{},
		},
		{
			name: "options with values",
			raw:  `nova "late nights" --quality high --takes 2`,
			args: []string{"nova", "late nights"},
			opts: map[string]string{"quality": "high", "takes": "2"},
		},
		{
			name: "bare flag option",
			raw:  `nova "late nights" --master`,
			args: []string{"nova", "late nights"},
			opts: map[string]string{"master": "true"},
		},
		{
			name: "flag before valued option",
			raw:  `nova idea --master --quality ultra`,
			args: []string{"nova", "idea"},
			opts: map[string]string{"master": "true", "quality": "ultra"},
		},
		{
			name: "unclosed quote",
			raw:  `nova "broken`,
			err:  true,
		},
		{
			name: "empty",
			raw:  "",
			args: nil,
			opts: map[string]string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, opts, err := parseArgs(tt.raw)
			if tt.err {
				if err == nil {
					t.Fatal("want error")
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if len(args) != len(tt.args) {
				t.Fatalf("want args %v, got %v", tt.args, args)
			}
			for i := range args {
				if args[i] != tt.args[i] {
					t.Errorf("arg %d: want %q, got %q", i, tt.args[i], args[i])
				}
			}
			if len(opts) != len(tt.opts) {
				t.Fatalf("want opts %v, got %v", tt.opts, opts)
			}
			for k, v := range tt.opts {
				if opts[k] != v {
					t.Errorf("opt %s: want %q, got %q", k, v, opts[k])
				}
			}
		})
	}
}

func TestApplySettings(t *testing.T) {
	settings := template.Settings{Quality: "normal", Takes: 1}
	err := applySettings(&settings, map[string]string{
		"quality":  "ultra",
		"takes":    "3",
		"master":   "true",
		"duration": "240",
	})
	if err != nil {
		t.Fatal(err)
	}
	if settings.Quality != "ultra" || settings.Takes != 3 || !settings.Master || settings.Duration != 240 {
		t.Errorf("options not applied: %+v", settings)
	}
}

func TestApplySettingsRejectsUnknown(t *testing.T) {
	settings := template.Settings{}
	if err := applySettings(&settings, map[string]string{"loudness": "11"}); err == nil {
		t.Fatal("want error for unknown option")
	}
}

func TestApplySettingsRejectsBadNumbers(t *testing.T) {
	for _, key := range []string{"takes", "duration", "steps"} {
		settings := template.Settings{}
		if err := applySettings(&settings, map[string]string{key: "zero"}); err == nil {
			t.Errorf("want error for non-numeric %s", key)
		}
		if err := applySettings(&settings, map[string]string{key: "0"}); err == nil {
			t.Errorf("want error for zero %s", key)
		}
	}
}
