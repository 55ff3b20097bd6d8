package ffmpeg

import (
	"testing"
)

func TestMasterPath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/music/song.mp3", "/music/song_mastered.mp3"},
		{"/music/song.take2.flac", "/music/song.take2_mastered.flac"},
		{"song.mp3", "song_mastered.mp3"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := MasterPath(tt.input); got != tt.want {
				t.Fatalf("MasterPath(%q) = %q; want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseLoudness(t *testing.T) {
	output := `frame parsing noise
[Parsed_loudnorm_0 @ 0x55]
{
	"input_i" : "-19.62",
	"input_tp" : "-0.81",
	"input_lra" : "6.30",
	"input_thresh" : "-29.92",
	"output_i" : "-14.41",
	"output_tp" : "-1.00",
	"output_lra" : "5.70",
	"output_thresh" : "-24.66",
	"normalization_type" : "dynamic",
	"target_offset" : "0.41"
}`
	l, err := parseLoudness(output)
	if err != nil {
		t.Fatalf("parseLoudness() err = %v; want nil", err)
	}
	if l.Integrated != -19.62 || l.TruePeak != -0.81 || l.Range != 6.30 || l.Threshold != -29.92 {
		t.Fatalf("parseLoudness() = %+v", l)
	}
}

func TestParseLoudnessNoSummary(t *testing.T) {
	if _, err := parseLoudness("conversion failed"); err == nil {
		t.Fatal("parseLoudness() err = nil; want error")
	}
}
