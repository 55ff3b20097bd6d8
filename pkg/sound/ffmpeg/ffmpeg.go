package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// BinPath is the path to the ffmpeg binary
var BinPath = "ffmpeg"

// ErrMaster is returned when the mastered file could not be produced.
// Callers keep the unmastered input in that case.
var ErrMaster = errors.New("ffmpeg: mastering failed")

// Loudness holds the measurements of the analysis pass, used to seed the
// linear normalization of the render pass.
type Loudness struct {
	Integrated float64
	TruePeak   float64
	Range      float64
	Threshold  float64
}

// defaultLoudness is used when the analysis pass fails, so the render
// pass can still run.
var defaultLoudness = Loudness{
	Integrated: -24,
	TruePeak:   -2,
	Range:      7,
	Threshold:  -34,
}

// Mastering targets: streaming loudness with headroom.
const (
	targetI   = -14.0
	targetTP  = -1.0
	targetLRA = 11.0
)

func Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, BinPath, "-version")
	data, err := cmd.CombinedOutput()
	if err != nil {
		msg := string(data)
		return "", fmt.Errorf("ffmpeg: couldn't get version: %w: %s", err, msg)
	}
	line, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(line), nil
}

// MasterPath returns the sibling path the mastered render is written to.
func MasterPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + "_mastered" + ext
}

// Analyze runs the loudness measurement pass. On any failure it logs and
// returns the documented default measurements instead of an error, so
// mastering can proceed.
func Analyze(ctx context.Context, input string) Loudness {
	filter := fmt.Sprintf("loudnorm=I=%s:TP=%s:LRA=%s:print_format=json",
		formatFloat(targetI), formatFloat(targetTP), formatFloat(targetLRA))
	cmd := exec.CommandContext(ctx, BinPath, "-hide_banner", "-i", input, "-af", filter, "-f", "null", "-")
	data, err := cmd.CombinedOutput()
	if err != nil {
		log.Printf("ffmpeg: loudness analysis failed, using defaults: %v\n", err)
		return defaultLoudness
	}
	l, err := parseLoudness(string(data))
	if err != nil {
		log.Printf("ffmpeg: couldn't parse loudness summary, using defaults: %v\n", err)
		return defaultLoudness
	}
	return l
}

type loudnormSummary struct {
	InputI      string `json:"input_i"`
	InputTP     string `json:"input_tp"`
	InputLRA    string `json:"input_lra"`
	InputThresh string `json:"input_thresh"`
}

// parseLoudness extracts the JSON summary block loudnorm prints at the
// end of its output.
func parseLoudness(output string) (Loudness, error) {
	start := strings.LastIndex(output, "{")
	end := strings.LastIndex(output, "}")
	if start < 0 || end < start {
		return Loudness{}, errors.New("no json summary in output")
	}
	var s loudnormSummary
	if err := json.Unmarshal([]byte(output[start:end+1]), &s); err != nil {
		return Loudness{}, fmt.Errorf("couldn't unmarshal summary: %w", err)
	}
	var l Loudness
	var err error
	if l.Integrated, err = strconv.ParseFloat(s.InputI, 64); err != nil {
		return Loudness{}, fmt.Errorf("invalid input_i %q", s.InputI)
	}
	if l.TruePeak, err = strconv.ParseFloat(s.InputTP, 64); err != nil {
		return Loudness{}, fmt.Errorf("invalid input_tp %q", s.InputTP)
	}
	if l.Range, err = strconv.ParseFloat(s.InputLRA, 64); err != nil {
		return Loudness{}, fmt.Errorf("invalid input_lra %q", s.InputLRA)
	}
	if l.Threshold, err = strconv.ParseFloat(s.InputThresh, 64); err != nil {
		return Loudness{}, fmt.Errorf("invalid input_thresh %q", s.InputThresh)
	}
	return l, nil
}

// Master applies the mastering chain to input and returns the path of
// the mastered file: high-pass at 30 Hz, gentle compression, then linear
// loudness normalization seeded with the analysis measurements.
func Master(ctx context.Context, input string) (string, error) {
	measured := Analyze(ctx, input)
	output := MasterPath(input)

	filter := strings.Join([]string{
		"highpass=f=30",
		"acompressor=threshold=-20dB:ratio=4:attack=5:release=50",
		fmt.Sprintf("loudnorm=I=%s:TP=%s:LRA=%s:measured_I=%s:measured_TP=%s:measured_LRA=%s:measured_thresh=%s:linear=true",
			formatFloat(targetI), formatFloat(targetTP), formatFloat(targetLRA),
			formatFloat(measured.Integrated), formatFloat(measured.TruePeak),
			formatFloat(measured.Range), formatFloat(measured.Threshold)),
	}, ",")

	cmd := exec.CommandContext(ctx, BinPath, "-y", "-hide_banner", "-i", input, "-af", filter, output)
	data, err := cmd.CombinedOutput()
	if err != nil {
		_ = os.Remove(output)
		msg := string(data)
		if len(msg) > 300 {
			msg = msg[len(msg)-300:]
		}
		return "", fmt.Errorf("%w: %v: %s", ErrMaster, err, msg)
	}
	if _, err := os.Stat(output); err != nil {
		return "", fmt.Errorf("%w: %s was not produced", ErrMaster, output)
	}
	return output, nil
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
