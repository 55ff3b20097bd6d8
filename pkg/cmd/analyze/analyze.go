package analyze

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/museplan/museplan/pkg/sound"
)

type Config struct {
	Debug  bool
	Input  string
	Output string
}

// Run decodes a rendered file and writes waveform and loudness plots
// next to a short textual report.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Input == "" {
		return fmt.Errorf("analyze: input is required")
	}
	a, err := sound.NewAnalyzer(cfg.Input)
	if err != nil {
		return err
	}

	fmt.Printf("duration: %s\n", a.Duration().Round(time.Second))
	if a.Silent() {
		fmt.Println("warning: the whole file is silent")
	} else if tail := a.TrailingSilence(); tail > time.Second {
		fmt.Printf("trailing silence: %s\n", tail.Round(time.Second))
	}

	out := cfg.Output
	if out == "" {
		out = filepath.Dir(cfg.Input)
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return fmt.Errorf("analyze: couldn't create output folder: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(cfg.Input), filepath.Ext(cfg.Input))

	wave, err := a.PlotWave(name)
	if err != nil {
		return err
	}
	wavePath := filepath.Join(out, name+"-wave.jpg")
	if err := os.WriteFile(wavePath, wave, 0644); err != nil {
		return fmt.Errorf("analyze: couldn't write plot: %w", err)
	}
	fmt.Printf("wave plot: %s\n", wavePath)

	rms, err := a.PlotRMS()
	if err != nil {
		return err
	}
	rmsPath := filepath.Join(out, name+"-rms.jpg")
	if err := os.WriteFile(rmsPath, rms, 0644); err != nil {
		return fmt.Errorf("analyze: couldn't write plot: %w", err)
	}
	fmt.Printf("rms plot: %s\n", rmsPath)
	return nil
}
