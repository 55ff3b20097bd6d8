package sound

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"time"

	mp3 "github.com/hajimehoshi/go-mp3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// silenceRMS is the level below which a window counts as silent.
const silenceRMS = 0.005

// Analyzer holds the decoded PCM of one mp3 file and answers loudness
// questions about it.
type Analyzer struct {
	mono   []float64
	rate   int
	length time.Duration
	source string
}

// NewAnalyzer decodes the given mp3 file into mono PCM.
func NewAnalyzer(path string) (*Analyzer, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't read file: %w", err)
	}
	decoder, err := mp3.NewDecoder(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't decode mp3: %w", err)
	}

	// 16-bit little endian stereo pairs.
	var stereo [2][]float64
	buf := make([]byte, 2)
	var i int
	for {
		_, err := decoder.Read(buf)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("sound: couldn't read sample: %w", err)
		}
		sample := int16(buf[0]) | int16(buf[1])<<8
		stereo[i%2] = append(stereo[i%2], float64(sample)/32768.0)
		i++
	}

	mono := make([]float64, 0, len(stereo[0]))
	for i, left := range stereo[0] {
		right := left
		if i < len(stereo[1]) {
			right = stereo[1][i]
		}
		mono = append(mono, (left+right)/2.0)
	}

	length := time.Duration(float64(len(mono)) / float64(decoder.SampleRate()) * float64(time.Second))
	return &Analyzer{
		mono:   mono,
		rate:   decoder.SampleRate(),
		length: length,
		source: path,
	}, nil
}

func (a *Analyzer) Source() string {
	return a.source
}

func (a *Analyzer) Duration() time.Duration {
	return a.length
}

// windows cuts the mono signal into consecutive windows of the given
// size; the last window may be shorter.
func (a *Analyzer) windows(size time.Duration) [][]float64 {
	length := int(float64(a.rate) * size.Seconds())
	if length < 1 {
		length = 1
	}
	var out [][]float64
	for i := 0; i < len(a.mono); i += length {
		end := i + length
		if end > len(a.mono) {
			end = len(a.mono)
		}
		out = append(out, a.mono[i:end])
	}
	return out
}

// RMS returns the root-mean-square level per window.
func (a *Analyzer) RMS(size time.Duration) []float64 {
	var out []float64
	for _, w := range a.windows(size) {
		out = append(out, rms(w))
	}
	return out
}

// Envelope returns min/max pairs per window, suitable for waveform
// plots.
func (a *Analyzer) Envelope(size time.Duration) []float64 {
	var out []float64
	for _, w := range a.windows(size) {
		var min, max float64
		for _, v := range w {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		out = append(out, min, max)
	}
	return out
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Silent reports whether the whole signal is effectively silence. A
// renderer sometimes produces a file of digital silence on a bad seed;
// the file exists, so the render counts as successful, and this is the
// only way to catch it.
func (a *Analyzer) Silent() bool {
	for _, level := range a.RMS(time.Second) {
		if level > silenceRMS {
			return false
		}
	}
	return true
}

// TrailingSilence returns the length of the silent tail, useful to spot
// renders that ran out of material before the requested duration.
func (a *Analyzer) TrailingSilence() time.Duration {
	window := 100 * time.Millisecond
	levels := a.RMS(window)
	n := 0
	for i := len(levels) - 1; i >= 0; i-- {
		if levels[i] > silenceRMS {
			break
		}
		n++
	}
	return time.Duration(n) * window
}

func (a *Analyzer) PlotRMS() ([]byte, error) {
	window := 50 * time.Millisecond
	return renderPlot("rms", a.RMS(window), 0, 1, window.Seconds(), silenceRMS)
}

func (a *Analyzer) PlotWave(name string) ([]byte, error) {
	window := 50 * time.Millisecond
	return renderPlot(name, a.Envelope(window), -1, 1, window.Seconds(), 0)
}

func renderPlot(name string, data []float64, min, max, window, marker float64) ([]byte, error) {
	p := plot.New()
	p.Y.Min = min
	p.Y.Max = max
	d := time.Duration(float64(len(data))*window*0.5) * time.Second
	p.Title.Text = fmt.Sprintf("%s %s", name, d)
	p.X.Label.Text = "time"
	p.Y.Label.Text = "level"

	pts := make(plotter.XYs, len(data))
	for i, v := range data {
		pts[i].X = float64(i)
		pts[i].Y = v
	}
	l, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create line plotter: %w", err)
	}
	l.LineStyle.Width = vg.Points(1)
	p.Add(l)

	if marker > 0 {
		hLine := plotter.NewFunction(func(x float64) float64 { return marker })
		hLine.Color = color.RGBA{R: 255, A: 255}
		p.Add(hLine)
	}

	c, err := p.WriterTo(4*vg.Inch, 4*vg.Inch, "jpeg")
	if err != nil {
		return nil, fmt.Errorf("sound: couldn't create plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("sound: couldn't write plot: %w", err)
	}
	return buf.Bytes(), nil
}
