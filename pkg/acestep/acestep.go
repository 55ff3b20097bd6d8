package acestep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrNoOutput is returned when the renderer finished without producing a
// usable audio file.
var ErrNoOutput = errors.New("acestep: no output file")

// marker is the line prefix the renderer prints to announce the produced
// audio file.
const marker = "AUDIO_FILE="

// Request carries one render invocation. Tags is passed verbatim, it is
// the authoritative style input.
type Request struct {
	Tags      string
	Lyrics    string
	Duration  int
	Steps     int
	Format    string
	Scheduler string
	Seed      int64
}

// Renderer invokes the audio generation backend as a one-shot external
// command.
type Renderer struct {
	bin   string
	args  []string
	debug bool
}

type Config struct {
	// Bin is the renderer command; extra fixed arguments may follow the
	// command name separated by spaces.
	Bin   string
	Debug bool
}

func New(cfg *Config) *Renderer {
	bin := cfg.Bin
	if bin == "" {
		bin = "acestep-generate"
	}
	fields := strings.Fields(bin)
	return &Renderer{
		bin:   fields[0],
		args:  fields[1:],
		debug: cfg.Debug,
	}
}

func (r *Renderer) log(format string, args ...interface{}) {
	if r.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

// Render runs the backend and returns the path of the produced file.
// Success is determined solely by the AUDIO_FILE marker and the file
// existing on disk: the renderer may exit non-zero after writing a valid
// file, and may exit zero without producing one.
func (r *Renderer) Render(ctx context.Context, req *Request) (string, error) {
	args := append([]string{}, r.args...)
	args = append(args,
		req.Tags,
		req.Lyrics,
		strconv.Itoa(req.Duration),
		strconv.Itoa(req.Steps),
		req.Format,
		req.Scheduler,
		strconv.FormatInt(req.Seed, 10),
	)
	r.log("acestep: %s steps=%d scheduler=%s seed=%d", r.bin, req.Steps, req.Scheduler, req.Seed)

	cmd := exec.CommandContext(ctx, r.bin, args...)
	data, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("acestep: render cancelled: %w", ctx.Err())
		}
		// Warnings and non-zero exits are tolerated as long as the
		// output file shows up below.
		log.Printf("acestep: renderer exited with error: %v\n", err)
	}

	path := parseOutput(string(data))
	if path == "" {
		return "", fmt.Errorf("%w: no %s line in renderer output", ErrNoOutput, strings.TrimSuffix(marker, "="))
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("%w: %s does not exist", ErrNoOutput, path)
	}
	return path, nil
}

func parseOutput(output string) string {
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, marker)
		if idx < 0 {
			continue
		}
		path := strings.TrimSpace(line[idx+len(marker):])
		if path != "" {
			return path
		}
	}
	return ""
}
