package studio

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/museplan/museplan/pkg/acestep"
	"github.com/museplan/museplan/pkg/catalog"
	"github.com/museplan/museplan/pkg/persona"
	"github.com/museplan/museplan/pkg/preset"
	"github.com/museplan/museplan/pkg/stats"
	"github.com/museplan/museplan/pkg/template"
	"github.com/museplan/museplan/pkg/textgen"
	"github.com/oklog/ulid/v2"
)

// ErrEmptyResponse is returned when the text backend produced no usable
// output for a mode that required it.
var ErrEmptyResponse = errors.New("studio: empty response from text backend")

// Renderer is the audio generation port.
type Renderer interface {
	Render(ctx context.Context, req *acestep.Request) (string, error)
}

// Masterer is the optional mastering port. It returns the mastered file
// path; on failure the caller keeps the unmastered input.
type Masterer func(ctx context.Context, input string) (string, error)

type Config struct {
	Debug    bool
	Personas *persona.Store
	TextGen  textgen.Generator
	Renderer Renderer
	Catalog  *catalog.Store
	Stats    *stats.Store
	Master   Masterer
	Settings template.Settings

	// Seed fixes the seed of the first take; takes after the first
	// always draw fresh random seeds.
	Seed int64

	// Verify inspects a successful take, used to warn about silent
	// renders. Optional.
	Verify func(path string)
}

// Studio composes the persona store, the two generation backends, the
// mastering stage and the bookkeeping stores into the documented
// generation modes. It is not safe for concurrent use; every invocation
// is strictly sequential.
type Studio struct {
	debug    bool
	personas *persona.Store
	textgen  textgen.Generator
	renderer Renderer
	catalog  *catalog.Store
	stats    *stats.Store
	master   Masterer
	settings template.Settings
	seed     int64
	verify   func(path string)
	rnd      *rand.Rand
	now      func() time.Time
}

func New(cfg *Config) *Studio {
	settings := cfg.Settings
	if settings.Quality == "" {
		settings.Quality = "normal"
	}
	if settings.Takes == 0 {
		settings.Takes = 1
	}
	if settings.Duration == 0 {
		settings.Duration = 180
	}
	return &Studio{
		debug:    cfg.Debug,
		personas: cfg.Personas,
		textgen:  cfg.TextGen,
		renderer: cfg.Renderer,
		catalog:  cfg.Catalog,
		stats:    cfg.Stats,
		master:   cfg.Master,
		settings: settings,
		seed:     cfg.Seed,
		verify:   cfg.Verify,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
}

func (s *Studio) log(format string, args ...interface{}) {
	if s.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

// Settings returns the active parameter set.
func (s *Studio) Settings() template.Settings {
	return s.settings
}

// ApplySettings replaces the active parameter set wholesale (template
// load, queue item snapshots).
func (s *Studio) ApplySettings(settings template.Settings) {
	if settings.Takes == 0 {
		settings.Takes = 1
	}
	s.settings = settings
}

// resolve turns the active settings into concrete render parameters.
// The steps, scheduler and format overrides win over the preset when
// set; everything else is preset-determined.
func (s *Studio) resolve() (preset.Preset, error) {
	p, err := preset.Resolve(s.settings.Quality)
	if err != nil {
		return preset.Preset{}, err
	}
	if s.settings.Steps > 0 {
		p.Steps = s.settings.Steps
	}
	if s.settings.Scheduler != "" {
		p.Scheduler = s.settings.Scheduler
	}
	if s.settings.Format != "" {
		p.Format = s.settings.Format
	}
	return p, nil
}

// seedFor picks the seed for one take. An explicit seed only pins the
// first take; later takes always draw fresh random seeds, so only take
// one of a run is reproducible.
func (s *Studio) seedFor(take int) int64 {
	if take == 1 && s.seed != 0 {
		return s.seed
	}
	return s.rnd.Int63n(1<<31 - 1)
}

// job is the prepared input of the shared single-render routine. Modes
// only differ in how they fill it.
type job struct {
	Display string // catalog artist name
	Tags    string // authoritative render input
	Concept string
	Lyrics  string // pre-supplied lyrics; empty means generate
	Prompt  string // lyric generation prompt when Lyrics is empty
	Mode    string
	Quality string // stats label; defaults to the active quality
}

// Result reports one rendered take.
type Result struct {
	Song catalog.Song
	Err  error
}

// render is the shared single-render routine: obtain lyrics, then for
// each take pick a seed, call the renderer, optionally master, and
// record the outcome. A failed take is reported in its Result and does
// not halt the remaining takes.
func (s *Studio) render(ctx context.Context, j *job) ([]Result, error) {
	p, err := s.resolve()
	if err != nil {
		return nil, err
	}

	lyrics := j.Lyrics
	if lyrics == "" {
		s.log("studio: generating lyrics for %q", j.Concept)
		lyrics, err = s.textgen.Generate(ctx, j.Prompt)
		if err != nil {
			return nil, fmt.Errorf("studio: couldn't generate lyrics: %w", err)
		}
		if lyrics == "" {
			return nil, fmt.Errorf("%w: lyrics for %q", ErrEmptyResponse, j.Concept)
		}
	}

	takes := s.settings.Takes
	if takes < 1 {
		takes = 1
	}
	var results []Result
	for take := 1; take <= takes; take++ {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		mode := j.Mode
		if take > 1 {
			mode = fmt.Sprintf("%s-take-%d", j.Mode, take)
		}
		seed := s.seedFor(take)
		s.log("studio: take %d/%d seed=%d steps=%d scheduler=%s", take, takes, seed, p.Steps, p.Scheduler)

		path, err := s.renderer.Render(ctx, &acestep.Request{
			Tags:      j.Tags,
			Lyrics:    lyrics,
			Duration:  s.settings.Duration,
			Steps:     p.Steps,
			Format:    p.Format,
			Scheduler: p.Scheduler,
			Seed:      seed,
		})
		if err != nil {
			log.Printf("studio: take %d failed: %v\n", take, err)
			s.record(mode, j, false)
			results = append(results, Result{Err: fmt.Errorf("studio: take %d: %w", take, err)})
			continue
		}

		if s.settings.Master && s.master != nil {
			mastered, err := s.master(ctx, path)
			if err != nil {
				// Soft failure: keep the unmastered file.
				log.Printf("studio: mastering failed, keeping unmastered file: %v\n", err)
			} else {
				path = mastered
			}
		}
		if s.verify != nil {
			s.verify(path)
		}

		song := catalog.Song{
			ID:      catalog.NewID(s.now()),
			Artist:  j.Display,
			Concept: j.Concept,
			Lyrics:  lyrics,
			File:    path,
			Tags:    j.Tags,
			Mode:    mode,
			Seed:    seed,
			Quality: s.settings.Quality,
			Date:    s.now().Format("2006-01-02 15:04:05"),
		}
		if err := s.catalog.Append(song); err != nil {
			return results, fmt.Errorf("studio: couldn't save song to catalog: %w", err)
		}
		s.record(mode, j, true)
		results = append(results, Result{Song: song})
	}
	return results, nil
}

func (s *Studio) record(mode string, j *job, ok bool) {
	if s.stats == nil {
		return
	}
	quality := j.Quality
	if quality == "" {
		quality = s.settings.Quality
	}
	if err := s.stats.Record(stats.Event{
		ID:      ulid.Make().String(),
		Time:    s.now().Format("2006-01-02 15:04:05"),
		Mode:    baseMode(mode),
		Artist:  persona.Key(j.Display),
		Quality: quality,
		OK:      ok,
	}); err != nil {
		log.Printf("studio: couldn't record stats: %v\n", err)
	}
}

// baseMode strips the take suffix so aggregates group whole runs.
func baseMode(mode string) string {
	if i := strings.LastIndex(mode, "-take-"); i > 0 {
		return mode[:i]
	}
	return mode
}
