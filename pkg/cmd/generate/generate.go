package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/museplan/museplan/pkg/acestep"
	"github.com/museplan/museplan/pkg/catalog"
	"github.com/museplan/museplan/pkg/persona"
	"github.com/museplan/museplan/pkg/queue"
	"github.com/museplan/museplan/pkg/sound"
	"github.com/museplan/museplan/pkg/sound/ffmpeg"
	"github.com/museplan/museplan/pkg/stats"
	"github.com/museplan/museplan/pkg/studio"
	tmpl "github.com/museplan/museplan/pkg/template"
	"github.com/museplan/museplan/pkg/textgen"
)

type Config struct {
	Debug bool
	Data  string

	// Backends
	TextEndpoint string
	TextModel    string
	OpenAIKey    string
	OpenAIBase   string
	RenderBin    string
	FFmpegBin    string

	// Settings
	Quality   string
	Takes     int
	Master    bool
	Duration  int
	Steps     int
	Scheduler string
	Format    string
	Seed      int64
	Template  string

	// Mode arguments
	Mode    string
	Artist  string
	Artist2 string
	Concept string
	Genre   string
	Genre2  string
	Song    string
	Lyrics  string
	Mood    string
	Theme   string
}

// Env is the wired-up runtime shared by the generation commands, the
// queue runner and the bot.
type Env struct {
	Studio    *studio.Studio
	Personas  *persona.Store
	Catalog   *catalog.Store
	Stats     *stats.Store
	Queue     *queue.Store
	Templates *tmpl.Store
}

// NewEnv builds the stores and the orchestrator from the config.
func NewEnv(cfg *Config) (*Env, error) {
	data := cfg.Data
	if data == "" {
		data = "."
	}
	personas := persona.NewStore(filepath.Join(data, "artists"), filepath.Join(data, "genres"))
	cat := catalog.NewStore(filepath.Join(data, "catalog", "songs.json"))
	st := stats.NewStore(filepath.Join(data, "stats.json"))
	q := queue.NewStore(filepath.Join(data, "queue.json"))
	templates := tmpl.NewStore(filepath.Join(data, "templates"))

	settings := tmpl.Settings{
		Quality:   cfg.Quality,
		Steps:     cfg.Steps,
		Scheduler: cfg.Scheduler,
		Format:    cfg.Format,
		Duration:  cfg.Duration,
		Takes:     cfg.Takes,
		Master:    cfg.Master,
	}
	if cfg.Template != "" {
		loaded, err := templates.Load(cfg.Template)
		if err != nil {
			return nil, fmt.Errorf("generate: couldn't load template: %w", err)
		}
		settings = *loaded
	}

	gen := textgen.New(&textgen.Config{
		Debug:      cfg.Debug,
		Endpoint:   cfg.TextEndpoint,
		Model:      cfg.TextModel,
		OpenAIKey:  cfg.OpenAIKey,
		OpenAIBase: cfg.OpenAIBase,
	})
	renderer := acestep.New(&acestep.Config{
		Debug: cfg.Debug,
		Bin:   cfg.RenderBin,
	})
	if cfg.FFmpegBin != "" {
		ffmpeg.BinPath = cfg.FFmpegBin
	}

	s := studio.New(&studio.Config{
		Debug:    cfg.Debug,
		Personas: personas,
		TextGen:  gen,
		Renderer: renderer,
		Catalog:  cat,
		Stats:    st,
		Master:   ffmpeg.Master,
		Settings: settings,
		Seed:     cfg.Seed,
		Verify:   warnSilent,
	})
	return &Env{
		Studio:    s,
		Personas:  personas,
		Catalog:   cat,
		Stats:     st,
		Queue:     q,
		Templates: templates,
	}, nil
}

// warnSilent flags takes that decoded to digital silence. Analysis only
// works on mp3 output and is best effort.
func warnSilent(path string) {
	if !strings.HasSuffix(path, ".mp3") {
		return
	}
	a, err := sound.NewAnalyzer(path)
	if err != nil {
		return
	}
	if a.Silent() {
		log.Printf("generate: %s sounds silent, consider a reroll\n", path)
	}
	if tail := a.TrailingSilence(); tail > 10*time.Second {
		log.Printf("generate: %s ends with %s of silence\n", path, tail.Round(time.Second))
	}
}

// Run dispatches to the generation mode named by cfg.Mode.
func Run(ctx context.Context, cfg *Config) error {
	log.Println("generate: process started")
	start := time.Now()
	defer func() {
		log.Printf("generate: process ended (%s)\n", time.Since(start).Round(time.Second))
	}()

	env, err := NewEnv(cfg)
	if err != nil {
		return err
	}
	s := env.Studio

	var results []studio.Result
	switch cfg.Mode {
	case "", "standard":
		results, err = s.Standard(ctx, cfg.Artist, cfg.Concept)
	case "collab":
		results, err = s.Collab(ctx, cfg.Artist, cfg.Artist2, cfg.Concept)
	case "battle":
		results, err = s.Battle(ctx, cfg.Artist, cfg.Artist2, cfg.Concept)
	case "album":
		results, err = s.Album(ctx, cfg.Artist, cfg.Theme)
	case "vibe":
		results, err = s.Vibe(ctx, cfg.Mood, cfg.Concept)
	case "fusion":
		results, err = s.Fusion(ctx, cfg.Genre, cfg.Genre2, cfg.Concept)
	case "like":
		results, err = s.SoundAlike(ctx, cfg.Artist, cfg.Concept)
	case "remix":
		results, err = s.Remix(ctx, cfg.Song, cfg.Artist)
	case "reroll":
		results, err = s.Reroll(ctx, cfg.Song)
	case "lyrics":
		results, err = s.LyricsFirst(ctx, cfg.Lyrics)
	default:
		return fmt.Errorf("generate: unknown mode %q", cfg.Mode)
	}
	report(results)
	if err != nil {
		return err
	}
	if len(results) > 0 && allFailed(results) {
		return errors.New("generate: no take produced an artifact")
	}
	return nil
}

func report(results []studio.Result) {
	for _, r := range results {
		if r.Err != nil {
			log.Printf("generate: %v\n", r.Err)
			continue
		}
		log.Printf("generate: song %s by %s saved to %s (seed %d)\n",
			r.Song.ID, r.Song.Artist, r.Song.File, r.Song.Seed)
	}
}

func allFailed(results []studio.Result) bool {
	for _, r := range results {
		if r.Err == nil {
			return false
		}
	}
	return true
}
