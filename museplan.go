package museplan

import (
	"context"
	"fmt"

	"github.com/museplan/museplan/pkg/cmd/generate"
	"github.com/museplan/museplan/pkg/studio"
)

type Config struct {
	Debug        bool
	Data         string
	TextEndpoint string
	TextModel    string
	RenderBin    string
	Quality      string
	Master       bool
}

// GenerateSong renders one song for an existing artist and returns the
// produced file path. It is the library entrypoint; the CLI and the bot
// expose the full mode surface.
func GenerateSong(ctx context.Context, cfg *Config, artist, concept string) (string, error) {
	env, err := generate.NewEnv(&generate.Config{
		Debug:        cfg.Debug,
		Data:         cfg.Data,
		TextEndpoint: cfg.TextEndpoint,
		TextModel:    cfg.TextModel,
		RenderBin:    cfg.RenderBin,
		Quality:      cfg.Quality,
		Master:       cfg.Master,
	})
	if err != nil {
		return "", err
	}
	results, err := env.Studio.Standard(ctx, artist, concept)
	if err != nil {
		return "", err
	}
	for _, r := range results {
		if r.Err == nil {
			return r.Song.File, nil
		}
	}
	var last error
	for _, r := range results {
		if r.Err != nil {
			last = r.Err
		}
	}
	if last != nil {
		return "", last
	}
	return "", fmt.Errorf("museplan: no song produced")
}

// Result re-exports the orchestrator result type for library users.
type Result = studio.Result
