package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/museplan/museplan/pkg/cmd/analyze"
	"github.com/museplan/museplan/pkg/cmd/artist"
	"github.com/museplan/museplan/pkg/cmd/bot"
	"github.com/museplan/museplan/pkg/cmd/catalog"
	"github.com/museplan/museplan/pkg/cmd/generate"
	"github.com/museplan/museplan/pkg/cmd/queue"
	"github.com/museplan/museplan/pkg/cmd/stats"
	"github.com/museplan/museplan/pkg/cmd/template"
	"github.com/museplan/museplan/pkg/cmd/web"
	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("museplan", flag.ExitOnError)

	subcommands := []*ffcli.Command{
		newVersionCommand(version, commit, date),
		newArtistCommand(),
		newCatalogCommand(),
		newRateCommand(),
		newStatsCommand(),
		newQueueCommand(),
		newTemplateCommand(),
		newAnalyzeCommand(),
		newWebCommand(),
		newBotCommand(),
	}
	for _, mode := range []string{"generate", "collab", "battle", "album", "vibe", "fusion", "like", "remix", "reroll", "lyrics"} {
		subcommands = append(subcommands, newGenerateCommand(mode))
	}

	return &ffcli.Command{
		ShortUsage: "museplan [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: subcommands,
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "museplan version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func options() []ff.Option {
	return []ff.Option{
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ffyaml.Parser),
		ff.WithEnvVarPrefix("MUSEPLAN"),
	}
}

func addGenerateFlags(fs *flag.FlagSet, cfg *generate.Config) {
	_ = fs.String("config", "", "config file (optional)")
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Data, "data", ".", "data folder (artists, genres, catalog, queue, templates)")

	fs.StringVar(&cfg.TextEndpoint, "text-endpoint", "", "text generation endpoint (default http://localhost:11434/api/generate)")
	fs.StringVar(&cfg.TextModel, "model", "", "text generation model")
	fs.StringVar(&cfg.OpenAIKey, "openai-key", "", "openai api key (switches the text backend)")
	fs.StringVar(&cfg.OpenAIBase, "openai-base", "", "openai compatible base url")
	fs.StringVar(&cfg.RenderBin, "render-bin", "", "audio renderer command (default acestep-generate)")
	fs.StringVar(&cfg.FFmpegBin, "ffmpeg-bin", "", "ffmpeg binary (default ffmpeg from PATH)")

	fs.StringVar(&cfg.Quality, "quality", "normal", "quality preset (draft, normal, high, ultra)")
	fs.IntVar(&cfg.Takes, "takes", 1, "number of takes per song")
	fs.BoolVar(&cfg.Master, "master", false, "master the rendered audio")
	fs.IntVar(&cfg.Duration, "duration", 180, "song duration in seconds")
	fs.IntVar(&cfg.Steps, "steps", 0, "step count override (0 uses the preset)")
	fs.StringVar(&cfg.Scheduler, "scheduler", "", "scheduler override (empty uses the preset)")
	fs.StringVar(&cfg.Format, "format", "", "format override (empty uses the preset)")
	fs.Int64Var(&cfg.Seed, "seed", 0, "explicit seed for the first take (0 means random)")
	fs.StringVar(&cfg.Template, "template", "", "load a saved settings template")
}

func newGenerateCommand(mode string) *ffcli.Command {
	fs := flag.NewFlagSet(mode, flag.ExitOnError)

	cfg := &generate.Config{Mode: mode}
	addGenerateFlags(fs, cfg)
	fs.StringVar(&cfg.Artist, "artist", "", "artist name (or real-world artist for like mode)")
	fs.StringVar(&cfg.Artist2, "artist2", "", "second artist (collab, battle)")
	fs.StringVar(&cfg.Concept, "concept", "", "song concept")
	fs.StringVar(&cfg.Genre, "genre", "", "first genre (fusion)")
	fs.StringVar(&cfg.Genre2, "genre2", "", "second genre (fusion)")
	fs.StringVar(&cfg.Song, "song", "", "song id (remix, reroll)")
	fs.StringVar(&cfg.Lyrics, "lyrics", "", "your lyrics (lyrics mode)")
	fs.StringVar(&cfg.Mood, "mood", "", "mood description (vibe)")
	fs.StringVar(&cfg.Theme, "theme", "", "album theme (album)")

	return &ffcli.Command{
		Name:       mode,
		ShortUsage: fmt.Sprintf("museplan %s [flags]", mode),
		Options:    options(),
		ShortHelp:  fmt.Sprintf("museplan %s action", mode),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return generate.Run(ctx, cfg)
		},
	}
}

func newArtistCommand() *ffcli.Command {
	cmd := "artist"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &artist.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Data, "data", ".", "data folder")
	fs.StringVar(&cfg.TextEndpoint, "text-endpoint", "", "text generation endpoint")
	fs.StringVar(&cfg.TextModel, "model", "", "text generation model")
	fs.StringVar(&cfg.OpenAIKey, "openai-key", "", "openai api key (switches the text backend)")
	fs.StringVar(&cfg.OpenAIBase, "openai-base", "", "openai compatible base url")
	fs.StringVar(&cfg.Action, "action", "list", "list, show, new or new-genre")
	fs.StringVar(&cfg.Name, "name", "", "artist or genre name")
	fs.StringVar(&cfg.Description, "description", "", "free-form description for new/new-genre")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("museplan %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  fmt.Sprintf("museplan %s action", cmd),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return artist.Run(ctx, cfg)
		},
	}
}

func newCatalogCommand() *ffcli.Command {
	cmd := "catalog"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &catalog.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Data, "data", ".", "data folder")
	fs.StringVar(&cfg.Action, "action", "recent", "recent, top, search or rate")
	fs.StringVar(&cfg.Artist, "artist", "", "filter by artist substring")
	fs.StringVar(&cfg.Search, "search", "", "search concept, lyrics and artist")
	fs.StringVar(&cfg.Song, "song", "", "song id (rate)")
	fs.IntVar(&cfg.Rating, "rating", 0, "rating 1-5 (rate)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("museplan %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  fmt.Sprintf("museplan %s action", cmd),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return catalog.Run(ctx, cfg)
		},
	}
}

func newRateCommand() *ffcli.Command {
	cmd := "rate"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &catalog.Config{Action: "rate"}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Data, "data", ".", "data folder")
	fs.StringVar(&cfg.Song, "song", "", "song id")
	fs.IntVar(&cfg.Rating, "rating", 0, "rating 1-5")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("museplan %s -song <id> -rating <1-5>", cmd),
		Options:    options(),
		ShortHelp:  fmt.Sprintf("museplan %s action", cmd),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return catalog.Run(ctx, cfg)
		},
	}
}

func newStatsCommand() *ffcli.Command {
	cmd := "stats"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &stats.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Data, "data", ".", "data folder")
	fs.StringVar(&cfg.Artist, "artist", "", "filter by artist")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("museplan %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  fmt.Sprintf("museplan %s action", cmd),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return stats.Run(ctx, cfg)
		},
	}
}

func newQueueCommand() *ffcli.Command {
	cmd := "queue"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &queue.Config{}
	addGenerateFlags(fs, &cfg.Config)
	fs.StringVar(&cfg.Config.Artist, "artist", "", "artist name (add)")
	fs.StringVar(&cfg.Config.Concept, "concept", "", "song concept (add)")
	fs.StringVar(&cfg.Action, "action", "list", "add, list, run or clear")
	fs.StringVar(&cfg.Input, "input", "", "csv with artist,concept,quality,takes,master (add)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("museplan %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  fmt.Sprintf("museplan %s action", cmd),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return queue.Run(ctx, cfg)
		},
	}
}

func newTemplateCommand() *ffcli.Command {
	cmd := "template"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &template.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Data, "data", ".", "data folder")
	fs.StringVar(&cfg.Action, "action", "list", "save, show or list")
	fs.StringVar(&cfg.Name, "name", "", "template name")
	fs.StringVar(&cfg.Quality, "quality", "normal", "quality preset")
	fs.IntVar(&cfg.Steps, "steps", 0, "step count override")
	fs.StringVar(&cfg.Scheduler, "scheduler", "", "scheduler override")
	fs.StringVar(&cfg.Format, "format", "", "format override")
	fs.IntVar(&cfg.Duration, "duration", 180, "song duration in seconds")
	fs.IntVar(&cfg.Takes, "takes", 1, "number of takes")
	fs.BoolVar(&cfg.Master, "master", false, "master the rendered audio")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("museplan %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  fmt.Sprintf("museplan %s action", cmd),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return template.Run(ctx, cfg)
		},
	}
}

func newAnalyzeCommand() *ffcli.Command {
	cmd := "analyze"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &analyze.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Input, "input", "", "input file")
	fs.StringVar(&cfg.Output, "output", "", "output folder for plots")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("museplan %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  fmt.Sprintf("museplan %s command", cmd),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return analyze.Run(ctx, cfg)
		},
	}
}

func newWebCommand() *ffcli.Command {
	cmd := "web"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &web.Config{}
	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Data, "data", ".", "data folder")
	fs.StringVar(&cfg.Addr, "addr", ":1337", "address to listen on")
	fs.BoolVar(&cfg.Open, "open", false, "open the dashboard in a browser")
	fsMapVar(fs, &cfg.Credentials, "creds", nil, "basic auth credentials (user1:pass1;user2:pass2)")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("museplan %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  fmt.Sprintf("museplan %s action", cmd),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return web.Serve(ctx, cfg)
		},
	}
}

func newBotCommand() *ffcli.Command {
	cmd := "bot"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)

	cfg := &bot.Config{}
	addGenerateFlags(fs, &cfg.Config)
	fs.StringVar(&cfg.Token, "token", "", "telegram bot token")
	fs.StringVar(&cfg.Allowed, "allowed", "", "comma separated chat ids allowed to talk to the bot")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("museplan %s [flags]", cmd),
		Options:    options(),
		ShortHelp:  fmt.Sprintf("museplan %s action", cmd),
		FlagSet:    fs,
		Exec: func(ctx context.Context, args []string) error {
			return bot.Run(ctx, cfg)
		},
	}
}

type mapValue struct {
	v *map[string]string
}

func (m *mapValue) String() string {
	if m.v == nil {
		return ""
	}
	return fmt.Sprintf("%v", map[string]string(*m.v))
}

func (m *mapValue) Set(value string) error {
	if m.v == nil {
		return errors.New("nil map reference")
	}
	pairs := strings.Split(value, ";")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid map entry: %s", pair)
		}
		(*m.v)[parts[0]] = parts[1]
	}
	return nil
}

func fsMapVar(fs *flag.FlagSet, p *map[string]string, name string, value map[string]string, usage string) {
	if value == nil {
		value = make(map[string]string)
	}
	*p = value
	fs.Var(&mapValue{p}, name, usage)
}
