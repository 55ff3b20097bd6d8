package artist

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/museplan/museplan/pkg/persona"
	"github.com/museplan/museplan/pkg/studio"
	"github.com/museplan/museplan/pkg/textgen"
)

type Config struct {
	Debug bool
	Data  string

	TextEndpoint string
	TextModel    string
	OpenAIKey    string
	OpenAIBase   string

	Action      string
	Name        string
	Description string
}

// Run lists, shows or synthesizes personas and genre guides.
func Run(ctx context.Context, cfg *Config) error {
	data := cfg.Data
	if data == "" {
		data = "."
	}
	store := persona.NewStore(filepath.Join(data, "artists"), filepath.Join(data, "genres"))

	switch cfg.Action {
	case "", "list":
		return list(store)
	case "show":
		return show(store, cfg.Name)
	case "new":
		return synthPersona(ctx, cfg, store)
	case "new-genre":
		return synthGenre(ctx, cfg, store)
	default:
		return fmt.Errorf("artist: unknown action %q", cfg.Action)
	}
}

func list(store *persona.Store) error {
	ps, err := store.List()
	if err != nil {
		return err
	}
	if len(ps) == 0 {
		fmt.Println("no artists yet, create one with: museplan artist -action new")
		return nil
	}
	for _, p := range ps {
		fmt.Printf("%-20s %s, %s energy, %s\n", persona.Key(p.Name), p.Mood, p.Energy, strings.Join(p.Genres, "/"))
	}
	guides, err := store.ListGuides()
	if err != nil {
		return err
	}
	if len(guides) > 0 {
		fmt.Printf("genres: %s\n", strings.Join(guides, ", "))
	}
	return nil
}

func show(store *persona.Store, name string) error {
	if name == "" {
		return fmt.Errorf("artist: name is required")
	}
	p, err := store.Get(name)
	if err != nil {
		return err
	}
	fmt.Print(persona.Render(p))
	return nil
}

func synthPersona(ctx context.Context, cfg *Config, store *persona.Store) error {
	if cfg.Name == "" || cfg.Description == "" {
		return fmt.Errorf("artist: name and description are required")
	}
	s := newStudio(cfg, store)
	p, err := s.NewPersona(ctx, cfg.Name, cfg.Description)
	if err != nil {
		return err
	}
	fmt.Printf("created artist %s\n", persona.Key(p.Name))
	fmt.Print(persona.Render(p))
	return nil
}

func synthGenre(ctx context.Context, cfg *Config, store *persona.Store) error {
	if cfg.Name == "" || cfg.Description == "" {
		return fmt.Errorf("artist: name and description are required")
	}
	s := newStudio(cfg, store)
	guide, err := s.NewGenre(ctx, cfg.Name, cfg.Description)
	if err != nil {
		return err
	}
	fmt.Printf("created genre guide %s\n", persona.Key(cfg.Name))
	fmt.Println(guide)
	return nil
}

func newStudio(cfg *Config, store *persona.Store) *studio.Studio {
	return studio.New(&studio.Config{
		Debug:    cfg.Debug,
		Personas: store,
		TextGen: textgen.New(&textgen.Config{
			Debug:      cfg.Debug,
			Endpoint:   cfg.TextEndpoint,
			Model:      cfg.TextModel,
			OpenAIKey:  cfg.OpenAIKey,
			OpenAIBase: cfg.OpenAIBase,
		}),
	})
}
