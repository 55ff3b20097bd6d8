package template

import (
	"context"
	"fmt"
	"path/filepath"

	store "github.com/museplan/museplan/pkg/template"
)

type Config struct {
	Debug bool
	Data  string

	Action string
	Name   string

	Quality   string
	Steps     int
	Scheduler string
	Format    string
	Duration  int
	Takes     int
	Master    bool
}

// Run saves, shows and lists parameter templates.
func Run(ctx context.Context, cfg *Config) error {
	data := cfg.Data
	if data == "" {
		data = "."
	}
	templates := store.NewStore(filepath.Join(data, "templates"))

	switch cfg.Action {
	case "save":
		if cfg.Name == "" {
			return fmt.Errorf("template: name is required")
		}
		settings := store.Settings{
			Quality:   cfg.Quality,
			Steps:     cfg.Steps,
			Scheduler: cfg.Scheduler,
			Format:    cfg.Format,
			Duration:  cfg.Duration,
			Takes:     cfg.Takes,
			Master:    cfg.Master,
		}
		if err := templates.Save(cfg.Name, settings); err != nil {
			return err
		}
		fmt.Printf("saved template %s\n", cfg.Name)
		return nil
	case "show":
		if cfg.Name == "" {
			return fmt.Errorf("template: name is required")
		}
		settings, err := templates.Load(cfg.Name)
		if err != nil {
			return err
		}
		fmt.Print(settings.Summary())
		return nil
	case "", "list":
		names, err := templates.List()
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("no templates")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	default:
		return fmt.Errorf("template: unknown action %q", cfg.Action)
	}
}
