package catalog

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/museplan/museplan/pkg/catalog"
)

type Config struct {
	Debug bool
	Data  string

	Action string
	Artist string
	Search string
	Song   string
	Rating int
}

// Run lists and rates catalog entries.
func Run(ctx context.Context, cfg *Config) error {
	data := cfg.Data
	if data == "" {
		data = "."
	}
	store := catalog.NewStore(filepath.Join(data, "catalog", "songs.json"))

	switch cfg.Action {
	case "", "recent", "search":
		songs, err := store.List(cfg.Artist, cfg.Search)
		if err != nil {
			return err
		}
		printSongs(songs)
	case "top":
		songs, err := store.TopRated()
		if err != nil {
			return err
		}
		printSongs(songs)
	case "rate":
		if err := store.SetRating(cfg.Song, cfg.Rating); err != nil {
			return err
		}
		fmt.Printf("rated %s: %d/5\n", cfg.Song, cfg.Rating)
	default:
		return fmt.Errorf("catalog: unknown action %q", cfg.Action)
	}
	return nil
}

func printSongs(songs []catalog.Song) {
	if len(songs) == 0 {
		fmt.Println("no songs")
		return
	}
	for _, s := range songs {
		rating := "-"
		if s.Rating > 0 {
			rating = fmt.Sprintf("%d/5", s.Rating)
		}
		fmt.Printf("%s  %-25s %-12s %-6s %s  %s\n", s.ID, s.Artist, s.Mode, rating, s.Date, s.Concept)
	}
}
