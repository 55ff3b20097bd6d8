package stats

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/museplan/museplan/pkg/stats"
)

type Config struct {
	Debug  bool
	Data   string
	Artist string
}

// Run prints generation statistics, optionally filtered by artist.
func Run(ctx context.Context, cfg *Config) error {
	data := cfg.Data
	if data == "" {
		data = "."
	}
	store := stats.NewStore(filepath.Join(data, "stats.json"))
	summary, err := store.Get(cfg.Artist)
	if err != nil {
		return err
	}
	fmt.Print(summary.Format())
	return nil
}
