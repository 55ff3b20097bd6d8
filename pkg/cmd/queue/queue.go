package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path/filepath"

	"github.com/museplan/museplan/pkg/cmd/generate"
	store "github.com/museplan/museplan/pkg/queue"
)

type Config struct {
	generate.Config

	Action string
	Input  string
}

// Run manages the pending generation queue.
func Run(ctx context.Context, cfg *Config) error {
	data := cfg.Data
	if data == "" {
		data = "."
	}
	q := store.NewStore(filepath.Join(data, "queue.json"))

	switch cfg.Action {
	case "add":
		return add(cfg, q)
	case "", "list":
		return list(q)
	case "run":
		return run(ctx, cfg, q)
	case "clear":
		if err := q.Clear(); err != nil {
			return err
		}
		fmt.Println("queue cleared")
		return nil
	default:
		return fmt.Errorf("queue: unknown action %q", cfg.Action)
	}
}

func add(cfg *Config, q *store.Store) error {
	if cfg.Input != "" {
		n, err := q.AddFile(cfg.Input, cfg.Quality, cfg.Takes)
		if err != nil {
			return err
		}
		fmt.Printf("queued %d items from %s\n", n, cfg.Input)
		return nil
	}
	if cfg.Artist == "" || cfg.Concept == "" {
		return fmt.Errorf("queue: artist and concept are required")
	}
	item, err := q.Add(store.Item{
		Artist:  cfg.Artist,
		Concept: cfg.Concept,
		Quality: cfg.Quality,
		Takes:   cfg.Takes,
		Master:  cfg.Master,
	})
	if err != nil {
		return err
	}
	fmt.Printf("queued %s: %s / %s\n", item.ID, item.Artist, item.Concept)
	return nil
}

func list(q *store.Store) error {
	items, err := q.List()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("queue is empty")
		return nil
	}
	for i, item := range items {
		master := ""
		if item.Master {
			master = " +master"
		}
		fmt.Printf("%2d. %s  %-20s %s (%s x%d%s)\n", i+1, item.ID, item.Artist, item.Concept, item.Quality, item.Takes, master)
	}
	return nil
}

// run drains the queue front to back. Each item applies its own
// parameter snapshot; a failed item is reported and the drain continues.
func run(ctx context.Context, cfg *Config, q *store.Store) error {
	env, err := generate.NewEnv(&cfg.Config)
	if err != nil {
		return err
	}
	var done, failed int
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		item, err := q.Peek()
		if errors.Is(err, store.ErrEmpty) {
			break
		}
		if err != nil {
			return err
		}
		log.Printf("queue: running %s: %s / %s\n", item.ID, item.Artist, item.Concept)
		results, err := env.Studio.RunQueueItem(ctx, item)
		if err != nil {
			log.Printf("queue: item %s failed: %v\n", item.ID, err)
			failed++
		} else {
			for _, r := range results {
				if r.Err != nil {
					log.Printf("queue: %v\n", r.Err)
					continue
				}
				log.Printf("queue: song %s saved to %s\n", r.Song.ID, r.Song.File)
			}
			done++
		}
		if err := q.RemoveFirst(); err != nil {
			return err
		}
	}
	log.Printf("queue: drained, %d ok, %d failed, active quality is now %q\n",
		done, failed, env.Studio.Settings().Quality)
	return nil
}
