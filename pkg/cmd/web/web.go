package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	iofs "io/fs"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/museplan/museplan/pkg/catalog"
	"github.com/museplan/museplan/pkg/persona"
	"github.com/museplan/museplan/pkg/queue"
	"github.com/museplan/museplan/pkg/stats"
	"github.com/pkg/browser"
)

type Config struct {
	Debug bool
	Data  string

	Addr        string
	Credentials map[string]string
	Open        bool
}

//go:embed static/*
var staticContent embed.FS

// Serve starts the dashboard server.
func Serve(ctx context.Context, cfg *Config) error {
	log.Println("web: server started")
	defer log.Println("web: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	data := cfg.Data
	if data == "" {
		data = "."
	}
	personas := persona.NewStore(filepath.Join(data, "artists"), filepath.Join(data, "genres"))
	songs := catalog.NewStore(filepath.Join(data, "catalog", "songs.json"))
	st := stats.NewStore(filepath.Join(data, "stats.json"))
	q := queue.NewStore(filepath.Join(data, "queue.json"))

	staticFS, err := iofs.Sub(staticContent, "static")
	if err != nil {
		return fmt.Errorf("web: couldn't load static content: %w", err)
	}

	mux := chi.NewRouter()
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(60 * time.Second))
	if len(cfg.Credentials) > 0 {
		mux.Use(middleware.BasicAuth("private", cfg.Credentials))
	}
	r := mux.Group(func(r chi.Router) {
		if cfg.Debug {
			r.Use(middleware.Logger)
		}
	})

	mux.Get("/*", http.StripPrefix("/", http.FileServer(http.FS(staticFS))).ServeHTTP)

	// Rendered audio lives under the catalog folder.
	audioDir := filepath.Join(data, "catalog")
	mux.Get("/audio/*", http.StripPrefix("/audio/", http.FileServer(http.Dir(audioDir))).ServeHTTP)

	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		summary, err := st.Get(r.URL.Query().Get("artist"))
		if err != nil {
			serveError(w, err)
			return
		}
		serveJSON(w, summary)
	})

	r.Get("/api/artists", func(w http.ResponseWriter, r *http.Request) {
		ps, err := personas.List()
		if err != nil {
			serveError(w, err)
			return
		}
		type artist struct {
			Name        string   `json:"name"`
			Personality string   `json:"personality,omitempty"`
			Mood        string   `json:"mood,omitempty"`
			Energy      string   `json:"energy,omitempty"`
			Genres      []string `json:"genres,omitempty"`
			Tags        string   `json:"tags,omitempty"`
		}
		out := []artist{}
		for _, p := range ps {
			out = append(out, artist{
				Name:        p.Display(),
				Personality: p.Personality,
				Mood:        p.Mood,
				Energy:      p.Energy,
				Genres:      p.Genres,
				Tags:        p.Tags,
			})
		}
		serveJSON(w, out)
	})

	r.Get("/api/genres", func(w http.ResponseWriter, r *http.Request) {
		names, err := personas.ListGuides()
		if err != nil {
			serveError(w, err)
			return
		}
		if names == nil {
			names = []string{}
		}
		serveJSON(w, names)
	})

	r.Get("/api/songs", func(w http.ResponseWriter, r *http.Request) {
		var list []catalog.Song
		var err error
		if r.URL.Query().Get("top") == "true" {
			list, err = songs.TopRated()
		} else {
			list, err = songs.List(r.URL.Query().Get("artist"), r.URL.Query().Get("search"))
		}
		if err != nil {
			serveError(w, err)
			return
		}
		if list == nil {
			list = []catalog.Song{}
		}
		serveJSON(w, list)
	})

	r.Post("/api/songs/{id}/rating", func(w http.ResponseWriter, r *http.Request) {
		rating, err := strconv.Atoi(r.URL.Query().Get("value"))
		if err != nil {
			http.Error(w, "invalid rating", http.StatusBadRequest)
			return
		}
		if err := songs.SetRating(chi.URLParam(r, "id"), rating); err != nil {
			serveError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/api/queue", func(w http.ResponseWriter, r *http.Request) {
		items, err := q.List()
		if err != nil {
			serveError(w, err)
			return
		}
		if items == nil {
			items = []queue.Item{}
		}
		serveJSON(w, items)
	})

	split := strings.Split(cfg.Addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("web: invalid address: %s", cfg.Addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("web: invalid port: %s", split[1])
	}
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: mux,
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Printf("web: listening on %s", note)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("web: couldn't start server: %v\n", err)
			cancel()
		}
	}()

	if cfg.Open {
		u := fmt.Sprintf("http://localhost:%d", port)
		if err := browser.OpenURL(u); err != nil {
			log.Printf("web: couldn't open browser: %v\n", err)
		}
	}

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

func serveJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: couldn't encode response: %v\n", err)
	}
}

func serveError(w http.ResponseWriter, err error) {
	log.Printf("web: %v\n", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
