package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	ErrNotFound      = errors.New("catalog: not found")
	ErrInvalidRating = errors.New("catalog: rating must be between 1 and 5")
)

// listLimit caps the number of entries returned by listings and search.
const listLimit = 20

// Song is one catalog entry. A song is appended exactly once per
// successful render and is immutable afterwards except for Rating.
// Rerolls and remixes create new entries referencing the original id in
// their Mode field.
type Song struct {
	ID      string `json:"id"`
	Artist  string `json:"artist"`
	Concept string `json:"concept"`
	Lyrics  string `json:"lyrics"`
	File    string `json:"file"`
	Tags    string `json:"tags"`
	Mode    string `json:"mode"`
	Seed    int64  `json:"seed"`
	Quality string `json:"quality"`
	Date    string `json:"date"`
	Rating  int    `json:"rating,omitempty"`
}

type document struct {
	Songs []Song `json:"songs"`
}

// Store keeps the catalog in a single JSON file. Every operation reads
// the whole file, mutates in memory and rewrites it via a temporary file
// plus rename so a crash never leaves a half-written catalog.
type Store struct {
	path string
	lck  sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() (*document, error) {
	var doc document
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return &doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: couldn't read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("catalog: couldn't unmarshal %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *Store) save(doc *document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("catalog: couldn't create folder: %w", err)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("catalog: couldn't marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("catalog: couldn't write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("catalog: couldn't rename temporary file: %w", err)
	}
	return nil
}

func (s *Store) Append(song Song) error {
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Songs = append(doc.Songs, song)
	return s.save(doc)
}

func (s *Store) Get(id string) (*Song, error) {
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for i := range doc.Songs {
		if doc.Songs[i].ID == id {
			song := doc.Songs[i]
			return &song, nil
		}
	}
	return nil, fmt.Errorf("%w: song %s", ErrNotFound, id)
}

// List returns the most recent songs, newest first, optionally filtered
// by artist substring and a case-insensitive search term over concept,
// lyrics and artist.
func (s *Store) List(artist, search string) ([]Song, error) {
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	artist = strings.ToLower(artist)
	search = strings.ToLower(search)
	var out []Song
	for i := len(doc.Songs) - 1; i >= 0; i-- {
		song := doc.Songs[i]
		if artist != "" && !strings.Contains(strings.ToLower(song.Artist), artist) {
			continue
		}
		if search != "" {
			haystack := strings.ToLower(song.Concept + "\n" + song.Lyrics + "\n" + song.Artist)
			if !strings.Contains(haystack, search) {
				continue
			}
		}
		out = append(out, song)
		if len(out) >= listLimit {
			break
		}
	}
	return out, nil
}

// TopRated returns rated songs sorted by rating descending, oldest first
// on ties.
func (s *Store) TopRated() ([]Song, error) {
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	var rated []Song
	for _, song := range doc.Songs {
		if song.Rating > 0 {
			rated = append(rated, song)
		}
	}
	sort.SliceStable(rated, func(i, j int) bool {
		if rated[i].Rating != rated[j].Rating {
			return rated[i].Rating > rated[j].Rating
		}
		return rated[i].Date < rated[j].Date
	})
	if len(rated) > listLimit {
		rated = rated[:listLimit]
	}
	return rated, nil
}

// SetRating overwrites the rating of an existing song. Re-rating never
// appends a duplicate record.
func (s *Store) SetRating(id string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w: got %d", ErrInvalidRating, rating)
	}
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	for i := range doc.Songs {
		if doc.Songs[i].ID == id {
			doc.Songs[i].Rating = rating
			return s.save(doc)
		}
	}
	return fmt.Errorf("%w: song %s", ErrNotFound, id)
}

// Count returns the number of cataloged songs.
func (s *Store) Count() (int, error) {
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return 0, err
	}
	return len(doc.Songs), nil
}

// NewID returns a fresh song id derived from the current time at
// millisecond precision, so multi-take runs within the same second still
// get distinct, monotonically increasing ids.
var lastID struct {
	sync.Mutex
	v int64
}

func NewID(now time.Time) string {
	lastID.Lock()
	defer lastID.Unlock()
	ms := now.UnixMilli()
	if ms <= lastID.v {
		ms = lastID.v + 1
	}
	lastID.v = ms
	return fmt.Sprintf("%d", ms)
}
