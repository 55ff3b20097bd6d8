package stats

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// maxEvents bounds the stored event list; oldest events are discarded
// first. The aggregates keep counting across the truncation.
const maxEvents = 1000

// Event records one generation attempt.
type Event struct {
	ID      string `json:"id"`
	Time    string `json:"time"`
	Mode    string `json:"mode"`
	Artist  string `json:"artist"`
	Quality string `json:"quality"`
	OK      bool   `json:"ok"`
}

// Counter accumulates success/failure totals.
type Counter struct {
	OK     int `json:"ok"`
	Failed int `json:"failed"`
}

type document struct {
	Generations []Event            `json:"generations"`
	ByMode      map[string]Counter `json:"by_mode"`
	ByQuality   map[string]Counter `json:"by_quality"`
	ByArtist    map[string]Counter `json:"by_artist"`
}

// Store persists generation statistics in a single JSON file with the
// same read-all/write-all discipline as the catalog.
type Store struct {
	path string
	lck  sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) load() (*document, error) {
	doc := &document{
		ByMode:    map[string]Counter{},
		ByQuality: map[string]Counter{},
		ByArtist:  map[string]Counter{},
	}
	b, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stats: couldn't read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(b, doc); err != nil {
		return nil, fmt.Errorf("stats: couldn't unmarshal %s: %w", s.path, err)
	}
	if doc.ByMode == nil {
		doc.ByMode = map[string]Counter{}
	}
	if doc.ByQuality == nil {
		doc.ByQuality = map[string]Counter{}
	}
	if doc.ByArtist == nil {
		doc.ByArtist = map[string]Counter{}
	}
	return doc, nil
}

func (s *Store) save(doc *document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("stats: couldn't create folder: %w", err)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("stats: couldn't marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("stats: couldn't write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("stats: couldn't rename temporary file: %w", err)
	}
	return nil
}

func bump(m map[string]Counter, key string, ok bool) {
	c := m[key]
	if ok {
		c.OK++
	} else {
		c.Failed++
	}
	m[key] = c
}

// Record appends a generation event and updates the aggregates in the
// same write, keeping them consistent with the cumulative counts.
func (s *Store) Record(e Event) error {
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	doc.Generations = append(doc.Generations, e)
	if n := len(doc.Generations); n > maxEvents {
		doc.Generations = doc.Generations[n-maxEvents:]
	}
	bump(doc.ByMode, e.Mode, e.OK)
	bump(doc.ByQuality, e.Quality, e.OK)
	bump(doc.ByArtist, e.Artist, e.OK)
	return s.save(doc)
}

// Summary is the aggregated view rendered by the stats command.
type Summary struct {
	Total     Counter            `json:"total"`
	ByMode    map[string]Counter `json:"by_mode"`
	ByQuality map[string]Counter `json:"by_quality"`
	ByArtist  map[string]Counter `json:"by_artist"`
	Recent    []Event            `json:"recent"`
}

// Get returns the aggregates, optionally narrowed to a single artist.
func (s *Store) Get(artist string) (*Summary, error) {
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	sum := &Summary{
		ByMode:    doc.ByMode,
		ByQuality: doc.ByQuality,
		ByArtist:  doc.ByArtist,
	}
	if artist != "" {
		c, ok := doc.ByArtist[artist]
		if !ok {
			c = Counter{}
		}
		sum.ByArtist = map[string]Counter{artist: c}
		sum.Total = c
	} else {
		for _, c := range doc.ByArtist {
			sum.Total.OK += c.OK
			sum.Total.Failed += c.Failed
		}
	}
	n := len(doc.Generations)
	if n > 10 {
		n = 10
	}
	sum.Recent = doc.Generations[len(doc.Generations)-n:]
	return sum, nil
}

// Format renders a summary as the plain text block printed by the CLI
// and relayed by the bot.
func (sum *Summary) Format() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generations: %d ok, %d failed\n", sum.Total.OK, sum.Total.Failed)
	writeGroup := func(title string, m map[string]Counter) {
		if len(m) == 0 {
			return
		}
		fmt.Fprintf(&sb, "%s:\n", title)
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			c := m[k]
			fmt.Fprintf(&sb, "  %-16s %d ok, %d failed\n", k, c.OK, c.Failed)
		}
	}
	writeGroup("By mode", sum.ByMode)
	writeGroup("By quality", sum.ByQuality)
	writeGroup("By artist", sum.ByArtist)
	return sb.String()
}
