package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/oklog/ulid/v2"
)

var ErrEmpty = errors.New("queue: empty")

// Item is one pending generation request with the parameter snapshot
// taken at enqueue time.
type Item struct {
	ID      string `json:"id"`
	Artist  string `json:"artist"`
	Concept string `json:"concept"`
	Quality string `json:"quality"`
	Takes   int    `json:"takes"`
	Master  bool   `json:"master"`
	Added   string `json:"added"`
}

type document struct {
	Queue []Item `json:"queue"`
}

// Store keeps the queue in a single JSON file, drained strictly FIFO.
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
		return nil, fmt.Errorf("queue: couldn't read %s: %w", s.path, err)
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("queue: couldn't unmarshal %s: %w", s.path, err)
	}
	return &doc, nil
}

func (s *Store) save(doc *document) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("queue: couldn't create folder: %w", err)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("queue: couldn't marshal: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0644); err != nil {
		return fmt.Errorf("queue: couldn't write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("queue: couldn't rename temporary file: %w", err)
	}
	return nil
}

// Add enqueues one item and returns it with id and timestamp filled in.
func (s *Store) Add(item Item) (*Item, error) {
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	item.ID = ulid.Make().String()
	item.Added = time.Now().Format("2006-01-02 15:04:05")
	doc.Queue = append(doc.Queue, item)
	if err := s.save(doc); err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns the pending items in processing order without consuming
// them.
func (s *Store) List() ([]Item, error) {
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	return doc.Queue, nil
}

// Peek returns the first pending item without removing it.
func (s *Store) Peek() (*Item, error) {
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(doc.Queue) == 0 {
		return nil, ErrEmpty
	}
	item := doc.Queue[0]
	return &item, nil
}

// RemoveFirst drops item 0. The queue runner calls it after each item,
// successful or not, so a bad item never blocks the rest.
func (s *Store) RemoveFirst() error {
	s.lck.Lock()
	defer s.lck.Unlock()
	doc, err := s.load()
	if err != nil {
		return err
	}
	if len(doc.Queue) == 0 {
		return ErrEmpty
	}
	doc.Queue = doc.Queue[1:]
	return s.save(doc)
}

// Clear truncates the queue to empty.
func (s *Store) Clear() error {
	s.lck.Lock()
	defer s.lck.Unlock()
	return s.save(&document{Queue: []Item{}})
}

// csvItem is the row format for bulk queue loading.
type csvItem struct {
	Artist  string `csv:"artist"`
	Concept string `csv:"concept"`
	Quality string `csv:"quality"`
	Takes   int    `csv:"takes"`
	Master  bool   `csv:"master"`
}

// AddFile bulk-enqueues items from a csv file with the columns
// artist,concept,quality,takes,master. Quality and takes fall back to
// the given defaults when a cell is empty.
func (s *Store) AddFile(path, defaultQuality string, defaultTakes int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("queue: couldn't open %s: %w", path, err)
	}
	defer f.Close()
	var rows []csvItem
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return 0, fmt.Errorf("queue: couldn't parse %s: %w", path, err)
	}
	var n int
	for _, row := range rows {
		if row.Artist == "" || row.Concept == "" {
			continue
		}
		quality := row.Quality
		if quality == "" {
			quality = defaultQuality
		}
		takes := row.Takes
		if takes == 0 {
			takes = defaultTakes
		}
		if _, err := s.Add(Item{
			Artist:  row.Artist,
			Concept: row.Concept,
			Quality: quality,
			Takes:   takes,
			Master:  row.Master,
		}); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}
