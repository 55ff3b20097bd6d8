package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("template: not found")

// Settings is the full active parameter set. Loading a template replaces
// it wholesale; there are no merge semantics.
type Settings struct {
	Quality   string `json:"quality"`
	Steps     int    `json:"steps"`
	Scheduler string `json:"scheduler"`
	Format    string `json:"format"`
	Duration  int    `json:"duration"`
	Takes     int    `json:"takes"`
	Master    bool   `json:"master"`
}

// Store keeps one JSON file per named template under a directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, strings.ToLower(strings.TrimSpace(name))+".json")
}

// Save writes the snapshot, silently overwriting an existing template of
// the same name.
func (s *Store) Save(name string, settings Settings) error {
	if name == "" {
		return errors.New("template: name is empty")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("template: couldn't create folder: %w", err)
	}
	b, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("template: couldn't marshal %s: %w", name, err)
	}
	if err := os.WriteFile(s.path(name), b, 0644); err != nil {
		return fmt.Errorf("template: couldn't write %s: %w", name, err)
	}
	return nil
}

func (s *Store) Load(name string) (*Settings, error) {
	b, err := os.ReadFile(s.path(name))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: template %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("template: couldn't read %s: %w", name, err)
	}
	var settings Settings
	if err := json.Unmarshal(b, &settings); err != nil {
		return nil, fmt.Errorf("template: couldn't unmarshal %s: %w", name, err)
	}
	return &settings, nil
}

func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("template: couldn't read folder: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Summary renders a settings snapshot as the text block shown by the CLI.
func (t *Settings) Summary() string {
	master := "off"
	if t.Master {
		master = "on"
	}
	return fmt.Sprintf("quality=%s steps=%d scheduler=%s format=%s duration=%ds takes=%d master=%s",
		t.Quality, t.Steps, t.Scheduler, t.Format, t.Duration, t.Takes, master)
}
