package persona

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("persona: not found")

// Persona is an AI artist profile. The structured fields feed the lyric
// prompts and human-facing listings; Tags is the flattened descriptor
// string passed verbatim to the audio renderer and is the authoritative
// rendering input.
type Persona struct {
	Name        string   `yaml:"name"`
	AltName     string   `yaml:"alt_name,omitempty"`
	Personality string   `yaml:"personality,omitempty"`
	Mood        string   `yaml:"mood,omitempty"`
	Energy      string   `yaml:"energy,omitempty"`
	Genres      []string `yaml:"genres,omitempty"`
	Instruments []string `yaml:"instruments,omitempty"`
	Themes      []string `yaml:"themes,omitempty"`
	BPMLow      int      `yaml:"bpm_low,omitempty"`
	BPMHigh     int      `yaml:"bpm_high,omitempty"`
	VocalStyle  string   `yaml:"vocal_style,omitempty"`
	VocalGender string   `yaml:"vocal_gender,omitempty"`
	Tags        string   `yaml:"tags"`

	// Body is the free-text section below the front-matter.
	Body string `yaml:"-"`
}

// Key is the normalized identifier used for filenames and lookups.
func Key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Store reads and writes persona and genre-guide files. Personas are
// markdown documents with a YAML front-matter block, one file per artist.
// Genre guides are free-text markdown, one file per genre.
type Store struct {
	artistsDir string
	genresDir  string
}

func NewStore(artistsDir, genresDir string) *Store {
	return &Store{
		artistsDir: artistsDir,
		genresDir:  genresDir,
	}
}

func (s *Store) Get(name string) (*Persona, error) {
	path := filepath.Join(s.artistsDir, Key(name)+".md")
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: artist %q", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("persona: couldn't read %s: %w", path, err)
	}
	p, err := Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("persona: couldn't parse %s: %w", path, err)
	}
	if p.Name == "" {
		p.Name = Key(name)
	}
	return p, nil
}

func (s *Store) Save(p *Persona) error {
	if p.Name == "" {
		return errors.New("persona: name is empty")
	}
	if err := os.MkdirAll(s.artistsDir, 0755); err != nil {
		return fmt.Errorf("persona: couldn't create artists folder: %w", err)
	}
	path := filepath.Join(s.artistsDir, Key(p.Name)+".md")
	if err := os.WriteFile(path, []byte(Render(p)), 0644); err != nil {
		return fmt.Errorf("persona: couldn't write %s: %w", path, err)
	}
	return nil
}

// List returns all personas sorted by name.
func (s *Store) List() ([]*Persona, error) {
	entries, err := os.ReadDir(s.artistsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persona: couldn't read artists folder: %w", err)
	}
	var ps []*Persona
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".md")
		p, err := s.Get(name)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		return Key(ps[i].Name) < Key(ps[j].Name)
	})
	return ps, nil
}

// Roster builds the textual summary used when the text backend has to
// pick a persona (vibe and lyrics-first modes).
func (s *Store) Roster() (string, error) {
	ps, err := s.List()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, p := range ps {
		fmt.Fprintf(&sb, "- %s: personality=%s, mood=%s, energy=%s, genres=%s\n",
			Key(p.Name), p.Personality, p.Mood, p.Energy, strings.Join(p.Genres, "/"))
	}
	return sb.String(), nil
}

// GuideFor returns the genre guide whose filename contains the given
// genre name. A missing guide is not an error: fusion mode renders with
// empty reference context.
func (s *Store) GuideFor(genre string) (string, error) {
	entries, err := os.ReadDir(s.genresDir)
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("persona: couldn't read genres folder: %w", err)
	}
	key := Key(genre)
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		name := strings.TrimSuffix(e.Name(), ".md")
		if !strings.Contains(name, key) && !strings.Contains(key, name) {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.genresDir, e.Name()))
		if err != nil {
			return "", fmt.Errorf("persona: couldn't read guide %s: %w", e.Name(), err)
		}
		return string(b), nil
	}
	return "", nil
}

func (s *Store) SaveGuide(name, content string) error {
	if err := os.MkdirAll(s.genresDir, 0755); err != nil {
		return fmt.Errorf("persona: couldn't create genres folder: %w", err)
	}
	path := filepath.Join(s.genresDir, Key(name)+".md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("persona: couldn't write guide %s: %w", path, err)
	}
	return nil
}

func (s *Store) ListGuides() ([]string, error) {
	entries, err := os.ReadDir(s.genresDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("persona: couldn't read genres folder: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".md"))
	}
	sort.Strings(names)
	return names, nil
}

// Parse splits a persona document into YAML front-matter and body.
// Documents without a front-matter block yield a persona whose Body is
// the whole content.
func Parse(content string) (*Persona, error) {
	var p Persona
	if !strings.HasPrefix(content, "---") {
		p.Body = strings.TrimSpace(content)
		return &p, nil
	}
	parts := strings.SplitN(content, "---", 3)
	if len(parts) < 3 {
		p.Body = strings.TrimSpace(content)
		return &p, nil
	}
	if err := yaml.Unmarshal([]byte(parts[1]), &p); err != nil {
		return nil, fmt.Errorf("persona: couldn't unmarshal front-matter: %w", err)
	}
	p.Body = strings.TrimSpace(parts[2])
	return &p, nil
}

// Render serializes a persona back to its file format.
func Render(p *Persona) string {
	b, err := yaml.Marshal(p)
	if err != nil {
		// Marshalling a plain struct can only fail on unsupported types.
		panic(fmt.Sprintf("persona: couldn't marshal: %v", err))
	}
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(b)
	sb.WriteString("---\n")
	if p.Body != "" {
		sb.WriteString("\n")
		sb.WriteString(p.Body)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Display returns the human-facing artist name, preferring the alternate
// name when set.
func (p *Persona) Display() string {
	if p.AltName != "" {
		return p.AltName
	}
	return p.Name
}
