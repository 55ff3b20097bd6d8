package studio

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/museplan/museplan/pkg/persona"
	"github.com/museplan/museplan/pkg/queue"
)

// guideFor wraps the genre guide lookup with soft failure: reference
// context is optional everywhere it is used.
func (s *Studio) guideFor(p *persona.Persona) string {
	if len(p.Genres) == 0 {
		return ""
	}
	guide, err := s.personas.GuideFor(p.Genres[0])
	if err != nil {
		s.log("studio: couldn't load genre guide: %v", err)
		return ""
	}
	return guide
}

// Standard generates a song for one persona and one concept.
func (s *Studio) Standard(ctx context.Context, artist, concept string) ([]Result, error) {
	p, err := s.personas.Get(artist)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, &job{
		Display: p.Display(),
		Tags:    p.Tags,
		Concept: concept,
		Prompt:  lyricsPrompt(p, concept, s.guideFor(p)),
		Mode:    "standard",
	})
}

// Collab generates a duet: concatenated tag sets, split song structure.
func (s *Studio) Collab(ctx context.Context, artist1, artist2, concept string) ([]Result, error) {
	p1, err := s.personas.Get(artist1)
	if err != nil {
		return nil, err
	}
	p2, err := s.personas.Get(artist2)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, &job{
		Display: fmt.Sprintf("%s ft. %s", p1.Display(), p2.Display()),
		Tags:    p1.Tags + ", " + p2.Tags,
		Concept: concept,
		Prompt:  collabPrompt(p1, p2, concept),
		Mode:    "collab",
	})
}

// Battle renders the same concept once per persona, independently.
func (s *Studio) Battle(ctx context.Context, artist1, artist2, concept string) ([]Result, error) {
	var all []Result
	for _, artist := range []string{artist1, artist2} {
		p, err := s.personas.Get(artist)
		if err != nil {
			return all, err
		}
		results, err := s.render(ctx, &job{
			Display: p.Display(),
			Tags:    p.Tags,
			Concept: concept,
			Prompt:  lyricsPrompt(p, concept, s.guideFor(p)),
			Mode:    "battle",
		})
		all = append(all, results...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

var trackRe = regexp.MustCompile(`^TRACK_(\d+):\s*(.+)$`)
var numberedRe = regexp.MustCompile(`^\s*\d+[.)]\s+(.+)$`)

// parseTracks extracts the album title and track concepts from the
// planner response. Exact TRACK_N prefixes are tried first; a numbered
// list is accepted as fallback when no TRACK_N line matched.
func parseTracks(response string) (title string, tracks []string) {
	lines := strings.Split(response, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "ALBUM:"); ok {
			title = strings.TrimSpace(rest)
			continue
		}
		if m := trackRe.FindStringSubmatch(line); m != nil {
			tracks = append(tracks, strings.TrimSpace(m[2]))
		}
	}
	if len(tracks) > 0 {
		return title, tracks
	}
	for _, line := range lines {
		if m := numberedRe.FindStringSubmatch(line); m != nil {
			tracks = append(tracks, strings.TrimSpace(m[1]))
		}
	}
	return title, tracks
}

// Album plans a track list for the theme and renders each track as an
// independent run. A plan with zero parseable tracks is fatal; a
// partial plan renders the tracks that did parse.
func (s *Studio) Album(ctx context.Context, artist, theme string) ([]Result, error) {
	p, err := s.personas.Get(artist)
	if err != nil {
		return nil, err
	}
	response, err := s.textgen.Generate(ctx, albumPrompt(p, theme))
	if err != nil {
		return nil, fmt.Errorf("studio: couldn't plan album: %w", err)
	}
	title, tracks := parseTracks(response)
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: no tracks parsed from album plan", ErrEmptyResponse)
	}
	if title != "" {
		s.log("studio: album %q, %d tracks", title, len(tracks))
	}
	guide := s.guideFor(p)
	var all []Result
	for i, track := range tracks {
		concept := track
		if title != "" {
			concept = fmt.Sprintf("%s (from the album %q)", track, title)
		}
		results, err := s.render(ctx, &job{
			Display: p.Display(),
			Tags:    p.Tags,
			Concept: concept,
			Prompt:  lyricsPrompt(p, concept, guide),
			Mode:    fmt.Sprintf("album-track-%d", i+1),
		})
		all = append(all, results...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

// pick asks the text backend to choose a persona from the roster. The
// response is trimmed and lowercased and must exactly match an existing
// persona key.
func (s *Studio) pick(ctx context.Context, want string) (*persona.Persona, error) {
	roster, err := s.personas.Roster()
	if err != nil {
		return nil, err
	}
	if roster == "" {
		return nil, fmt.Errorf("%w: no personas to choose from", persona.ErrNotFound)
	}
	response, err := s.textgen.Generate(ctx, pickPrompt(roster, want))
	if err != nil {
		return nil, fmt.Errorf("studio: couldn't pick persona: %w", err)
	}
	key := strings.ToLower(strings.TrimSpace(response))
	if key == "" {
		return nil, fmt.Errorf("%w: persona selection", ErrEmptyResponse)
	}
	p, err := s.personas.Get(key)
	if err != nil {
		return nil, fmt.Errorf("studio: no match for selection %q: %w", key, err)
	}
	return p, nil
}

// Vibe picks the persona best matching the mood and renders the concept
// with it.
func (s *Studio) Vibe(ctx context.Context, mood, concept string) ([]Result, error) {
	p, err := s.pick(ctx, fmt.Sprintf("Pick the one artist whose style best matches this mood: %s", mood))
	if err != nil {
		return nil, err
	}
	return s.render(ctx, &job{
		Display: p.Display(),
		Tags:    p.Tags,
		Concept: concept,
		Prompt:  lyricsPrompt(p, concept, s.guideFor(p)),
		Mode:    "vibe-match",
	})
}

// Fusion blends two genres into a synthetic style. Missing genre guides
// leave the reference context empty, they are not fatal.
func (s *Studio) Fusion(ctx context.Context, genre1, genre2, concept string) ([]Result, error) {
	guide1, err := s.personas.GuideFor(genre1)
	if err != nil {
		s.log("studio: couldn't load guide for %q: %v", genre1, err)
	}
	guide2, err := s.personas.GuideFor(genre2)
	if err != nil {
		s.log("studio: couldn't load guide for %q: %v", genre2, err)
	}
	tags, err := s.textgen.Generate(ctx, fusionTagsPrompt(genre1, genre2, guide1, guide2))
	if err != nil {
		return nil, fmt.Errorf("studio: couldn't generate fusion tags: %w", err)
	}
	tags = strings.TrimSpace(tags)
	if tags == "" {
		return nil, fmt.Errorf("%w: fusion tags", ErrEmptyResponse)
	}
	return s.render(ctx, &job{
		Display: fmt.Sprintf("Fusion (%s x %s)", genre1, genre2),
		Tags:    tags,
		Concept: concept,
		Prompt:  fusionLyricsPrompt(genre1, genre2, concept),
		Mode:    "fusion",
	})
}

// SoundAlike infers tags and lyrics in the style of a real artist.
func (s *Studio) SoundAlike(ctx context.Context, artist, concept string) ([]Result, error) {
	tags, err := s.textgen.Generate(ctx, soundAlikeTagsPrompt(artist))
	if err != nil {
		return nil, fmt.Errorf("studio: couldn't infer style tags: %w", err)
	}
	tags = strings.TrimSpace(tags)
	if tags == "" {
		return nil, fmt.Errorf("%w: style tags for %q", ErrEmptyResponse, artist)
	}
	return s.render(ctx, &job{
		Display: fmt.Sprintf("Like %s", artist),
		Tags:    tags,
		Concept: concept,
		Prompt:  soundAlikeLyricsPrompt(artist, concept),
		Mode:    "sound-alike",
	})
}

// Remix reuses an existing song's lyrics and concept with a different
// persona's tags. The original record is never touched.
func (s *Studio) Remix(ctx context.Context, songID, artist string) ([]Result, error) {
	song, err := s.catalog.Get(songID)
	if err != nil {
		return nil, err
	}
	p, err := s.personas.Get(artist)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, &job{
		Display: p.Display(),
		Tags:    p.Tags,
		Concept: song.Concept,
		Lyrics:  song.Lyrics,
		Mode:    fmt.Sprintf("remix-of-%s", song.ID),
	})
}

// Reroll renders an existing song again with a fresh seed. Artist,
// concept, lyrics and tags are reused verbatim and a new record is
// appended.
func (s *Studio) Reroll(ctx context.Context, songID string) ([]Result, error) {
	song, err := s.catalog.Get(songID)
	if err != nil {
		return nil, err
	}
	// One render with a fresh seed regardless of the active take count
	// or explicit seed.
	saved := s.settings.Takes
	savedSeed := s.seed
	s.settings.Takes = 1
	s.seed = 0
	defer func() {
		s.settings.Takes = saved
		s.seed = savedSeed
	}()
	return s.render(ctx, &job{
		Display: song.Artist,
		Tags:    song.Tags,
		Concept: song.Concept,
		Lyrics:  song.Lyrics,
		Mode:    fmt.Sprintf("reroll-of-%s", song.ID),
	})
}

var sectionRe = regexp.MustCompile(`(?i)\[(verse|chorus|bridge|intro|outro|hook|pre-chorus)`)

// LyricsFirst renders user-supplied lyrics with the best-matching
// persona. Lyrics without section markers get them inserted by a second
// text-generation call; the content must otherwise stay unchanged.
func (s *Studio) LyricsFirst(ctx context.Context, lyrics string) ([]Result, error) {
	p, err := s.pick(ctx, "Pick the one artist whose style best matches these lyrics:\n"+lyrics)
	if err != nil {
		return nil, err
	}
	if !sectionRe.MatchString(lyrics) {
		s.log("studio: inserting section markers")
		marked, err := s.textgen.Generate(ctx, sectionMarkerPrompt(lyrics))
		if err != nil {
			return nil, fmt.Errorf("studio: couldn't insert section markers: %w", err)
		}
		if marked != "" {
			lyrics = marked
		}
	}
	concept := strings.TrimSpace(strings.Split(lyrics, "\n")[0])
	// Truncate on rune boundaries, first lines are user input.
	if r := []rune(concept); len(r) > 80 {
		concept = string(r[:80])
	}
	return s.render(ctx, &job{
		Display: p.Display(),
		Tags:    p.Tags,
		Concept: concept,
		Lyrics:  lyrics,
		Mode:    "lyrics-first",
	})
}

// RunQueueItem applies the item's parameter snapshot and executes a
// standard run for it. The previous settings stay replaced, queue runs
// are batch operations.
func (s *Studio) RunQueueItem(ctx context.Context, item *queue.Item) ([]Result, error) {
	settings := s.settings
	settings.Quality = item.Quality
	settings.Takes = item.Takes
	settings.Master = item.Master
	s.ApplySettings(settings)

	p, err := s.personas.Get(item.Artist)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, &job{
		Display: p.Display(),
		Tags:    p.Tags,
		Concept: item.Concept,
		Prompt:  lyricsPrompt(p, item.Concept, s.guideFor(p)),
		Mode:    "queue",
		Quality: item.Quality,
	})
}

// NewPersona synthesizes a persona document from a free-form
// description and saves it.
func (s *Studio) NewPersona(ctx context.Context, name, description string) (*persona.Persona, error) {
	response, err := s.textgen.Generate(ctx, personaPrompt(name, description))
	if err != nil {
		return nil, fmt.Errorf("studio: couldn't synthesize persona: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("%w: persona document", ErrEmptyResponse)
	}
	p, err := persona.Parse(response)
	if err != nil {
		return nil, fmt.Errorf("studio: couldn't parse persona document: %w", err)
	}
	if p.Name == "" {
		p.Name = name
	}
	if err := s.personas.Save(p); err != nil {
		return nil, err
	}
	return p, nil
}

// NewGenre synthesizes a genre guide from a free-form description and
// saves it.
func (s *Studio) NewGenre(ctx context.Context, name, description string) (string, error) {
	response, err := s.textgen.Generate(ctx, genrePrompt(name, description))
	if err != nil {
		return "", fmt.Errorf("studio: couldn't synthesize genre guide: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return "", fmt.Errorf("%w: genre guide", ErrEmptyResponse)
	}
	if err := s.personas.SaveGuide(name, response); err != nil {
		return "", err
	}
	return response, nil
}
