package studio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/museplan/museplan/pkg/acestep"
	"github.com/museplan/museplan/pkg/catalog"
	"github.com/museplan/museplan/pkg/persona"
	"github.com/museplan/museplan/pkg/stats"
	"github.com/museplan/museplan/pkg/template"
)

type fakeGen struct {
	fn      func(prompt string) (string, error)
	prompts []string
}

func (g *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.fn == nil {
		return "[verse]\nfake lyrics\n[chorus]\nfake chorus", nil
	}
	return g.fn(prompt)
}

type fakeRenderer struct {
	dir      string
	requests []*acestep.Request
	fail     func(n int) bool
}

func (r *fakeRenderer) Render(_ context.Context, req *acestep.Request) (string, error) {
	n := len(r.requests)
	r.requests = append(r.requests, req)
	if r.fail != nil && r.fail(n) {
		return "", acestep.ErrNoOutput
	}
	path := filepath.Join(r.dir, fmt.Sprintf("take%d.mp3", n))
	if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

type fixture struct {
	studio   *Studio
	gen      *fakeGen
	renderer *fakeRenderer
	catalog  *catalog.Store
	personas *persona.Store
}

func newFixture(t *testing.T, cfg *Config) *fixture {
	t.Helper()
	dir := t.TempDir()
	store := persona.NewStore(filepath.Join(dir, "artists"), filepath.Join(dir, "genres"))
	for _, p := range []*persona.Persona{
		{Name: "Nova", Personality: "dreamy", Mood: "melancholic", Energy: "low", Genres: []string{"synthwave"}, Tags: "synthwave, dreamy, female vocals", Body: "Nova makes hazy synthwave."},
		{Name: "Rex", Personality: "aggressive", Mood: "angry", Energy: "high", Genres: []string{"metal"}, Tags: "metal, heavy, male vocals", Body: "Rex shreds."},
	} {
		if err := store.Save(p); err != nil {
			t.Fatal(err)
		}
	}
	gen := &fakeGen{}
	renderer := &fakeRenderer{dir: dir}
	cat := catalog.NewStore(filepath.Join(dir, "catalog.json"))
	st := stats.NewStore(filepath.Join(dir, "stats.json"))
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.Personas = store
	if cfg.TextGen == nil {
		cfg.TextGen = gen
	} else {
		gen = cfg.TextGen.(*fakeGen)
	}
	if cfg.Renderer == nil {
		cfg.Renderer = renderer
	} else {
		renderer = cfg.Renderer.(*fakeRenderer)
		renderer.dir = dir
	}
	cfg.Catalog = cat
	cfg.Stats = st
	return &fixture{
		studio:   New(cfg),
		gen:      gen,
		renderer: renderer,
		catalog:  cat,
		personas: store,
	}
}

func TestStandard(t *testing.T) {
	f := newFixture(t, &Config{
		Settings: template.Settings{Quality: "high", Takes: 2, Duration: 120},
		Seed:     42,
	})
	results, err := f.studio.Standard(context.Background(), "nova", "a song about rain")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 results, got %d", len(results))
	}
	if results[0].Song.Mode != "standard" {
		t.Errorf("want mode standard, got %q", results[0].Song.Mode)
	}
	if results[1].Song.Mode != "standard-take-2" {
		t.Errorf("want mode standard-take-2, got %q", results[1].Song.Mode)
	}
	if results[0].Song.Seed != 42 {
		t.Errorf("first take should use the explicit seed, got %d", results[0].Song.Seed)
	}
	if results[1].Song.Seed == 42 {
		t.Error("second take should draw a fresh seed")
	}
	if got := f.renderer.requests[0]; got.Steps != 100 || got.Scheduler != "pingpong" {
		t.Errorf("high preset not applied: %+v", got)
	}
	if f.renderer.requests[0].Tags != "synthwave, dreamy, female vocals" {
		t.Errorf("persona tags not passed through: %q", f.renderer.requests[0].Tags)
	}
	songs, err := f.catalog.List("", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(songs) != 2 {
		t.Fatalf("want 2 cataloged songs, got %d", len(songs))
	}
	if songs[0].ID == songs[1].ID {
		t.Error("song ids must be unique")
	}
}

func TestStandardUnknownPersona(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.studio.Standard(context.Background(), "ghost", "anything")
	if !errors.Is(err, persona.ErrNotFound) {
		t.Fatalf("want persona.ErrNotFound, got %v", err)
	}
	if len(f.renderer.requests) != 0 {
		t.Error("nothing should render for an unknown persona")
	}
}

func TestStandardEmptyLyrics(t *testing.T) {
	gen := &fakeGen{fn: func(string) (string, error) { return "", nil }}
	f := newFixture(t, &Config{TextGen: gen})
	_, err := f.studio.Standard(context.Background(), "nova", "anything")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Fatalf("want ErrEmptyResponse, got %v", err)
	}
}

func TestFailedTakeContinues(t *testing.T) {
	renderer := &fakeRenderer{fail: func(n int) bool { return n == 0 }}
	f := newFixture(t, &Config{
		Renderer: renderer,
		Settings: template.Settings{Quality: "draft", Takes: 2},
	})
	results, err := f.studio.Standard(context.Background(), "nova", "resilience")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 results, got %d", len(results))
	}
	if results[0].Err == nil {
		t.Error("first take should report its failure")
	}
	if results[1].Err != nil {
		t.Errorf("second take should succeed: %v", results[1].Err)
	}
	count, err := f.catalog.Count()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("only the successful take should be cataloged, got %d", count)
	}
}

func TestMasteringSoftFailure(t *testing.T) {
	f := newFixture(t, &Config{
		Settings: template.Settings{Quality: "normal", Master: true},
	})
	f.studio.master = func(_ context.Context, input string) (string, error) {
		return "", errors.New("ffmpeg gone")
	}
	results, err := f.studio.Standard(context.Background(), "nova", "keep going")
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Err != nil {
		t.Fatalf("mastering failure must not fail the take: %v", results[0].Err)
	}
	if strings.Contains(results[0].Song.File, "_mastered") {
		t.Error("unmastered file should be kept on mastering failure")
	}
}

func TestMasteringApplied(t *testing.T) {
	f := newFixture(t, &Config{
		Settings: template.Settings{Quality: "normal", Master: true},
	})
	f.studio.master = func(_ context.Context, input string) (string, error) {
		return input + ".mastered", nil
	}
	results, err := f.studio.Standard(context.Background(), "nova", "polish")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(results[0].Song.File, ".mastered") {
		t.Errorf("mastered path should be cataloged, got %q", results[0].Song.File)
	}
}

func TestCollab(t *testing.T) {
	f := newFixture(t, nil)
	results, err := f.studio.Collab(context.Background(), "nova", "rex", "opposites attract")
	if err != nil {
		t.Fatal(err)
	}
	song := results[0].Song
	if song.Artist != "Nova ft. Rex" {
		t.Errorf("want composite display name, got %q", song.Artist)
	}
	if !strings.Contains(song.Tags, "synthwave") || !strings.Contains(song.Tags, "metal") {
		t.Errorf("collab tags should concatenate both personas: %q", song.Tags)
	}
	if song.Mode != "collab" {
		t.Errorf("want mode collab, got %q", song.Mode)
	}
}

func TestBattle(t *testing.T) {
	f := newFixture(t, nil)
	results, err := f.studio.Battle(context.Background(), "nova", "rex", "same concept")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("want 2 results, got %d", len(results))
	}
	if results[0].Song.Artist != "Nova" || results[1].Song.Artist != "Rex" {
		t.Errorf("battle should render each persona independently: %q vs %q",
			results[0].Song.Artist, results[1].Song.Artist)
	}
	if results[0].Song.Tags == results[1].Song.Tags {
		t.Error("battle must not blend tag sets")
	}
}

func TestVibeMatch(t *testing.T) {
	gen := &fakeGen{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "roster") {
			return "  Nova \n", nil
		}
		return "[verse]\nlyrics", nil
	}}
	f := newFixture(t, &Config{TextGen: gen})
	results, err := f.studio.Vibe(context.Background(), "late night melancholy", "city lights")
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Song.Artist != "Nova" {
		t.Errorf("want Nova, got %q", results[0].Song.Artist)
	}
	if results[0].Song.Mode != "vibe-match" {
		t.Errorf("want mode vibe-match, got %q", results[0].Song.Mode)
	}
}

func TestVibeNoMatch(t *testing.T) {
	gen := &fakeGen{fn: func(string) (string, error) { return "somebody else", nil }}
	f := newFixture(t, &Config{TextGen: gen})
	_, err := f.studio.Vibe(context.Background(), "mood", "concept")
	if !errors.Is(err, persona.ErrNotFound) {
		t.Fatalf("want persona.ErrNotFound, got %v", err)
	}
	count, _ := f.catalog.Count()
	if count != 0 {
		t.Error("no-match must not catalog anything")
	}
}

func TestFusionWithoutGuides(t *testing.T) {
	gen := &fakeGen{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "comma-separated") {
			return "blended, tags, here", nil
		}
		return "[verse]\nblended lyrics", nil
	}}
	f := newFixture(t, &Config{TextGen: gen})
	results, err := f.studio.Fusion(context.Background(), "zydeco", "dubstep", "swamp bass")
	if err != nil {
		t.Fatal(err)
	}
	song := results[0].Song
	if song.Artist != "Fusion (zydeco x dubstep)" {
		t.Errorf("want composite fusion name, got %q", song.Artist)
	}
	if song.Tags != "blended, tags, here" {
		t.Errorf("fusion tags should come from the text backend: %q", song.Tags)
	}
}

func TestSoundAlike(t *testing.T) {
	gen := &fakeGen{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "tag line only") {
			return "indie folk, acoustic, warm vocals", nil
		}
		return "[verse]\nstyled lyrics", nil
	}}
	f := newFixture(t, &Config{TextGen: gen})
	results, err := f.studio.SoundAlike(context.Background(), "Some Singer", "long drives")
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Song.Artist != "Like Some Singer" {
		t.Errorf("want display name Like Some Singer, got %q", results[0].Song.Artist)
	}
	if results[0].Song.Mode != "sound-alike" {
		t.Errorf("want mode sound-alike, got %q", results[0].Song.Mode)
	}
}

func TestRemix(t *testing.T) {
	f := newFixture(t, nil)
	orig, err := f.studio.Standard(context.Background(), "nova", "original concept")
	if err != nil {
		t.Fatal(err)
	}
	id := orig[0].Song.ID
	results, err := f.studio.Remix(context.Background(), id, "rex")
	if err != nil {
		t.Fatal(err)
	}
	remix := results[0].Song
	if remix.Mode != "remix-of-"+id {
		t.Errorf("want mode remix-of-%s, got %q", id, remix.Mode)
	}
	if remix.Lyrics != orig[0].Song.Lyrics {
		t.Error("remix must reuse the original lyrics verbatim")
	}
	if remix.Tags == orig[0].Song.Tags {
		t.Error("remix must use the new persona's tags")
	}
	kept, err := f.catalog.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if kept.Mode != "standard" {
		t.Error("remix must not mutate the original record")
	}
}

func TestReroll(t *testing.T) {
	f := newFixture(t, &Config{Settings: template.Settings{Quality: "normal", Takes: 3}})
	orig, err := f.studio.Standard(context.Background(), "nova", "roll again")
	if err != nil {
		t.Fatal(err)
	}
	before := len(f.renderer.requests)
	id := orig[0].Song.ID
	results, err := f.studio.Reroll(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("reroll renders exactly once, got %d results", len(results))
	}
	if len(f.renderer.requests) != before+1 {
		t.Fatalf("reroll renders exactly once, got %d render calls", len(f.renderer.requests)-before)
	}
	song := results[0].Song
	if song.Mode != "reroll-of-"+id {
		t.Errorf("want mode reroll-of-%s, got %q", id, song.Mode)
	}
	if song.Artist != orig[0].Song.Artist || song.Tags != orig[0].Song.Tags || song.Lyrics != orig[0].Song.Lyrics {
		t.Error("reroll must reuse artist, tags and lyrics verbatim")
	}
	if f.studio.settings.Takes != 3 {
		t.Error("reroll must not clobber the active take count")
	}
}

func TestRerollNotFound(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.studio.Reroll(context.Background(), "1234")
	if !errors.Is(err, catalog.ErrNotFound) {
		t.Fatalf("want catalog.ErrNotFound, got %v", err)
	}
	count, _ := f.catalog.Count()
	if count != 0 {
		t.Error("failed reroll must not append anything")
	}
}

func TestLyricsFirstWithMarkers(t *testing.T) {
	gen := &fakeGen{fn: func(string) (string, error) { return "nova", nil }}
	f := newFixture(t, &Config{TextGen: gen})
	lyrics := "[verse]\nmy own words\n[chorus]\nsing them back"
	results, err := f.studio.LyricsFirst(context.Background(), lyrics)
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Song.Lyrics != lyrics {
		t.Error("marked-up lyrics must pass through untouched")
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("only the persona pick should hit the text backend, got %d calls", len(gen.prompts))
	}
}

func TestLyricsFirstInsertsMarkers(t *testing.T) {
	gen := &fakeGen{fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "section markers") {
			return "[verse]\nplain words", nil
		}
		return "nova", nil
	}}
	f := newFixture(t, &Config{TextGen: gen})
	results, err := f.studio.LyricsFirst(context.Background(), "plain words")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(results[0].Song.Lyrics, "[verse]") {
		t.Errorf("markers should be inserted: %q", results[0].Song.Lyrics)
	}
}

func TestLyricsFirstTruncatesConceptOnRunes(t *testing.T) {
	gen := &fakeGen{fn: func(string) (string, error) { return "nova", nil }}
	f := newFixture(t, &Config{TextGen: gen})
	firstLine := strings.Repeat("ä", 100)
	lyrics := firstLine + "\n[chorus]\nmore words"
	results, err := f.studio.LyricsFirst(context.Background(), lyrics)
	if err != nil {
		t.Fatal(err)
	}
	concept := results[0].Song.Concept
	if !utf8.ValidString(concept) {
		t.Fatalf("concept is not valid utf-8: %q", concept)
	}
	if got := len([]rune(concept)); got != 80 {
		t.Fatalf("concept length = %d runes; want 80", got)
	}
}

func TestSeedFreshWithoutExplicit(t *testing.T) {
	f := newFixture(t, &Config{Settings: template.Settings{Quality: "normal", Takes: 2}})
	if _, err := f.studio.Standard(context.Background(), "nova", "entropy"); err != nil {
		t.Fatal(err)
	}
	if f.renderer.requests[0].Seed == f.renderer.requests[1].Seed {
		t.Error("takes should draw distinct random seeds")
	}
}
