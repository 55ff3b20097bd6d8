package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "songs.json"))
}

func song(id, artist, concept string) Song {
	return Song{
		ID: id, Artist: artist, Concept: concept,
		Lyrics: "[verse]\nla la", Tags: "synthwave", Mode: "standard",
		Seed: 42, Quality: "normal", Date: "2026-08-30 12:00:0" + id[len(id)-1:],
	}
}

func TestAppendGet(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(song("100", "nova", "city lights")); err != nil {
		t.Fatalf("Append() err = %v", err)
	}
	got, err := s.Get("100")
	if err != nil {
		t.Fatalf("Get() err = %v", err)
	}
	if got.Artist != "nova" || got.Concept != "city lights" {
		t.Fatalf("Get() = %+v", got)
	}
	if _, err := s.Get("999"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) err = %v; want ErrNotFound", err)
	}
}

func TestListFilters(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 3; i++ {
		sg := song(fmt.Sprintf("10%d", i), "nova", "city lights")
		if i == 1 {
			sg.Artist = "rust"
			sg.Concept = "diesel highway"
		}
		if err := s.Append(sg); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.List("", "")
	if err != nil {
		t.Fatalf("List() err = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() = %d songs; want 3", len(all))
	}
	// Newest first.
	if all[0].ID != "102" {
		t.Errorf("List()[0].ID = %s; want 102", all[0].ID)
	}

	byArtist, err := s.List("rust", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(byArtist) != 1 || byArtist[0].ID != "101" {
		t.Fatalf("List(rust) = %+v", byArtist)
	}

	bySearch, err := s.List("", "DIESEL")
	if err != nil {
		t.Fatal(err)
	}
	if len(bySearch) != 1 {
		t.Fatalf("List(search) = %d songs; want 1", len(bySearch))
	}
}

func TestListLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 25; i++ {
		if err := s.Append(song(fmt.Sprintf("1%03d", i), "nova", "x")); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.List("", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 20 {
		t.Fatalf("List() = %d songs; want 20", len(got))
	}
}

func TestSetRating(t *testing.T) {
	s := newTestStore(t)
	if err := s.Append(song("100", "nova", "x")); err != nil {
		t.Fatal(err)
	}

	if err := s.SetRating("100", 0); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("SetRating(0) err = %v; want ErrInvalidRating", err)
	}
	if err := s.SetRating("100", 6); !errors.Is(err, ErrInvalidRating) {
		t.Fatalf("SetRating(6) err = %v; want ErrInvalidRating", err)
	}
	if err := s.SetRating("999", 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("SetRating(missing) err = %v; want ErrNotFound", err)
	}

	if err := s.SetRating("100", 4); err != nil {
		t.Fatalf("SetRating() err = %v", err)
	}
	// Re-rating overwrites, never duplicates.
	if err := s.SetRating("100", 2); err != nil {
		t.Fatalf("SetRating() err = %v", err)
	}
	got, err := s.Get("100")
	if err != nil {
		t.Fatal(err)
	}
	if got.Rating != 2 {
		t.Errorf("Rating = %d; want 2", got.Rating)
	}
	n, err := s.Count()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Count() = %d; want 1", n)
	}
}

func TestTopRated(t *testing.T) {
	s := newTestStore(t)
	ids := []string{"101", "102", "103", "104"}
	for _, id := range ids {
		if err := s.Append(song(id, "nova", "x")); err != nil {
			t.Fatal(err)
		}
	}
	_ = s.SetRating("102", 5)
	_ = s.SetRating("103", 3)
	_ = s.SetRating("104", 5)

	top, err := s.TopRated()
	if err != nil {
		t.Fatalf("TopRated() err = %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("TopRated() = %d songs; want 3", len(top))
	}
	// Rating desc, then date asc as tiebreak.
	if top[0].ID != "102" || top[1].ID != "104" || top[2].ID != "103" {
		t.Fatalf("TopRated() order = %s,%s,%s", top[0].ID, top[1].ID, top[2].ID)
	}
}

func TestNewID(t *testing.T) {
	now := time.Now()
	a := NewID(now)
	b := NewID(now)
	if a == b {
		t.Fatalf("NewID() returned duplicate id %s for same instant", a)
	}
	if b <= a {
		t.Fatalf("NewID() not increasing: %s then %s", a, b)
	}
}
