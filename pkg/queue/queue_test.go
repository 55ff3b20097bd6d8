package queue

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "queue.json"))
}

func TestFIFO(t *testing.T) {
	s := newTestStore(t)
	for _, concept := range []string{"first", "second", "third"} {
		if _, err := s.Add(Item{Artist: "nova", Concept: concept, Quality: "normal", Takes: 1}); err != nil {
			t.Fatalf("Add() err = %v", err)
		}
	}

	items, err := s.List()
	if err != nil {
		t.Fatalf("List() err = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("List() = %d items; want 3", len(items))
	}

	var order []string
	for {
		item, err := s.Peek()
		if errors.Is(err, ErrEmpty) {
			break
		}
		if err != nil {
			t.Fatalf("Peek() err = %v", err)
		}
		order = append(order, item.Concept)
		if err := s.RemoveFirst(); err != nil {
			t.Fatalf("RemoveFirst() err = %v", err)
		}
	}
	want := []string{"first", "second", "third"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("drain order = %v; want %v", order, want)
		}
	}

	if _, err := s.Peek(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Peek() after drain err = %v; want ErrEmpty", err)
	}
}

func TestPeekCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	s := NewStore(path)
	_, err := s.Peek()
	if err == nil {
		t.Fatal("Peek() err = nil; want error on corrupt file")
	}
	// Callers drain until ErrEmpty; a broken store must not read as
	// drained.
	if errors.Is(err, ErrEmpty) {
		t.Fatalf("Peek() err = %v; want anything but ErrEmpty", err)
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Add(Item{Artist: "nova", Concept: "x", Quality: "draft", Takes: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() err = %v", err)
	}
	items, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 0 {
		t.Fatalf("List() after Clear = %d items; want 0", len(items))
	}
}

func TestAddFile(t *testing.T) {
	s := newTestStore(t)
	csv := "artist,concept,quality,takes,master\n" +
		"nova,city lights,high,2,true\n" +
		"rust,diesel highway,,,\n"
	path := filepath.Join(t.TempDir(), "jobs.csv")
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	n, err := s.AddFile(path, "normal", 1)
	if err != nil {
		t.Fatalf("AddFile() err = %v", err)
	}
	if n != 2 {
		t.Fatalf("AddFile() = %d; want 2", n)
	}
	items, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	if items[0].Quality != "high" || items[0].Takes != 2 || !items[0].Master {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Quality != "normal" || items[1].Takes != 1 || items[1].Master {
		t.Errorf("items[1] = %+v; want defaults applied", items[1])
	}
}
