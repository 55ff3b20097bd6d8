package acestep

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestParseOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
	}{
		{"plain", "loading model\nAUDIO_FILE=/tmp/out.mp3\ndone", "/tmp/out.mp3"},
		{"prefixed", "[INFO] AUDIO_FILE=/tmp/out.flac", "/tmp/out.flac"},
		{"trailing space", "AUDIO_FILE=/tmp/out.mp3  ", "/tmp/out.mp3"},
		{"missing", "loading model\ndone", ""},
		{"empty path", "AUDIO_FILE=\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseOutput(tt.output); got != tt.want {
				t.Fatalf("parseOutput() = %q; want %q", got, tt.want)
			}
		})
	}
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "renderer.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRender(t *testing.T) {
	out := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(out, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}
	script := writeScript(t, fmt.Sprintf("echo rendering\necho AUDIO_FILE=%s\n", out))

	r := New(&Config{Bin: script})
	got, err := r.Render(context.Background(), &Request{
		Tags: "synthwave", Lyrics: "[verse]", Duration: 120,
		Steps: 60, Format: "mp3", Scheduler: "euler", Seed: 42,
	})
	if err != nil {
		t.Fatalf("Render() err = %v; want nil", err)
	}
	if got != out {
		t.Fatalf("Render() = %q; want %q", got, out)
	}
}

func TestRenderNonZeroExitWithFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(out, []byte("audio"), 0644); err != nil {
		t.Fatal(err)
	}
	script := writeScript(t, fmt.Sprintf("echo AUDIO_FILE=%s\nexit 3\n", out))

	r := New(&Config{Bin: script})
	got, err := r.Render(context.Background(), &Request{Seed: 1})
	if err != nil {
		t.Fatalf("Render() err = %v; want nil despite non-zero exit", err)
	}
	if got != out {
		t.Fatalf("Render() = %q; want %q", got, out)
	}
}

func TestRenderNoMarker(t *testing.T) {
	script := writeScript(t, "echo done\n")
	r := New(&Config{Bin: script})
	if _, err := r.Render(context.Background(), &Request{Seed: 1}); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("Render() err = %v; want ErrNoOutput", err)
	}
}

func TestRenderMissingFile(t *testing.T) {
	script := writeScript(t, "echo AUDIO_FILE=/nonexistent/song.mp3\n")
	r := New(&Config{Bin: script})
	if _, err := r.Render(context.Background(), &Request{Seed: 1}); !errors.Is(err, ErrNoOutput) {
		t.Fatalf("Render() err = %v; want ErrNoOutput", err)
	}
}
