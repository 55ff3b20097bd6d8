package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/museplan/museplan/pkg/queue"
	"github.com/museplan/museplan/pkg/template"
)

// parseArgs splits a command argument string into positional arguments
// and trailing --key value options. Double-quoted segments stay
// together, so multi-word concepts survive.
func parseArgs(raw string) ([]string, map[string]string, error) {
	tokens, err := tokenize(raw)
	if err != nil {
		return nil, nil, err
	}
	var args []string
	opts := map[string]string{}
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if !strings.HasPrefix(t, "--") {
			args = append(args, t)
			continue
		}
		key := strings.TrimPrefix(t, "--")
		if key == "" {
			return nil, nil, fmt.Errorf("empty option name")
		}
		// Flags without a value (--master) and key value pairs
		// (--takes 2) are both accepted.
		if i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "--") {
			opts[key] = tokens[i+1]
			i++
		} else {
			opts[key] = "true"
		}
	}
	return args, opts, nil
}

func tokenize(raw string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuote := false
	for _, r := range raw {
		switch {
		case r == '"':
			if inQuote {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
			inQuote = !inQuote
		case !inQuote && (r == ' ' || r == '\n' || r == '\t'):
			if cur.Len() > 0 {
				tokens = append(tokens, cur.String())
				cur.Reset()
			}
		default:
			cur.WriteRune(r)
		}
	}
	if inQuote {
		return nil, fmt.Errorf("unclosed quote")
	}
	if cur.Len() > 0 {
		tokens = append(tokens, cur.String())
	}
	return tokens, nil
}

// applyOptions mutates the active settings for the chat session.
func (b *bot) applyOptions(opts map[string]string) error {
	settings := b.env.Studio.Settings()
	if err := applySettings(&settings, opts); err != nil {
		return err
	}
	b.env.Studio.ApplySettings(settings)
	return nil
}

func applySettings(settings *template.Settings, opts map[string]string) error {
	for key, value := range opts {
		switch key {
		case "quality":
			settings.Quality = value
		case "takes":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid takes: %s", value)
			}
			settings.Takes = n
		case "master":
			settings.Master = value == "true"
		case "duration":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid duration: %s", value)
			}
			settings.Duration = n
		case "steps":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fmt.Errorf("invalid steps: %s", value)
			}
			settings.Steps = n
		case "scheduler":
			settings.Scheduler = value
		default:
			return fmt.Errorf("unknown option --%s", key)
		}
	}
	return nil
}

func queueItem(artist, concept string, settings template.Settings, opts map[string]string) queue.Item {
	// Option errors fall back to the session settings; the queue item
	// must still be enqueueable from a sloppy message.
	_ = applySettings(&settings, opts)
	return queue.Item{
		Artist:  artist,
		Concept: concept,
		Quality: settings.Quality,
		Takes:   settings.Takes,
		Master:  settings.Master,
	}
}
