package studio

import (
	"fmt"
	"strings"

	"github.com/museplan/museplan/pkg/persona"
)

func lyricsPrompt(p *persona.Persona, concept, guide string) string {
	var b strings.Builder
	b.WriteString("You are a songwriter. Write complete song lyrics with section markers like [verse], [chorus], [bridge].\n")
	fmt.Fprintf(&b, "Artist profile:\n%s\n", p.Body)
	if guide != "" {
		fmt.Fprintf(&b, "Genre reference:\n%s\n", guide)
	}
	fmt.Fprintf(&b, "Song concept: %s\n", concept)
	b.WriteString("Respond with the lyrics only, no commentary.")
	return b.String()
}

func collabPrompt(p1, p2 *persona.Persona, concept string) string {
	var b strings.Builder
	b.WriteString("You are a songwriter. Write a duet with section markers like [verse], [chorus], [bridge].\n")
	fmt.Fprintf(&b, "Artist 1 profile:\n%s\n", p1.Body)
	fmt.Fprintf(&b, "Artist 2 profile:\n%s\n", p2.Body)
	fmt.Fprintf(&b, "Structure: %s sings verse 1 and leads the chorus, %s sings verse 2 and the bridge, both share the final chorus.\n", p1.Display(), p2.Display())
	fmt.Fprintf(&b, "Song concept: %s\n", concept)
	b.WriteString("Respond with the lyrics only, no commentary.")
	return b.String()
}

func albumPrompt(p *persona.Persona, theme string) string {
	var b strings.Builder
	b.WriteString("Plan a 5-track concept album.\n")
	fmt.Fprintf(&b, "Artist profile:\n%s\n", p.Body)
	fmt.Fprintf(&b, "Album theme: %s\n", theme)
	b.WriteString("Respond in exactly this format, one line each, no commentary:\n")
	b.WriteString("ALBUM: <album title>\n")
	b.WriteString("TRACK_1: <song concept>\n")
	b.WriteString("TRACK_2: <song concept>\n")
	b.WriteString("TRACK_3: <song concept>\n")
	b.WriteString("TRACK_4: <song concept>\n")
	b.WriteString("TRACK_5: <song concept>")
	return b.String()
}

func pickPrompt(roster, want string) string {
	var b strings.Builder
	b.WriteString("Here is a roster of artists:\n")
	b.WriteString(roster)
	b.WriteString("\n")
	b.WriteString(want)
	b.WriteString("\nRespond with the artist name only, exactly as written in the roster, nothing else.")
	return b.String()
}

func fusionTagsPrompt(g1, g2, guide1, guide2 string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Blend the genres %q and %q into a single style.\n", g1, g2)
	if guide1 != "" {
		fmt.Fprintf(&b, "Reference for %s:\n%s\n", g1, guide1)
	}
	if guide2 != "" {
		fmt.Fprintf(&b, "Reference for %s:\n%s\n", g2, guide2)
	}
	b.WriteString("Respond with a single comma-separated line of music generation tags describing the blended style, nothing else.")
	return b.String()
}

func fusionLyricsPrompt(g1, g2, concept string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write song lyrics that blend the lyrical conventions of %s and %s.\n", g1, g2)
	b.WriteString("Use section markers like [verse], [chorus], [bridge].\n")
	fmt.Fprintf(&b, "Song concept: %s\n", concept)
	b.WriteString("Respond with the lyrics only, no commentary.")
	return b.String()
}

func soundAlikeTagsPrompt(artist string) string {
	return fmt.Sprintf("Describe the musical style of %s as a single comma-separated line of music generation tags (genre, instruments, mood, vocal style). Respond with the tag line only, nothing else.", artist)
}

func soundAlikeLyricsPrompt(artist, concept string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write song lyrics in the style of %s. Match their themes and phrasing without copying existing songs.\n", artist)
	b.WriteString("Use section markers like [verse], [chorus], [bridge].\n")
	fmt.Fprintf(&b, "Song concept: %s\n", concept)
	b.WriteString("Respond with the lyrics only, no commentary.")
	return b.String()
}

func sectionMarkerPrompt(lyrics string) string {
	var b strings.Builder
	b.WriteString("Insert song section markers like [verse], [chorus], [bridge] into these lyrics. Do not change, add or remove any other text.\n")
	b.WriteString("Lyrics:\n")
	b.WriteString(lyrics)
	b.WriteString("\nRespond with the marked-up lyrics only, no commentary.")
	return b.String()
}

func personaPrompt(name, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invent a fictional music artist called %q based on this description: %s\n", name, description)
	b.WriteString("Respond in exactly this format, no commentary:\n")
	b.WriteString("---\n")
	b.WriteString("name: <name>\n")
	b.WriteString("personality: <one line>\n")
	b.WriteString("mood: <one or two words>\n")
	b.WriteString("energy: <low, medium or high>\n")
	b.WriteString("genres: [<genre>, <genre>]\n")
	b.WriteString("instruments: [<instrument>, <instrument>]\n")
	b.WriteString("themes: [<theme>, <theme>]\n")
	b.WriteString("bpm_low: <int>\n")
	b.WriteString("bpm_high: <int>\n")
	b.WriteString("vocal_style: <one line>\n")
	b.WriteString("vocal_gender: <male, female or mixed>\n")
	b.WriteString("tags: <comma-separated music generation tags>\n")
	b.WriteString("---\n")
	b.WriteString("<a short free-form profile of the artist>")
	return b.String()
}

func genrePrompt(name, description string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Write a reference guide for the music genre %q based on this description: %s\n", name, description)
	b.WriteString("Cover typical instrumentation, rhythm, production style, vocal delivery and lyrical conventions, plus a comma-separated line of music generation tags.\n")
	b.WriteString("Respond with the guide only, no commentary.")
	return b.String()
}
