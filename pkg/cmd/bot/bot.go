package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"github.com/museplan/museplan/pkg/catalog"
	"github.com/museplan/museplan/pkg/cmd/generate"
	"github.com/museplan/museplan/pkg/queue"
	"github.com/museplan/museplan/pkg/studio"
)

type Config struct {
	generate.Config

	Token   string
	Allowed string
}

const help = `Commands:
/generate <artist> "<concept>"
/collab <artist1> <artist2> "<concept>"
/battle <artist1> <artist2> "<concept>"
/album <artist> "<theme>"
/vibe "<mood>" "<concept>"
/fusion <genre1> <genre2> "<concept>"
/like "<real artist>" "<concept>"
/remix <song-id> <artist>
/reroll <song-id>
/lyrics <your lyrics>
/artists, /artist <name>, /newartist <name> "<description>", /newgenre <name> "<description>"
/catalog [artist], /top, /search <term>, /rate <song-id> <1-5>
/stats [artist]
/queue, /qadd <artist> "<concept>", /qrun, /qclear
/templates, /tsave <name>, /tload <name>

Options on generation commands: --quality draft|normal|high|ultra --takes N --master --duration N --steps N --scheduler name`

// Run starts the long-polling bot. One generation runs at a time per
// chat; parameter options persist for the chat session.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Token == "" {
		return fmt.Errorf("bot: token is required")
	}
	env, err := generate.NewEnv(&cfg.Config)
	if err != nil {
		return err
	}

	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return fmt.Errorf("bot: couldn't connect: %w", err)
	}
	api.Debug = cfg.Debug
	log.Printf("bot: authorized as %s\n", api.Self.UserName)

	allowed := map[int64]bool{}
	for _, s := range strings.Split(cfg.Allowed, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("bot: invalid chat id %q", s)
		}
		allowed[id] = true
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates, err := api.GetUpdatesChan(u)
	if err != nil {
		return fmt.Errorf("bot: couldn't start polling: %w", err)
	}
	defer api.StopReceivingUpdates()

	b := &bot{
		api:     api,
		env:     env,
		allowed: allowed,
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			msg := update.Message
			if msg == nil || !msg.IsCommand() {
				continue
			}
			if len(b.allowed) > 0 && !b.allowed[msg.Chat.ID] {
				continue
			}
			go b.handle(ctx, msg)
		}
	}
}

type bot struct {
	api     *tgbotapi.BotAPI
	env     *generate.Env
	allowed map[int64]bool

	// gen serializes every use of the shared orchestrator. One studio
	// instance serves all chats and it is not safe for concurrent use,
	// so the gate is global, not per chat.
	gen sync.Mutex
}

func (b *bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("bot: couldn't send message: %v\n", err)
	}
}

func (b *bot) replyAudio(chatID int64, r studio.Result) {
	audio := tgbotapi.NewAudioUpload(chatID, r.Song.File)
	audio.Title = r.Song.Concept
	audio.Performer = r.Song.Artist
	if _, err := b.api.Send(audio); err != nil {
		log.Printf("bot: couldn't send audio: %v\n", err)
		b.reply(chatID, fmt.Sprintf("song %s saved to %s", r.Song.ID, r.Song.File))
	}
}

// acquire takes the generation lock without blocking. A request arriving
// while any chat is rendering or mutating settings is rejected instead
// of queued.
func (b *bot) acquire() bool {
	return b.gen.TryLock()
}

func (b *bot) release() {
	b.gen.Unlock()
}

func (b *bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	cmd := msg.Command()
	args, opts, err := parseArgs(msg.CommandArguments())
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	switch cmd {
	case "help", "start":
		b.reply(chatID, help)
		return
	case "artists":
		b.listArtists(chatID)
		return
	case "artist":
		b.showArtist(chatID, args)
		return
	case "catalog":
		artist := ""
		if len(args) > 0 {
			artist = args[0]
		}
		b.listSongs(chatID, artist, "", false)
		return
	case "top":
		b.listSongs(chatID, "", "", true)
		return
	case "search":
		if len(args) == 0 {
			b.reply(chatID, "usage: /search <term>")
			return
		}
		b.listSongs(chatID, "", strings.Join(args, " "), false)
		return
	case "rate":
		b.rate(chatID, args)
		return
	case "stats":
		artist := ""
		if len(args) > 0 {
			artist = args[0]
		}
		summary, err := b.env.Stats.Get(artist)
		if err != nil {
			b.reply(chatID, err.Error())
			return
		}
		b.reply(chatID, summary.Format())
		return
	case "queue":
		b.listQueue(chatID)
		return
	case "qadd":
		b.queueAdd(chatID, args, opts)
		return
	case "qclear":
		if err := b.env.Queue.Clear(); err != nil {
			b.reply(chatID, err.Error())
			return
		}
		b.reply(chatID, "queue cleared")
		return
	case "templates":
		b.listTemplates(chatID)
		return
	case "tsave":
		b.saveTemplate(chatID, args)
		return
	case "tload":
		b.loadTemplate(chatID, args)
		return
	}

	// Everything below renders or talks to the text backend.
	if !b.acquire() {
		b.reply(chatID, "a generation is already running, hang on")
		return
	}
	defer b.release()

	if len(opts) > 0 {
		if err := b.applyOptions(opts); err != nil {
			b.reply(chatID, err.Error())
			return
		}
	}

	s := b.env.Studio
	var results []studio.Result
	switch cmd {
	case "generate":
		if len(args) < 2 {
			b.reply(chatID, `usage: /generate <artist> "<concept>"`)
			return
		}
		b.reply(chatID, fmt.Sprintf("generating a %s song for %s...", s.Settings().Quality, args[0]))
		results, err = s.Standard(ctx, args[0], strings.Join(args[1:], " "))
	case "collab":
		if len(args) < 3 {
			b.reply(chatID, `usage: /collab <artist1> <artist2> "<concept>"`)
			return
		}
		b.reply(chatID, fmt.Sprintf("%s and %s are getting in the booth...", args[0], args[1]))
		results, err = s.Collab(ctx, args[0], args[1], strings.Join(args[2:], " "))
	case "battle":
		if len(args) < 3 {
			b.reply(chatID, `usage: /battle <artist1> <artist2> "<concept>"`)
			return
		}
		b.reply(chatID, fmt.Sprintf("%s vs %s, same concept, two songs...", args[0], args[1]))
		results, err = s.Battle(ctx, args[0], args[1], strings.Join(args[2:], " "))
	case "album":
		if len(args) < 2 {
			b.reply(chatID, `usage: /album <artist> "<theme>"`)
			return
		}
		b.reply(chatID, "planning the album, this takes a while...")
		results, err = s.Album(ctx, args[0], strings.Join(args[1:], " "))
	case "vibe":
		if len(args) < 2 {
			b.reply(chatID, `usage: /vibe "<mood>" "<concept>"`)
			return
		}
		results, err = s.Vibe(ctx, args[0], strings.Join(args[1:], " "))
	case "fusion":
		if len(args) < 3 {
			b.reply(chatID, `usage: /fusion <genre1> <genre2> "<concept>"`)
			return
		}
		results, err = s.Fusion(ctx, args[0], args[1], strings.Join(args[2:], " "))
	case "like":
		if len(args) < 2 {
			b.reply(chatID, `usage: /like "<real artist>" "<concept>"`)
			return
		}
		results, err = s.SoundAlike(ctx, args[0], strings.Join(args[1:], " "))
	case "remix":
		if len(args) < 2 {
			b.reply(chatID, "usage: /remix <song-id> <artist>")
			return
		}
		results, err = s.Remix(ctx, args[0], args[1])
	case "reroll":
		if len(args) < 1 {
			b.reply(chatID, "usage: /reroll <song-id>")
			return
		}
		results, err = s.Reroll(ctx, args[0])
	case "lyrics":
		raw := strings.TrimSpace(msg.CommandArguments())
		if raw == "" {
			b.reply(chatID, "usage: /lyrics <your lyrics>")
			return
		}
		results, err = s.LyricsFirst(ctx, raw)
	case "newartist":
		if len(args) < 2 {
			b.reply(chatID, `usage: /newartist <name> "<description>"`)
			return
		}
		p, err := s.NewPersona(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			b.reply(chatID, err.Error())
			return
		}
		b.reply(chatID, fmt.Sprintf("created artist %s: %s", p.Display(), p.Tags))
		return
	case "newgenre":
		if len(args) < 2 {
			b.reply(chatID, `usage: /newgenre <name> "<description>"`)
			return
		}
		if _, err := s.NewGenre(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
			b.reply(chatID, err.Error())
			return
		}
		b.reply(chatID, fmt.Sprintf("created genre guide %s", args[0]))
		return
	case "qrun":
		b.runQueue(ctx, chatID)
		return
	default:
		b.reply(chatID, "unknown command, try /help")
		return
	}

	if err != nil {
		b.reply(chatID, err.Error())
	}
	for _, r := range results {
		if r.Err != nil {
			b.reply(chatID, r.Err.Error())
			continue
		}
		b.replyAudio(chatID, r)
	}
}

func (b *bot) listArtists(chatID int64) {
	ps, err := b.env.Personas.List()
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if len(ps) == 0 {
		b.reply(chatID, "no artists yet, create one with /newartist")
		return
	}
	var sb strings.Builder
	for _, p := range ps {
		fmt.Fprintf(&sb, "%s: %s, %s energy, %s\n", p.Display(), p.Mood, p.Energy, strings.Join(p.Genres, "/"))
	}
	b.reply(chatID, sb.String())
}

func (b *bot) showArtist(chatID int64, args []string) {
	if len(args) < 1 {
		b.reply(chatID, "usage: /artist <name>")
		return
	}
	p, err := b.env.Personas.Get(args[0])
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	b.reply(chatID, fmt.Sprintf("%s\n%s\ntags: %s", p.Display(), p.Body, p.Tags))
}

func (b *bot) listSongs(chatID int64, artist, search string, top bool) {
	var songs []catalog.Song
	var err error
	if top {
		songs, err = b.env.Catalog.TopRated()
	} else {
		songs, err = b.env.Catalog.List(artist, search)
	}
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if len(songs) == 0 {
		b.reply(chatID, "no songs")
		return
	}
	var sb strings.Builder
	for _, s := range songs {
		rating := ""
		if s.Rating > 0 {
			rating = fmt.Sprintf(" %d/5", s.Rating)
		}
		fmt.Fprintf(&sb, "%s %s: %s%s\n", s.ID, s.Artist, s.Concept, rating)
	}
	b.reply(chatID, sb.String())
}

func (b *bot) rate(chatID int64, args []string) {
	if len(args) < 2 {
		b.reply(chatID, "usage: /rate <song-id> <1-5>")
		return
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		b.reply(chatID, "rating must be a number from 1 to 5")
		return
	}
	if err := b.env.Catalog.SetRating(args[0], rating); err != nil {
		b.reply(chatID, err.Error())
		return
	}
	b.reply(chatID, fmt.Sprintf("rated %s: %d/5", args[0], rating))
}

func (b *bot) listQueue(chatID int64) {
	items, err := b.env.Queue.List()
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if len(items) == 0 {
		b.reply(chatID, "queue is empty")
		return
	}
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. %s: %s (%s x%d)\n", i+1, item.Artist, item.Concept, item.Quality, item.Takes)
	}
	b.reply(chatID, sb.String())
}

func (b *bot) queueAdd(chatID int64, args []string, opts map[string]string) {
	if len(args) < 2 {
		b.reply(chatID, `usage: /qadd <artist> "<concept>"`)
		return
	}
	if !b.acquire() {
		b.reply(chatID, "a generation is running, try again in a bit")
		return
	}
	defer b.release()
	settings := b.env.Studio.Settings()
	item, err := b.env.Queue.Add(queueItem(args[0], strings.Join(args[1:], " "), settings, opts))
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	b.reply(chatID, fmt.Sprintf("queued %s: %s", item.Artist, item.Concept))
}

func (b *bot) runQueue(ctx context.Context, chatID int64) {
	for {
		item, err := b.env.Queue.Peek()
		if errors.Is(err, queue.ErrEmpty) {
			b.reply(chatID, "queue drained")
			return
		}
		if err != nil {
			b.reply(chatID, err.Error())
			return
		}
		b.reply(chatID, fmt.Sprintf("running %s: %s", item.Artist, item.Concept))
		results, err := b.env.Studio.RunQueueItem(ctx, item)
		if err != nil {
			b.reply(chatID, err.Error())
		}
		for _, r := range results {
			if r.Err != nil {
				b.reply(chatID, r.Err.Error())
				continue
			}
			b.replyAudio(chatID, r)
		}
		if err := b.env.Queue.RemoveFirst(); err != nil {
			b.reply(chatID, err.Error())
			return
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (b *bot) listTemplates(chatID int64) {
	names, err := b.env.Templates.List()
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if len(names) == 0 {
		b.reply(chatID, "no templates, save one with /tsave <name>")
		return
	}
	b.reply(chatID, strings.Join(names, "\n"))
}

func (b *bot) saveTemplate(chatID int64, args []string) {
	if len(args) < 1 {
		b.reply(chatID, "usage: /tsave <name>")
		return
	}
	if !b.acquire() {
		b.reply(chatID, "a generation is running, try again in a bit")
		return
	}
	defer b.release()
	if err := b.env.Templates.Save(args[0], b.env.Studio.Settings()); err != nil {
		b.reply(chatID, err.Error())
		return
	}
	b.reply(chatID, fmt.Sprintf("saved current settings as %s", args[0]))
}

func (b *bot) loadTemplate(chatID int64, args []string) {
	if len(args) < 1 {
		b.reply(chatID, "usage: /tload <name>")
		return
	}
	settings, err := b.env.Templates.Load(args[0])
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}
	if !b.acquire() {
		b.reply(chatID, "a generation is running, settings are locked")
		return
	}
	defer b.release()
	b.env.Studio.ApplySettings(*settings)
	b.reply(chatID, "loaded:\n"+settings.Summary())
}
