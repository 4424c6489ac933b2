// Package main provides the game entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessthatsong/internal/app/filter"
	"github.com/osa030/guessthatsong/internal/app/library"
	"github.com/osa030/guessthatsong/internal/app/playback"
	"github.com/osa030/guessthatsong/internal/app/session"
	"github.com/osa030/guessthatsong/internal/infra/config"
	"github.com/osa030/guessthatsong/internal/infra/lastfm"
	"github.com/osa030/guessthatsong/internal/infra/localaudio"
	"github.com/osa030/guessthatsong/internal/infra/logger"
	"github.com/osa030/guessthatsong/internal/infra/speech"
	"github.com/osa030/guessthatsong/internal/infra/spotify"
	"github.com/osa030/guessthatsong/internal/ui"
)

var (
	app        = kingpin.New("guessthatsong", "Guess That Song: play short snippets, then reveal the track")
	configPath = app.Flag("config", "Path to config file").Default("config.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (play defaults to guessthatsong.log)").String()

	playCmd        = app.Command("play", "Start the game (default)").Default()
	listTracksCmd  = app.Command("list-tracks", "Load the library, print the playable tracks and exit")
	listFiltersCmd = app.Command("list-filters", "List available filters and exit")
)

const defaultLogFile = "guessthatsong.log"

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listFiltersCmd.FullCommand() {
		// Enabled filters are marked when the config loads; it is optional here
		cfg, _ := config.Load(*configPath)
		printFilters(cfg)
		return
	}

	// The game owns the terminal, so its log goes to a file unless told otherwise
	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if command == playCmd.FullCommand() {
		loggerConfig.Output = defaultLogFile
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		_ = closer.Close()
		os.Exit(1)
	}

	switch command {
	case listTracksCmd.FullCommand():
		err = listTracks(cfg)
	default:
		err = play(cfg)
	}
	if err != nil {
		zlog.Error().Msgf("guessthatsong: %v", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = closer.Close()
		os.Exit(1)
	}
	_ = closer.Close()
}

// clients holds the external clients the configuration asks for. Unused ones are nil.
type clients struct {
	spotify *spotify.Client
	lastfm  *lastfm.Client
}

func newClients(ctx context.Context, cfg *config.Config) (*clients, error) {
	c := &clients{}

	if cfg.NeedsSpotify() {
		sc, err := spotify.New(ctx, spotify.Config{
			ClientID:     cfg.Spotify.ClientID,
			ClientSecret: cfg.Spotify.ClientSecret,
			RefreshToken: cfg.Spotify.RefreshToken,
			Market:       cfg.Spotify.Market,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Spotify client")
		}
		c.spotify = sc
	}

	if cfg.Artwork.LastFM.APIKey != "" {
		lc, err := lastfm.New(lastfm.Config{
			APIKey:            cfg.Artwork.LastFM.APIKey,
			RequestsPerSecond: cfg.Artwork.LastFM.RequestsPerSecond,
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to create Last.fm client")
		}
		c.lastfm = lc
	}

	return c, nil
}

func newLibrary(ctx context.Context, cfg *config.Config, c *clients) (*library.Library, error) {
	deps := library.Dependencies{Scanner: localaudio.NewScanner()}
	if c.spotify != nil {
		deps.Spotify = c.spotify
		if err := validatePlaylists(ctx, cfg, c.spotify); err != nil {
			return nil, errors.Wrap(err, "playlist validation failed")
		}
	}
	if c.lastfm != nil {
		deps.LastFm = c.lastfm
	}
	return library.NewFromConfig(cfg, deps)
}

func play(cfg *config.Config) error {
	ctx := context.Background()

	c, err := newClients(ctx, cfg)
	if err != nil {
		return err
	}
	lib, err := newLibrary(ctx, cfg, c)
	if err != nil {
		return err
	}

	var (
		device playback.Device
		focus  playback.AudioFocus
		sink   speech.Sink
	)
	switch cfg.Playback.Backend {
	case config.BackendSpotify:
		deviceID, err := c.spotify.ResolveDeviceID(ctx, cfg.Spotify.DeviceID)
		if err != nil {
			return err
		}
		zlog.Info().Msgf("Using Spotify device: id=%s", deviceID)
		d := spotify.NewDevice(c.spotify, deviceID)
		device, focus = d, spotify.NewFocus(d, cfg.Playback.DuckPercent)

	default:
		d, err := localaudio.Open(cfg.Playback.SampleRate)
		if err != nil {
			return err
		}
		defer func() {
			if err := d.Close(); err != nil {
				zlog.Warn().Msgf("Failed to close audio device: %v", err)
			}
		}()
		// Speech is mixed into the same output as the music
		device, focus, sink = d, localaudio.NewFocus(d, cfg.Playback.DuckPercent), d
	}

	announcer, err := newAnnouncer(cfg, sink)
	if err != nil {
		return err
	}
	defer announcer.Close()

	ctrlConfig := playback.Config{
		TickInterval:    cfg.TickInterval(),
		PositionTimeout: cfg.PositionTimeout(),
		CallTimeout:     cfg.CallTimeout(),
	}
	ctrl := playback.NewController(ctrlConfig, lib, device, announcer, focus)
	defer ctrl.Close()

	sess := session.New()
	opts := ui.Options{
		Controller:    ctrl,
		Announcements: announcer.Events(),
		Session:       sess,
		Segments:      cfg.Segments(),
		LibraryName:   lib.Name(),
	}
	if cfg.Artwork.LastFM.Enabled && c.lastfm != nil {
		opts.Artwork = lastfm.NewArtworkResolver(c.lastfm)
	}

	zlog.Info().Msgf("Starting game: session=%s backend=%s engine=%s", sess.GetSessionID(), cfg.Playback.Backend, cfg.Speech.Engine)
	runErr := ui.Run(opts)

	sess.Terminate()
	printSummary(sess.Summary())

	if runErr != nil {
		return errors.Wrap(runErr, "ui failed")
	}
	return nil
}

// newAnnouncer builds the configured speech engine. A nil sink opens a
// dedicated output at the engine's sample rate.
func newAnnouncer(cfg *config.Config, sink speech.Sink) (*speech.Announcer, error) {
	var engine speech.Engine
	switch cfg.Speech.Engine {
	case config.EnginePiper:
		e, err := speech.NewPiperEngine(speech.PiperConfig{
			Binary:     cfg.Speech.Piper.Binary,
			Model:      cfg.Speech.Piper.Model,
			Speaker:    cfg.Speech.Piper.Speaker,
			SampleRate: cfg.Speech.Piper.SampleRate,
		})
		if err != nil {
			return nil, err
		}
		engine = e
	case config.EngineGTTS:
		engine = speech.NewGTTSEngine(speech.GTTSConfig{
			Binary:            cfg.Speech.GTTS.Binary,
			FFmpeg:            cfg.Speech.GTTS.FFmpeg,
			Language:          cfg.Speech.GTTS.Language,
			RequestsPerMinute: cfg.Speech.GTTS.RequestsPerMinute,
		})
	default:
		zlog.Info().Msg("Speech disabled, reveals are not spoken")
		return speech.NewSilent(), nil
	}

	if sink == nil {
		s, err := speech.NewOtoSink(engine.SampleRate())
		if err != nil {
			return nil, err
		}
		sink = s
	}
	zlog.Info().Msgf("Speech engine: %s", engine.Name())
	return speech.NewAnnouncer(engine, sink), nil
}

func listTracks(cfg *config.Config) error {
	ctx := context.Background()

	c, err := newClients(ctx, cfg)
	if err != nil {
		return err
	}
	lib, err := newLibrary(ctx, cfg, c)
	if err != nil {
		return err
	}

	catalog, err := lib.Catalog(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s tracks, %s)\n", catalog.Name, humanize.Comma(int64(len(catalog.Tracks))), formatDuration(catalog.TotalDuration()))
	var filters []string
	for _, f := range lib.Filters().Filters() {
		filters = append(filters, f.Name())
	}
	if len(filters) > 0 {
		fmt.Printf("  filters: %s\n", strings.Join(filters, ", "))
	}
	for i, t := range catalog.Tracks {
		fmt.Printf("  %4d. %-40s %-30s %6s  [%s]\n", i+1, t.DisplayTitle(), t.DisplayArtist(), formatDuration(t.Duration), t.Source)
	}
	for source, n := range catalog.CountBySource() {
		fmt.Printf("  %s: %d\n", source, n)
	}
	return nil
}

// printFilters prints available filters. A non-nil cfg marks the enabled ones.
func printFilters(cfg *config.Config) {
	fmt.Println("Available Filters:")
	registry := filter.GetRegistered()
	for _, name := range filter.Names() {
		f := registry[name]()
		codes := strings.Join(f.ReturnCodes(), ", ")
		mark := " "
		if cfg != nil && cfg.IsFilterEnabled(name) {
			mark = "*"
		}
		fmt.Printf("%s %-30s - %s [codes: %s]\n", mark, f.Name(), f.Description(), codes)
	}
	if cfg != nil {
		fmt.Println("(* enabled in config)")
	}
}

func printSummary(s session.Summary) {
	zlog.Info().Msgf("Session ended: session=%s playlist=%s rounds=%d revealed=%d average_heard=%v elapsed=%v",
		s.SessionID, s.PlaylistName, s.Rounds, s.Revealed, s.AverageHeard, s.Elapsed)
	if s.Rounds == 0 {
		return
	}
	fmt.Printf("Played %d %s (%d revealed) in %s, average snippet %s\n",
		s.Rounds, plural(s.Rounds, "round"), s.Revealed, formatDuration(s.Elapsed), s.AverageHeard.Round(100*time.Millisecond))
}

// validatePlaylists checks that configured Spotify playlists are reachable.
// Transient errors are retried with exponential backoff.
func validatePlaylists(ctx context.Context, cfg *config.Config, client *spotify.Client) error {
	maxRetries := 5
	baseDelay := 1 * time.Second

	var errs []string

	validate := func(url string) error {
		zlog.Info().Msgf("Validating playlist: url=%s", url)

		var lastErr error
		for i := 0; i < maxRetries; i++ {
			if i > 0 {
				delay := baseDelay * time.Duration(1<<uint(i-1))
				zlog.Info().Msgf("Retrying playlist validation in %v...", delay)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(delay):
				}
			}

			if err := client.CheckPlaylistExists(ctx, url); err != nil {
				lastErr = err
				zlog.Warn().Msgf("Failed to validate playlist (attempt %d/%d): %v", i+1, maxRetries, err)
				continue
			}
			return nil
		}
		return errors.Newf("failed after %d attempts: %v", maxRetries, lastErr)
	}

	for _, p := range cfg.Library.Providers {
		if p.Type != "spotify_playlist" {
			continue
		}
		url, _ := p.Settings["playlist_url"].(string)
		if url == "" {
			// Reported by the provider factory
			continue
		}
		if err := validate(url); err != nil {
			errs = append(errs, fmt.Sprintf("%s (%s): %v", p.DisplayName, url, err))
		}
	}

	if len(errs) > 0 {
		return errors.Newf("unreachable playlists:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
