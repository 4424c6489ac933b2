// Package ui is the game's terminal screen. The bubbletea program is the
// single event loop delivering ticks, keys and announcement callbacks to
// the playback controller.
package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/guessthatsong/internal/app/playback"
	"github.com/osa030/guessthatsong/internal/app/session"
	"github.com/osa030/guessthatsong/internal/domain/track"
	"github.com/osa030/guessthatsong/internal/infra/speech"
)

const (
	loadTimeout    = time.Minute
	artworkTimeout = 10 * time.Second
)

// ArtworkResolver finds cover art for a revealed track.
type ArtworkResolver interface {
	Resolve(ctx context.Context, t track.Track) (*track.Artwork, error)
}

// Options wires the screen to the game.
type Options struct {
	Controller    *playback.Controller
	Announcements <-chan speech.Event
	Session       *session.Manager
	Artwork       ArtworkResolver // Optional
	Segments      []time.Duration
	LibraryName   string
}

// Messages

type tickMsg time.Time

// loadMsg asks the loop to (re)load the queue.
type loadMsg struct{}

type announcementMsg struct {
	event speech.Event
	ok    bool
}

type controllerEventMsg struct {
	event playback.Event
	ok    bool
}

type artworkMsg struct {
	trackID string
	artwork *track.Artwork
	err     error
}

// Model is the bubbletea model of the game screen.
type Model struct {
	opts Options

	snapshot playback.Snapshot
	loading  bool
	loadErr  error
	artwork  *track.Artwork // Resolved cover art of the revealed track
	status   string
	quitting bool
	width    int
}

// New creates the screen model.
func New(opts Options) Model {
	return Model{
		opts:    opts,
		loading: true,
		status:  "Loading library...",
	}
}

// Run shows the screen until the player quits.
func Run(opts Options) error {
	_, err := tea.NewProgram(New(opts), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.load(),
		m.tick(),
		waitAnnouncement(m.opts.Announcements),
		waitControllerEvent(m.opts.Controller.Events()),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case tickMsg:
		if err := m.opts.Controller.OnTick(); err != nil {
			zlog.Warn().Msgf("ui: tick failed: %v", err)
			m.status = err.Error()
		}
		m.snapshot = m.opts.Controller.Snapshot()
		return m, m.tick()

	case loadMsg:
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		err := m.opts.Controller.LoadQueue(ctx)
		cancel()
		m.loading = false
		m.loadErr = err
		m.artwork = nil
		if err != nil {
			zlog.Error().Msgf("ui: failed to load library: %v", err)
			m.status = "Press r to retry"
		} else {
			m.opts.Session.Start(m.opts.LibraryName)
			m.opts.Session.NewRound()
			m.status = "Press 1-9 to play a snippet"
		}
		m.snapshot = m.opts.Controller.Snapshot()
		return m, nil

	case announcementMsg:
		if !msg.ok {
			return m, nil
		}
		switch msg.event.Type {
		case speech.EventStarted:
			m.opts.Controller.AnnouncementStarted()
		case speech.EventFinished:
			m.opts.Controller.AnnouncementFinished()
			if msg.event.Err != nil {
				m.status = "Announcement failed"
			}
		}
		m.snapshot = m.opts.Controller.Snapshot()
		return m, waitAnnouncement(m.opts.Announcements)

	case controllerEventMsg:
		if !msg.ok {
			return m, nil
		}
		zlog.Debug().Msgf("ui: controller event: type=%s state=%s", msg.event.Type, msg.event.State)
		if msg.event.Type == playback.EventSegmentEnded {
			m.status = "Time's up! Guess, or play more"
		}
		return m, waitControllerEvent(m.opts.Controller.Events())

	case artworkMsg:
		if msg.err != nil {
			zlog.Debug().Msgf("ui: no artwork: track=%s error=%v", msg.trackID, msg.err)
			return m, nil
		}
		if t := m.snapshot.Track; t != nil && t.ID == msg.trackID {
			m.artwork = msg.artwork
		}
		return m, nil
	}

	return m, nil
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.opts.Controller.TickInterval(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// load schedules a queue load. The load itself runs on the loop so the
// controller is only ever driven from one goroutine.
func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		return loadMsg{}
	}
}

func (m Model) resolveArtwork(t track.Track) tea.Cmd {
	resolver := m.opts.Artwork
	if resolver == nil || t.HasArtwork() {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), artworkTimeout)
		defer cancel()
		art, err := resolver.Resolve(ctx, t)
		return artworkMsg{trackID: t.ID, artwork: art, err: err}
	}
}

func waitAnnouncement(ch <-chan speech.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-ch
		return announcementMsg{event: e, ok: ok}
	}
}

func waitControllerEvent(ch <-chan playback.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		return controllerEventMsg{event: e, ok: ok}
	}
}
