package ui

import (
	"time"

	"github.com/cockroachdb/errors"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/osa030/guessthatsong/internal/app/playback"
)

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	ctrl := m.opts.Controller

	var (
		err error
		cmd tea.Cmd
	)
	switch key {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(key[0] - '1')
		if i >= len(m.opts.Segments) {
			return m, nil
		}
		err = m.play(func() error { return ctrl.PlaySegment(m.opts.Segments[i]) })

	case "f":
		err = m.play(ctrl.PlayFull)

	case " ":
		err = ctrl.PauseResume()

	case "b":
		err = ctrl.JumpToStart()

	case "n", "p":
		if key == "n" {
			err = ctrl.NextTrack()
		} else {
			err = ctrl.PreviousTrack()
		}
		if err == nil {
			m.opts.Session.NewRound()
			m.artwork = nil
			m.status = ""
		}

	case "s":
		err = ctrl.RevealTitle()

	case "a":
		err = ctrl.RevealArtist()

	case "c", "enter":
		if err = ctrl.Reveal(); err == nil {
			if t := ctrl.Snapshot().Track; t != nil {
				m.opts.Session.RecordReveal(*t)
				cmd = m.resolveArtwork(*t)
			}
		}

	case "r":
		if m.loading {
			return m, nil
		}
		m.loading = true
		m.status = "Reloading library..."
		cmd = m.load()

	default:
		return m, nil
	}

	if err != nil {
		m.status = describe(err)
	}
	m.snapshot = ctrl.Snapshot()
	return m, cmd
}

// play starts playback and counts the snippet in the current round.
func (m Model) play(start func() error) error {
	if err := start(); err != nil {
		return err
	}
	m.opts.Session.RecordPlay(m.opts.Controller.Snapshot().Cutoff)
	return nil
}

func describe(err error) string {
	switch {
	case errors.Is(err, playback.ErrNotLoaded):
		return "Library not loaded"
	case errors.Is(err, playback.ErrPlaying):
		return "Already playing, press space to pause"
	case errors.Is(err, playback.ErrNoTrack):
		return "Nothing is playing"
	case errors.Is(err, playback.ErrInvalidSegment):
		return "Track length unknown"
	default:
		return err.Error()
	}
}

// segmentKeys lists the key hints for the configured segments.
func segmentKeys(segments []time.Duration) []string {
	keys := make([]string, 0, len(segments))
	for i := range segments {
		if i >= 9 {
			break
		}
		keys = append(keys, string(rune('1'+i)))
	}
	return keys
}
