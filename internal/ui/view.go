package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/osa030/guessthatsong/internal/app/playback"
	"github.com/osa030/guessthatsong/internal/domain/track"
	"github.com/osa030/guessthatsong/internal/infra/config"
)

const (
	titlePlaceholder  = "? Song Name ?"
	artistPlaceholder = "? Artist ?"
)

var (
	accent = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#89F0CB"}
	subtle = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			PaddingLeft(2)

	artistStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	hiddenStyle = lipgloss.NewStyle().
			Foreground(subtle).
			PaddingLeft(2)

	buttonStyle = lipgloss.NewStyle().
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent)

	disabledButtonStyle = buttonStyle.
				BorderForeground(subtle).
				Foreground(subtle)

	helpStyle = lipgloss.NewStyle().
			Foreground(subtle)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")

	switch {
	case m.loading && m.loadErr == nil && m.snapshot.State == playback.StateIdle:
		b.WriteString(hiddenStyle.Render("Loading library..."))
		b.WriteString("\n\n")
		b.WriteString(disabledButtonStyle.Render("Play"))
	case m.snapshot.State == playback.StateIdle:
		b.WriteString(hiddenStyle.Render("No tracks available"))
		b.WriteString("\n\n")
		b.WriteString(disabledButtonStyle.Render("Play"))
	default:
		b.WriteString(m.identity())
		b.WriteString("\n\n")
		b.WriteString(buttonStyle.Render(buttonLabel(m.snapshot)))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render(progress(m.snapshot)))
	}

	b.WriteString("\n\n")
	b.WriteString(helpStyle.Render(m.help()))
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(statusStyle.Render(m.status))
	}
	return b.String()
}

func (m Model) header() string {
	h := headerStyle.Render("Guess That Song")
	var parts []string
	if m.opts.LibraryName != "" {
		parts = append(parts, m.opts.LibraryName)
	}
	if m.snapshot.QueueSize > 0 {
		parts = append(parts, fmt.Sprintf("%d tracks", m.snapshot.QueueSize))
	}
	if r := len(m.opts.Session.Rounds()); r > 0 {
		parts = append(parts, fmt.Sprintf("round %d", r))
	}
	if len(parts) == 0 {
		return h
	}
	return h + "  " + helpStyle.Render(strings.Join(parts, " · "))
}

func (m Model) identity() string {
	s := m.snapshot
	var lines []string

	if s.TitleRevealed {
		lines = append(lines, titleStyle.Render(s.Title))
	} else {
		lines = append(lines, hiddenStyle.Render(titlePlaceholder))
	}
	if s.ArtistRevealed {
		lines = append(lines, artistStyle.Render(s.Artist))
	} else {
		lines = append(lines, hiddenStyle.Render(artistPlaceholder))
	}

	if s.Track != nil {
		if s.Album != "" {
			lines = append(lines, hiddenStyle.Render(s.Album))
		}
		if art := m.revealedArtwork(); !art.IsEmpty() {
			lines = append(lines, hiddenStyle.Render(describeArtwork(art)))
		}
	}
	if s.Announcing {
		lines = append(lines, hiddenStyle.Render("♪ announcing..."))
	}
	return strings.Join(lines, "\n")
}

func (m Model) revealedArtwork() *track.Artwork {
	if !m.snapshot.Artwork.IsEmpty() {
		return m.snapshot.Artwork
	}
	return m.artwork
}

func (m Model) help() string {
	var segs []string
	for i, key := range segmentKeys(m.opts.Segments) {
		segs = append(segs, key+":"+config.SegmentLabel(m.opts.Segments[i]))
	}
	lines := []string{
		strings.Join(segs, "  ") + "  f:full",
		"space:pause/resume  b:start  n/p:next/prev",
		"s:title  a:artist  c:reveal  r:reload  q:quit",
	}
	return strings.Join(lines, "\n")
}

// buttonLabel is "Play" while quiescent and "Pause (N)" while playing,
// N being the remaining seconds rounded up.
func buttonLabel(s playback.Snapshot) string {
	if s.State != playback.StatePlayingSegment {
		return "Play"
	}
	secs := (s.Remaining + time.Second - 1) / time.Second
	return fmt.Sprintf("Pause (%d)", secs)
}

func progress(s playback.Snapshot) string {
	if s.Cutoff == 0 {
		return s.State.String()
	}
	return fmt.Sprintf("%s / %s  %s", clock(s.Elapsed), clock(s.Cutoff), s.State)
}

func clock(d time.Duration) string {
	d = d.Round(100 * time.Millisecond)
	m := int(d / time.Minute)
	s := (d % time.Minute).Seconds()
	return fmt.Sprintf("%d:%04.1f", m, s)
}

func describeArtwork(a *track.Artwork) string {
	if len(a.Data) > 0 {
		mime := a.MIMEType
		if mime == "" {
			mime = "image"
		}
		return fmt.Sprintf("artwork: %s, %s", mime, humanize.Bytes(uint64(len(a.Data))))
	}
	return "artwork: " + a.URL
}
