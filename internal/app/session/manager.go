package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/osa030/guessthatsong/internal/domain/track"
)

// Manager manages session state with thread-safe access.
type Manager struct {
	mu sync.RWMutex

	// Session identity
	sessionID    string
	playlistName string

	// Session lifecycle
	phase     Phase
	startedAt time.Time
	endedAt   time.Time

	rounds []Round

	now func() time.Time
}

// New creates a new session with a random ID.
func New() *Manager {
	return &Manager{
		sessionID: uuid.New().String(),
		phase:     PhaseWaiting,
		now:       time.Now,
	}
}

// GetSessionID returns the session ID.
func (m *Manager) GetSessionID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sessionID
}

// GetPhase returns the current session phase.
func (m *Manager) GetPhase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// Start activates the session. Restarting after a reload keeps earlier rounds.
func (m *Manager) Start(playlistName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseTerminated {
		return
	}
	if m.phase == PhaseWaiting {
		m.startedAt = m.now()
	}
	m.playlistName = playlistName
	m.phase = PhaseActive
}

// NewRound begins a round. The track stays anonymous until revealed.
func (m *Manager) NewRound() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseActive {
		return
	}
	m.rounds = append(m.rounds, Round{StartedAt: m.now()})
}

// RecordPlay counts a played segment of length cutoff in the current round.
// Plays after the reveal do not count.
func (m *Manager) RecordPlay(cutoff time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.currentLocked()
	if r == nil || r.Revealed {
		return
	}
	r.Plays++
	if cutoff > r.Heard {
		r.Heard = cutoff
	}
}

// RecordReveal marks the current round revealed as t.
func (m *Manager) RecordReveal(t track.Track) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.currentLocked()
	if r == nil {
		return
	}
	r.Revealed = true
	r.TrackID = t.ID
	r.Title = t.DisplayTitle()
	r.Artist = t.DisplayArtist()
}

// Current returns a copy of the current round.
func (m *Manager) Current() (Round, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.rounds) == 0 {
		return Round{}, false
	}
	return m.rounds[len(m.rounds)-1], true
}

// Rounds returns a copy of all rounds.
func (m *Manager) Rounds() []Round {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Round(nil), m.rounds...)
}

// Terminate ends the session.
func (m *Manager) Terminate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseTerminated {
		return
	}
	m.phase = PhaseTerminated
	m.endedAt = m.now()
}

// Summary aggregates the rounds played so far.
func (m *Manager) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Summary{
		SessionID:    m.sessionID,
		PlaylistName: m.playlistName,
		Rounds:       len(m.rounds),
	}

	var heard time.Duration
	for _, r := range m.rounds {
		if r.Revealed {
			s.Revealed++
			heard += r.Heard
		}
	}
	if s.Revealed > 0 {
		s.AverageHeard = heard / time.Duration(s.Revealed)
	}

	if !m.startedAt.IsZero() {
		end := m.endedAt
		if end.IsZero() {
			end = m.now()
		}
		s.Elapsed = end.Sub(m.startedAt)
	}
	return s
}

func (m *Manager) currentLocked() *Round {
	if len(m.rounds) == 0 {
		return nil
	}
	return &m.rounds[len(m.rounds)-1]
}
