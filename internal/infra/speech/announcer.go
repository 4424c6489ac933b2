package speech

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

// ErrBusy is returned by Speak while an announcement is in progress.
var ErrBusy = errors.New("announcer is busy")

// EventType identifies an announcement lifecycle event.
type EventType int

const (
	EventStarted EventType = iota
	EventFinished
)

func (t EventType) String() string {
	switch t {
	case EventStarted:
		return "started"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event reports announcement progress. Every Speak yields exactly one
// EventFinished; EventStarted precedes it only if audio actually played.
type Event struct {
	Type EventType
	Text string
	Err  error
}

// Announcer speaks one text at a time without blocking the caller.
type Announcer struct {
	engine Engine // nil logs the text instead of speaking
	sink   Sink

	events   chan Event
	speaking atomic.Bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewAnnouncer creates an announcer synthesizing with engine and playing on sink.
func NewAnnouncer(engine Engine, sink Sink) *Announcer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Announcer{
		engine: engine,
		sink:   sink,
		events: make(chan Event, 8),
		ctx:    ctx,
		cancel: cancel,
	}
}

// NewSilent creates an announcer that only logs what it would say.
func NewSilent() *Announcer {
	return NewAnnouncer(nil, nil)
}

// Events returns the lifecycle event channel. It is closed by Close.
func (a *Announcer) Events() <-chan Event {
	return a.events
}

// IsSpeaking reports whether an announcement is in progress.
func (a *Announcer) IsSpeaking() bool {
	return a.speaking.Load()
}

// Speak starts announcing text in the background.
func (a *Announcer) Speak(text string) error {
	if a.ctx.Err() != nil {
		return errors.New("announcer is closed")
	}
	if !a.speaking.CompareAndSwap(false, true) {
		return ErrBusy
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		err := a.speak(text)
		a.speaking.Store(false)
		if err != nil {
			zlog.Warn().Msgf("announcement failed: text=%q error=%v", text, err)
		}
		a.emit(Event{Type: EventFinished, Text: text, Err: err})
	}()
	return nil
}

func (a *Announcer) speak(text string) error {
	if a.engine == nil {
		zlog.Info().Msgf("announcement: %s", text)
		a.emit(Event{Type: EventStarted, Text: text})
		return nil
	}

	pcm, err := a.engine.Synthesize(a.ctx, text)
	if err != nil {
		return errors.Wrapf(err, "%s synthesis failed", a.engine.Name())
	}

	done, err := a.sink.PlayPCM(a.ctx, pcm, a.engine.SampleRate())
	if err != nil {
		return errors.Wrap(err, "failed to play announcement")
	}
	a.emit(Event{Type: EventStarted, Text: text})

	select {
	case <-done:
	case <-a.ctx.Done():
	}
	return nil
}

// emit delivers events in order, giving up only when the announcer closes.
func (a *Announcer) emit(e Event) {
	select {
	case a.events <- e:
	case <-a.ctx.Done():
	}
}

// Close cancels any announcement and closes the event channel.
func (a *Announcer) Close() {
	a.once.Do(func() {
		a.cancel()
		a.wg.Wait()
		close(a.events)
	})
}
