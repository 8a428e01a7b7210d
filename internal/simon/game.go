package simon

import (
	"context"
	"math/rand/v2"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hwalther/lightson/internal/lights"
	"github.com/hwalther/lightson/internal/logger"
)

const (
	defaultStepInterval  = 800 * time.Millisecond
	defaultFlashInterval = 250 * time.Millisecond

	correctFlashes   = 2
	incorrectFlashes = 3
)

// flashNeutral separates feedback flashes from each other
var flashNeutral = lights.Color{R: 255, G: 255, B: 255}

// Options tunes a Game. Zero values fall back to defaults.
type Options struct {
	// Palette overrides the four-pad default (used by tests)
	Palette []Color
	// StepInterval is the hold time per color during playback
	StepInterval time.Duration
	// FlashInterval is the hold time per feedback flash
	FlashInterval time.Duration
	// Hub receives game events; nil disables event broadcasting
	Hub *Hub
}

// Game is the single global Simon session. One mutex guards both the
// color sequence and the playback flag, so check-then-set on the flag is
// atomic with sequence reads and writes. At most one playback goroutine
// exists at any time.
type Game struct {
	mu      sync.Mutex
	seq     []Color
	playing bool

	ctrl          lights.Controller
	palette       []Color
	stepInterval  time.Duration
	flashInterval time.Duration
	hub           *Hub
	log           *zerolog.Logger
}

// New creates a Game driving the given lights
func New(ctrl lights.Controller, opts Options) *Game {
	g := &Game{
		ctrl:          ctrl,
		palette:       opts.Palette,
		stepInterval:  opts.StepInterval,
		flashInterval: opts.FlashInterval,
		hub:           opts.Hub,
		log:           logger.WithComponent("simon"),
	}
	if len(g.palette) == 0 {
		g.palette = DefaultPalette
	}
	if g.stepInterval <= 0 {
		g.stepInterval = defaultStepInterval
	}
	if g.flashInterval <= 0 {
		g.flashInterval = defaultFlashInterval
	}
	return g
}

// RequestRound seeds the sequence if it is empty, schedules a playback
// if none is running, and returns the current sequence length. The
// length tells the caller how long the animation will run.
func (g *Game) RequestRound() int {
	g.mu.Lock()
	if len(g.seq) == 0 {
		g.seq = append(g.seq, g.randomColor())
	}
	length := len(g.seq)
	g.schedulePlaybackLocked()
	g.mu.Unlock()

	g.publish(Event{Type: EventRound, Length: length})
	return length
}

// CheckSubmission compares the candidate against the authoritative
// sequence. A correct submission appends one random color; an incorrect
// one resets the sequence to a single fresh color. Either way the
// feedback flash runs synchronously before the next round is scheduled.
//
// The comparison reads the live sequence, not the last fully played
// snapshot: a submission racing an in-flight append is judged against
// the sequence as it stands when the lock is taken.
func (g *Game) CheckSubmission(ctx context.Context, candidate []Color) bool {
	g.mu.Lock()
	correct := slices.Equal(g.seq, candidate)
	g.mu.Unlock()

	if correct {
		g.flash(ctx, lights.Color{G: 255}, correctFlashes)
	} else {
		g.flash(ctx, lights.Color{R: 255}, incorrectFlashes)
	}

	g.mu.Lock()
	if correct {
		g.seq = append(g.seq, g.randomColor())
	} else {
		g.seq = []Color{g.randomColor()}
	}
	length := len(g.seq)
	g.schedulePlaybackLocked()
	g.mu.Unlock()

	g.log.Info().Bool("correct", correct).Int("length", length).Msg("Submission checked")
	g.publish(Event{Type: EventVerdict, Correct: &correct, Length: length})
	return correct
}

// Length returns the current sequence length
func (g *Game) Length() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seq)
}

// Playing reports whether a playback animation is currently running
func (g *Game) Playing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.playing
}

// schedulePlaybackLocked starts a playback goroutine for a snapshot of
// the current sequence if none is running. Callers must hold g.mu; the
// snapshot is copied under the lock so playback is immune to later
// appends.
func (g *Game) schedulePlaybackLocked() {
	if g.playing {
		return
	}
	g.playing = true
	go g.playSequence(slices.Clone(g.seq))
}

// playSequence sends each color of the snapshot to the lights with a
// pause in between. The playing flag is cleared on every exit path so a
// broken light controller cannot wedge the game.
func (g *Game) playSequence(snapshot []Color) {
	defer func() {
		g.mu.Lock()
		g.playing = false
		g.mu.Unlock()
		g.publish(Event{Type: EventPlaybackDone, Length: len(snapshot)})
	}()

	ctx := context.Background()
	for _, c := range snapshot {
		if err := g.ctrl.SetColor(ctx, c.RGB()); err != nil {
			g.log.Warn().Err(err).Str("color", string(c)).Msg("Light command failed during playback")
			return
		}
		time.Sleep(g.stepInterval)
	}
}

// flash alternates the feedback color with neutral. Runs synchronously;
// a failed light command ends the pattern early but is not fatal.
func (g *Game) flash(ctx context.Context, color lights.Color, times int) {
	for i := 0; i < times; i++ {
		if err := g.ctrl.SetColor(ctx, color); err != nil {
			g.log.Warn().Err(err).Msg("Light command failed during feedback flash")
			return
		}
		time.Sleep(g.flashInterval)
		if err := g.ctrl.SetColor(ctx, flashNeutral); err != nil {
			g.log.Warn().Err(err).Msg("Light command failed during feedback flash")
			return
		}
		time.Sleep(g.flashInterval)
	}
}

func (g *Game) randomColor() Color {
	return g.palette[rand.IntN(len(g.palette))]
}

func (g *Game) publish(ev Event) {
	if g.hub != nil {
		g.hub.Broadcast(ev)
	}
}
