package camera

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hwalther/lightson/internal/logger"
)

// SessionConfig tunes the capture loop for one source
type SessionConfig struct {
	// ReadInterval throttles successful reads to bound CPU and bandwidth
	ReadInterval time.Duration
	// OpenBackoff is slept after a failed open before retrying
	OpenBackoff time.Duration
	// ReadRetryDelay is slept after a failed read before reopening.
	// Zero means reopen immediately (local devices recover fast).
	ReadRetryDelay time.Duration
	// MaxHandleAge forces a reopen after this duration even while reads
	// succeed. Network streams can go stale without ever erroring.
	MaxHandleAge time.Duration
}

// DefaultSessionConfig returns the capture tuning for a source kind
func DefaultSessionConfig(kind Kind) SessionConfig {
	if kind == KindStream {
		return SessionConfig{
			ReadInterval:   200 * time.Millisecond,
			OpenBackoff:    5 * time.Second,
			ReadRetryDelay: time.Second,
			MaxHandleAge:   10 * time.Minute,
		}
	}
	return SessionConfig{
		ReadInterval:   100 * time.Millisecond,
		OpenBackoff:    2 * time.Second,
		ReadRetryDelay: 0,
		MaxHandleAge:   time.Hour,
	}
}

// Session owns the lifecycle of one capture handle: open, read, detect
// failure, close, reopen. It publishes decoded frames into a FrameBuffer.
// The handle is touched only from the goroutine running Run; every
// failure is recoverable by reopening, so the loop never returns an
// error and never stops before its context is canceled.
type Session struct {
	source Source
	buf    *FrameBuffer
	cfg    SessionConfig
	log    *zerolog.Logger

	handle   Handle
	openedAt time.Time

	// injected for tests
	now   func() time.Time
	sleep func(time.Duration)
}

// NewSession creates a Session publishing into buf
func NewSession(source Source, buf *FrameBuffer, cfg SessionConfig) *Session {
	return &Session{
		source: source,
		buf:    buf,
		cfg:    cfg,
		log:    logger.WithComponent("capture"),
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Run drives the capture loop until ctx is canceled. Run the session in
// its own goroutine; it only yields at its sleep points.
func (s *Session) Run(ctx context.Context) {
	s.log.Info().
		Str("source", s.source.String()).
		Dur("read_interval", s.cfg.ReadInterval).
		Dur("max_handle_age", s.cfg.MaxHandleAge).
		Msg("Capture loop starting")

	for ctx.Err() == nil {
		s.step()
	}

	s.closeHandle()
	s.log.Info().Str("source", s.source.String()).Msg("Capture loop stopped")
}

// step performs one iteration: ensure an open, fresh handle, read one
// frame, publish it, throttle.
func (s *Session) step() {
	if s.handle != nil && s.cfg.MaxHandleAge > 0 && s.now().Sub(s.openedAt) > s.cfg.MaxHandleAge {
		s.log.Info().
			Str("source", s.source.String()).
			Time("opened_at", s.openedAt).
			Msg("Handle exceeded max session age, reopening")
		s.closeHandle()
	}

	if s.handle == nil {
		handle, err := s.source.Open()
		if err != nil {
			s.log.Warn().
				Err(err).
				Str("source", s.source.String()).
				Dur("backoff", s.cfg.OpenBackoff).
				Msg("Failed to open source, backing off")
			s.sleep(s.cfg.OpenBackoff)
			return
		}
		s.handle = handle
		s.openedAt = s.now()
		s.log.Info().Str("source", s.source.String()).Msg("Source opened")
	}

	frame, err := s.handle.Read()
	if err != nil {
		s.log.Warn().
			Err(err).
			Str("source", s.source.String()).
			Msg("Read failed, closing handle")
		s.closeHandle()
		if s.cfg.ReadRetryDelay > 0 {
			s.sleep(s.cfg.ReadRetryDelay)
		}
		return
	}

	s.buf.Publish(frame, s.now())
	s.sleep(s.cfg.ReadInterval)
}

func (s *Session) closeHandle() {
	if s.handle == nil {
		return
	}
	if err := s.handle.Close(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to close handle")
	}
	s.handle = nil
}
