package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/danmuck/renderframe/internal/clock"
	"github.com/danmuck/renderframe/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultAttempts   = 3
	DefaultTimeout    = 30 * time.Second
	DefaultRetryDelay = time.Second
	maxBodyBytes      = 16 << 20
)

var clientURL = regexp.MustCompile(`(?i)^client://`)

// Emitter receives loader lifecycle statuses.
type Emitter interface {
	Emit(kind protocol.Kind, payload map[string]any)
}

// GiveUpSink records that a load was abandoned.
type GiveUpSink interface {
	SubmitGiveUp()
}

type Options struct {
	// Attempts is the total fetch budget. Zero or less fails without fetching.
	Attempts int
	Timeout  time.Duration
	// JSON enables JSON decoding of non-binary bodies.
	JSON   bool
	Before func()
}

func DefaultOptions() Options {
	return Options{
		Attempts: DefaultAttempts,
		Timeout:  DefaultTimeout,
		JSON:     true,
	}
}

type Config struct {
	Client  *http.Client
	Emitter Emitter
	GiveUp  GiveUpSink
	Backoff BackoffConfig
	Clock   clock.Clock
	Logger  *zerolog.Logger
}

func (c Config) WithDefaults() Config {
	if c.Client == nil {
		c.Client = http.DefaultClient
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff = FixedBackoff(DefaultRetryDelay)
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		l := log.Logger
		c.Logger = &l
	}
	return c
}

// Loader fetches remote content with a per-attempt timeout and a bounded
// retry budget.
type Loader struct {
	cfg Config
	log zerolog.Logger
}

func New(cfg Config) *Loader {
	cfg = cfg.WithDefaults()
	return &Loader{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "loader").Logger(),
	}
}

// Load fetches url until it succeeds or opts.Attempts is spent. Cancelling
// ctx aborts the load without further retries.
func (l *Loader) Load(ctx context.Context, url string, opts Options) (Payload, error) {
	if clientURL.MatchString(url) {
		return Payload{}, &ProtocolError{URL: url}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	l.emit(protocol.KindLoading, nil)
	if opts.Before != nil {
		opts.Before()
	}

	remaining := opts.Attempts
	var lastErr error
	for attempt := 1; remaining > 0; attempt++ {
		payload, aborted, err := l.fetch(ctx, url, opts)
		if err == nil {
			l.emit(protocol.KindLoaded, nil)
			return payload, nil
		}
		if ctx.Err() != nil {
			return Payload{}, fmt.Errorf("loader: %w", ctx.Err())
		}
		lastErr = err
		l.emit(protocol.KindError, nil)
		if aborted {
			l.giveUp()
		}

		remaining--
		if remaining <= 0 {
			break
		}
		delay := NextBackoffDelay(l.cfg.Backoff, attempt)
		l.log.Debug().
			Err(err).
			Str("url", url).
			Int("remaining", remaining).
			Dur("delay", delay).
			Msg("load failed, retrying")
		select {
		case <-ctx.Done():
			return Payload{}, fmt.Errorf("loader: %w", ctx.Err())
		case <-l.cfg.Clock.After(delay):
		}
	}

	l.emit(protocol.KindError, nil)
	l.giveUp()
	l.log.Warn().Err(lastErr).Str("url", url).Int("attempts", opts.Attempts).Msg("load gave up")
	return Payload{}, &TransientLoadError{URL: url, Attempts: opts.Attempts, Err: lastErr}
}

// fetch runs one attempt. aborted reports whether the attempt timer fired.
func (l *Loader) fetch(ctx context.Context, url string, opts Options) (Payload, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
	if err != nil {
		return Payload{}, false, err
	}
	resp, err := l.cfg.Client.Do(req)
	if err != nil {
		return Payload{}, timedOut(ctx, attemptCtx), err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return Payload{}, false, &statusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Payload{}, timedOut(ctx, attemptCtx), err
	}
	payload, err := decodePayload(resp.Header.Get("Content-Type"), body, opts.JSON)
	if err != nil {
		var parseErr *ParseError
		if errors.As(err, &parseErr) {
			l.log.Debug().Err(err).Str("url", url).Msg("json parse failed after entity decoding")
			l.emit(protocol.KindFatal, nil)
		}
		return Payload{}, false, err
	}
	payload.StatusCode = resp.StatusCode
	return payload, false, nil
}

func timedOut(parent, attempt context.Context) bool {
	return parent.Err() == nil && errors.Is(attempt.Err(), context.DeadlineExceeded)
}

func (l *Loader) emit(kind protocol.Kind, payload map[string]any) {
	if l.cfg.Emitter != nil {
		l.cfg.Emitter.Emit(kind, payload)
	}
}

func (l *Loader) giveUp() {
	if l.cfg.GiveUp != nil {
		l.cfg.GiveUp.SubmitGiveUp()
	}
}
