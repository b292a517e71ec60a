package capture

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
	"github.com/secmon-lab/medinotes/pkg/domain/model"
	"github.com/secmon-lab/medinotes/pkg/utils/logging"
)

// EndFunc receives the finalized transcript and the recorded audio (nil when
// nothing was recorded) when recognition ends
type EndFunc func(ctx context.Context, transcript string, audio io.Reader)

// Controller drives a speech recognizer and an audio recorder together. The
// two are started side by side but fail independently.
type Controller struct {
	recognizer interfaces.SpeechRecognizer
	recorder   interfaces.AudioRecorder
	notifier   interfaces.Notifier
	onEnd      EndFunc
	now        func() time.Time

	mu                sync.Mutex
	running           bool
	recording         bool
	segments          []string
	interim           string
	done              chan struct{}
	warnedUnsupported bool
}

// Option is a functional option for Controller
type Option func(*Controller)

// WithRecognizer sets the speech capability. Without it Start always fails.
func WithRecognizer(r interfaces.SpeechRecognizer) Option {
	return func(c *Controller) {
		c.recognizer = r
	}
}

// WithRecorder sets the audio capability
func WithRecorder(r interfaces.AudioRecorder) Option {
	return func(c *Controller) {
		c.recorder = r
	}
}

// WithNotifier sets where capture problems are reported
func WithNotifier(n interfaces.Notifier) Option {
	return func(c *Controller) {
		c.notifier = n
	}
}

// WithOnEnd sets the hook run when recognition ends, by Stop or by end of speech
func WithOnEnd(fn EndFunc) Option {
	return func(c *Controller) {
		c.onEnd = fn
	}
}

// New creates a capture controller
func New(opts ...Option) *Controller {
	done := make(chan struct{})
	close(done)

	c := &Controller{
		now:  time.Now,
		done: done,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins recognition and, independently, audio recording
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.recognizer == nil {
		if !c.warnedUnsupported {
			c.warnedUnsupported = true
			c.report(ctx, ErrSpeechUnsupported)
		}
		return goerr.Wrap(ErrSpeechUnsupported, "cannot start capture")
	}
	if c.running {
		return goerr.Wrap(ErrAlreadyStarted, "cannot start capture")
	}

	events, errs, err := c.recognizer.Start(ctx)
	if err != nil {
		f := c.report(ctx, err)
		return goerr.Wrap(f.err, "failed to start speech recognition")
	}

	c.running = true
	c.segments = nil
	c.interim = ""
	c.done = make(chan struct{})

	if c.recorder != nil {
		if err := c.recorder.Start(ctx); err != nil {
			c.report(ctx, err)
		} else {
			c.recording = true
		}
	}

	logging.From(ctx).Info("capture started", slog.Bool("recording", c.recording))
	go c.consume(ctx, events, errs, c.done)
	return nil
}

// Stop halts recognition and recording. It is safe to call at any time.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	if !running {
		return nil
	}
	if err := c.recognizer.Stop(ctx); err != nil {
		return goerr.Wrap(err, "failed to stop speech recognition")
	}
	return nil
}

// Transcript returns the finalized segments joined in receipt order
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.segments, " ")
}

// Interim returns the latest non-final recognition text
func (c *Controller) Interim() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interim
}

// IsRunning reports whether recognition is active
func (c *Controller) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Done is closed after the current capture ended and its end hook returned
func (c *Controller) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *Controller) consume(ctx context.Context, events <-chan interfaces.SpeechEvent, errs <-chan error, done chan struct{}) {
	defer close(done)

	cancelled := ctx.Done()
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.apply(ev)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.report(ctx, err)

		case <-cancelled:
			cancelled = nil
			if err := c.recognizer.Stop(context.WithoutCancel(ctx)); err != nil {
				logging.From(ctx).Warn("failed to stop recognizer", slog.Any("error", err))
			}
		}
	}

	c.finish(context.WithoutCancel(ctx))
}

func (c *Controller) apply(ev interfaces.SpeechEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !ev.Final {
		c.interim = ev.Text
		return
	}
	c.interim = ""
	if text := strings.TrimSpace(ev.Text); text != "" {
		c.segments = append(c.segments, text)
	}
}

func (c *Controller) finish(ctx context.Context) {
	c.mu.Lock()
	recording := c.recording
	c.recording = false
	c.mu.Unlock()

	var audio io.Reader
	if recording {
		a, err := c.recorder.Stop(ctx)
		if err != nil {
			c.report(ctx, err)
		}
		audio = a
	}

	c.mu.Lock()
	c.running = false
	c.interim = ""
	transcript := strings.Join(c.segments, " ")
	c.mu.Unlock()

	logging.From(ctx).Info("capture ended", slog.Int("transcript_length", len(transcript)))

	if c.onEnd != nil {
		c.onEnd(ctx, transcript, audio)
	}
}

func (c *Controller) report(ctx context.Context, err error) failure {
	f := classify(err)
	logging.From(ctx).Warn("capture problem", slog.Any("error", err))
	if c.notifier != nil {
		c.notifier.Notify(ctx, model.Notification{
			Level:     f.level,
			Message:   f.message,
			CreatedAt: c.now(),
		})
	}
	return f
}
