package capture

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/medinotes/pkg/domain/interfaces"
)

// InterimPrefix marks a line as a non-final recognition result
const InterimPrefix = "~"

// LineRecognizer turns a stream of text lines into speech events. Each line
// is a final segment unless it starts with InterimPrefix. End of input is end
// of speech.
type LineRecognizer struct {
	r io.Reader

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	stop    sync.Once
}

var _ interfaces.SpeechRecognizer = (*LineRecognizer)(nil)

// NewLineRecognizer creates a recognizer reading lines from r
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{
		r:      r,
		stopCh: make(chan struct{}),
	}
}

// Start begins reading. It can be called once.
func (x *LineRecognizer) Start(ctx context.Context) (<-chan interfaces.SpeechEvent, <-chan error, error) {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.started {
		return nil, nil, goerr.Wrap(ErrAlreadyStarted, "line recognizer can be started once")
	}
	x.started = true

	events := make(chan interfaces.SpeechEvent, 16)
	errs := make(chan error, 1)
	lines := make(chan string)
	readErr := make(chan error, 1)

	// The reader may block indefinitely, so it runs apart from the event loop
	// and is abandoned on Stop.
	go func() {
		var err error
		defer close(lines)
		// readErr is filled before lines closes, on every return path
		defer func() { readErr <- err }()

		scanner := bufio.NewScanner(x.r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-x.stopCh:
				return
			}
		}
		err = scanner.Err()
	}()

	go func() {
		defer close(events)
		defer close(errs)

		heard := false
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					select {
					case <-x.stopCh:
						return
					default:
					}
					if err := <-readErr; err != nil {
						errs <- goerr.Wrap(ErrCaptureFailed, "failed to read speech stream", goerr.V("error", err.Error()))
					} else if !heard {
						errs <- goerr.Wrap(ErrNoSpeech, "speech stream ended without a segment")
					}
					return
				}
				ev, ok := parseLine(line)
				if !ok {
					continue
				}
				heard = heard || ev.Final
				select {
				case events <- ev:
				case <-x.stopCh:
					return
				}

			case <-x.stopCh:
				return
			}
		}
	}()

	return events, errs, nil
}

// Stop ends recognition. Repeated calls are no-ops.
func (x *LineRecognizer) Stop(context.Context) error {
	x.stop.Do(func() {
		close(x.stopCh)
	})
	return nil
}

func parseLine(line string) (interfaces.SpeechEvent, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return interfaces.SpeechEvent{}, false
	}
	if rest, ok := strings.CutPrefix(line, InterimPrefix); ok {
		return interfaces.SpeechEvent{Text: strings.TrimSpace(rest)}, true
	}
	return interfaces.SpeechEvent{Text: line, Final: true}, true
}
