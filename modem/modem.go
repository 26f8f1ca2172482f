package modem

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"i4.energy/across/tellogw/at"
)

// Link is the full-duplex byte channel to an ESP8266-class Wi-Fi modem.
// A single reader goroutine owns the transport's read side and queues
// complete lines; writes go straight to the transport.
//
// Transmit and receive capacities are fixed when the Link is built. Bytes
// past either capacity are dropped without an error, so callers keep command
// and reply lines within them.
//
// A Link is not meant to be shared between independent flows: exactly one
// command may be in flight at a time, and serializing callers is the job of
// whoever owns the Link.
type Link struct {
	// transport provides the physical connection to the modem
	transport Transport
	logger    *slog.Logger
	// txSize is the largest number of bytes accepted per Write
	txSize int

	// lines receives complete, non-empty lines from the reader goroutine
	lines chan string
	// done is closed once the reader goroutine has stopped
	done chan struct{}
	// readErr holds why the reader stopped; valid after done is closed
	readErr error

	mu     sync.Mutex
	closed bool
}

// Open dials the configured transport and starts reading from it.
func Open(ctx context.Context, config Config) (*Link, error) {
	if config.dialer == nil {
		return nil, ErrNoDialer
	}
	transport, err := config.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("dial modem: %w", err)
	}
	if transport == nil {
		return nil, ErrNotInitialized
	}
	return NewLink(transport, config), nil
}

// NewLink wraps an already connected transport. Zero values in config are
// replaced by defaults, so NewLink(t, Config{}) is valid.
func NewLink(transport Transport, config Config) *Link {
	config.setDefaults()

	l := &Link{
		transport: transport,
		logger:    config.logger,
		txSize:    config.txBufferSize,
		lines:     make(chan string, config.lineQueue),
		done:      make(chan struct{}),
	}

	if transport == nil {
		l.readErr = ErrNotInitialized
		close(l.done)
		return l
	}

	go l.readLoop(config.rxBufferSize)
	return l
}

// readLoop is the only goroutine that reads from the transport. It stops
// when the transport returns an error, io.EOF included.
func (l *Link) readLoop(rxSize int) {
	defer close(l.done)

	scanner := bufio.NewScanner(l.transport)
	scanner.Split(at.BoundedSplitter(rxSize))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		select {
		case l.lines <- line:
			l.logger.Debug("rx", "line", line, "type", at.Classify(line))
		default:
			l.logger.Debug("receive queue full, dropping line", "line", line)
		}
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	l.readErr = err
}

func (l *Link) check() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrAlreadyClosed
	}
	if l.transport == nil {
		return ErrNotInitialized
	}
	return nil
}

// Write hands p to the transport, cut to the transmit capacity. It reports
// len(p) as written even when bytes were dropped.
func (l *Link) Write(p []byte) (int, error) {
	if err := l.check(); err != nil {
		return 0, err
	}

	n := len(p)
	if n > l.txSize {
		l.logger.Debug("transmit buffer overflow, dropping bytes", "dropped", n-l.txSize)
		p = p[:l.txSize]
	}

	if _, err := l.transport.Write(p); err != nil {
		return 0, fmt.Errorf("write: %w", err)
	}
	l.logger.Debug("tx", "data", strings.TrimSpace(string(p)))
	return n, nil
}

// ReadLine returns the next non-empty line received from the modem. When
// nothing arrives within timeout it returns "" and a nil error: silence is
// not an error at this layer. A non-positive timeout only returns an already
// queued line.
//
// Errors are reserved for context cancellation, a closed Link and a
// transport that stopped delivering data.
func (l *Link) ReadLine(ctx context.Context, timeout time.Duration) (string, error) {
	if err := l.check(); err != nil {
		return "", err
	}

	select {
	case line := <-l.lines:
		return line, nil
	default:
	}

	if timeout <= 0 {
		return "", nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line := <-l.lines:
		return line, nil
	case <-timer.C:
		return "", nil
	case <-ctx.Done():
		return "", ctx.Err()
	case <-l.done:
		// Lines queued before the reader stopped are still valid.
		select {
		case line := <-l.lines:
			return line, nil
		default:
		}
		if err := l.check(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("read: %w", l.readErr)
	}
}

// Drain discards every line received but not yet read and returns them.
func (l *Link) Drain() []string {
	var stale []string
	for {
		select {
		case line := <-l.lines:
			stale = append(stale, line)
		default:
			if len(stale) > 0 {
				l.logger.Debug("discarded stale lines", "lines", stale)
			}
			return stale
		}
	}
}

// Done is closed when the reader has stopped, after which Err reports why.
func (l *Link) Done() <-chan struct{} {
	return l.done
}

// Err returns the reason the reader stopped, or nil while it is running.
func (l *Link) Err() error {
	select {
	case <-l.done:
		return l.readErr
	default:
		return nil
	}
}

// Close closes the underlying transport, which also stops the reader.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrAlreadyClosed
	}
	l.closed = true

	if l.transport != nil {
		return l.transport.Close()
	}
	return nil
}
