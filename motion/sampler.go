package motion

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

// LineSampler reads "x,y,z" lines from the sensor board's serial stream in
// the background. Only the latest reading is kept; malformed lines are
// skipped.
type LineSampler struct {
	mu     sync.Mutex
	latest Sample
	seen   bool
	err    error
	done   chan struct{}
	logger *slog.Logger
}

var _ Sampler = (*LineSampler)(nil)

// NewLineSampler starts reading r until it returns an error or io.EOF.
func NewLineSampler(r io.Reader, logger *slog.Logger) *LineSampler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &LineSampler{
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.readLoop(r)
	return s
}

func (s *LineSampler) readLoop(r io.Reader) {
	defer close(s.done)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		sample, err := ParseSample(scanner.Text())
		if err != nil {
			s.logger.Debug("skipping sensor line", "error", err)
			continue
		}

		s.mu.Lock()
		s.latest = sample
		s.seen = true
		s.mu.Unlock()
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.logger.Info("sensor stream ended", "error", err)
}

// Sample returns the latest reading. It never blocks.
func (s *LineSampler) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return Sample{}, fmt.Errorf("%w: %w", ErrSensorClosed, s.err)
	}
	if !s.seen {
		return Sample{}, ErrNoSample
	}
	return s.latest, nil
}

// Done is closed once the stream has ended.
func (s *LineSampler) Done() <-chan struct{} {
	return s.done
}
