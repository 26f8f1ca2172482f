package tello

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"i4.energy/across/tellogw/at"
	"i4.energy/across/tellogw/modem"
)

// Link is the part of modem.Link the drone channel and sequencer use.
type Link interface {
	io.Writer
	ReadLine(ctx context.Context, timeout time.Duration) (string, error)
	Drain() []string
}

var _ Link = (*modem.Link)(nil)

// Observer is notified after every drone command that reached the modem.
type Observer interface {
	ObserveCommand(verb string, status Status, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveCommand(string, Status, time.Duration) {}

// Timings are the fixed waits of one drone command exchange.
type Timings struct {
	// PrefixSettle follows the CIPSEND length directive.
	PrefixSettle time.Duration
	// Processing follows the command line, before any reply is read.
	Processing time.Duration
	// ReplyWindow bounds how long reply lines are collected.
	ReplyWindow time.Duration
}

func DefaultTimings() Timings {
	return Timings{
		PrefixSettle: 500 * time.Millisecond,
		Processing:   500 * time.Millisecond,
		ReplyWindow:  time.Second,
	}
}

type ChannelOption func(*Channel)

func WithTimings(t Timings) ChannelOption {
	return func(c *Channel) { c.timings = t }
}

// WithSleeper replaces the wall-clock waits, mainly for tests.
func WithSleeper(s modem.Sleeper) ChannelOption {
	return func(c *Channel) { c.sleep = s }
}

func WithObserver(o Observer) ChannelOption {
	return func(c *Channel) {
		if o != nil {
			c.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) ChannelOption {
	return func(c *Channel) {
		if l != nil {
			c.logger = l
		}
	}
}

// Channel carries drone protocol lines through the modem's open UDP
// session. It is the only writer of drone commands.
type Channel struct {
	link     Link
	enc      *modem.Encoder
	sleep    modem.Sleeper
	timings  Timings
	observer Observer
	logger   *slog.Logger
}

func NewChannel(link Link, opts ...ChannelOption) *Channel {
	c := &Channel{
		link:     link,
		sleep:    modem.Sleep,
		timings:  DefaultTimings(),
		observer: nopObserver{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.enc = modem.NewEncoder(link, c.sleep)
	return c
}

// Execute sends cmd to the drone and classifies what comes back. Protocol
// outcomes, silence included, are reported in the Result; the error is
// reserved for cancellation and transport failures.
func (c *Channel) Execute(ctx context.Context, cmd Command) (Result, error) {
	if cmd.IsZero() {
		return Result{}, ErrEmptyCommand
	}

	start := time.Now()
	res, err := c.exchange(ctx, cmd)
	if err != nil {
		return Result{}, fmt.Errorf("execute %q: %w", cmd, err)
	}

	elapsed := time.Since(start)
	c.observer.ObserveCommand(cmd.Verb(), res.Status, elapsed)
	c.logger.Info("drone command", "command", cmd.String(), "status", res.Status, "reply", res.Text, "elapsed", elapsed)
	return res, nil
}

func (c *Channel) exchange(ctx context.Context, cmd Command) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	c.link.Drain()

	// Once the directive is out the modem waits for exactly cmd.Len() bytes,
	// so the payload is written even if ctx ends in between.
	framing := context.WithoutCancel(ctx)

	directive := modem.Command{Text: at.SendLength(cmd.Len()), Settle: c.timings.PrefixSettle}
	if err := c.enc.Send(framing, directive); err != nil {
		return Result{}, err
	}

	// The modem acknowledges the directive and prompts for payload; none of
	// that is the drone's reply.
	c.link.Drain()

	if err := c.enc.WriteLine(cmd.String()); err != nil {
		return Result{}, fmt.Errorf("write payload: %w", err)
	}
	if err := c.enc.Pause(framing, c.timings.Processing); err != nil {
		return Result{}, err
	}

	return c.awaitReply(ctx)
}

// awaitReply reads lines until one settles the outcome or the reply window
// closes.
func (c *Channel) awaitReply(ctx context.Context) (Result, error) {
	deadline := time.Now().Add(c.timings.ReplyWindow)
	var seen []string

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		line, err := c.link.ReadLine(ctx, remaining)
		if err != nil {
			return Result{}, err
		}
		if line == "" {
			break
		}
		seen = append(seen, line)

		if payload, ok := at.ParseIPD(line); ok {
			c.logger.Debug("drone reply", "payload", payload)
		}

		switch at.ParseResponse(line) {
		case at.Ok:
			return Result{Status: Success, Text: line}, nil
		case at.NoAccessPoint:
			return Result{Status: Rejected, Text: line}, nil
		}
		if at.Classify(line) == at.TypeFinal {
			return Result{Status: Rejected, Text: strings.Join(seen, "\n")}, nil
		}
	}

	if len(seen) == 0 {
		return Result{Status: Timeout}, nil
	}
	return Result{Status: Rejected, Text: strings.Join(seen, "\n")}, nil
}
