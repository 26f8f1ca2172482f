package motion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"i4.energy/across/tellogw/modem"
	"i4.energy/across/tellogw/tello"
)

//go:generate go tool mockgen -destination=mock_motion.go -package=motion . Sampler,Executor

// Sampler supplies the latest acceleration reading.
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// Executor runs one drone command; *tello.Channel satisfies it.
type Executor interface {
	Execute(ctx context.Context, cmd tello.Command) (tello.Result, error)
}

var _ Executor = (*tello.Channel)(nil)

// Observer is notified at the end of every control cycle.
type Observer interface {
	ObserveCycle(axis Axis, commands int)
}

type nopObserver struct{}

func (nopObserver) ObserveCycle(Axis, int) {}

const (
	DefaultRepeatCadence = 100 * time.Millisecond
	DefaultPollInterval  = 100 * time.Millisecond
)

type Option func(*Controller)

func WithThresholds(th Thresholds) Option {
	return func(c *Controller) { c.thresholds = th }
}

// WithCadence sets the wait between repeated commands on a held axis and
// the idle wait between cycles that moved nothing.
func WithCadence(repeat, poll time.Duration) Option {
	return func(c *Controller) {
		c.repeat = repeat
		c.poll = poll
	}
}

func WithSleeper(s modem.Sleeper) Option {
	return func(c *Controller) {
		if s != nil {
			c.sleep = s
		}
	}
}

func WithObserver(o Observer) Option {
	return func(c *Controller) {
		if o != nil {
			c.observer = o
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Cycle reports one control cycle.
type Cycle struct {
	Axis     Axis
	Commands int
	// Last is the outcome of the last command issued, if any.
	Last tello.Result
}

// Controller turns tilt into drone movements. Each cycle picks the dominant
// axis and, while that axis stays outside its band, keeps repeating the
// matching move. The other axes are ignored until the held one settles.
type Controller struct {
	sampler    Sampler
	exec       Executor
	thresholds Thresholds
	repeat     time.Duration
	poll       time.Duration
	sleep      modem.Sleeper
	observer   Observer
	logger     *slog.Logger
}

func NewController(sampler Sampler, exec Executor, opts ...Option) *Controller {
	c := &Controller{
		sampler:    sampler,
		exec:       exec,
		thresholds: DefaultThresholds(),
		repeat:     DefaultRepeatCadence,
		poll:       DefaultPollInterval,
		sleep:      modem.Sleep,
		observer:   nopObserver{},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Step runs one control cycle. The context is checked before every command,
// so a cancelled context ends a hold between two repeats.
func (c *Controller) Step(ctx context.Context) (Cycle, error) {
	if err := ctx.Err(); err != nil {
		return Cycle{}, err
	}

	s, err := c.sampler.Sample(ctx)
	if err != nil {
		return Cycle{}, fmt.Errorf("sample: %w", err)
	}

	cycle := Cycle{Axis: Dominant(s)}
	cmd, move := Decide(cycle.Axis, s, c.thresholds)

	for move {
		if err := ctx.Err(); err != nil {
			return cycle, err
		}

		res, err := c.exec.Execute(ctx, cmd)
		if err != nil {
			return cycle, err
		}
		cycle.Commands++
		cycle.Last = res
		c.logger.Debug("hold", "axis", cycle.Axis, "command", cmd.String(), "status", res.Status, "sample", s)

		if err := c.sleep(ctx, c.repeat); err != nil {
			return cycle, err
		}
		if s, err = c.sampler.Sample(ctx); err != nil {
			return cycle, fmt.Errorf("sample: %w", err)
		}
		cmd, move = Decide(cycle.Axis, s, c.thresholds)
	}

	c.observer.ObserveCycle(cycle.Axis, cycle.Commands)
	if cycle.Commands > 0 {
		c.logger.Info("axis settled", "axis", cycle.Axis, "commands", cycle.Commands)
	}
	return cycle, nil
}

// Run repeats Step until ctx ends, idling between cycles that issued
// nothing. A sampler without a first reading is waited for; any other error
// ends the loop.
func (c *Controller) Run(ctx context.Context) error {
	for {
		cycle, err := c.Step(ctx)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil && !errors.Is(err, ErrNoSample) {
			return err
		}

		if cycle.Commands == 0 {
			if err := c.sleep(ctx, c.poll); err != nil {
				return err
			}
		}
	}
}
