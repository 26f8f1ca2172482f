package main

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"i4.energy/across/tellogw/motion"
	"i4.energy/across/tellogw/tello"
)

var (
	// ErrBusy is returned while the motion loop owns the modem link.
	ErrBusy = errors.New("motion control is running")

	// ErrNoSensor is returned by StartMotion when no tilt sensor is configured.
	ErrNoSensor = errors.New("no tilt sensor configured")
)

// Bridge is the single owner of the modem link. Requests are served one at
// a time; while the motion loop runs it has the link to itself and
// everything except land and emergency is refused.
type Bridge struct {
	Executor  tello.Executor
	Sequencer *tello.Sequencer
	// Sampler feeds the motion loop; nil disables it
	Sampler motion.Sampler
	// Motion configures every motion controller the bridge starts
	Motion []motion.Option
	Logger *slog.Logger

	mu        sync.Mutex
	state     tello.ConnectionState
	wifi      *bool
	display   tello.Display
	lastReply string

	motionCancel context.CancelFunc
	motionDone   chan struct{}
	motionErr    error
}

// Status is a snapshot of what the bridge last observed.
type Status struct {
	Connection tello.ConnectionState `json:"connection"`
	// WiFi is nil until the first Wi-Fi check
	WiFi          *bool         `json:"wifi,omitempty"`
	Display       tello.Display `json:"display"`
	Motion        bool          `json:"motion"`
	MotionError   string        `json:"motion_error,omitempty"`
	LastStepReply string        `json:"last_step_reply,omitempty"`
}

func (b *Bridge) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return b.Logger
}

// Connect advances the connection sequence from the stored state: one step
// when single is set, otherwise every remaining step. restart discards the
// stored state first.
func (b *Bridge) Connect(ctx context.Context, single, restart bool) (tello.ConnectionState, []tello.StepResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.motionDone != nil {
		return b.state, nil, ErrBusy
	}
	if restart {
		b.state = tello.ConnectionState{}
	}

	var (
		results []tello.StepResult
		err     error
	)
	if single {
		var res tello.StepResult
		b.state, res, err = b.Sequencer.Step(ctx, b.state)
		if err == nil {
			results = append(results, res)
		}
	} else {
		b.state, results, err = b.Sequencer.Connect(ctx, b.state)
	}

	if n := len(results); n > 0 && results[n-1].Reply != "" {
		b.lastReply = results[n-1].Reply
	}
	return b.state, results, err
}

// WiFi asks the modem whether it is associated with an access point.
func (b *Bridge) WiFi(ctx context.Context) (bool, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.motionDone != nil {
		return false, "", ErrBusy
	}

	connected, reply, err := b.Sequencer.WiFiConnected(ctx)
	if err != nil {
		return false, reply, err
	}
	b.wifi = &connected
	return connected, reply, nil
}

// Execute sends one drone command. Land and emergency stop the motion loop
// first; anything else is refused with ErrBusy while it runs.
func (b *Bridge) Execute(ctx context.Context, cmd tello.Command) (tello.Result, error) {
	if cmd == tello.Land || cmd == tello.Emergency {
		b.StopMotion()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.motionDone != nil {
		return tello.Result{}, ErrBusy
	}

	res, err := b.Executor.Execute(ctx, cmd)
	if err != nil {
		return res, err
	}
	b.display = tello.DisplayFor(res)
	return res, nil
}

// StartMotion hands the link to a new motion loop. The loop runs until
// StopMotion or until it fails.
func (b *Bridge) StartMotion() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Sampler == nil {
		return ErrNoSensor
	}
	if b.motionDone != nil {
		return ErrBusy
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	b.motionCancel = cancel
	b.motionDone = done
	b.motionErr = nil

	controller := motion.NewController(b.Sampler, b.Executor, b.Motion...)
	go func() {
		defer close(done)
		defer cancel()

		err := controller.Run(ctx)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
		if err != nil {
			b.logger().Error("motion loop stopped", "error", err)
		}

		b.mu.Lock()
		b.motionCancel = nil
		b.motionDone = nil
		b.motionErr = err
		b.mu.Unlock()
	}()

	b.logger().Info("motion loop started")
	return nil
}

// StopMotion stops the motion loop and waits for it to release the link.
// It reports whether a loop was running.
func (b *Bridge) StopMotion() bool {
	b.mu.Lock()
	cancel, done := b.motionCancel, b.motionDone
	b.mu.Unlock()

	if done == nil {
		return false
	}
	cancel()
	<-done
	b.logger().Info("motion loop stopped by request")
	return true
}

func (b *Bridge) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := Status{
		Connection:    b.state,
		Display:       b.display,
		Motion:        b.motionDone != nil,
		LastStepReply: b.lastReply,
	}
	if b.wifi != nil {
		connected := *b.wifi
		s.WiFi = &connected
	}
	if b.motionErr != nil {
		s.MotionError = b.motionErr.Error()
	}
	return s
}

// Close stops the motion loop, if any.
func (b *Bridge) Close() {
	b.StopMotion()
}
