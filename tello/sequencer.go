package tello

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"i4.energy/across/tellogw/at"
	"i4.energy/across/tellogw/modem"
)

// Executor runs one drone command. *Channel is the production Executor.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (Result, error)
}

// StepObserver is notified after each connection step is issued.
type StepObserver interface {
	ObserveStep(step Step)
}

type nopStepObserver struct{}

func (nopStepObserver) ObserveStep(Step) {}

// Delays are the fixed waits after each connection step. No step checks the
// previous one; the delays are all the synchronization there is.
type Delays struct {
	Reset       time.Duration
	StationMode time.Duration
	Join        time.Duration
	OpenUDP     time.Duration
	ActivateSDK time.Duration
	// Query follows the Wi-Fi status query.
	Query time.Duration
	// ReplyWindow bounds reading the join and status replies.
	ReplyWindow time.Duration
}

func DefaultDelays() Delays {
	return Delays{
		Reset:       2 * time.Second,
		StationMode: 500 * time.Millisecond,
		Join:        5 * time.Second,
		OpenUDP:     time.Second,
		ActivateSDK: 500 * time.Millisecond,
		Query:       500 * time.Millisecond,
		ReplyWindow: 500 * time.Millisecond,
	}
}

type SequencerOption func(*Sequencer)

// WithNetwork sets the access point to join. An empty password joins an
// open network, which is how the drone ships.
func WithNetwork(ssid, password string) SequencerOption {
	return func(s *Sequencer) {
		s.ssid = ssid
		s.password = password
	}
}

func WithDroneAddr(ip string, port int) SequencerOption {
	return func(s *Sequencer) {
		s.droneIP = ip
		s.dronePort = port
	}
}

func WithDelays(d Delays) SequencerOption {
	return func(s *Sequencer) { s.delays = d }
}

func WithSequencerSleeper(sl modem.Sleeper) SequencerOption {
	return func(s *Sequencer) { s.sleep = sl }
}

func WithStepObserver(o StepObserver) SequencerOption {
	return func(s *Sequencer) {
		if o != nil {
			s.observer = o
		}
	}
}

func WithSequencerLogger(l *slog.Logger) SequencerOption {
	return func(s *Sequencer) {
		if l != nil {
			s.logger = l
		}
	}
}

// StepResult carries what a step observed, for display only.
type StepResult struct {
	Step  Step   `json:"step"`
	Reply string `json:"reply,omitempty"`
}

// Sequencer walks the modem through reset, station mode, network join, UDP
// session open and drone SDK activation. It neither verifies nor retries: a
// step that silently failed shows up later as failing drone commands, and
// the caller starts over from a zero ConnectionState.
type Sequencer struct {
	link      Link
	enc       *modem.Encoder
	exec      Executor
	sleep     modem.Sleeper
	ssid      string
	password  string
	droneIP   string
	dronePort int
	delays    Delays
	observer  StepObserver
	logger    *slog.Logger
}

func NewSequencer(link Link, exec Executor, opts ...SequencerOption) *Sequencer {
	s := &Sequencer{
		link:      link,
		exec:      exec,
		sleep:     modem.Sleep,
		droneIP:   DefaultIP,
		dronePort: DefaultCommandPort,
		delays:    DefaultDelays(),
		observer:  nopStepObserver{},
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.enc = modem.NewEncoder(link, s.sleep)
	return s
}

// Step issues the next pending step of state and returns the advanced
// state. On error the input state is returned unchanged.
func (s *Sequencer) Step(ctx context.Context, state ConnectionState) (ConnectionState, StepResult, error) {
	if !state.Valid() {
		return state, StepResult{}, ErrInvalidState
	}
	step, ok := state.Next()
	if !ok {
		return state, StepResult{}, ErrSequenceComplete
	}

	res := StepResult{Step: step}
	var err error

	switch step {
	case StepReset:
		err = s.send(ctx, at.CmdReset, s.delays.Reset)
	case StepStationMode:
		err = s.send(ctx, at.CmdStationMode, s.delays.StationMode)
	case StepJoinWiFi:
		if err = s.send(ctx, at.JoinAP(s.ssid, s.password), s.delays.Join); err == nil {
			res.Reply, err = s.collect(ctx)
		}
	case StepOpenUDP:
		err = s.send(ctx, at.StartUDP(s.droneIP, s.dronePort), s.delays.OpenUDP)
	case StepActivateSDK:
		var r Result
		if r, err = s.exec.Execute(ctx, SDKMode); err == nil {
			res.Reply = DisplayFor(r).Lines[1]
			err = s.enc.Pause(ctx, s.delays.ActivateSDK)
		}
	}
	if err != nil {
		return state, res, fmt.Errorf("%s: %w", step, err)
	}

	s.observer.ObserveStep(step)
	s.logger.Info("connection step issued", "step", step, "reply", res.Reply)
	return state.With(step), res, nil
}

// Connect issues every pending step of state in order. It stops at the
// first error and returns the state reached so far.
func (s *Sequencer) Connect(ctx context.Context, state ConnectionState) (ConnectionState, []StepResult, error) {
	var results []StepResult
	for !state.Complete() {
		next, res, err := s.Step(ctx, state)
		if err != nil {
			return state, results, err
		}
		state = next
		results = append(results, res)
	}
	return state, results, nil
}

// WiFiConnected asks the modem whether it is associated with an access
// point. The answer is returned, not remembered.
func (s *Sequencer) WiFiConnected(ctx context.Context) (bool, string, error) {
	if err := s.send(ctx, at.CmdQueryAP, s.delays.Query); err != nil {
		return false, "", fmt.Errorf("query access point: %w", err)
	}
	reply, err := s.collect(ctx)
	if err != nil {
		return false, reply, fmt.Errorf("query access point: %w", err)
	}

	switch at.ParseResponse(reply) {
	case at.NoAccessPoint:
		return false, reply, nil
	case at.Ok:
		return true, reply, nil
	}
	connected := strings.Contains(reply, at.DataCWJAP) || strings.Contains(reply, at.Connected)
	return connected, reply, nil
}

func (s *Sequencer) send(ctx context.Context, text string, settle time.Duration) error {
	s.link.Drain()
	return s.enc.Send(ctx, modem.Command{Text: text, Settle: settle})
}

// collect joins every line that arrives until the reply window closes or
// the modem goes quiet.
func (s *Sequencer) collect(ctx context.Context) (string, error) {
	deadline := time.Now().Add(s.delays.ReplyWindow)
	var lines []string
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		line, err := s.link.ReadLine(ctx, remaining)
		if err != nil {
			return strings.Join(lines, "\n"), err
		}
		if line == "" {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
