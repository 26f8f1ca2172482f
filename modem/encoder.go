package modem

import (
	"context"
	"fmt"
	"io"
	"time"

	"i4.energy/across/tellogw/at"
)

// Command is a single AT command line and how long the modem needs after
// it before further I/O makes sense.
type Command struct {
	Text   string
	Settle time.Duration
}

// Sleeper suspends the caller for d. It must return early with ctx.Err()
// when the context ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Encoder frames AT commands onto a writer. Sending and observing the reply
// are separate steps: Send never reads.
type Encoder struct {
	w     io.Writer
	sleep Sleeper
}

// NewEncoder returns an Encoder writing to w. A nil sleep uses Sleep.
func NewEncoder(w io.Writer, sleep Sleeper) *Encoder {
	if sleep == nil {
		sleep = Sleep
	}
	return &Encoder{w: w, sleep: sleep}
}

// Send writes cmd.Text with a CRLF terminator and then waits cmd.Settle.
func (e *Encoder) Send(ctx context.Context, cmd Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.WriteLine(cmd.Text); err != nil {
		return fmt.Errorf("send %q: %w", cmd.Text, err)
	}
	return e.Pause(ctx, cmd.Settle)
}

// WriteLine writes text and a CRLF terminator in a single write, without
// any settle delay.
func (e *Encoder) WriteLine(text string) error {
	_, err := io.WriteString(e.w, text+at.CRLF)
	return err
}

// Pause suspends for d through the Encoder's Sleeper.
func (e *Encoder) Pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	return e.sleep(ctx, d)
}
