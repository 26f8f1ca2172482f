package tello_test

import (
	"context"
	"testing"
	"time"

	"i4.energy/across/tellogw/modem"
	"i4.energy/across/tellogw/tello"
)

// testTimings keep the recorded waits at their production values while the
// reply window, which is real time, stays short.
var testTimings = tello.Timings{
	PrefixSettle: 500 * time.Millisecond,
	Processing:   500 * time.Millisecond,
	ReplyWindow:  50 * time.Millisecond,
}

type harness struct {
	link      *modem.Link
	transport *modem.TestTransport
	slept     []time.Duration
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	transport := modem.NewTestTransport()
	link := modem.NewLink(transport, modem.Config{})
	t.Cleanup(func() { link.Close() })

	return &harness{link: link, transport: transport}
}

// sleeper records requested waits instead of sleeping.
func (h *harness) sleeper() modem.Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		h.slept = append(h.slept, d)
		return ctx.Err()
	}
}

func (h *harness) channel(opts ...tello.ChannelOption) *tello.Channel {
	base := []tello.ChannelOption{
		tello.WithSleeper(h.sleeper()),
		tello.WithTimings(testTimings),
	}
	return tello.NewChannel(h.link, append(base, opts...)...)
}

type recordingObserver struct {
	verbs    []string
	statuses []tello.Status
}

func (o *recordingObserver) ObserveCommand(verb string, status tello.Status, _ time.Duration) {
	o.verbs = append(o.verbs, verb)
	o.statuses = append(o.statuses, status)
}
