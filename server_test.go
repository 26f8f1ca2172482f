package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"i4.energy/across/tellogw/at"
	"i4.energy/across/tellogw/metrics"
	"i4.energy/across/tellogw/modem"
	"i4.energy/across/tellogw/motion"
	"i4.energy/across/tellogw/tello"
)

func noWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// restingSampler reports a board lying flat, which never moves the drone.
type restingSampler struct{}

func (restingSampler) Sample(context.Context) (motion.Sample, error) {
	return motion.Sample{X: 0, Y: 0, Z: 1000}, nil
}

// tiltedSampler reports the board pitched forward, which holds a forward
// move until the loop is stopped.
type tiltedSampler struct{}

func (tiltedSampler) Sample(context.Context) (motion.Sample, error) {
	return motion.Sample{X: 0, Y: 25, Z: 0}, nil
}

type testServer struct {
	server    *Server
	bridge    *Bridge
	transport *modem.TestTransport
}

func newTestServer(t *testing.T, sampler motion.Sampler, opts ...tello.ChannelOption) *testServer {
	t.Helper()

	transport := modem.NewTestTransport()
	link := modem.NewLink(transport, modem.Config{})
	t.Cleanup(func() { link.Close() })

	registry := prometheus.NewRegistry()
	observer, err := metrics.New(registry)
	require.NoError(t, err)

	channel := tello.NewChannel(link, append([]tello.ChannelOption{
		tello.WithSleeper(noWait),
		tello.WithTimings(tello.Timings{ReplyWindow: 50 * time.Millisecond}),
		tello.WithObserver(observer),
	}, opts...)...)
	delays := tello.DefaultDelays()
	delays.ReplyWindow = 50 * time.Millisecond
	sequencer := tello.NewSequencer(link, channel,
		tello.WithNetwork("TELLO-AB12CD", ""),
		tello.WithDelays(delays),
		tello.WithSequencerSleeper(noWait),
		tello.WithStepObserver(observer),
	)

	bridge := &Bridge{
		Executor:  channel,
		Sequencer: sequencer,
		Sampler:   sampler,
		Motion: []motion.Option{
			motion.WithCadence(time.Millisecond, time.Millisecond),
			motion.WithObserver(observer),
		},
	}
	t.Cleanup(bridge.Close)

	return &testServer{
		server: &Server{
			Logger:  slog.New(slog.DiscardHandler),
			Bridge:  bridge,
			Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		},
		bridge:    bridge,
		transport: transport,
	}
}

func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	ts.server.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

type commandResponse struct {
	Command string        `json:"command"`
	Status  string        `json:"status"`
	Reply   string        `json:"reply"`
	Display tello.Display `json:"display"`
}

func TestHandleCommand(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.transport.OnWrite("takeoff", "\r\nSEND OK\r\n")

		rec := ts.do(http.MethodPost, "/command", `{"command":"takeoff"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[commandResponse](t, rec)
		assert.Equal(t, "takeoff", resp.Command)
		assert.Equal(t, "success", resp.Status)
		assert.Equal(t, [2]string{"Connected", "SEND OK"}, resp.Display.Lines)
		assert.Equal(t, []string{"AT+CIPSEND=7\r\n", "takeoff\r\n"}, ts.transport.Writes())

		status := ts.bridge.Status()
		assert.True(t, status.Display.Connected)
	})

	t.Run("Timeout", func(t *testing.T) {
		ts := newTestServer(t, nil)

		rec := ts.do(http.MethodPost, "/command", `{"command":"forward 20"}`)
		require.Equal(t, http.StatusGatewayTimeout, rec.Code)

		resp := decode[commandResponse](t, rec)
		assert.Equal(t, "timeout", resp.Status)
		assert.Equal(t, [2]string{"Failed", "timeout"}, resp.Display.Lines)
	})

	t.Run("Rejected", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.transport.OnWrite("flip l", "ERROR\r\n")

		rec := ts.do(http.MethodPost, "/command", `{"command":"flip l"}`)
		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "rejected", decode[commandResponse](t, rec).Status)
	})

	bad := map[string]string{
		"malformed json":  `{"command":`,
		"missing command": `{}`,
		"unknown command": `{"command":"hover"}`,
		"bad distance":    `{"command":"up 5"}`,
	}
	for name, body := range bad {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t, nil)

			rec := ts.do(http.MethodPost, "/command", body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decode[map[string]string](t, rec)["message"])
			assert.Empty(t, ts.transport.Writes())
		})
	}
}

func TestHandleConnect(t *testing.T) {
	type connectResponse struct {
		State tello.ConnectionState `json:"state"`
		Steps []struct {
			Step  string `json:"step"`
			Reply string `json:"reply"`
		} `json:"steps"`
	}

	t.Run("Full sequence", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.transport.OnWrite("command", "SEND OK\r\n")

		rec := ts.do(http.MethodPost, "/connect", "")
		require.Equal(t, http.StatusOK, rec.Code)

		resp := decode[connectResponse](t, rec)
		assert.True(t, resp.State.Complete())
		require.Len(t, resp.Steps, 5)
		assert.Equal(t, "activate-sdk", resp.Steps[4].Step)
		assert.Equal(t, "SEND OK", resp.Steps[4].Reply)

		assert.True(t, ts.bridge.Status().Connection.SDKActive)
	})

	t.Run("Single steps", func(t *testing.T) {
		ts := newTestServer(t, nil)

		rec := ts.do(http.MethodPost, "/connect", `{"step":true}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, tello.ConnectionState{ModuleReady: true}, decode[connectResponse](t, rec).State)

		rec = ts.do(http.MethodPost, "/connect", `{"step":true}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, tello.ConnectionState{ModuleReady: true, StationMode: true}, decode[connectResponse](t, rec).State)

		assert.Equal(t, []string{"AT+RST\r\n", "AT+CWMODE=1\r\n"}, ts.transport.Writes())
	})

	t.Run("Restart", func(t *testing.T) {
		ts := newTestServer(t, nil)

		require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/connect", "").Code)
		require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/connect", "").Code)
		assert.Len(t, ts.transport.Writes(), 6, "a complete sequence is not repeated")

		rec := ts.do(http.MethodPost, "/connect", `{"step":true,"restart":true}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, tello.ConnectionState{ModuleReady: true}, decode[connectResponse](t, rec).State)
	})
}

func TestHandleWiFi(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.transport.OnWrite("AT+CWJAP?", "No AP\r\n\r\nOK\r\n")

	rec := ts.do(http.MethodGet, "/wifi", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[map[string]any](t, rec)
	assert.Equal(t, false, resp["connected"])
	assert.Equal(t, "No AP\nOK", resp["reply"])

	status := ts.bridge.Status()
	require.NotNil(t, status.WiFi)
	assert.False(t, *status.WiFi)
}

func TestHandleMotion(t *testing.T) {
	t.Run("No sensor", func(t *testing.T) {
		ts := newTestServer(t, nil)

		rec := ts.do(http.MethodPost, "/motion/start", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("Stop without a running loop", func(t *testing.T) {
		ts := newTestServer(t, restingSampler{})

		rec := ts.do(http.MethodPost, "/motion/stop", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("Loop owns the link", func(t *testing.T) {
		ts := newTestServer(t, restingSampler{})

		require.Equal(t, http.StatusAccepted, ts.do(http.MethodPost, "/motion/start", "").Code)
		assert.True(t, ts.bridge.Status().Motion)
		assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, "/motion/start", "").Code)
		assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, "/command", `{"command":"takeoff"}`).Code)
		assert.Equal(t, http.StatusConflict, ts.do(http.MethodPost, "/connect", "").Code)
		assert.Equal(t, http.StatusConflict, ts.do(http.MethodGet, "/wifi", "").Code)

		require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/motion/stop", "").Code)
		assert.False(t, ts.bridge.Status().Motion)
		assert.Empty(t, ts.transport.Writes())
	})

	t.Run("Land stops the loop", func(t *testing.T) {
		ts := newTestServer(t, restingSampler{})
		ts.transport.OnWrite("land", "SEND OK\r\n")

		require.Equal(t, http.StatusAccepted, ts.do(http.MethodPost, "/motion/start", "").Code)

		rec := ts.do(http.MethodPost, "/command", `{"command":"land"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, ts.bridge.Status().Motion)
		assert.Equal(t, []string{"AT+CIPSEND=4\r\n", "land\r\n"}, ts.transport.Writes())
	})

	t.Run("Land during a hold keeps every send framed", func(t *testing.T) {
		ts := newTestServer(t, tiltedSampler{},
			tello.WithSleeper(modem.Sleep),
			tello.WithTimings(tello.Timings{
				PrefixSettle: 30 * time.Millisecond,
				Processing:   5 * time.Millisecond,
				ReplyWindow:  20 * time.Millisecond,
			}),
		)
		ts.transport.OnWrite("land", "SEND OK\r\n")

		require.Equal(t, http.StatusAccepted, ts.do(http.MethodPost, "/motion/start", "").Code)

		// Land while a forward move waits between its directive and payload.
		require.Eventually(t, func() bool {
			writes := ts.transport.Writes()
			return len(writes) >= 3 && len(writes)%2 == 1
		}, 2*time.Second, time.Millisecond)

		rec := ts.do(http.MethodPost, "/command", `{"command":"land"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.False(t, ts.bridge.Status().Motion)

		writes := ts.transport.Writes()
		require.Zero(t, len(writes)%2, "every directive needs its payload: %q", writes)
		for i := 0; i < len(writes); i += 2 {
			n, err := at.ParseSendLength(writes[i])
			require.NoError(t, err, "write %d: %q", i, writes[i])
			payload := strings.TrimSuffix(writes[i+1], at.CRLF)
			assert.Len(t, payload, n, "payload %q after %q", payload, writes[i])
		}
		assert.Equal(t, []string{"AT+CIPSEND=4\r\n", "land\r\n"}, writes[len(writes)-2:])
	})
}

func TestHandleStatusAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.transport.OnWrite("takeoff", "SEND OK\r\n")
	require.Equal(t, http.StatusOK, ts.do(http.MethodPost, "/command", `{"command":"takeoff"}`).Code)

	rec := ts.do(http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[Status](t, rec)
	assert.Equal(t, [2]string{"Connected", "SEND OK"}, status.Display.Lines)
	assert.False(t, status.Motion)
	assert.Nil(t, status.WiFi)

	rec = ts.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tellogw_drone_commands_total{status="success",verb="takeoff"} 1`)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/telemetry", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, ts.do(http.MethodGet, "/command", "").Code)
}
