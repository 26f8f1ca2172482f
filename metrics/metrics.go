// Package metrics exposes the gateway's drone, connection and motion
// activity as Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"i4.energy/across/tellogw/motion"
	"i4.energy/across/tellogw/tello"
)

// Metrics observes drone commands, connection steps and motion cycles.
type Metrics struct {
	commands *prometheus.CounterVec
	duration prometheus.Histogram
	steps    *prometheus.CounterVec
	cycles   *prometheus.CounterVec
	moves    prometheus.Counter
}

var (
	_ tello.Observer     = (*Metrics)(nil)
	_ tello.StepObserver = (*Metrics)(nil)
	_ motion.Observer    = (*Metrics)(nil)
)

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tellogw_drone_commands_total",
			Help: "Drone commands sent through the modem, by verb and outcome.",
		}, []string{"verb", "status"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tellogw_drone_command_duration_seconds",
			Help:    "Time from length directive to classified reply.",
			Buckets: prometheus.LinearBuckets(0.5, 0.25, 8),
		}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tellogw_connection_steps_total",
			Help: "Connection steps issued to the modem.",
		}, []string{"step"}),
		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tellogw_motion_cycles_total",
			Help: "Motion control cycles, by dominant axis.",
		}, []string{"axis"}),
		moves: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tellogw_motion_commands_total",
			Help: "Movement commands issued by the motion controller.",
		}),
	}

	for _, c := range []prometheus.Collector{m.commands, m.duration, m.steps, m.cycles, m.moves} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveCommand(verb string, status tello.Status, elapsed time.Duration) {
	m.commands.WithLabelValues(verb, status.String()).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveStep(step tello.Step) {
	m.steps.WithLabelValues(step.String()).Inc()
}

func (m *Metrics) ObserveCycle(axis motion.Axis, commands int) {
	m.cycles.WithLabelValues(axis.String()).Inc()
	m.moves.Add(float64(commands))
}
