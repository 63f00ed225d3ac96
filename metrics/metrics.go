// Package metrics exports scheduler activity to Prometheus.
package metrics

import (
	"time"

	"bsid.es/alarmclock"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "alarmclock_"

	kindOnce   = "once"
	kindRepeat = "repeat"
)

var _ alarmclock.Metrics = (*Recorder)(nil)

// Recorder implements alarmclock.Metrics.
type Recorder struct {
	fired        *prometheus.CounterVec
	timerArms    prometheus.Counter
	timerErrors  *prometheus.CounterVec
	commitErrors prometheus.Counter
	live         prometheus.Gauge
	deadline     prometheus.Gauge
	delay        prometheus.Histogram
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		fired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarms_fired_total",
				Help: "Total fired alarms by kind",
			},
			[]string{"kind"},
		),
		timerArms: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "timer_arms_total",
			Help: "Total times the scheduler timer was armed",
		}),
		timerErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "timer_errors_total",
				Help: "Total failed scheduler timer operations by operation",
			},
			[]string{"op"},
		),
		commitErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "commit_errors_total",
			Help: "Total failed settings commits",
		}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "alarms",
			Help: "Number of live alarms",
		}),
		deadline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "next_deadline_seconds",
			Help: "Unix time the scheduler timer is armed for, 0 when disarmed",
		}),
		delay: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "timer_delay_seconds",
			Help:    "Delay of each scheduler timer arm in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
	for _, c := range []prometheus.Collector{
		r.fired, r.timerArms, r.timerErrors, r.commitErrors, r.live, r.deadline, r.delay,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) AlarmFired(repeat bool) {
	kind := kindOnce
	if repeat {
		kind = kindRepeat
	}
	r.fired.WithLabelValues(kind).Inc()
}

func (r *Recorder) TimerArmed(deadline time.Time, delay time.Duration) {
	r.timerArms.Inc()
	r.deadline.Set(float64(deadline.Unix()))
	r.delay.Observe(delay.Seconds())
}

func (r *Recorder) TimerDisarmed() {
	r.deadline.Set(0)
}

func (r *Recorder) TimerError(op string) {
	r.timerErrors.WithLabelValues(op).Inc()
}

func (r *Recorder) CommitError() {
	r.commitErrors.Inc()
}

func (r *Recorder) AlarmsLive(n int) {
	r.live.Set(float64(n))
}
