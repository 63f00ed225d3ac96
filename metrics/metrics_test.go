package metrics_test

import (
	"errors"
	"testing"
	"time"

	"bsid.es/alarmclock"
	"bsid.es/alarmclock/mem"
	"bsid.es/alarmclock/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := metrics.New(reg)
	require.NoError(t, err)

	deadline := time.Date(2030, 6, 1, 7, 0, 0, 0, time.UTC)
	r.AlarmFired(false)
	r.AlarmFired(true)
	r.AlarmFired(true)
	r.TimerArmed(deadline, 90*time.Second)
	r.TimerError("arm")
	r.CommitError()
	r.AlarmsLive(4)

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 8, count)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, l := range m.GetLabel() {
				name += "/" + l.GetValue()
			}
			switch {
			case m.Counter != nil:
				values[name] = m.GetCounter().GetValue()
			case m.Gauge != nil:
				values[name] = m.GetGauge().GetValue()
			case m.Histogram != nil:
				values[name] = float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	assert.Equal(t, map[string]float64{
		"alarmclock_alarms_fired_total/once":   1,
		"alarmclock_alarms_fired_total/repeat": 2,
		"alarmclock_timer_arms_total":          1,
		"alarmclock_timer_errors_total/arm":    1,
		"alarmclock_commit_errors_total":       1,
		"alarmclock_alarms":                    4,
		"alarmclock_next_deadline_seconds":     float64(deadline.Unix()),
		"alarmclock_timer_delay_seconds":       1,
	}, values)

	r.TimerDisarmed()
	assert.Equal(t, 0.0, gauge(t, reg, "alarmclock_next_deadline_seconds"))
}

func TestNewTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := metrics.New(reg)
	require.NoError(t, err)
	_, err = metrics.New(reg)
	assert.Error(t, err)
}

func TestRecorderWithManager(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := metrics.New(reg)
	require.NoError(t, err)

	settings := mem.NewSettings()
	settings.FailCommits(errors.New("read-only"))
	m := alarmclock.NewManager(alarmclock.NewStore(settings, nil),
		alarmclock.WithTimer(mem.TimerFunc),
		alarmclock.WithMetrics(r),
	)
	defer m.Close()

	at := time.Now().Add(time.Hour)
	_, err = m.Add(alarmclock.Alarm{FireTime: at})
	require.NoError(t, err)
	_, err = m.Add(alarmclock.Alarm{FireTime: at.Add(time.Hour)})
	require.NoError(t, err)

	assert.Equal(t, 2.0, gauge(t, reg, "alarmclock_alarms"))
	assert.Equal(t, float64(at.Unix()), gauge(t, reg, "alarmclock_next_deadline_seconds"))
	assert.Equal(t, 2.0, gauge(t, reg, "alarmclock_commit_errors_total"))
}

// gauge returns the value of the unlabeled gauge or counter called name.
func gauge(tb testing.TB, reg *prometheus.Registry, name string) float64 {
	tb.Helper()
	families, err := reg.Gather()
	require.NoError(tb, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		m := mf.GetMetric()[0]
		if m.Counter != nil {
			return m.GetCounter().GetValue()
		}
		return m.GetGauge().GetValue()
	}
	tb.Fatalf("no metric %s", name)
	return 0
}
