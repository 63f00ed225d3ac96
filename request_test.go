package alarmclock_test

import (
	"strings"
	"testing"
	"time"

	"bsid.es/alarmclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name     string
		args     string
		trigger  alarmclock.TriggerType
		delay    *int
		hour     *int
		minute   *int
		repeat   bool
		interval *int
	}{
		{
			name:    "delay",
			args:    `{"delay": 300}`,
			trigger: alarmclock.TriggerDelay,
			delay:   ptr(300),
		},
		{
			name:    "delay bounds",
			args:    `{"delay": 86400}`,
			trigger: alarmclock.TriggerDelay,
			delay:   ptr(86400),
		},
		{
			name:    "time of day",
			args:    `{"hour": 7, "minute": 30}`,
			trigger: alarmclock.TriggerTimeOfDay,
			hour:    ptr(7),
			minute:  ptr(30),
		},
		{
			name:    "midnight",
			args:    `{"hour": 0, "minute": 0, "repeat": false}`,
			trigger: alarmclock.TriggerTimeOfDay,
			hour:    ptr(0),
			minute:  ptr(0),
		},
		{
			name:     "repeating",
			args:     `{"hour": 23, "minute": 59, "repeat": true, "interval": 1440}`,
			trigger:  alarmclock.TriggerTimeOfDay,
			hour:     ptr(23),
			minute:   ptr(59),
			repeat:   true,
			interval: ptr(1440),
		},
		{
			name:     "longest interval",
			args:     `{"delay": 1, "repeat": true, "interval": 10080}`,
			trigger:  alarmclock.TriggerDelay,
			delay:    ptr(1),
			repeat:   true,
			interval: ptr(10080),
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req, err := alarmclock.ParseRequest([]byte(tt.args))
			require.NoError(t, err)
			assert.Equal(t, tt.trigger, req.Trigger)
			assert.Equal(t, tt.delay, req.Delay)
			assert.Equal(t, tt.hour, req.Hour)
			assert.Equal(t, tt.minute, req.Minute)
			assert.Equal(t, tt.repeat, req.Repeat)
			assert.Equal(t, tt.interval, req.Interval)
			assert.True(t, strings.HasPrefix(req.ID, "alarm-"+string(tt.trigger)+"-"), "id %q", req.ID)
		})
	}
}

func TestParseRequestErrors(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
	}{
		{"not json", `delay=5`, "JSON object"},
		{"array", `[1, 2]`, "JSON object"},
		{"null", `null`, "JSON object"},
		{"empty", `{}`, "either delay or hour/minute"},
		{"both", `{"delay": 5, "hour": 1, "minute": 2}`, "can't be combined"},
		{"minute alone", `{"minute": 2}`, "minute requires hour"},
		{"hour alone", `{"hour": 2}`, "hour requires minute"},
		{"delay zero", `{"delay": 0}`, `"delay" must be between 1 and 86400`},
		{"delay too long", `{"delay": 86401}`, `"delay" must be between`},
		{"hour range", `{"hour": 24, "minute": 0}`, `"hour" must be between 0 and 23`},
		{"minute range", `{"hour": 1, "minute": -1}`, `"minute" must be between 0 and 59`},
		{"interval range", `{"delay": 5, "repeat": true, "interval": 10081}`, `"interval" must be between 1 and 10080`},
		{"repeat without interval", `{"delay": 5, "repeat": true}`, "interval is required"},
		{"interval without repeat", `{"delay": 5, "interval": 5}`, "only allowed when repeat"},
		{"string delay", `{"delay": "5"}`, `"delay" must be an integer`},
		{"fractional delay", `{"delay": 1.5}`, `"delay" must be an integer`},
		{"null hour", `{"hour": null, "minute": 1}`, `"hour" must be an integer`},
		{"string repeat", `{"delay": 5, "repeat": "yes"}`, `"repeat" must be a boolean`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			_, err := alarmclock.ParseRequest([]byte(tt.args))
			require.Error(t, err)
			assert.Equal(t, alarmclock.ErrInvalid, alarmclock.ErrorCode(err))
			assert.Contains(t, alarmclock.ErrorDescription(err), tt.want)
		})
	}
}

func TestNewRequestIDUnique(t *testing.T) {
	a := alarmclock.NewRequestID(alarmclock.TriggerDelay)
	b := alarmclock.NewRequestID(alarmclock.TriggerDelay)
	assert.NotEqual(t, a, b)
}

func TestScheduleRequestAlarm(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	now := time.Date(2030, 6, 1, 7, 0, 0, 0, loc)

	tests := []struct {
		name string
		args string
		want alarmclock.Alarm
	}{
		{
			name: "delay",
			args: `{"delay": 90}`,
			want: alarmclock.Alarm{FireTime: now.Add(90 * time.Second), Sound: alarmclock.DefaultSound},
		},
		{
			name: "later today",
			args: `{"hour": 7, "minute": 30}`,
			want: alarmclock.Alarm{FireTime: time.Date(2030, 6, 1, 7, 30, 0, 0, loc), Sound: alarmclock.DefaultSound},
		},
		{
			name: "now means tomorrow",
			args: `{"hour": 7, "minute": 0}`,
			want: alarmclock.Alarm{FireTime: time.Date(2030, 6, 2, 7, 0, 0, 0, loc), Sound: alarmclock.DefaultSound},
		},
		{
			name: "repeating",
			args: `{"hour": 6, "minute": 0, "repeat": true, "interval": 1440}`,
			want: alarmclock.Alarm{
				FireTime: time.Date(2030, 6, 2, 6, 0, 0, 0, loc),
				Repeat:   true,
				Interval: 24 * time.Hour,
				Sound:    alarmclock.DefaultSound,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req, err := alarmclock.ParseRequest([]byte(tt.args))
			require.NoError(t, err)
			got := req.Alarm(now, loc)
			assert.True(t, tt.want.FireTime.Equal(got.FireTime), "fire time\ngot:  %v\nwant: %v", got.FireTime, tt.want.FireTime)
			got.FireTime = tt.want.FireTime
			assert.Equal(t, tt.want, got)
			assert.NoError(t, got.Validate())
		})
	}
}
