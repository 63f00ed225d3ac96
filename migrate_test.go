package alarmclock_test

import (
	"testing"
	"time"

	"bsid.es/alarmclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func legacyRecord() alarmclock.Record {
	return alarmclock.Record{
		"alarm_3":          alarmclock.StringValue("wake up"),
		"alarm_time_3":     alarmclock.StringValue("1356048000"),
		"alarm_repeat_3":   alarmclock.BoolValue(true),
		"alarm_interval_3": alarmclock.IntValue(5),
		"alarm_sound_3":    alarmclock.StringValue("ALARM2"),
	}
}

func currentRecord() alarmclock.Record {
	return alarmclock.Record{
		"an_3": alarmclock.StringValue("wake up"),
		"at_3": alarmclock.StringValue("1356048000"),
		"ar_3": alarmclock.BoolValue(true),
		"ai_3": alarmclock.IntValue(5),
		"as_3": alarmclock.StringValue("ALARM2"),
	}
}

func TestMigrateRecordLegacyMatchesCurrent(t *testing.T) {
	want := alarmclock.Alarm{
		ID:       3,
		FireTime: time.Unix(1356048000, 0).UTC(),
		Repeat:   true,
		Interval: 5 * time.Minute,
		Name:     "wake up",
		Sound:    alarmclock.SoundAlarm2,
	}

	fromLegacy, err := alarmclock.MigrateRecord(3, legacyRecord())
	require.NoError(t, err)
	fromCurrent, err := alarmclock.MigrateRecord(3, currentRecord())
	require.NoError(t, err)

	assert.Equal(t, want, fromLegacy.Alarm)
	assert.Equal(t, want, fromCurrent.Alarm)
	assert.Equal(t, currentRecord(), fromLegacy.Record)
	assert.Equal(t, currentRecord(), fromCurrent.Record)
	assert.Empty(t, fromLegacy.Warnings)
}

func TestMigrateRecordCurrentWins(t *testing.T) {
	rec := legacyRecord()
	rec["an_3"] = alarmclock.StringValue("new name")
	rec["as_3"] = alarmclock.StringValue("ALARM3")

	m, err := alarmclock.MigrateRecord(3, rec)
	require.NoError(t, err)

	assert.Equal(t, "new name", m.Alarm.Name)
	assert.Equal(t, alarmclock.SoundAlarm3, m.Alarm.Sound)
	for key := range m.Record {
		assert.NotContains(t, key, "alarm_", "legacy key survived migration")
	}
	assert.Len(t, m.Record, 5)
}

func TestMigrateRecordInvalidTime(t *testing.T) {
	tests := []struct {
		name string
		time *alarmclock.Value
	}{
		{name: "missing"},
		{name: "not a number", time: ptr(alarmclock.StringValue("soon"))},
		{name: "empty", time: ptr(alarmclock.StringValue("  "))},
		{name: "trailing garbage", time: ptr(alarmclock.StringValue("123abc"))},
		{name: "out of range", time: ptr(alarmclock.StringValue("99999999999999999999"))},
		{name: "wrong kind", time: ptr(alarmclock.BoolValue(true))},
		{name: "before year 1", time: ptr(alarmclock.StringValue("-99999999999"))},
		{name: "after year 9999", time: ptr(alarmclock.IntValue(253402300800))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := alarmclock.Record{"an_7": alarmclock.StringValue("x")}
			if tt.time != nil {
				rec["alarm_time_7"] = *tt.time
			}
			_, err := alarmclock.MigrateRecord(7, rec)
			require.Error(t, err)
			assert.Equal(t, alarmclock.ErrInvalid, alarmclock.ErrorCode(err))
		})
	}
}

func TestMigrateRecordDefaults(t *testing.T) {
	m, err := alarmclock.MigrateRecord(4, alarmclock.Record{
		"at_4": alarmclock.StringValue(" 1356048000 "),
		"ar_4": alarmclock.StringValue("yes"),
		"ai_4": alarmclock.IntValue(-2),
		"as_4": alarmclock.StringValue("BOGUS"),
	})
	require.NoError(t, err)

	assert.Equal(t, alarmclock.Alarm{
		ID:       4,
		FireTime: time.Unix(1356048000, 0).UTC(),
		Sound:    alarmclock.DefaultSound,
	}, m.Alarm)
	assert.Len(t, m.Warnings, 3)
}

func TestMigrateRecordIntTime(t *testing.T) {
	m, err := alarmclock.MigrateRecord(1, alarmclock.Record{
		"alarm_time_1": alarmclock.IntValue(60),
	})
	require.NoError(t, err)
	assert.Equal(t, time.Unix(60, 0).UTC(), m.Alarm.FireTime)
	assert.Equal(t, alarmclock.Record{"at_1": alarmclock.IntValue(60)}, m.Record)
}

func TestRecordKeys(t *testing.T) {
	assert.ElementsMatch(t, []string{
		"an_12", "at_12", "ar_12", "ai_12", "as_12",
		"alarm_12", "alarm_time_12", "alarm_repeat_12", "alarm_interval_12", "alarm_sound_12",
	}, alarmclock.RecordKeys(12))
}

func ptr[T any](v T) *T {
	return &v
}
