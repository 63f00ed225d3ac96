package alarmclock

import (
	"time"
)

// Sound identifies one of the built-in alarm clips.
type Sound string

const (
	SoundAlarm1 Sound = "ALARM1"
	SoundAlarm2 Sound = "ALARM2"
	SoundAlarm3 Sound = "ALARM3"

	DefaultSound = SoundAlarm1
)

// Sounds lists every valid sound, default first.
var Sounds = []Sound{SoundAlarm1, SoundAlarm2, SoundAlarm3}

// Valid reports whether s is a member of Sounds.
func (s Sound) Valid() bool {
	for _, sound := range Sounds {
		if s == sound {
			return true
		}
	}
	return false
}

// ParseSound returns the sound named s, or DefaultSound when s is unknown.
func ParseSound(s string) Sound {
	if sound := Sound(s); sound.Valid() {
		return sound
	}
	return DefaultSound
}

// DefaultLabel is shown for alarms without a name.
const DefaultLabel = "Alarm"

// Alarm is one scheduled alarm. FireTime is the next instant it goes off;
// a repeating alarm then moves forward by whole multiples of Interval.
type Alarm struct {
	ID       int           `json:"id"`
	FireTime time.Time     `json:"fire_time"`
	Repeat   bool          `json:"repeat"`
	Interval time.Duration `json:"interval"`
	Name     string        `json:"name"`
	Sound    Sound         `json:"sound"`
}

// Validate rejects alarms that cannot be scheduled.
func (a *Alarm) Validate() error {
	switch {
	case a.FireTime.IsZero():
		return Errorf(ErrInvalid, "fire time is required")
	case !validEpoch(a.FireTime.Unix()):
		return Errorf(ErrInvalid, "fire time %s is outside years 1 to 9999", a.FireTime.Format(time.RFC3339))
	case a.Interval < 0:
		return Errorf(ErrInvalid, "interval must be non-negative")
	case a.Repeat && a.Interval < time.Minute:
		return Errorf(ErrInvalid, "repeating alarm needs an interval of at least one minute")
	}
	return nil
}

// Normalize truncates the fire time to whole seconds in UTC and the interval
// to whole minutes, and replaces an unknown sound with DefaultSound.
func (a *Alarm) Normalize() {
	a.FireTime = epoch(a.FireTime.Unix())
	a.Interval = a.Interval.Truncate(time.Minute)
	a.Sound = ParseSound(string(a.Sound))
}

// Label returns the text shown when the alarm fires.
func (a Alarm) Label() string {
	if a.Name == "" {
		return DefaultLabel
	}
	return a.Name
}

// Next returns the first instance of a repeating alarm strictly after from,
// counting whole intervals from FireTime. It returns the zero time for
// alarms that don't repeat, for intervals under a second, and when the next
// instance would be past year 9999.
//
// Instances are counted in epoch seconds: a Duration spans only about 292
// years and FireTime may be older than that.
func (a Alarm) Next(from time.Time) time.Time {
	interval := int64(a.Interval / time.Second)
	if !a.Repeat || interval <= 0 {
		return time.Time{}
	}
	start := a.FireTime.Unix()
	if !validEpoch(start) || from.Unix() > maxEpoch {
		return time.Time{}
	}
	num := int64(1)
	if !from.Before(a.FireTime) {
		num = a.instanceNumber(from.Unix(), interval) + 1
		// from.Unix drops the fraction FireTime may carry.
		if num > 1 && a.instance(start, num-1, interval).After(from) {
			num--
		}
	}
	if num > (maxEpoch-start)/interval {
		return time.Time{}
	}
	return a.instance(start, num, interval)
}

func (a Alarm) instanceNumber(from, interval int64) int64 {
	return (from - a.FireTime.Unix()) / interval
}

func (a Alarm) instance(start, num, interval int64) time.Time {
	return time.Unix(start+num*interval, int64(a.FireTime.Nanosecond())).In(a.FireTime.Location())
}

// Fire times are kept within years 1 to 9999 so that epoch arithmetic on
// them can't overflow.
var (
	minEpoch = time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
	maxEpoch = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC).Unix()
)

func validEpoch(sec int64) bool {
	return sec >= minEpoch && sec <= maxEpoch
}

func epoch(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
