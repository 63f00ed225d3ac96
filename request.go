package alarmclock

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	minDelaySeconds    = 1
	maxDelaySeconds    = 24 * 60 * 60
	minIntervalMinutes = 1
	maxRequestInterval = 7 * 24 * 60
)

// TriggerType tells how a ScheduleRequest picks its fire time.
type TriggerType string

const (
	TriggerDelay     TriggerType = "delay"
	TriggerTimeOfDay TriggerType = "time"
)

// ScheduleRequest is a validated voice-command request.
type ScheduleRequest struct {
	ID       string      `json:"id"`
	Trigger  TriggerType `json:"trigger"`
	Delay    *int        `json:"delay,omitempty"`
	Hour     *int        `json:"hour,omitempty"`
	Minute   *int        `json:"minute,omitempty"`
	Repeat   bool        `json:"repeat"`
	Interval *int        `json:"interval,omitempty"`
}

// ParseRequest validates the JSON arguments of a voice command. Errors have
// code ErrInvalid and a description fit to read back to the user.
func ParseRequest(data []byte) (ScheduleRequest, error) {
	var args map[string]json.RawMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil || args == nil {
		return ScheduleRequest{}, Errorf(ErrInvalid, "arguments must be a JSON object")
	}

	var (
		req ScheduleRequest
		err error
	)
	if req.Delay, err = optionalInt(args, "delay"); err != nil {
		return ScheduleRequest{}, err
	}
	if req.Hour, err = optionalInt(args, "hour"); err != nil {
		return ScheduleRequest{}, err
	}
	if req.Minute, err = optionalInt(args, "minute"); err != nil {
		return ScheduleRequest{}, err
	}
	repeat, err := optionalBool(args, "repeat")
	if err != nil {
		return ScheduleRequest{}, err
	}
	if req.Interval, err = optionalInt(args, "interval"); err != nil {
		return ScheduleRequest{}, err
	}

	hasDelay := req.Delay != nil
	hasTime := req.Hour != nil || req.Minute != nil
	switch {
	case hasDelay && hasTime:
		return ScheduleRequest{}, Errorf(ErrInvalid, "delay can't be combined with hour/minute")
	case !hasDelay && !hasTime:
		return ScheduleRequest{}, Errorf(ErrInvalid, "either delay or hour/minute is required")
	case req.Minute != nil && req.Hour == nil:
		return ScheduleRequest{}, Errorf(ErrInvalid, "minute requires hour")
	case req.Hour != nil && req.Minute == nil:
		return ScheduleRequest{}, Errorf(ErrInvalid, "hour requires minute")
	}

	for _, r := range []struct {
		name     string
		value    *int
		min, max int
	}{
		{"delay", req.Delay, minDelaySeconds, maxDelaySeconds},
		{"hour", req.Hour, 0, 23},
		{"minute", req.Minute, 0, 59},
		{"interval", req.Interval, minIntervalMinutes, maxRequestInterval},
	} {
		if r.value != nil && (*r.value < r.min || *r.value > r.max) {
			return ScheduleRequest{}, Errorf(ErrInvalid, "%q must be between %d and %d", r.name, r.min, r.max)
		}
	}

	req.Repeat = repeat != nil && *repeat
	if req.Repeat && req.Interval == nil {
		return ScheduleRequest{}, Errorf(ErrInvalid, "interval is required when repeat is true")
	}
	if !req.Repeat && req.Interval != nil {
		return ScheduleRequest{}, Errorf(ErrInvalid, "interval is only allowed when repeat is true")
	}

	req.Trigger = TriggerTimeOfDay
	if hasDelay {
		req.Trigger = TriggerDelay
	}
	req.ID = NewRequestID(req.Trigger)
	return req, nil
}

// NewRequestID returns a unique id for a request with the given trigger.
func NewRequestID(trigger TriggerType) string {
	return "alarm-" + string(trigger) + "-" + uuid.NewString()
}

// Alarm converts the request into an alarm. A time-of-day request fires at
// the next hh:mm in loc: today if that is still ahead of now, else tomorrow.
func (r ScheduleRequest) Alarm(now time.Time, loc *time.Location) Alarm {
	a := Alarm{Repeat: r.Repeat, Sound: DefaultSound}
	if r.Interval != nil {
		a.Interval = time.Duration(*r.Interval) * time.Minute
	}
	switch {
	case r.Delay != nil:
		a.FireTime = now.Add(time.Duration(*r.Delay) * time.Second)
	case r.Hour != nil && r.Minute != nil:
		if loc == nil {
			loc = time.Local
		}
		local := now.In(loc)
		at := time.Date(local.Year(), local.Month(), local.Day(), *r.Hour, *r.Minute, 0, 0, loc)
		if !at.After(local) {
			at = time.Date(local.Year(), local.Month(), local.Day()+1, *r.Hour, *r.Minute, 0, 0, loc)
		}
		a.FireTime = at
	}
	return a
}

func optionalInt(args map[string]json.RawMessage, name string) (*int, error) {
	v, ok := lookup(args, name)
	if !ok {
		return nil, nil
	}
	num, isNum := v.(json.Number)
	if !isNum {
		return nil, Errorf(ErrInvalid, "%q must be an integer", name)
	}
	n, err := strconv.Atoi(num.String())
	if err != nil {
		return nil, Errorf(ErrInvalid, "%q must be an integer", name)
	}
	return &n, nil
}

func optionalBool(args map[string]json.RawMessage, name string) (*bool, error) {
	v, ok := lookup(args, name)
	if !ok {
		return nil, nil
	}
	b, isBool := v.(bool)
	if !isBool {
		return nil, Errorf(ErrInvalid, "%q must be a boolean", name)
	}
	return &b, nil
}

func lookup(args map[string]json.RawMessage, name string) (any, bool) {
	raw, ok := args[name]
	if !ok {
		return nil, false
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil, true
	}
	return v, true
}
