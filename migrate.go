package alarmclock

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	idsKey    = "alarm_ids"
	nextIDKey = "next_alarm_id"
)

type field int

const (
	fieldName field = iota
	fieldTime
	fieldRepeat
	fieldInterval
	fieldSound

	numFields
)

// Current keys fit the 15-byte key limit of flash key-value stores for any
// id below 10^12. Legacy keys don't and are only ever read.
var (
	keyPrefixes = [numFields]string{
		fieldName:     "an_",
		fieldTime:     "at_",
		fieldRepeat:   "ar_",
		fieldInterval: "ai_",
		fieldSound:    "as_",
	}
	legacyKeyPrefixes = [numFields]string{
		fieldName:     "alarm_",
		fieldTime:     "alarm_time_",
		fieldRepeat:   "alarm_repeat_",
		fieldInterval: "alarm_interval_",
		fieldSound:    "alarm_sound_",
	}
)

func (f field) String() string {
	switch f {
	case fieldName:
		return "name"
	case fieldTime:
		return "time"
	case fieldRepeat:
		return "repeat"
	case fieldInterval:
		return "interval"
	case fieldSound:
		return "sound"
	}
	return "field(" + strconv.Itoa(int(f)) + ")"
}

func (f field) key(id int) string {
	return keyPrefixes[f] + strconv.Itoa(id)
}

func (f field) legacyKey(id int) string {
	return legacyKeyPrefixes[f] + strconv.Itoa(id)
}

// RecordKeys returns every key, current and legacy, an alarm may occupy.
func RecordKeys(id int) []string {
	keys := make([]string, 0, 2*numFields)
	for f := field(0); f < numFields; f++ {
		keys = append(keys, f.key(id), f.legacyKey(id))
	}
	return keys
}

// Record is a snapshot of the stored keys of one alarm.
type Record map[string]Value

// Migration is the outcome of MigrateRecord.
type Migration struct {
	// Alarm is the decoded alarm.
	Alarm Alarm

	// Record holds the keys the alarm should occupy after migration. Only
	// current keys appear in it.
	Record Record

	// Warnings lists fields that were replaced by their default.
	Warnings []error
}

// MigrateRecord moves the values of rec stored under legacy keys to the
// current keys and decodes the alarm. A current key always wins over its
// legacy counterpart; legacy keys never appear in the result.
//
// A missing or malformed fire time voids the record and MigrateRecord
// returns an ErrInvalid error.
func MigrateRecord(id int, rec Record) (Migration, error) {
	m := Migration{
		Alarm:  Alarm{ID: id, Sound: DefaultSound},
		Record: make(Record, numFields),
	}
	for f := field(0); f < numFields; f++ {
		if v, ok := rec[f.key(id)]; ok {
			m.Record[f.key(id)] = v
		} else if v, ok := rec[f.legacyKey(id)]; ok {
			m.Record[f.key(id)] = v
		}
	}

	v, ok := m.Record[fieldTime.key(id)]
	if !ok {
		return Migration{}, Errorf(ErrInvalid, "alarm %d: missing time", id)
	}
	sec, err := parseTime(v)
	if err != nil {
		return Migration{}, WrapError(ErrInvalid, err, fmt.Sprintf("alarm %d: invalid time", id))
	}
	if !validEpoch(sec) {
		return Migration{}, Errorf(ErrInvalid, "alarm %d: time %d out of range", id, sec)
	}
	m.Alarm.FireTime = epoch(sec)

	warn := func(f field, v Value) {
		m.Warnings = append(m.Warnings, fmt.Errorf("alarm %d: invalid %s %v", id, f, v))
	}
	if v, ok := m.Record[fieldName.key(id)]; ok {
		if v.Kind == KindString {
			m.Alarm.Name = v.Str
		} else {
			warn(fieldName, v)
		}
	}
	if v, ok := m.Record[fieldRepeat.key(id)]; ok {
		if v.Kind == KindBool {
			m.Alarm.Repeat = v.Bool
		} else {
			warn(fieldRepeat, v)
		}
	}
	if v, ok := m.Record[fieldInterval.key(id)]; ok {
		if v.Kind == KindInt && v.Int >= 0 && v.Int <= maxIntervalMinutes {
			m.Alarm.Interval = time.Duration(v.Int) * time.Minute
		} else {
			warn(fieldInterval, v)
		}
	}
	if v, ok := m.Record[fieldSound.key(id)]; ok {
		if v.Kind == KindString && Sound(v.Str).Valid() {
			m.Alarm.Sound = Sound(v.Str)
		} else {
			warn(fieldSound, v)
		}
	}
	return m, nil
}

// Stored intervals above this would overflow a time.Duration.
const maxIntervalMinutes = math.MaxInt64 / int64(time.Minute)

func parseTime(v Value) (int64, error) {
	switch v.Kind {
	case KindString:
		return strconv.ParseInt(strings.TrimSpace(v.Str), 10, 64)
	case KindInt:
		return v.Int, nil
	}
	return 0, fmt.Errorf("unexpected %s value", v.Kind)
}

func encodeRecord(a Alarm) Record {
	return Record{
		fieldName.key(a.ID):     StringValue(a.Name),
		fieldTime.key(a.ID):     StringValue(strconv.FormatInt(a.FireTime.Unix(), 10)),
		fieldRepeat.key(a.ID):   BoolValue(a.Repeat),
		fieldInterval.key(a.ID): IntValue(int64(a.Interval / time.Minute)),
		fieldSound.key(a.ID):    StringValue(string(ParseSound(string(a.Sound)))),
	}
}

func parseIDList(s string) (ids []int, bad []string) {
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, err := strconv.Atoi(item)
		if err != nil || id <= 0 {
			bad = append(bad, item)
			continue
		}
		ids = append(ids, id)
	}
	return ids, bad
}

func joinIDs(ids []int) string {
	var b strings.Builder
	for i, id := range ids {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}
