package object

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Accepted timestamp range, inclusive: 0001-01-02T00:00:00 through
// 9999-12-31T23:59:59 UTC.
const (
	MinTimestampSeconds      int64  = -62135510961
	MaxTimestampSeconds      int64  = 253402297199
	MaxTimestampMicroseconds uint32 = 999999
)

// Timestamp is a naive VCS timestamp. Values are validated by
// NewTimestamp; the zero value is the Unix epoch and is valid.
type Timestamp struct {
	seconds      int64
	microseconds uint32
}

// NewTimestamp validates seconds and microseconds against the accepted
// range.
func NewTimestamp(seconds int64, microseconds uint32) (Timestamp, error) {
	if seconds < MinTimestampSeconds || seconds > MaxTimestampSeconds {
		return Timestamp{}, fmt.Errorf("%w: seconds %d out of range [%d, %d]",
			ErrInvalidFormat, seconds, MinTimestampSeconds, MaxTimestampSeconds)
	}
	if microseconds > MaxTimestampMicroseconds {
		return Timestamp{}, fmt.Errorf("%w: microseconds %d out of range [0, %d]",
			ErrInvalidFormat, microseconds, MaxTimestampMicroseconds)
	}
	return Timestamp{seconds: seconds, microseconds: microseconds}, nil
}

// Seconds returns the whole seconds since the Unix epoch.
func (t Timestamp) Seconds() int64 { return t.seconds }

// Microseconds returns the sub-second part.
func (t Timestamp) Microseconds() uint32 { return t.microseconds }

// FormatForGit renders the seconds in decimal, followed by ".uuuuuu" when
// the microsecond part is non-zero.
func (t Timestamp) FormatForGit() []byte {
	out := strconv.AppendInt(nil, t.seconds, 10)
	if t.microseconds != 0 {
		out = append(out, fmt.Sprintf(".%06d", t.microseconds)...)
	}
	return out
}

func (t Timestamp) String() string {
	return string(t.FormatForGit())
}

// Time converts t to a UTC time.Time.
func (t Timestamp) Time() time.Time {
	return time.Unix(t.seconds, int64(t.microseconds)*1000).UTC()
}

type timestampJSON struct {
	Seconds      int64  `json:"seconds" yaml:"seconds" cbor:"seconds"`
	Microseconds uint32 `json:"microseconds" yaml:"microseconds" cbor:"microseconds"`
}

// MarshalJSON encodes t as {"seconds":..,"microseconds":..}.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(timestampJSON{Seconds: t.seconds, Microseconds: t.microseconds})
}

// UnmarshalJSON decodes and validates a timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw timestampJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: timestamp: %v", ErrInvalidFormat, err)
	}
	parsed, err := NewTimestamp(raw.Seconds, raw.Microseconds)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimestampWithTimezone pairs a timestamp with the raw timezone offset
// token as it appeared in the source object.
type TimestampWithTimezone struct {
	timestamp Timestamp
	offset    []byte
}

// NewTimestampWithTimezone keeps offset verbatim. It is not validated
// here: objects imported from a VCS must round-trip whatever bytes they
// carried. OffsetMinutes validates on demand.
func NewTimestampWithTimezone(ts Timestamp, offset []byte) TimestampWithTimezone {
	return TimestampWithTimezone{timestamp: ts, offset: append([]byte(nil), offset...)}
}

// FromNumericOffset formats minutes as "+HH:MM". negativeUTC selects
// "-00:00" for a zero offset.
func FromNumericOffset(ts Timestamp, minutes int, negativeUTC bool) TimestampWithTimezone {
	sign := byte('+')
	if minutes < 0 || (minutes == 0 && negativeUTC) {
		sign = '-'
	}
	if minutes < 0 {
		minutes = -minutes
	}
	offset := fmt.Sprintf("%c%02d:%02d", sign, minutes/60, minutes%60)
	return TimestampWithTimezone{timestamp: ts, offset: []byte(offset)}
}

// FromTime converts a time.Time, keeping its zone offset.
func FromTime(tm time.Time) (TimestampWithTimezone, error) {
	ts, err := NewTimestamp(tm.Unix(), uint32(tm.Nanosecond()/1000))
	if err != nil {
		return TimestampWithTimezone{}, err
	}
	_, offsetSeconds := tm.Zone()
	return FromNumericOffset(ts, offsetSeconds/60, false), nil
}

// Timestamp returns the naive timestamp.
func (t TimestampWithTimezone) Timestamp() Timestamp { return t.timestamp }

// OffsetBytes returns a copy of the raw offset token.
func (t TimestampWithTimezone) OffsetBytes() []byte {
	return append([]byte(nil), t.offset...)
}

// OffsetMinutes parses the offset token. It must be exactly "[+-]HH:MM".
func (t TimestampWithTimezone) OffsetMinutes() (int, error) {
	o := t.offset
	if len(o) != 6 || (o[0] != '+' && o[0] != '-') || o[3] != ':' {
		return 0, fmt.Errorf("%w: offset %q is not [+-]HH:MM", ErrInvalidFormat, o)
	}
	hours, err := parseTwoDigits(o[1:3])
	if err != nil {
		return 0, fmt.Errorf("%w: offset %q: hours: %v", ErrInvalidFormat, o, err)
	}
	mins, err := parseTwoDigits(o[4:6])
	if err != nil {
		return 0, fmt.Errorf("%w: offset %q: minutes: %v", ErrInvalidFormat, o, err)
	}
	total := hours*60 + mins
	if o[0] == '-' {
		total = -total
	}
	return total, nil
}

func parseTwoDigits(b []byte) (int, error) {
	if b[0] < '0' || b[0] > '9' || b[1] < '0' || b[1] > '9' {
		return 0, fmt.Errorf("not two digits: %q", b)
	}
	return int(b[0]-'0')*10 + int(b[1]-'0'), nil
}

// Time returns the instant in the zone named by the offset.
func (t TimestampWithTimezone) Time() (time.Time, error) {
	mins, err := t.OffsetMinutes()
	if err != nil {
		return time.Time{}, err
	}
	zone := time.FixedZone(string(t.offset), mins*60)
	return t.timestamp.Time().In(zone), nil
}

// FormatForGit renders "<timestamp> <offset>", the date part of an
// author, committer or tagger line.
func (t TimestampWithTimezone) FormatForGit() []byte {
	out := t.timestamp.FormatForGit()
	out = append(out, ' ')
	return append(out, t.offset...)
}

func (t TimestampWithTimezone) String() string {
	return string(t.FormatForGit())
}

// Equal reports whether both parts match byte for byte.
func (t TimestampWithTimezone) Equal(other TimestampWithTimezone) bool {
	return t.timestamp == other.timestamp && string(t.offset) == string(other.offset)
}

type timestampWithTimezoneJSON struct {
	Timestamp   Timestamp `json:"timestamp"`
	OffsetBytes string    `json:"offset_bytes"`
}

// MarshalJSON encodes {"timestamp":{..},"offset_bytes":".."}.
func (t TimestampWithTimezone) MarshalJSON() ([]byte, error) {
	return json.Marshal(timestampWithTimezoneJSON{Timestamp: t.timestamp, OffsetBytes: string(t.offset)})
}

// UnmarshalJSON decodes and validates the timestamp part.
func (t *TimestampWithTimezone) UnmarshalJSON(data []byte) error {
	var raw timestampWithTimezoneJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: timestamp with timezone: %v", ErrInvalidFormat, err)
	}
	*t = NewTimestampWithTimezone(raw.Timestamp, []byte(raw.OffsetBytes))
	return nil
}
