package domain

import (
	"cmp"
	"slices"
	"time"
)

// Column names shared with presentation consumers.
const (
	ColTotImp     = "TotImp"
	ColObCnt      = "ObCnt"
	ColObCntBen   = "ObCntBen"
	ColObCntNeu   = "ObCntNeu"
	ColImpPerOb   = "ImpPerOb"
	ColFracBenObs = "FracBenObs"
	ColFracNeuObs = "FracNeuObs"
	ColFracImp    = "FracImp"
)

// Level names a component of a Key that survives a group-by reduction.
type Level int

const (
	LevelPlatform Level = iota + 1
	LevelObType
	LevelChannel
)

func (l Level) String() string {
	switch l {
	case LevelPlatform:
		return "platform"
	case LevelObType:
		return "obtype"
	case LevelChannel:
		return "channel"
	default:
		return "unknown"
	}
}

// Key identifies a group of observations. DateTime is always stored in UTC so
// that keys compare equal with == and can be used as map keys.
type Key struct {
	DateTime time.Time `json:"datetime,omitzero"`
	Platform string    `json:"platform"`
	ObType   string    `json:"obtype,omitempty"`
	Channel  int       `json:"channel,omitempty"`
}

// NewKey builds a Key, normalizing the timestamp to UTC.
func NewKey(dt time.Time, platform, obtype string, channel int) Key {
	return Key{DateTime: normalizeTime(dt), Platform: platform, ObType: obtype, Channel: channel}
}

// Compare orders keys by DateTime, Platform, ObType, then Channel.
func (k Key) Compare(o Key) int {
	if c := k.DateTime.Compare(o.DateTime); c != 0 {
		return c
	}
	if c := cmp.Compare(k.Platform, o.Platform); c != 0 {
		return c
	}
	if c := cmp.Compare(k.ObType, o.ObType); c != 0 {
		return c
	}
	return cmp.Compare(k.Channel, o.Channel)
}

// Less reports whether k sorts before o.
func (k Key) Less(o Key) bool { return k.Compare(o) < 0 }

// Prefix keeps DateTime and the key components down to and including level.
// Prefix(LevelPlatform) yields the (cycle, platform) key used after
// accumulation.
func (k Key) Prefix(level Level) Key {
	out := Key{DateTime: k.DateTime, Platform: k.Platform}
	if level >= LevelObType {
		out.ObType = k.ObType
	}
	if level >= LevelChannel {
		out.Channel = k.Channel
	}
	return out
}

// Project drops DateTime and keeps only the listed components.
func (k Key) Project(levels ...Level) Key {
	var out Key
	for _, l := range levels {
		switch l {
		case LevelPlatform:
			out.Platform = k.Platform
		case LevelObType:
			out.ObType = k.ObType
		case LevelChannel:
			out.Channel = k.Channel
		}
	}
	return out
}

// Record is one observation-impact row.
type Record struct {
	Key
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Pressure  float64 `json:"pressure"`
	Impact    float64 `json:"impact"`
	OMF       float64 `json:"omf"`
	ObErr     float64 `json:"oberr"`
}

// Table is an immutable collection of records. Multiple records may share a
// key (distinct locations).
type Table struct {
	records []Record
}

// NewTable copies records into a Table.
func NewTable(records ...Record) Table {
	out := make([]Record, len(records))
	for i, r := range records {
		r.DateTime = normalizeTime(r.DateTime)
		out[i] = r
	}
	return Table{records: out}
}

// Len returns the number of records.
func (t Table) Len() int { return len(t.records) }

// Records returns a copy of the table's rows.
func (t Table) Records() []Record { return slices.Clone(t.records) }

// Concat appends the rows of other tables after t's rows.
func (t Table) Concat(others ...Table) Table {
	n := len(t.records)
	for _, o := range others {
		n += len(o.records)
	}
	out := make([]Record, 0, n)
	out = append(out, t.records...)
	for _, o := range others {
		out = append(out, o.records...)
	}
	return Table{records: out}
}

// DateTimes returns the distinct cycle times present, sorted ascending.
func (t Table) DateTimes() []time.Time {
	seen := make(map[time.Time]struct{})
	var out []time.Time
	for _, r := range t.records {
		if _, ok := seen[r.DateTime]; ok {
			continue
		}
		seen[r.DateTime] = struct{}{}
		out = append(out, r.DateTime)
	}
	slices.SortFunc(out, time.Time.Compare)
	return out
}

func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return t.UTC()
}
