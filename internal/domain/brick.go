package domain

import "time"

// StatsFileEntry is one dump file found in the stats directory during a scan cycle
type StatsFileEntry struct {
	Path    string // Full path to the dump file
	RawName string // Base filename, e.g. glusterfsd_vol1.dump

	// Identity derived from RawName
	VolumeName string
	BrickName  string
}

// Resolver maps the identifier embedded in a dump filename to its volume.
// ok is false when the identifier is not a known brick or volume.
type Resolver interface {
	Resolve(name string) (volume string, ok bool)
}

// CounterSet holds operation counters in the order they appeared in the dump
type CounterSet struct {
	keys   []string
	values map[string]float64
}

// NewCounterSet creates an empty counter set
func NewCounterSet() CounterSet {
	return CounterSet{values: make(map[string]float64)}
}

// Set stores a counter. Re-setting an existing key keeps its original position.
func (c *CounterSet) Set(name string, value float64) {
	if c.values == nil {
		c.values = make(map[string]float64)
	}
	if _, exists := c.values[name]; !exists {
		c.keys = append(c.keys, name)
	}
	c.values[name] = value
}

// Get returns a counter value
func (c CounterSet) Get(name string) (float64, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Keys returns counter names in insertion order
func (c CounterSet) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of counters
func (c CounterSet) Len() int {
	return len(c.keys)
}

// Tag is a single measurement tag
type Tag struct {
	Key   string
	Value string
}

// Field is a single integer measurement field
type Field struct {
	Key   string
	Value int64
}

// Measurement is one timestamped, tagged set of fields sent to the time-series backend
type Measurement struct {
	Name      string
	Tags      []Tag   // Declared order is preserved on the wire
	Fields    []Field // CounterSet order
	Timestamp time.Time
}

// TagValue returns the value of a tag, or "" when the tag is absent
func (m Measurement) TagValue(key string) string {
	for _, t := range m.Tags {
		if t.Key == key {
			return t.Value
		}
	}
	return ""
}
