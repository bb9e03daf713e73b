package measurement

import (
	"fmt"
	"time"

	"github.com/SteelMorgan/admin-gluster/internal/domain"
	"github.com/rs/zerolog/log"
)

const (
	// Name identifies brick measurements in the backend
	Name = "gluster_brick"

	StorageType = "gluster"
	Type        = "brick"
)

// Tag keys in the order they are written
const (
	TagStorageType = "storage_type"
	TagType        = "type"
	TagHostname    = "hostname"
	TagVolumeName  = "volume_name"
	TagBrickName   = "brick_name"
)

// Context identifies where a counter set was collected
type Context struct {
	Hostname   string
	VolumeName string
	BrickName  string
}

// ContextFor builds a Context for a matched dump file
func ContextFor(hostname string, entry domain.StatsFileEntry) Context {
	return Context{
		Hostname:   hostname,
		VolumeName: entry.VolumeName,
		BrickName:  entry.BrickName,
	}
}

// maxField is 2^63, the first value an int64 field cannot hold
const maxField = float64(1 << 63)

// Build converts counters into a measurement stamped with ts truncated to seconds.
// Counter values are truncated to integers; negative values and values that
// do not fit an int64 are dropped.
//
// Build panics if any context value is empty: callers only pass identities
// derived from matched dump files and a validated hostname.
func Build(counters domain.CounterSet, c Context, ts time.Time) domain.Measurement {
	for key, value := range map[string]string{
		TagHostname:   c.Hostname,
		TagVolumeName: c.VolumeName,
		TagBrickName:  c.BrickName,
	} {
		if value == "" {
			panic(fmt.Sprintf("measurement: empty %s", key))
		}
	}

	keys := counters.Keys()
	fields := make([]domain.Field, 0, len(keys))
	for _, key := range keys {
		v, _ := counters.Get(key)
		if !(v >= 0 && v < maxField) {
			log.Trace().Str("counter", key).Float64("value", v).Msg("Dropping counter outside int64 range")
			continue
		}
		fields = append(fields, domain.Field{Key: key, Value: int64(v)})
	}

	return domain.Measurement{
		Name: Name,
		Tags: []domain.Tag{
			{Key: TagStorageType, Value: StorageType},
			{Key: TagType, Value: Type},
			{Key: TagHostname, Value: c.Hostname},
			{Key: TagVolumeName, Value: c.VolumeName},
			{Key: TagBrickName, Value: c.BrickName},
		},
		Fields:    fields,
		Timestamp: ts.Truncate(time.Second),
	}
}
