package influx

import (
	"errors"
	"fmt"

	"github.com/SteelMorgan/admin-gluster/internal/domain"
	"github.com/influxdata/line-protocol/v2/lineprotocol"
)

// ErrNoFields is returned for measurements without fields; line protocol requires at least one
var ErrNoFields = errors.New("measurement has no fields")

// Encode serializes a measurement as one line-protocol line with
// integer fields and a second-precision timestamp:
//
//	gluster_brick,storage_type=gluster,type=brick,hostname=h,volume_name=v,brick_name=b op_r=5i,op_w=3i 1700000000
func Encode(m domain.Measurement) ([]byte, error) {
	if len(m.Fields) == 0 {
		return nil, ErrNoFields
	}

	var enc lineprotocol.Encoder
	enc.SetPrecision(lineprotocol.Second)
	// Lax keeps tags in declared order instead of requiring lexical order
	enc.SetLax(true)

	enc.StartLine(m.Name)
	for _, tag := range m.Tags {
		enc.AddTag(tag.Key, tag.Value)
	}
	for _, field := range m.Fields {
		enc.AddField(field.Key, lineprotocol.IntValue(field.Value))
	}
	enc.EndLine(m.Timestamp)

	if err := enc.Err(); err != nil {
		return nil, fmt.Errorf("failed to encode measurement %s: %w", m.Name, err)
	}

	return enc.Bytes(), nil
}
