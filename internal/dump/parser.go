package dump

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/SteelMorgan/admin-gluster/internal/domain"
	"github.com/rs/zerolog/log"
)

// Boundary is the text the brick daemon writes between the two counter objects.
// The dump is not a JSON document: the objects are written back to back with no
// separating comma or enclosing array.
const Boundary = "}\n{"

// Counter scopes inside a dump. Keys carry the scope after the brick prefix,
// e.g. "storage.gluster.brick.vol1.aggr.fop.WRITE.count".
const (
	scopeAggregate = "aggr"
	scopeInter     = "inter"
)

// ParseFile reads a dump file and decodes it into aggregate and inter counters
func ParseFile(path string) (aggr, inter domain.CounterSet, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.CounterSet{}, domain.CounterSet{}, fmt.Errorf("%w: %s: %v", domain.ErrIO, path, err)
	}

	aggr, inter, err = Parse(data)
	if err != nil {
		return domain.CounterSet{}, domain.CounterSet{}, fmt.Errorf("%s: %w", path, err)
	}
	return aggr, inter, nil
}

// Parse decodes dump content into (aggregate, inter) counters.
//
// The two objects are located structurally, so a boundary-like substring inside
// a string value does not split the payload. The gap between the objects must
// still contain the newline of the Boundary.
//
// Errors:
//   - domain.ErrMalformedDump if there are fewer or more than two objects, the
//     gap between them has no newline, or either object is invalid JSON
func Parse(data []byte) (aggr, inter domain.CounterSet, err error) {
	// Remove UTF-8 BOM if present
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	aggr, err = decodeObject(dec, scopeAggregate)
	if err != nil {
		return domain.CounterSet{}, domain.CounterSet{}, fmt.Errorf("%w: aggregate object: %v", domain.ErrMalformedDump, err)
	}

	if err := checkBoundary(data[dec.InputOffset():]); err != nil {
		return domain.CounterSet{}, domain.CounterSet{}, fmt.Errorf("%w: %v", domain.ErrMalformedDump, err)
	}

	inter, err = decodeObject(dec, scopeInter)
	if err != nil {
		return domain.CounterSet{}, domain.CounterSet{}, fmt.Errorf("%w: inter object: %v", domain.ErrMalformedDump, err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.CounterSet{}, domain.CounterSet{}, fmt.Errorf("%w: unexpected content after second object", domain.ErrMalformedDump)
	}

	return aggr, inter, nil
}

// checkBoundary validates the bytes following the first object
func checkBoundary(rest []byte) error {
	trimmed := bytes.TrimLeft(rest, " \t\r\n")
	if len(trimmed) == 0 {
		return fmt.Errorf("expected 2 objects, found 1")
	}

	gap := rest[:len(rest)-len(trimmed)]
	if !bytes.Contains(gap, []byte("\n")) || trimmed[0] != '{' {
		return fmt.Errorf("missing %q boundary after first object", Boundary)
	}

	return nil
}

// decodeObject reads one top-level object of counters, keeping key order
func decodeObject(dec *json.Decoder, scope string) (domain.CounterSet, error) {
	counters := domain.NewCounterSet()

	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return counters, fmt.Errorf("empty input")
		}
		return counters, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return counters, fmt.Errorf("expected object, got %v", tok)
	}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return counters, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return counters, fmt.Errorf("expected key, got %v", keyTok)
		}

		var raw interface{}
		if err := dec.Decode(&raw); err != nil {
			return counters, fmt.Errorf("invalid value for %q: %w", key, err)
		}

		value, ok := toCount(raw)
		if !ok {
			log.Trace().
				Str("key", key).
				Str("scope", scope).
				Msg("Skipping non-numeric or out of range counter")
			continue
		}

		counters.Set(normalizeKey(key, scope), value)
	}

	tok, err = dec.Token()
	if err != nil {
		return counters, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '}' {
		return counters, fmt.Errorf("expected end of object, got %v", tok)
	}

	return counters, nil
}

// normalizeKey drops the brick identity prefix and scope from a counter key:
// "storage.gluster.brick.vol1.aggr.fop.WRITE.count" → "fop.WRITE.count".
// Keys without the scope marker are returned unchanged.
func normalizeKey(key, scope string) string {
	marker := "." + scope + "."
	if idx := strings.Index(key, marker); idx >= 0 {
		if short := key[idx+len(marker):]; short != "" {
			return short
		}
		return key
	}
	if short, found := strings.CutPrefix(key, scope+"."); found && short != "" {
		return short
	}
	return key
}

// maxCount is the first value that no longer fits an int64 field (2^63)
const maxCount = float64(1 << 63)

// toCount converts a decoded JSON value to a counter.
// The daemon writes most counters as quoted numbers. Counters are
// non-negative and must fit an int64 line protocol field.
func toCount(raw interface{}) (float64, bool) {
	var (
		v   float64
		err error
	)

	switch val := raw.(type) {
	case json.Number:
		v, err = val.Float64()
	case string:
		v, err = strconv.ParseFloat(strings.TrimSpace(val), 64)
	default:
		return 0, false
	}

	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v >= maxCount {
		return 0, false
	}
	return v, true
}
