package statsdir

import (
	"path/filepath"
	"strings"
)

// Dump file naming convention used by the brick daemon's io-stats dumps:
//
//	glusterfsd_<brick-or-volume>.dump
//
// Examples:
//   - "glusterfsd_vol1.dump" → "vol1"
//   - "glusterfsd_data-brick1.dump" → "data-brick1"
const (
	DumpPrefix = "glusterfsd_"
	DumpSuffix = ".dump"
)

// ParseDumpName extracts the brick or volume identifier from a dump filename.
// Returns false if the name does not follow the convention or the identifier is empty.
func ParseDumpName(filename string) (string, bool) {
	base := filepath.Base(filename)

	if !strings.HasPrefix(base, DumpPrefix) || !strings.HasSuffix(base, DumpSuffix) {
		return "", false
	}

	if len(base) <= len(DumpPrefix)+len(DumpSuffix) {
		return "", false
	}

	name := base[len(DumpPrefix) : len(base)-len(DumpSuffix)]
	if strings.TrimSpace(name) == "" {
		return "", false
	}

	return name, true
}
