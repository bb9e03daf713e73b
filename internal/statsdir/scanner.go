package statsdir

import (
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/SteelMorgan/admin-gluster/internal/domain"
	"github.com/rs/zerolog/log"
)

// Scan lists dir and returns a lazy sequence of dump files whose identifier is
// known to the resolver. The directory listing happens up front; name matching
// and per-entry stat happen as the sequence is consumed.
//
// Errors:
//   - domain.ErrDirectoryUnavailable if dir cannot be listed
//
// Unknown identifiers are skipped with a trace message before the entry is
// stat'ed; known entries that cannot be stat'ed are skipped with a warning.
func Scan(dir string, known domain.Resolver) (iter.Seq[domain.StatsFileEntry], error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrDirectoryUnavailable, dir, err)
	}

	seq := func(yield func(domain.StatsFileEntry) bool) {
		for _, entry := range entries {
			name, ok := ParseDumpName(entry.Name())
			if !ok {
				log.Trace().
					Str("entry", entry.Name()).
					Msg("Skipping entry that is not a brick dump")
				continue
			}

			volume, ok := known.Resolve(name)
			if !ok {
				log.Trace().
					Str("entry", entry.Name()).
					Str("name", name).
					Msg("Skipping dump of unknown brick or volume")
				continue
			}

			info, err := entry.Info()
			if err != nil {
				log.Warn().
					Err(err).
					Str("entry", entry.Name()).
					Msg("Skipping unreadable directory entry")
				continue
			}
			if info.IsDir() {
				log.Trace().Str("entry", entry.Name()).Msg("Skipping directory")
				continue
			}

			matched := domain.StatsFileEntry{
				Path:       filepath.Join(dir, entry.Name()),
				RawName:    entry.Name(),
				VolumeName: volume,
				BrickName:  name,
			}
			if !yield(matched) {
				return
			}
		}
	}

	return seq, nil
}
