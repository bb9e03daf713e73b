package statsdir

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/SteelMorgan/admin-gluster/internal/domain"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type knownNames map[string]string

func (k knownNames) Resolve(name string) (string, bool) {
	v, ok := k[name]
	return v, ok
}

func TestParseDumpName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
		wantOK   bool
	}{
		{name: "volume dump", filename: "glusterfsd_vol1.dump", want: "vol1", wantOK: true},
		{name: "brick dump with dashes", filename: "glusterfsd_data-brick1.dump", want: "data-brick1", wantOK: true},
		{name: "full path", filename: "/var/lib/glusterd/stats/glusterfsd_vol2.dump", want: "vol2", wantOK: true},
		{name: "unrelated file", filename: "unrelated.txt", wantOK: false},
		{name: "missing suffix", filename: "glusterfsd_vol1.json", wantOK: false},
		{name: "missing prefix", filename: "vol1.dump", wantOK: false},
		{name: "empty identifier", filename: "glusterfsd_.dump", wantOK: false},
		{name: "blank identifier", filename: "glusterfsd_  .dump", wantOK: false},
		{name: "empty", filename: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDumpName(tt.filename)
			if ok != tt.wantOK {
				t.Fatalf("ParseDumpName(%q) ok = %v, want %v", tt.filename, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseDumpName(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{}\n{}"), 0o644))
}

func TestScan_MatchesKnownDumps(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "glusterfsd_vol1.dump")
	writeFile(t, dir, "glusterfsd_vol2.dump")
	writeFile(t, dir, "unrelated.txt")

	seq, err := Scan(dir, knownNames{"vol1": "vol1", "vol2": "vol2"})
	require.NoError(t, err)

	got := map[string]domain.StatsFileEntry{}
	for entry := range seq {
		got[entry.BrickName] = entry
	}

	require.Len(t, got, 2)
	assert.Equal(t, "vol1", got["vol1"].VolumeName)
	assert.Equal(t, "vol2", got["vol2"].VolumeName)
	assert.Equal(t, filepath.Join(dir, "glusterfsd_vol1.dump"), got["vol1"].Path)
	assert.Equal(t, "glusterfsd_vol2.dump", got["vol2"].RawName)
}

func TestScan_SkipsUnknownAndDirectories(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "glusterfsd_vol1.dump")
	writeFile(t, dir, "glusterfsd_retired.dump")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "glusterfsd_vol2.dump"), 0o755))

	seq, err := Scan(dir, knownNames{"vol1": "vol1", "vol2": "vol2"})
	require.NoError(t, err)

	var names []string
	for entry := range seq {
		names = append(names, entry.BrickName)
	}
	assert.Equal(t, []string{"vol1"}, names)
}

func TestScan_UnknownNamesAreNotStatted(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf).Level(zerolog.WarnLevel)
	t.Cleanup(func() { log.Logger = orig })

	dir := t.TempDir()
	writeFile(t, dir, "glusterfsd_vol1.dump")
	writeFile(t, dir, "glusterfsd_vol2.dump")
	writeFile(t, dir, "glusterfsd_retired.dump")

	seq, err := Scan(dir, knownNames{"vol1": "vol1", "vol2": "vol2"})
	require.NoError(t, err)

	// removed between listing and stat
	require.NoError(t, os.Remove(filepath.Join(dir, "glusterfsd_vol2.dump")))
	require.NoError(t, os.Remove(filepath.Join(dir, "glusterfsd_retired.dump")))

	var names []string
	for entry := range seq {
		names = append(names, entry.BrickName)
	}
	assert.Equal(t, []string{"vol1"}, names)

	assert.Contains(t, buf.String(), "glusterfsd_vol2.dump")
	assert.NotContains(t, buf.String(), "retired")
}

func TestScan_ResolvesBrickToVolume(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "glusterfsd_data-brick1.dump")

	seq, err := Scan(dir, knownNames{"data-brick1": "vol1"})
	require.NoError(t, err)

	var entries []domain.StatsFileEntry
	for entry := range seq {
		entries = append(entries, entry)
	}
	require.Len(t, entries, 1)
	assert.Equal(t, "vol1", entries[0].VolumeName)
	assert.Equal(t, "data-brick1", entries[0].BrickName)
}

func TestScan_StopsWhenConsumerBreaks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "glusterfsd_vol1.dump")
	writeFile(t, dir, "glusterfsd_vol2.dump")

	seq, err := Scan(dir, knownNames{"vol1": "vol1", "vol2": "vol2"})
	require.NoError(t, err)

	count := 0
	for range seq {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestScan_DirectoryUnavailable(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "missing"), knownNames{})
	require.Error(t, err)
	if !errors.Is(err, domain.ErrDirectoryUnavailable) {
		t.Errorf("Scan() error = %v, want ErrDirectoryUnavailable", err)
	}
}
