package volumes

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Lister returns the names of the volumes currently known to the storage daemon
type Lister interface {
	ListVolumes(ctx context.Context) ([]string, error)
}

// noVolumesMessage is printed by `gluster volume list` on an empty cluster
const noVolumesMessage = "No volumes present in cluster"

// GlusterLister asks the gluster CLI for the volume list
type GlusterLister struct {
	binary string
	run    func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewGlusterLister creates a lister that runs `<binary> volume list`
func NewGlusterLister(binary string) *GlusterLister {
	return &GlusterLister{
		binary: binary,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).Output()
		},
	}
}

// ListVolumes runs the CLI and parses one volume name per line
func (l *GlusterLister) ListVolumes(ctx context.Context) ([]string, error) {
	out, err := l.run(ctx, l.binary, "volume", "list")
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return nil, fmt.Errorf("%s volume list failed: %w: %s", l.binary, err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("%s volume list failed: %w", l.binary, err)
	}

	return parseVolumeList(out), nil
}

func parseVolumeList(out []byte) []string {
	var names []string

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line == noVolumesMessage {
			continue
		}
		names = append(names, line)
	}

	return names
}

// StaticLister returns a fixed volume list
type StaticLister []string

// ListVolumes returns the configured names
func (s StaticLister) ListVolumes(context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}
