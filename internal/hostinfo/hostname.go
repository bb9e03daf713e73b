package hostinfo

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Resolve returns the hostname reported with every measurement.
//
// Order: override (if non-empty), first line of the host identity file,
// then os.Hostname. An empty result is an error.
func Resolve(path, override string) (string, error) {
	if name := strings.TrimSpace(override); name != "" {
		return name, nil
	}

	if path != "" {
		name, err := readHostnameFile(path)
		if err == nil && name != "" {
			return name, nil
		}
		log.Warn().
			Err(err).
			Str("path", path).
			Msg("Host identity file unusable, falling back to the kernel hostname")
	}

	name, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("failed to determine hostname: %w", err)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("hostname is empty")
	}

	return name, nil
}

func readHostnameFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}

	first, _, _ := strings.Cut(string(data), "\n")
	return strings.TrimSpace(first), nil
}
