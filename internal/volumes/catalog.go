package volumes

import (
	"context"
	"fmt"

	"github.com/SteelMorgan/admin-gluster/internal/domain"
	"github.com/rs/zerolog/log"
)

// Catalog resolves dump-file identifiers to volume names for one scan cycle
type Catalog struct {
	names     map[string]string
	acceptAll bool
}

// NewCatalog builds a catalog from volume names and a brick → volume map.
// Bricks whose volume is not in volumes are ignored.
func NewCatalog(volumes []string, bricks map[string]string) *Catalog {
	names := make(map[string]string, len(volumes)+len(bricks))
	for _, v := range volumes {
		names[v] = v
	}
	for brick, volume := range bricks {
		if _, ok := names[volume]; ok {
			names[brick] = volume
		}
	}
	return &Catalog{names: names}
}

// AcceptAll builds a catalog that accepts every identifier. Identifiers in
// bricks resolve to their mapped volume, all others to themselves.
func AcceptAll(bricks map[string]string) *Catalog {
	names := make(map[string]string, len(bricks))
	for brick, volume := range bricks {
		names[brick] = volume
	}
	return &Catalog{names: names, acceptAll: true}
}

// Resolve implements domain.Resolver
func (c *Catalog) Resolve(name string) (string, bool) {
	if volume, ok := c.names[name]; ok {
		return volume, true
	}
	if c.acceptAll && name != "" {
		return name, true
	}
	return "", false
}

// Len returns the number of explicitly known identifiers
func (c *Catalog) Len() int {
	return len(c.names)
}

// Discovery produces a fresh catalog every cycle
type Discovery struct {
	lister Lister
	bricks map[string]string
}

// NewDiscovery creates a discovery backed by lister. A nil lister accepts
// every identifier found in the stats directory.
func NewDiscovery(lister Lister, bricks map[string]string) *Discovery {
	return &Discovery{lister: lister, bricks: bricks}
}

// Resolver returns the catalog for the current cycle.
//
// Errors:
//   - domain.ErrVolumeListUnavailable if the lister fails
func (d *Discovery) Resolver(ctx context.Context) (domain.Resolver, error) {
	if d.lister == nil {
		return AcceptAll(d.bricks), nil
	}

	vols, err := d.lister.ListVolumes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrVolumeListUnavailable, err)
	}

	catalog := NewCatalog(vols, d.bricks)
	if catalog.Len() == 0 {
		log.Warn().Msg("No volumes present, nothing will be collected this cycle")
	} else {
		log.Debug().
			Int("volumes", len(vols)).
			Int("names", catalog.Len()).
			Msg("Volume catalog refreshed")
	}
	return catalog, nil
}
