package mapping

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BrickInfo is one brick map entry. Other keys in an entry are ignored.
type BrickInfo struct {
	Volume string `yaml:"volume"`
}

// BrickMap maps dump-file brick identifiers to volumes, e.g.
//
//	bricks:
//	  data-brick1:
//	    volume: vol1
type BrickMap struct {
	Bricks map[string]BrickInfo `yaml:"bricks"`
}

// LoadBrickMap loads a brick map file
func LoadBrickMap(path string) (*BrickMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read brick map: %w", err)
	}

	var bm BrickMap
	if err := yaml.Unmarshal(data, &bm); err != nil {
		return nil, fmt.Errorf("failed to parse brick map: %w", err)
	}

	if bm.Bricks == nil {
		bm.Bricks = make(map[string]BrickInfo)
	}

	for brick, info := range bm.Bricks {
		if info.Volume == "" {
			return nil, fmt.Errorf("brick map entry %q has no volume", brick)
		}
	}

	return &bm, nil
}

// Index returns brick → volume pairs
func (bm *BrickMap) Index() map[string]string {
	if bm == nil {
		return nil
	}
	out := make(map[string]string, len(bm.Bricks))
	for brick, info := range bm.Bricks {
		out[brick] = info.Volume
	}
	return out
}
