package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/cinema-booking-core/internal/model"
)

// ShowSeed describes one show served by the in-memory catalog.
type ShowSeed struct {
	ID     uint64 `yaml:"id"`
	Screen string `yaml:"screen"`
	Rows   int    `yaml:"rows"`
	Cols   int    `yaml:"cols"`
	Price  int64  `yaml:"price"`
}

type catalogSeed struct {
	Shows []ShowSeed `yaml:"shows"`
}

// DefaultShows is used by the memory driver when no seed file is given:
// one show on a 5 x 10 screen at 200 per seat.
func DefaultShows() []model.ShowGeometry {
	return []model.ShowGeometry{{ShowID: 1, ScreenName: "Screen 1", Rows: 5, Cols: 10, Price: 200}}
}

// LoadCatalogSeed reads a YAML file of the form
//
//	shows:
//	  - {id: 1, screen: "Screen 1", rows: 5, cols: 10, price: 200}
//
// and returns the show geometries it lists.
func LoadCatalogSeed(path string) ([]model.ShowGeometry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog seed: %w", err)
	}
	return ParseCatalogSeed(raw)
}

// ParseCatalogSeed decodes and validates seed YAML.
func ParseCatalogSeed(raw []byte) ([]model.ShowGeometry, error) {
	var seed catalogSeed
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse catalog seed: %w", err)
	}
	seen := make(map[uint64]bool, len(seed.Shows))
	out := make([]model.ShowGeometry, 0, len(seed.Shows))
	for i, s := range seed.Shows {
		switch {
		case s.ID == 0:
			return nil, fmt.Errorf("catalog seed show %d: id is required", i)
		case seen[s.ID]:
			return nil, fmt.Errorf("catalog seed show %d: duplicate id %d", i, s.ID)
		case s.Rows < 1 || s.Rows > 26:
			return nil, fmt.Errorf("catalog seed show %d: rows must be 1..26", s.ID)
		case s.Cols < 1 || s.Cols > 100:
			return nil, fmt.Errorf("catalog seed show %d: cols must be 1..100", s.ID)
		case s.Price < 1:
			return nil, fmt.Errorf("catalog seed show %d: price must be positive", s.ID)
		}
		seen[s.ID] = true
		out = append(out, model.ShowGeometry{ShowID: s.ID, ScreenName: s.Screen, Rows: s.Rows, Cols: s.Cols, Price: s.Price})
	}
	return out, nil
}
