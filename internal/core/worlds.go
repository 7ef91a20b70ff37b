package core

import (
	_ "embed"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed worlds.yaml
var defaultWorldsYAML []byte

//go:embed lobby.yaml
var defaultLobbyYAML []byte

// PatrolSpec describes one walker loop on a world grid: a two-tile sprite
// shuffling between bounds on one axis.
type PatrolSpec struct {
	X     int    `yaml:"x"`
	Y     int    `yaml:"y"`
	Axis  string `yaml:"axis"` // "h" or "v"
	Min   int    `yaml:"min"`
	Max   int    `yaml:"max"`
	Front string `yaml:"front"`
	Back  string `yaml:"back"`
}

// WorldSpec declares one static world.
type WorldSpec struct {
	Name    string       `yaml:"name"`
	Width   int          `yaml:"width"`
	Height  int          `yaml:"height"`
	Fill    string       `yaml:"fill"`
	Coin    bool         `yaml:"coin,omitempty"`
	Maze    bool         `yaml:"maze,omitempty"`
	Boat    bool         `yaml:"boat,omitempty"`
	Patrols []PatrolSpec `yaml:"patrols,omitempty"`
}

// Catalog is the ordered set of static worlds plus the lobby layout.
// Order matters: occupancy and bot-count payloads are positional.
type Catalog struct {
	Worlds []WorldSpec `yaml:"worlds"`
}

type lobbyFile struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Fill   string `yaml:"fill"`
}

// LoadCatalog reads the world catalog from path, or the embedded default
// when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultWorldsYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read worlds catalog: %w", err)
		}
		data = b
	}
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse worlds catalog: %w", err)
	}
	if len(cat.Worlds) == 0 {
		return nil, fmt.Errorf("worlds catalog is empty")
	}
	return &cat, nil
}

// LoadLobbyLayout reads the lobby grid from path, or the embedded default.
func LoadLobbyLayout(path string) ([][]string, error) {
	data := defaultLobbyYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read lobby layout: %w", err)
		}
		data = b
	}
	var lf lobbyFile
	if err := yaml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse lobby layout: %w", err)
	}
	return fillGrid(lf.Width, lf.Height, lf.Fill), nil
}

// Names lists the catalog's world names in order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.Worlds))
	for i, w := range c.Worlds {
		out[i] = w.Name
	}
	return out
}

// Spec returns a world's declaration by name.
func (c *Catalog) Spec(name string) (WorldSpec, bool) {
	for _, w := range c.Worlds {
		if w.Name == name {
			return w, true
		}
	}
	return WorldSpec{}, false
}

// BuildGrid renders a world's starting grid: the fill tile everywhere,
// a coin placed on a random walkable cell when the spec asks for one,
// or a scattered-wall grid for maze worlds.
func (s WorldSpec) BuildGrid(rng *rand.Rand) [][]string {
	if s.Maze {
		return scatterGrid(s.Width, s.Height, s.Fill, rng)
	}
	grid := fillGrid(s.Width, s.Height, s.Fill)
	if s.Coin {
		placeCoin(grid, s.Fill, rng)
		return grid
	}
	return grid
}

func fillGrid(width, height int, fill string) [][]string {
	grid := make([][]string, height)
	for y := range grid {
		row := make([]string, width)
		for x := range row {
			row[x] = fill
		}
		grid[y] = row
	}
	return grid
}

func placeCoin(grid [][]string, fill string, rng *rand.Rand) {
	height := len(grid)
	width := len(grid[0])
	for {
		x := rng.Intn(width)
		y := rng.Intn(height)
		if grid[y][x] == fill {
			grid[y][x] = "coin"
			return
		}
	}
}

// scatterGrid stands in for the maze generator (presentation-side concern):
// bordered walls plus a random interior scatter, regenerated whenever the
// world empties.
func scatterGrid(width, height int, fill string, rng *rand.Rand) [][]string {
	grid := fillGrid(width, height, fill)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			onBorder := x == 0 || y == 0 || x == width-1 || y == height-1
			if onBorder || (x%2 == 0 && y%2 == 0 && rng.Intn(3) == 0) {
				grid[y][x] = "wall"
			}
		}
	}
	// Keep an opening so the spawn corner is always reachable.
	grid[1][1] = fill
	grid[1][0] = fill
	return grid
}
