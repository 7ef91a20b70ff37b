package core

import (
	"time"

	"github.com/bramvdv/tileverse-server/internal/proto"
	"github.com/bramvdv/tileverse-server/internal/scheduler"
)

const (
	patrolStepPeriod = 700 * time.Millisecond
	boatStepPeriod   = 500 * time.Millisecond
)

// walker is a two-tile sprite shuffling between bounds on one axis. Every
// step mutates the grid in place and yields the cell deltas to broadcast.
type walker struct {
	spec PatrolSpec
	pos  int
	dir  int
}

func newWalker(spec PatrolSpec) *walker {
	pos := spec.X
	if spec.Axis == "v" {
		pos = spec.Y
	}
	if pos < spec.Min {
		pos = spec.Min
	}
	if pos > spec.Max {
		pos = spec.Max
	}
	return &walker{spec: spec, pos: pos, dir: 1}
}

func (w *walker) cell(offset int) (x, y int) {
	if w.spec.Axis == "v" {
		return w.spec.X, w.pos + offset
	}
	return w.pos + offset, w.spec.Y
}

// step advances the walker one cell, bouncing at its bounds.
func (w *walker) step(grid [][]string, fill string) []proto.TileUpdate {
	oldFrontX, oldFrontY := w.cell(0)
	oldBackX, oldBackY := w.cell(-w.dir)

	next := w.pos + w.dir
	if next > w.spec.Max || next < w.spec.Min {
		w.dir = -w.dir
		next = w.pos + w.dir
	}
	w.pos = next

	frontX, frontY := w.cell(0)
	backX, backY := w.cell(-w.dir)

	deltas := make([]proto.TileUpdate, 0, 4)
	for _, c := range [][2]int{{oldFrontX, oldFrontY}, {oldBackX, oldBackY}} {
		grid[c[1]][c[0]] = fill
		deltas = append(deltas, proto.TileUpdate{X: c[0], Y: c[1], Tile: fill})
	}
	grid[frontY][frontX] = w.spec.Front
	grid[backY][backX] = w.spec.Back
	deltas = append(deltas,
		proto.TileUpdate{X: frontX, Y: frontY, Tile: w.spec.Front},
		proto.TileUpdate{X: backX, Y: backY, Tile: w.spec.Back},
	)
	return deltas
}

// boat circles the world's perimeter one cell at a time, clockwise.
type boat struct {
	x, y   int
	width  int
	height int
}

func newBoat(width, height int) *boat {
	return &boat{x: 0, y: 0, width: width, height: height}
}

func (b *boat) step(grid [][]string, fill string) []proto.TileUpdate {
	oldX, oldY := b.x, b.y
	switch {
	case b.y == 0 && b.x < b.width-1:
		b.x++
	case b.x == b.width-1 && b.y < b.height-1:
		b.y++
	case b.y == b.height-1 && b.x > 0:
		b.x--
	default:
		b.y--
	}
	grid[oldY][oldX] = fill
	grid[b.y][b.x] = "boat"
	return []proto.TileUpdate{
		{X: oldX, Y: oldY, Tile: fill},
		{X: b.x, Y: b.y, Tile: "boat"},
	}
}

// StartLoops attaches the world's background animations to the room. emit
// runs on the hub loop (the scheduler funnels every tick through it) and
// broadcasts the deltas to the room's positioned members. Loops skip steps
// while the room is paused for a fresh join.
func StartLoops(room *Room, spec WorldSpec, sched *scheduler.Scheduler, now func() time.Time, emit func(room *Room, tiles []proto.TileUpdate)) {
	for _, ps := range spec.Patrols {
		w := newWalker(ps)
		task := sched.Every(patrolStepPeriod, func() {
			if room.Paused(now()) {
				return
			}
			emit(room, w.step(room.Grid, spec.Fill))
		})
		room.AttachTask(task)
	}
	if spec.Boat {
		b := newBoat(spec.Width, spec.Height)
		task := sched.Every(boatStepPeriod, func() {
			if room.Paused(now()) {
				return
			}
			emit(room, b.step(room.Grid, spec.Fill))
		})
		room.AttachTask(task)
	}
}
