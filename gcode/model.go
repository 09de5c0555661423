// seehuhn.de/go/gcode2png - render 3D printer toolpaths to images
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package gcode reads the motion commands of a G-code file into a layered
// model of tool-head moves.
package gcode

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Command is the motion command that produced a segment.
type Command int

const (
	// Rapid is a positioning move (G0).
	Rapid Command = iota
	// Linear is a controlled move (G1, and the chords of G2/G3 arcs).
	Linear
)

func (c Command) String() string {
	switch c {
	case Rapid:
		return "rapid"
	case Linear:
		return "linear"
	default:
		return fmt.Sprintf("Command(%d)", int(c))
	}
}

// Kind tells whether material was laid down during a move.
type Kind int

const (
	// Undefined marks moves which neither deposit nor travel, for example
	// extruder-only retractions.
	Undefined Kind = iota
	// Deposit marks moves which extrude material.
	Deposit
	// Travel marks moves of the tool head without extrusion.
	Travel
)

func (k Kind) String() string {
	switch k {
	case Undefined:
		return "undefined"
	case Deposit:
		return "deposit"
	case Travel:
		return "travel"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Segment is a single move. Pos is the position at the end of the move,
// in millimetres.
type Segment struct {
	Command Command
	Kind    Kind
	Pos     mgl64.Vec3
	Line    int // source line, 1-based
}

// Layer holds the moves made at one height.
type Layer struct {
	Z        float64
	Segments []Segment
}

// SubModel is a sequence of layers, bottom to top.
type SubModel struct {
	Layers []Layer
}

// NumSegments returns the total number of segments in all layers.
func (sm *SubModel) NumSegments() int {
	if sm == nil {
		return 0
	}
	n := 0
	for i := range sm.Layers {
		n += len(sm.Layers[i].Segments)
	}
	return n
}

// add appends seg, starting a new layer whenever the height changes.
func (sm *SubModel) add(seg Segment) {
	z := seg.Pos.Z()
	if n := len(sm.Layers); n == 0 || sm.Layers[n-1].Z != z {
		sm.Layers = append(sm.Layers, Layer{Z: z})
	}
	last := &sm.Layers[len(sm.Layers)-1]
	last.Segments = append(last.Segments, seg)
}

// Model is a parsed toolpath. Support is nil if the file contains no
// support structures.
type Model struct {
	Object  *SubModel
	Support *SubModel
}
