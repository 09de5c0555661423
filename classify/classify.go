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

// Package classify partitions the moves of a toolpath into the point
// streams which are drawn: deposited material, travel moves and support.
package classify

import (
	"github.com/go-gl/mathgl/mgl64"

	"seehuhn.de/go/gcode2png/gcode"
)

// Options select the optional streams.
type Options struct {
	Moves   bool // include travel moves
	Support bool // include support structures
}

// Strategy is the classification rule applied to a model.
type Strategy int

const (
	// MultiLayer classifies by segment kind, layer by layer.
	MultiLayer Strategy = iota
	// SingleLayer classifies a flat model by motion command.
	SingleLayer
)

func (s Strategy) String() string {
	if s == SingleLayer {
		return "single-layer"
	}
	return "multi-layer"
}

// StrategyFor returns SingleLayer if the object of m has exactly one
// layer, and MultiLayer otherwise.
func StrategyFor(m *gcode.Model) Strategy {
	if m != nil && m.Object != nil && len(m.Object.Layers) == 1 {
		return SingleLayer
	}
	return MultiLayer
}

// Geometry holds the classified points in drawing order. Every segment
// contributes its end point to at most one stream.
type Geometry struct {
	Object  []mgl64.Vec3
	Travel  []mgl64.Vec3
	Support []mgl64.Vec3
}

// Empty reports whether no points were classified.
func (g *Geometry) Empty() bool {
	return len(g.Object) == 0 && len(g.Travel) == 0 && len(g.Support) == 0
}

// Classify walks m and sorts its segments into streams.
//
// For a single-layer model, Linear moves go to Object and all other moves
// go to Travel if enabled. Support is never included in this case.
//
// Otherwise Deposit segments go to Object and Travel segments go to Travel
// if enabled. Undefined segments are dropped. If enabled, every segment of
// the support sub-model goes to Support.
//
// Classify does not modify m. A nil model gives empty streams.
func Classify(m *gcode.Model, opt Options) *Geometry {
	g := &Geometry{}
	if m == nil || m.Object == nil {
		return g
	}

	switch StrategyFor(m) {
	case SingleLayer:
		for _, seg := range m.Object.Layers[0].Segments {
			if seg.Command == gcode.Linear {
				g.Object = append(g.Object, seg.Pos)
			} else if opt.Moves {
				g.Travel = append(g.Travel, seg.Pos)
			}
		}

	case MultiLayer:
		for _, layer := range m.Object.Layers {
			for _, seg := range layer.Segments {
				switch seg.Kind {
				case gcode.Deposit:
					g.Object = append(g.Object, seg.Pos)
				case gcode.Travel:
					if opt.Moves {
						g.Travel = append(g.Travel, seg.Pos)
					}
				}
			}
		}
		if opt.Support && m.Support != nil {
			for _, layer := range m.Support.Layers {
				for _, seg := range layer.Segments {
					g.Support = append(g.Support, seg.Pos)
				}
			}
		}
	}
	return g
}
