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

package raster

import (
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// Outline is a path made of straight segments. The zero value is an
// empty path, ready to use.
type Outline struct {
	cmds []path.Command
	pts  []vec.Vec2 // one point per command, except for CmdClose
}

// MoveTo starts a new subpath at p.
func (o *Outline) MoveTo(p vec.Vec2) *Outline {
	o.cmds = append(o.cmds, path.CmdMoveTo)
	o.pts = append(o.pts, p)
	return o
}

// LineTo adds a straight segment to p.
func (o *Outline) LineTo(p vec.Vec2) *Outline {
	o.cmds = append(o.cmds, path.CmdLineTo)
	o.pts = append(o.pts, p)
	return o
}

// Close closes the current subpath.
func (o *Outline) Close() *Outline {
	o.cmds = append(o.cmds, path.CmdClose)
	return o
}

// Len returns the number of path commands.
func (o *Outline) Len() int {
	return len(o.cmds)
}

// Points returns all vertices of the outline, in order.
func (o *Outline) Points() []vec.Vec2 {
	return o.pts
}

// Path returns an iterator over the commands of o. The point slices
// passed to yield are only valid during the call.
func (o *Outline) Path() path.Path {
	return func(yield func(path.Command, []vec.Vec2) bool) {
		var buf [1]vec.Vec2
		i := 0
		for _, cmd := range o.cmds {
			if cmd == path.CmdClose {
				if !yield(cmd, nil) {
					return
				}
				continue
			}
			buf[0] = o.pts[i]
			i++
			if !yield(cmd, buf[:]) {
				return
			}
		}
	}
}
