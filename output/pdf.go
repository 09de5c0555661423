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

package output

import (
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
	"seehuhn.de/go/pdf"
	"seehuhn.de/go/pdf/document"
	"seehuhn.de/go/pdf/graphics/color"

	"seehuhn.de/go/gcode2png/config"
	"seehuhn.de/go/gcode2png/scene"
)

// savePDF writes the display list of s as a single page vector image of
// the final size.
func (d *Driver) savePDF(s *scene.Session, out string) error {
	prims, err := s.Primitives()
	if err != nil {
		return err
	}

	set := d.Settings
	w, h := FinalSize(set.Width, set.Height, set.FinalWidth)
	paper := &pdf.Rectangle{URx: float64(w), URy: float64(h)}
	page, err := document.CreateSinglePage(out, paper, pdf.V1_7, nil)
	if err != nil {
		return err
	}

	page.SetFillColor(pdfColor(set.Colors.Background))
	page.Rectangle(0, 0, float64(w), float64(h))
	page.Fill()

	// screen coordinates have y pointing down
	k := float64(w) / float64(set.Width)
	page.Transform(matrix.Matrix{k, 0, 0, -k, 0, float64(h)})

	for _, prim := range prims {
		if prim.Fill {
			page.SetFillColor(pdfColor(prim.Color))
		} else {
			page.SetStrokeColor(pdfColor(prim.Color))
			page.SetLineWidth(prim.Width)
			page.SetLineCap(prim.Cap)
			page.SetLineJoin(prim.Join)
			if prim.MiterLimit >= 1 {
				page.SetMiterLimit(prim.MiterLimit)
			}
		}

		var current vec.Vec2
		for cmd, pts := range prim.Path {
			switch cmd {
			case path.CmdMoveTo:
				page.MoveTo(pts[0].X, pts[0].Y)
			case path.CmdLineTo:
				page.LineTo(pts[0].X, pts[0].Y)
			case path.CmdQuadTo:
				// PDF has no quadratic segments
				c1 := current.Add(pts[0].Sub(current).Mul(2.0 / 3))
				c2 := pts[1].Add(pts[0].Sub(pts[1]).Mul(2.0 / 3))
				page.CurveTo(c1.X, c1.Y, c2.X, c2.Y, pts[1].X, pts[1].Y)
			case path.CmdCubeTo:
				page.CurveTo(pts[0].X, pts[0].Y, pts[1].X, pts[1].Y, pts[2].X, pts[2].Y)
			case path.CmdClose:
				page.ClosePath()
				continue
			}
			current = pts[len(pts)-1]
		}

		if prim.Fill {
			page.Fill()
		} else {
			page.Stroke()
		}
	}

	return page.Close()
}

func pdfColor(c config.RGB) color.Color {
	return color.DeviceRGB(c)
}
